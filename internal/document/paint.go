package document

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/inamate/designkit/internal/geom"
)

// PaintType discriminates the Paint variants.
type PaintType string

const (
	PaintSolid    PaintType = "solid"
	PaintGradient PaintType = "gradient"
	PaintPattern  PaintType = "pattern"
	PaintImage    PaintType = "image"
)

// Paint is a fill or stroke color source. The set of implementations is
// closed: SolidPaint, GradientPaint, PatternPaint and ImagePaint.
type Paint interface {
	PaintType() PaintType
	isPaint()
}

// SolidPaint fills with one color.
type SolidPaint struct {
	Color Color `json:"color"`
}

type GradientType string

const (
	GradientLinear  GradientType = "linear"
	GradientRadial  GradientType = "radial"
	GradientAngular GradientType = "angular"
	GradientDiamond GradientType = "diamond"
)

type SpreadMode string

const (
	SpreadPad     SpreadMode = "pad"
	SpreadRepeat  SpreadMode = "repeat"
	SpreadReflect SpreadMode = "reflect"
)

// ColorStop is a color at an offset along a gradient.
type ColorStop struct {
	Offset float64 `json:"offset"`
	Color  Color   `json:"color"`
}

// GradientPaint interpolates between stops. Stops keep their insertion
// order; use SortedStops before interpolating.
//
// Transform maps the unit gradient space onto the layer's normalized box
// ([0,1] on both axes). Linear gradients run from (0,0.5) to (1,0.5);
// radial, angular and diamond gradients are centered on (0.5,0.5) with
// radius 0.5.
type GradientPaint struct {
	Type      GradientType `json:"type"`
	Stops     []ColorStop  `json:"stops"`
	Transform geom.Matrix  `json:"transform"`
	Spread    SpreadMode   `json:"spread"`
}

// SortedStops returns a copy of the stops ordered by offset. Equal offsets
// keep their insertion order.
func (g GradientPaint) SortedStops() []ColorStop {
	stops := slices.Clone(g.Stops)
	slices.SortStableFunc(stops, func(a, b ColorStop) int {
		return cmp.Compare(a.Offset, b.Offset)
	})
	return stops
}

// Validate checks the stop count and offsets.
func (g GradientPaint) Validate() error {
	if len(g.Stops) < 2 {
		return fmt.Errorf("%w: gradient needs at least 2 stops, has %d", ErrInvalidDocument, len(g.Stops))
	}
	for i, s := range g.Stops {
		if s.Offset < 0 || s.Offset > 1 {
			return fmt.Errorf("%w: gradient stop %d offset %v outside [0,1]", ErrInvalidDocument, i, s.Offset)
		}
	}
	return nil
}

type PatternType string

const (
	PatternDots    PatternType = "dots"
	PatternStripes PatternType = "stripes"
	PatternGrid    PatternType = "grid"
	PatternChecker PatternType = "checker"
)

// PatternPaint is a procedural repeating pattern.
type PatternPaint struct {
	Type     PatternType `json:"type"`
	Color    Color       `json:"color"`
	Scale    float64     `json:"scale"`
	Rotation float64     `json:"rotation"`
	Opacity  float64     `json:"opacity"`
	Spacing  float64     `json:"spacing"`
}

type ImageFit string

const (
	FitFill ImageFit = "fill"
	FitFit  ImageFit = "fit"
	FitCrop ImageFit = "crop"
	FitTile ImageFit = "tile"
)

// ImagePaint fills with an image resolved by source reference.
type ImagePaint struct {
	Source string   `json:"source"`
	Fit    ImageFit `json:"fit"`
}

func (SolidPaint) PaintType() PaintType    { return PaintSolid }
func (GradientPaint) PaintType() PaintType { return PaintGradient }
func (PatternPaint) PaintType() PaintType  { return PaintPattern }
func (ImagePaint) PaintType() PaintType    { return PaintImage }

func (SolidPaint) isPaint()    {}
func (GradientPaint) isPaint() {}
func (PatternPaint) isPaint()  {}
func (ImagePaint) isPaint()    {}

// Paints is an ordered paint list (bottom first).
type Paints []Paint

func (ps Paints) clone() Paints {
	if ps == nil {
		return nil
	}
	out := make(Paints, len(ps))
	for i, p := range ps {
		out[i] = clonePaint(p)
	}
	return out
}

func clonePaint(p Paint) Paint {
	if g, ok := p.(GradientPaint); ok {
		g.Stops = slices.Clone(g.Stops)
		return g
	}
	return p
}

func validatePaint(p Paint) error {
	switch p := p.(type) {
	case nil:
		return fmt.Errorf("%w: nil paint", ErrInvalidDocument)
	case GradientPaint:
		return p.Validate()
	}
	return nil
}

type StrokeAlign string

const (
	StrokeCenter  StrokeAlign = "center"
	StrokeInside  StrokeAlign = "inside"
	StrokeOutside StrokeAlign = "outside"
)

type LineCap string

const (
	CapButt   LineCap = "butt"
	CapRound  LineCap = "round"
	CapSquare LineCap = "square"
)

type LineJoin string

const (
	JoinMiter LineJoin = "miter"
	JoinRound LineJoin = "round"
	JoinBevel LineJoin = "bevel"
)

// Stroke describes one outline pass.
type Stroke struct {
	Paint      Paint       `json:"-"`
	Width      float64     `json:"width"`
	Align      StrokeAlign `json:"align"`
	Cap        LineCap     `json:"cap"`
	Join       LineJoin    `json:"join"`
	MiterLimit float64     `json:"miterLimit"`
	Dash       []float64   `json:"dash,omitempty"`
}

// NewStroke returns a centered solid stroke with butt caps and miter joins.
func NewStroke(c Color, width float64) Stroke {
	return Stroke{
		Paint:      SolidPaint{Color: c},
		Width:      width,
		Align:      StrokeCenter,
		Cap:        CapButt,
		Join:       JoinMiter,
		MiterLimit: 4,
	}
}

// Validate checks width, dash lengths and the paint.
func (s Stroke) Validate() error {
	if s.Width < 0 {
		return fmt.Errorf("%w: negative stroke width %v", ErrInvalidDocument, s.Width)
	}
	for _, d := range s.Dash {
		if d < 0 {
			return fmt.Errorf("%w: negative dash length %v", ErrInvalidDocument, d)
		}
	}
	return validatePaint(s.Paint)
}

// Outset returns how far the stroke reaches outside the geometry.
func (s Stroke) Outset() float64 {
	switch s.Align {
	case StrokeInside:
		return 0
	case StrokeOutside:
		return s.Width
	default:
		return s.Width / 2
	}
}

func cloneStrokes(ss []Stroke) []Stroke {
	if ss == nil {
		return nil
	}
	out := make([]Stroke, len(ss))
	for i, s := range ss {
		s.Paint = clonePaint(s.Paint)
		s.Dash = slices.Clone(s.Dash)
		out[i] = s
	}
	return out
}
