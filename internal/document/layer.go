package document

import (
	"fmt"
	"math"
	"slices"

	"github.com/inamate/designkit/internal/geom"
)

// LayerID identifies a layer. New ids come from typeid with the "lyr" prefix.
type LayerID string

type BlendMode string

const (
	BlendNormal     BlendMode = "normal"
	BlendMultiply   BlendMode = "multiply"
	BlendScreen     BlendMode = "screen"
	BlendOverlay    BlendMode = "overlay"
	BlendDarken     BlendMode = "darken"
	BlendLighten    BlendMode = "lighten"
	BlendColorDodge BlendMode = "color-dodge"
	BlendColorBurn  BlendMode = "color-burn"
	BlendHardLight  BlendMode = "hard-light"
	BlendSoftLight  BlendMode = "soft-light"
	BlendDifference BlendMode = "difference"
	BlendExclusion  BlendMode = "exclusion"
	BlendHue        BlendMode = "hue"
	BlendSaturation BlendMode = "saturation"
	BlendColor      BlendMode = "color"
	BlendLuminosity BlendMode = "luminosity"
)

// BlendModes lists every compositing mode.
var BlendModes = []BlendMode{
	BlendNormal, BlendMultiply, BlendScreen, BlendOverlay,
	BlendDarken, BlendLighten, BlendColorDodge, BlendColorBurn,
	BlendHardLight, BlendSoftLight, BlendDifference, BlendExclusion,
	BlendHue, BlendSaturation, BlendColor, BlendLuminosity,
}

// Valid reports whether b is a known mode. The empty string means normal.
func (b BlendMode) Valid() bool {
	return b == "" || slices.Contains(BlendModes, b)
}

// Constraint is the resize-anchoring rule of a child inside its parent
// frame. Min anchors to the left/top edge, max to the right/bottom edge.
type Constraint string

const (
	ConstraintMin     Constraint = "min"
	ConstraintMax     Constraint = "max"
	ConstraintCenter  Constraint = "center"
	ConstraintStretch Constraint = "stretch"
	ConstraintScale   Constraint = "scale"
)

type Constraints struct {
	Horizontal Constraint `json:"horizontal"`
	Vertical   Constraint `json:"vertical"`
}

// Transform places a layer inside its parent. Position is the top-left of
// the unrotated box, Size its extent, Rotation is in degrees about the box
// center.
type Transform struct {
	Position geom.Point `json:"position"`
	Size     geom.Point `json:"size"`
	Rotation float64    `json:"rotation"`
}

// Matrix maps layer-local coordinates to parent coordinates.
func (t Transform) Matrix() geom.Matrix {
	return geom.FromBox(t.Position, t.Size, t.Rotation)
}

// Box returns the unrotated box in parent coordinates.
func (t Transform) Box() geom.Rect {
	return geom.Rect{X: t.Position.X, Y: t.Position.Y, Width: t.Size.X, Height: t.Size.Y}
}

// Layer is one visual element. Layers are values: the document never hands
// out a reference to its stored copy.
type Layer struct {
	ID          LayerID     `json:"id"`
	Name        string      `json:"name"`
	Visible     bool        `json:"visible"`
	Locked      bool        `json:"locked"`
	Opacity     float64     `json:"opacity"`
	BlendMode   BlendMode   `json:"blendMode"`
	Transform   Transform   `json:"transform"`
	Constraints Constraints `json:"constraints"`
	Effects     Effects     `json:"effects"`
	Tags        []string    `json:"tags"`
	Content     Content     `json:"-"`
}

// NewLayer returns a visible, opaque layer with default constraints.
func NewLayer(id LayerID, name string, box geom.Rect, content Content) Layer {
	return Layer{
		ID:        id,
		Name:      name,
		Visible:   true,
		Opacity:   1,
		BlendMode: BlendNormal,
		Transform: Transform{
			Position: geom.Pt(box.X, box.Y),
			Size:     geom.Pt(box.Width, box.Height),
		},
		Constraints: Constraints{Horizontal: ConstraintMin, Vertical: ConstraintMin},
		Content:     content,
	}
}

// Kind returns the kind of the layer's content.
func (l Layer) Kind() Kind {
	if l.Content == nil {
		return ""
	}
	return l.Content.Kind()
}

// Selectable reports whether pointer interaction may pick the layer.
func (l Layer) Selectable() bool {
	return l.Visible && !l.Locked
}

// Clone returns a deep copy.
func (l Layer) Clone() Layer {
	l.Effects = l.Effects.clone()
	l.Tags = slices.Clone(l.Tags)
	l.Content = cloneContent(l.Content)
	return l
}

// normalize clamps opacity and size and canonicalizes tags.
func (l Layer) normalize() Layer {
	l.Opacity = clampOpacity(l.Opacity)
	if l.BlendMode == "" {
		l.BlendMode = BlendNormal
	}
	l.Transform.Size.X = max(0, l.Transform.Size.X)
	l.Transform.Size.Y = max(0, l.Transform.Size.Y)
	l.Tags = NormalizeTags(l.Tags)
	return l
}

// Validate checks the layer's own fields.
func (l Layer) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("%w: layer without id", ErrInvalidDocument)
	}
	if l.Content == nil {
		return fmt.Errorf("%w: layer %s has no content", ErrInvalidDocument, l.ID)
	}
	if !l.BlendMode.Valid() {
		return fmt.Errorf("%w: layer %s blend mode %q", ErrInvalidDocument, l.ID, l.BlendMode)
	}
	t := l.Transform
	for _, v := range []float64{t.Position.X, t.Position.Y, t.Size.X, t.Size.Y, t.Rotation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: layer %s transform is not finite", ErrInvalidGeometry, l.ID)
		}
	}
	if err := validateContent(l.Content); err != nil {
		return fmt.Errorf("layer %s: %w", l.ID, err)
	}
	return nil
}

// NormalizeTags sorts and deduplicates tags, dropping empty strings.
func NormalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := slices.DeleteFunc(slices.Clone(tags), func(s string) bool { return s == "" })
	slices.Sort(out)
	return slices.Compact(out)
}

func clampOpacity(v float64) float64 {
	if math.IsNaN(v) {
		return 1
	}
	return min(1, max(0, v))
}
