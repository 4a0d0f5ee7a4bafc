package document

import (
	"slices"

	"github.com/inamate/designkit/internal/geom"
)

// Kind names a layer variant.
type Kind string

const (
	KindText         Kind = "text"
	KindShape        Kind = "shape"
	KindImage        Kind = "image"
	KindIcon         Kind = "icon"
	KindPath         Kind = "path"
	KindFrame        Kind = "frame"
	KindGroup        Kind = "group"
	KindBooleanGroup Kind = "boolean-group"
)

// IsContainer reports whether layers of this kind may have children.
func (k Kind) IsContainer() bool {
	switch k {
	case KindFrame, KindGroup, KindBooleanGroup:
		return true
	}
	return false
}

// Content is the kind-specific payload of a layer. The implementations are
// Text, Shape, Image, Icon, Path, Frame, Group and BooleanGroup.
type Content interface {
	Kind() Kind
	isContent()
}

type TextAlign string

const (
	AlignLeft    TextAlign = "left"
	AlignCenter  TextAlign = "center"
	AlignRight   TextAlign = "right"
	AlignJustify TextAlign = "justify"
)

type TextStyle struct {
	FontFamily    string    `json:"fontFamily"`
	FontSize      float64   `json:"fontSize"`
	FontWeight    int       `json:"fontWeight"`
	Italic        bool      `json:"italic,omitempty"`
	Color         Color     `json:"color"`
	Align         TextAlign `json:"align"`
	LineHeight    float64   `json:"lineHeight"`
	LetterSpacing float64   `json:"letterSpacing,omitempty"`
}

// TextRun overrides the base style for the byte range [Start, End).
type TextRun struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Style TextStyle `json:"style"`
}

// Text holds string content. MaxWidth is the wrap width; zero disables
// wrapping.
type Text struct {
	Content  string    `json:"content"`
	Style    TextStyle `json:"style"`
	Runs     []TextRun `json:"runs,omitempty"`
	MaxWidth float64   `json:"maxWidth"`
}

// DefaultTextStyle is the style new text layers start with.
func DefaultTextStyle() TextStyle {
	return TextStyle{
		FontFamily: "Go",
		FontSize:   16,
		FontWeight: 400,
		Color:      Black,
		Align:      AlignLeft,
		LineHeight: 1.2,
	}
}

type ShapeType string

const (
	ShapeRect    ShapeType = "rect"
	ShapeEllipse ShapeType = "ellipse"
	ShapePolygon ShapeType = "polygon"
	ShapeStar    ShapeType = "star"
	ShapeLine    ShapeType = "line"
)

// ShapeGeometry describes a parametric shape inside the layer box.
// CornerRadii run top-left, top-right, bottom-right, bottom-left.
type ShapeGeometry struct {
	Type        ShapeType  `json:"type"`
	CornerRadii [4]float64 `json:"cornerRadii"`
	Sides       int        `json:"sides,omitempty"`
	InnerRatio  float64    `json:"innerRatio,omitempty"`
}

type Shape struct {
	Geometry ShapeGeometry `json:"geometry"`
	Fills    Paints        `json:"fills"`
	Strokes  []Stroke      `json:"strokes"`
}

type ImageFilters struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Blur       float64 `json:"blur"`
	Grayscale  bool    `json:"grayscale"`
}

// Image references a bitmap by source. Crop is in source pixels; an empty
// crop means the whole image. Focal is normalized to the image box.
type Image struct {
	Source  string       `json:"source"`
	Fit     ImageFit     `json:"fit"`
	Crop    geom.Rect    `json:"crop"`
	Focal   geom.Point   `json:"focal"`
	Filters ImageFilters `json:"filters"`
}

type SegmentOp string

const (
	SegMoveTo  SegmentOp = "M"
	SegLineTo  SegmentOp = "L"
	SegQuadTo  SegmentOp = "Q"
	SegCubicTo SegmentOp = "C"
	SegClose   SegmentOp = "Z"
)

// PathSegment is one drawing instruction. MoveTo and LineTo use one point,
// QuadTo two, CubicTo three and Close none.
type PathSegment struct {
	Op     SegmentOp    `json:"op"`
	Points []geom.Point `json:"points,omitempty"`
}

// Icon is a glyph from the icon library. Outline is in a unit box and is
// scaled to the layer size.
type Icon struct {
	Name    string        `json:"name"`
	Color   Color         `json:"color"`
	Outline []PathSegment `json:"outline,omitempty"`
}

// Path is a free-form vector in layer-local coordinates.
type Path struct {
	Segments []PathSegment `json:"segments"`
	Closed   bool          `json:"closed"`
	Fills    Paints        `json:"fills"`
	Strokes  []Stroke      `json:"strokes"`
}

// Frame is a container that can clip its children. The root artboard is a
// frame.
type Frame struct {
	Fills       Paints `json:"fills"`
	ClipContent bool   `json:"clipContent"`
}

type Group struct{}

type BooleanOp string

const (
	BoolUnion     BooleanOp = "union"
	BoolSubtract  BooleanOp = "subtract"
	BoolIntersect BooleanOp = "intersect"
	BoolExclude   BooleanOp = "exclude"
)

type BooleanGroup struct {
	Op      BooleanOp `json:"op"`
	Fills   Paints    `json:"fills"`
	Strokes []Stroke  `json:"strokes"`
}

func (Text) Kind() Kind         { return KindText }
func (Shape) Kind() Kind        { return KindShape }
func (Image) Kind() Kind        { return KindImage }
func (Icon) Kind() Kind         { return KindIcon }
func (Path) Kind() Kind         { return KindPath }
func (Frame) Kind() Kind        { return KindFrame }
func (Group) Kind() Kind        { return KindGroup }
func (BooleanGroup) Kind() Kind { return KindBooleanGroup }

func (Text) isContent()         {}
func (Shape) isContent()        {}
func (Image) isContent()        {}
func (Icon) isContent()         {}
func (Path) isContent()         {}
func (Frame) isContent()        {}
func (Group) isContent()        {}
func (BooleanGroup) isContent() {}

func cloneSegments(segs []PathSegment) []PathSegment {
	if segs == nil {
		return nil
	}
	out := make([]PathSegment, len(segs))
	for i, s := range segs {
		out[i] = PathSegment{Op: s.Op, Points: slices.Clone(s.Points)}
	}
	return out
}

func cloneContent(c Content) Content {
	switch c := c.(type) {
	case Text:
		c.Runs = slices.Clone(c.Runs)
		return c
	case Shape:
		c.Fills = c.Fills.clone()
		c.Strokes = cloneStrokes(c.Strokes)
		return c
	case Icon:
		c.Outline = cloneSegments(c.Outline)
		return c
	case Path:
		c.Segments = cloneSegments(c.Segments)
		c.Fills = c.Fills.clone()
		c.Strokes = cloneStrokes(c.Strokes)
		return c
	case Frame:
		c.Fills = c.Fills.clone()
		return c
	case BooleanGroup:
		c.Fills = c.Fills.clone()
		c.Strokes = cloneStrokes(c.Strokes)
		return c
	}
	return c
}

// FillsOf returns the fills carried by c, if its kind has any.
func FillsOf(c Content) Paints {
	switch c := c.(type) {
	case Shape:
		return c.Fills
	case Path:
		return c.Fills
	case Frame:
		return c.Fills
	case BooleanGroup:
		return c.Fills
	}
	return nil
}

// StrokesOf returns the strokes carried by c, if its kind has any.
func StrokesOf(c Content) []Stroke {
	switch c := c.(type) {
	case Shape:
		return c.Strokes
	case Path:
		return c.Strokes
	case BooleanGroup:
		return c.Strokes
	}
	return nil
}

func validateContent(c Content) error {
	if c == nil {
		return ErrInvalidDocument
	}
	for _, p := range FillsOf(c) {
		if err := validatePaint(p); err != nil {
			return err
		}
	}
	for _, s := range StrokesOf(c) {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
