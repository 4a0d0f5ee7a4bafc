package document

import (
	"github.com/inamate/designkit/internal/geom"
	"github.com/inamate/designkit/internal/typeid"
)

// NewID draws a fresh layer id.
func NewID() LayerID {
	return LayerID(typeid.NewLayerID())
}

// NewArtboard returns a document whose root is a white frame of the given
// size that clips its content.
func NewArtboard(name string, width, height float64) Document {
	root := NewLayer(NewID(), name, geom.Rect{Width: width, Height: height}, Frame{
		Fills:       Paints{SolidPaint{Color: White}},
		ClipContent: true,
	})
	doc, err := New(root)
	if err != nil {
		// A frame with a solid fill always validates.
		panic(err)
	}
	return doc
}

// NewRect returns a rectangle layer with one solid fill.
func NewRect(name string, box geom.Rect, fill Color) Layer {
	return NewLayer(NewID(), name, box, Shape{
		Geometry: ShapeGeometry{Type: ShapeRect},
		Fills:    Paints{SolidPaint{Color: fill}},
	})
}

// NewEllipse returns an ellipse layer with one solid fill.
func NewEllipse(name string, box geom.Rect, fill Color) Layer {
	return NewLayer(NewID(), name, box, Shape{
		Geometry: ShapeGeometry{Type: ShapeEllipse},
		Fills:    Paints{SolidPaint{Color: fill}},
	})
}

// NewText returns a text layer wrapping at the box width.
func NewText(name string, box geom.Rect, content string) Layer {
	return NewLayer(NewID(), name, box, Text{
		Content:  content,
		Style:    DefaultTextStyle(),
		MaxWidth: box.Width,
	})
}

// NewSampleDocument returns a small banner used to seed new documents.
func NewSampleDocument() Document {
	doc := NewArtboard("Banner", 1200, 628)

	bg := NewRect("Background", geom.Rect{Width: 1200, Height: 628}, MustHex("#1a1a2e"))
	bg.Locked = true
	bg.Content = Shape{
		Geometry: ShapeGeometry{Type: ShapeRect},
		Fills: Paints{GradientPaint{
			Type: GradientLinear,
			Stops: []ColorStop{
				{Offset: 0, Color: MustHex("#1a1a2e")},
				{Offset: 1, Color: MustHex("#16213e")},
			},
			Transform: geom.Identity(),
			Spread:    SpreadPad,
		}},
	}

	card := NewRect("Card", geom.Rect{X: 80, Y: 120, Width: 480, Height: 320}, MustHex("#e94560"))
	card.Content = Shape{
		Geometry: ShapeGeometry{Type: ShapeRect, CornerRadii: [4]float64{24, 24, 24, 24}},
		Fills:    Paints{SolidPaint{Color: MustHex("#e94560")}},
		Strokes:  []Stroke{NewStroke(Black.WithAlpha(0.2), 2)},
	}
	card.Effects = Effects{DropShadow{
		Enabled: true,
		Color:   Black.WithAlpha(0.35),
		Offset:  geom.Pt(0, 8),
		Blur:    24,
	}}

	title := NewText("Headline", geom.Rect{X: 120, Y: 180, Width: 400, Height: 64}, "Design anything")
	tc := title.Content.(Text)
	tc.Style.FontSize = 48
	tc.Style.FontWeight = 700
	tc.Style.Color = White
	title.Content = tc
	title.Tags = []string{"headline", "ai:copy"}

	dot := NewEllipse("Accent", geom.Rect{X: 860, Y: 220, Width: 180, Height: 180}, MustHex("#0f3460"))

	group := NewLayer(NewID(), "Hero", geom.Rect{}, Group{})
	hero := Node{Layer: group, Children: []Node{{Layer: card}, {Layer: title}}}

	for _, n := range []Node{{Layer: bg}, hero, {Layer: dot}} {
		next, err := doc.Insert(doc.Root(), -1, n)
		if err != nil {
			panic(err)
		}
		doc = next
	}
	return doc
}
