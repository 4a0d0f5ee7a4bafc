package document

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/inamate/designkit/internal/geom"
)

func TestCodecRoundTrip(t *testing.T) {
	doc := NewSampleDocument()
	kids := doc.Children(doc.Root())
	doc = doc.WithSelection([]LayerID{kids[2], kids[1]})

	data, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Equal(doc) {
		t.Fatalf("round trip changed the document:\n%s", data)
	}
}

func TestCodecAllVariants(t *testing.T) {
	doc := testDoc(t)
	l, _ := doc.Layer("d")
	l.Effects = Effects{
		DropShadow{Enabled: true, Color: Black, Offset: geom.Pt(1, 2), Blur: 3, Spread: 1},
		InnerShadow{Enabled: true, Color: White, Blur: 2},
		Blur{Enabled: true, Radius: 4},
		Glow{Radius: 2, Color: White},
		Outline{Enabled: true, Width: 1, Color: Black},
		ColorAdjust{Enabled: true, Brightness: 0.1},
		Noise{Enabled: true, Amount: 0.2, Seed: 7},
	}
	l.Content = Shape{
		Geometry: ShapeGeometry{Type: ShapeStar, Sides: 5, InnerRatio: 0.4},
		Fills: Paints{
			SolidPaint{Color: White},
			GradientPaint{
				Type:      GradientDiamond,
				Stops:     []ColorStop{{Offset: 0.7, Color: Black}, {Offset: 0.1, Color: White}},
				Transform: geom.Scale(2, 1),
				Spread:    SpreadReflect,
			},
			PatternPaint{Type: PatternChecker, Color: Black, Scale: 1, Opacity: 0.5, Spacing: 8},
			ImagePaint{Source: "asset_1", Fit: FitTile},
		},
		Strokes: []Stroke{{
			Paint: SolidPaint{Color: Black}, Width: 2, Align: StrokeOutside,
			Cap: CapRound, Join: JoinBevel, MiterLimit: 4, Dash: []float64{4, 2},
		}},
	}
	doc, err := doc.WithLayer(l)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range []Node{
		{Layer: NewLayer("t", "t", geom.Rect{Width: 10, Height: 10}, Text{Content: "hi", Style: DefaultTextStyle(), Runs: []TextRun{{Start: 0, End: 1, Style: DefaultTextStyle()}}})},
		{Layer: NewLayer("i", "i", geom.Rect{Width: 10, Height: 10}, Image{Source: "x", Fit: FitCrop, Crop: geom.Rect{Width: 5, Height: 5}, Focal: geom.Pt(0.5, 0.5)})},
		{Layer: NewLayer("ic", "ic", geom.Rect{Width: 10, Height: 10}, Icon{Name: "star", Color: Black, Outline: []PathSegment{{Op: SegMoveTo, Points: []geom.Point{{X: 0, Y: 0}}}, {Op: SegClose}}})},
		{Layer: NewLayer("p", "p", geom.Rect{Width: 10, Height: 10}, Path{Segments: []PathSegment{{Op: SegCubicTo, Points: []geom.Point{{X: 1}, {X: 2}, {X: 3}}}}, Closed: true})},
		{Layer: NewLayer("bg", "bg", geom.Rect{}, BooleanGroup{Op: BoolSubtract}), Children: []Node{{Layer: rect("inside", 0, 0, 1, 1)}}},
	} {
		doc, err = doc.Insert("root", -1, n)
		if err != nil {
			t.Fatalf("Insert %s: %v", n.Layer.ID, err)
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Document
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Equal(doc) {
		t.Fatalf("round trip changed the document:\n%s", data)
	}
}

func TestUnmarshalRejects(t *testing.T) {
	doc := testDoc(t)
	l, _ := doc.Layer("a")
	l.Content = Shape{Fills: Paints{GradientPaint{Type: GradientLinear, Stops: []ColorStop{{Offset: 0, Color: Black}}}}}
	if _, err := doc.WithLayer(l); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("WithLayer single-stop gradient err = %v", err)
	}

	good, err := Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		mutate func(string) string
	}{
		{"unknown kind", func(s string) string { return strings.Replace(s, `"type":"shape"`, `"type":"blob"`, 1) }},
		{"missing child", func(s string) string { return strings.Replace(s, `["b","c"]`, `["b","c","zz"]`, 1) }},
		{"duplicate child", func(s string) string { return strings.Replace(s, `["b","c"]`, `["b","b"]`, 1) }},
		{"bad selection", func(s string) string { return strings.Replace(s, `"selection":null`, `"selection":["root"]`, 1) }},
		{"garbage", func(string) string { return "{" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(string(good))
			if data == string(good) {
				t.Fatal("mutation did not apply")
			}
			if _, err := Unmarshal([]byte(data)); !errors.Is(err, ErrInvalidDocument) && !errors.Is(err, ErrReferenceMissing) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestPatchJSON(t *testing.T) {
	pos := geom.Pt(4, 5)
	p := Patch{Position: &pos, Content: Text{Content: "x", Style: DefaultTextStyle()}}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	var got Patch
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Position == nil || *got.Position != pos {
		t.Fatalf("position = %v", got.Position)
	}
	if tx, ok := got.Content.(Text); !ok || tx.Content != "x" {
		t.Fatalf("content = %#v", got.Content)
	}
	if got.Size != nil || got.Name != nil {
		t.Fatal("untouched fields decoded as set")
	}
}
