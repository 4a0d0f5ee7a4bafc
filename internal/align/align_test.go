package align

import (
	"fmt"
	"math"
	"testing"

	"github.com/inamate/designkit/internal/command"
	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
)

type box struct {
	id         document.LayerID
	x, y, w, h float64
}

func build(t *testing.T, boxes ...box) document.Document {
	t.Helper()
	root := document.NewLayer("root", "Artboard", geom.Rect{Width: 1000, Height: 800}, document.Frame{})
	doc, err := document.New(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range boxes {
		l := document.NewRect(string(b.id), geom.Rect{X: b.x, Y: b.y, Width: b.w, Height: b.h}, document.Black)
		l.ID = b.id
		if doc, err = doc.Insert("root", -1, document.Node{Layer: l}); err != nil {
			t.Fatal(err)
		}
	}
	return doc
}

func apply(t *testing.T, doc document.Document, c command.Command) document.Document {
	t.Helper()
	if c == nil {
		return doc
	}
	next, _, err := c.Execute(doc)
	if err != nil {
		t.Fatalf("Execute %s: %v", c.Label(), err)
	}
	return next
}

func bounds(t *testing.T, doc document.Document, id document.LayerID) geom.Rect {
	t.Helper()
	b, ok := doc.Bounds(id)
	if !ok {
		t.Fatalf("missing %s", id)
	}
	return b
}

var ids3 = []document.LayerID{"a", "b", "c"}

func TestAlign(t *testing.T) {
	boxes := []box{{"a", 10, 20, 30, 30}, {"b", 100, 5, 50, 10}, {"c", 40, 200, 21, 40}}
	tests := []struct {
		edge  Edge
		check func(geom.Rect) float64
		want  float64
	}{
		{Left, func(r geom.Rect) float64 { return r.X }, 10},
		{Right, func(r geom.Rect) float64 { return r.Right() }, 150},
		{Top, func(r geom.Rect) float64 { return r.Y }, 5},
		{Bottom, func(r geom.Rect) float64 { return r.Bottom() }, 240},
	}
	for _, tt := range tests {
		t.Run(string(tt.edge), func(t *testing.T) {
			doc := apply(t, build(t, boxes...), Align(build(t, boxes...), ids3, tt.edge))
			for _, id := range ids3 {
				if got := tt.check(bounds(t, doc, id)); got != tt.want {
					t.Errorf("%s: got %v, want %v", id, got, tt.want)
				}
			}
		})
	}
}

func TestAlignIsIdempotent(t *testing.T) {
	for _, edge := range []Edge{Left, CenterH, Right, Top, CenterV, Bottom} {
		t.Run(string(edge), func(t *testing.T) {
			doc := build(t, box{"a", 10, 20, 30, 30}, box{"b", 100, 5, 50, 10}, box{"c", 40, 200, 21, 41})
			doc = apply(t, doc, Align(doc, ids3, edge))
			if c := Align(doc, ids3, edge); c != nil {
				t.Fatalf("second align produced %s", c.Label())
			}
		})
	}
}

func TestAlignSingleUsesArtboard(t *testing.T) {
	doc := build(t, box{"a", 10, 20, 30, 30})
	doc = apply(t, doc, Align(doc, []document.LayerID{"a"}, CenterH))
	if got := bounds(t, doc, "a").X; got != 485 {
		t.Fatalf("x = %v, want 485", got)
	}
	doc = apply(t, doc, Align(doc, []document.LayerID{"a"}, Bottom))
	if got := bounds(t, doc, "a").Bottom(); got != 800 {
		t.Fatalf("bottom = %v, want 800", got)
	}
}

func TestAlignRounds(t *testing.T) {
	doc := build(t, box{"a", 0, 0, 10, 10}, box{"b", 0, 0, 11, 10})
	doc = apply(t, doc, Align(doc, []document.LayerID{"a", "b"}, CenterH))
	if x := bounds(t, doc, "a").X; x != math.Round(x) {
		t.Fatalf("x = %v not integral", x)
	}
}

func rotated(t *testing.T, rot float64, boxes ...box) document.Document {
	t.Helper()
	doc := build(t, boxes...)
	for _, b := range boxes {
		l, _ := doc.Layer(b.id)
		l.Transform.Rotation = rot
		var err error
		if doc, err = doc.WithLayer(l); err != nil {
			t.Fatal(err)
		}
	}
	return doc
}

func TestAlignIsIdempotentWithFractionalBoxes(t *testing.T) {
	boxes := []box{{"a", 10.3, 20.7, 33.3, 17.1}, {"b", 100.1, 5.9, 50.7, 10.3}, {"c", 40.2, 200.4, 21.9, 40.6}}
	for _, rot := range []float64{0, 17, 30, 45, 73} {
		for _, edge := range []Edge{Left, CenterH, Right, Top, CenterV, Bottom} {
			t.Run(fmt.Sprintf("%v/%s", rot, edge), func(t *testing.T) {
				doc := rotated(t, rot, boxes...)
				doc = apply(t, doc, Align(doc, ids3, edge))
				if c := Align(doc, ids3, edge); c != nil {
					t.Fatalf("second align produced %s", c.Label())
				}
			})
		}
	}
}

func TestAlignFractionalLinesUp(t *testing.T) {
	doc := build(t, box{"a", 10.3, 0, 33.3, 10}, box{"b", 100.1, 20, 50.7, 10})
	doc = apply(t, doc, Align(doc, []document.LayerID{"a", "b"}, Right))
	if got := bounds(t, doc, "a").Right(); math.Abs(got-151) > 1e-9 {
		t.Errorf("a right = %v, want 151", got)
	}
	// b's right edge (150.8) already rounds to the target.
	if got := bounds(t, doc, "b").Right(); got != 100.1+50.7 {
		t.Errorf("b moved to right = %v", got)
	}
}

func TestDistribute(t *testing.T) {
	doc := build(t,
		box{"a", 0, 0, 10, 10},
		box{"d", 300, 0, 20, 10},
		box{"b", 20, 0, 30, 10},
		box{"c", 170, 0, 10, 10},
	)
	ids := []document.LayerID{"d", "b", "a", "c"}
	next := apply(t, doc, Distribute(doc, ids, Horizontal))

	if bounds(t, next, "a") != bounds(t, doc, "a") || bounds(t, next, "d") != bounds(t, doc, "d") {
		t.Fatal("extreme layers moved")
	}
	centers := make([]float64, 0, 4)
	for _, id := range []document.LayerID{"a", "b", "c", "d"} {
		centers = append(centers, bounds(t, next, id).Center().X)
	}
	step := (centers[3] - centers[0]) / 3
	for i := 1; i < 3; i++ {
		if d := centers[i] - centers[i-1]; math.Abs(d-step) > 1 {
			t.Errorf("spacing %d = %v, want %v", i, d, step)
		}
	}
}

func TestPreconditions(t *testing.T) {
	doc := build(t, box{"a", 0, 0, 10, 10}, box{"b", 50, 0, 10, 10})
	two := []document.LayerID{"a", "b"}
	if Distribute(doc, two, Horizontal) != nil {
		t.Error("distribute with 2 layers")
	}
	if SpaceEvenly(doc, two, Horizontal, nil) != nil {
		t.Error("space evenly with 2 layers")
	}
	if Flip(doc, []document.LayerID{"a"}, Horizontal) != nil {
		t.Error("flip with 1 layer")
	}
	if Align(doc, []document.LayerID{"ghost"}, Left) != nil {
		t.Error("align of missing layer")
	}
}

func TestSpaceEvenly(t *testing.T) {
	doc := build(t,
		box{"a", 0, 0, 10, 10},
		box{"b", 15, 0, 20, 10},
		box{"c", 100, 0, 10, 10},
	)
	next := apply(t, doc, SpaceEvenly(doc, ids3, Horizontal, nil))
	a, b, c := bounds(t, next, "a"), bounds(t, next, "b"), bounds(t, next, "c")
	if b.X-a.Right() != c.X-b.Right() {
		t.Fatalf("gaps %v and %v differ", b.X-a.Right(), c.X-b.Right())
	}
	if c.X != 100 {
		t.Fatalf("last layer moved to %v", c.X)
	}

	gap := 5.0
	next = apply(t, doc, SpaceEvenly(doc, ids3, Horizontal, &gap))
	a, b, c = bounds(t, next, "a"), bounds(t, next, "b"), bounds(t, next, "c")
	if a.X != 0 || b.X != 15 || c.X != 100 {
		t.Fatalf("custom gap positions a=%v b=%v c=%v", a.X, b.X, c.X)
	}
}

func TestFlipTwiceRestores(t *testing.T) {
	for _, axis := range []Axis{Horizontal, Vertical} {
		t.Run(string(axis), func(t *testing.T) {
			doc := build(t, box{"a", 3, 7, 10, 10}, box{"b", 50, 90, 25, 5}, box{"c", 21, 40, 7, 13})
			once := apply(t, doc, Flip(doc, ids3, axis))
			if once.Equal(doc) {
				t.Fatal("flip did nothing")
			}
			twice := apply(t, once, Flip(once, ids3, axis))
			if !twice.Equal(doc) {
				t.Fatal("flip(flip) did not restore positions")
			}
		})
	}
}

func TestFlipTwiceRestoresFractional(t *testing.T) {
	for _, axis := range []Axis{Horizontal, Vertical} {
		t.Run(string(axis), func(t *testing.T) {
			doc := build(t, box{"a", 0.1, 0.7, 12.9, 5.5}, box{"b", 5.5, 9.1, 0.7, 12.9}, box{"c", 12.9, 5.5, 0.1, 0.7})
			once := apply(t, doc, Flip(doc, ids3, axis))
			twice := apply(t, once, Flip(once, ids3, axis))
			for _, id := range ids3 {
				before, _ := doc.Layer(id)
				after, _ := twice.Layer(id)
				if before.Transform.Position != after.Transform.Position {
					t.Errorf("%s: %v -> %v", id, before.Transform.Position, after.Transform.Position)
				}
			}
		})
	}
}

func TestFlipMirrorsPositions(t *testing.T) {
	doc := build(t, box{"a", 0, 0, 10, 10}, box{"b", 90, 0, 10, 10})
	next := apply(t, doc, Flip(doc, []document.LayerID{"a", "b"}, Horizontal))
	if bounds(t, next, "a").X != 90 || bounds(t, next, "b").X != 0 {
		t.Fatalf("a=%v b=%v", bounds(t, next, "a"), bounds(t, next, "b"))
	}
}
