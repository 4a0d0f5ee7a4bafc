package document

import (
	"errors"
	"slices"
	"testing"

	"github.com/inamate/designkit/internal/geom"
)

func rect(id LayerID, x, y, w, h float64) Layer {
	l := NewRect(string(id), geom.Rect{X: x, Y: y, Width: w, Height: h}, Black)
	l.ID = id
	return l
}

func group(id LayerID) Layer {
	return NewLayer(id, string(id), geom.Rect{}, Group{})
}

func testDoc(t *testing.T) Document {
	t.Helper()
	root := NewLayer("root", "Artboard", geom.Rect{Width: 800, Height: 600}, Frame{})
	doc, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, n := range []Node{
		{Layer: rect("a", 0, 0, 10, 10)},
		{Layer: group("g"), Children: []Node{
			{Layer: rect("b", 100, 100, 20, 20)},
			{Layer: rect("c", 200, 100, 20, 20)},
		}},
		{Layer: rect("d", 300, 300, 50, 50)},
	} {
		doc, err = doc.Insert("root", -1, n)
		if err != nil {
			t.Fatalf("Insert %s: %v", n.Layer.ID, err)
		}
	}
	return doc
}

func ids(seq []Layer) []LayerID {
	out := make([]LayerID, len(seq))
	for i, l := range seq {
		out[i] = l.ID
	}
	return out
}

func TestLayerOrderIsPostOrder(t *testing.T) {
	doc := testDoc(t)
	want := []LayerID{"a", "b", "c", "g", "d", "root"}
	got := ids(slices.Collect(doc.LayerOrder()))
	if !slices.Equal(got, want) {
		t.Fatalf("LayerOrder = %v, want %v", got, want)
	}
	// restartable
	again := ids(slices.Collect(doc.LayerOrder()))
	if !slices.Equal(again, want) {
		t.Fatalf("second LayerOrder = %v", again)
	}
	// early stop
	var first []LayerID
	for l := range doc.LayerOrder() {
		first = append(first, l.ID)
		if len(first) == 2 {
			break
		}
	}
	if !slices.Equal(first, want[:2]) {
		t.Fatalf("early stop = %v", first)
	}
}

func TestPaintOrderAndWalk(t *testing.T) {
	doc := testDoc(t)
	got := ids(slices.Collect(doc.PaintOrder()))
	want := []LayerID{"root", "a", "g", "b", "c", "d"}
	if !slices.Equal(got, want) {
		t.Fatalf("PaintOrder = %v, want %v", got, want)
	}

	var trace []string
	doc.Walk(func(l Layer, v Visit) bool {
		switch v {
		case VisitEnter:
			trace = append(trace, "+"+string(l.ID))
		case VisitLeave:
			trace = append(trace, "-"+string(l.ID))
		default:
			trace = append(trace, string(l.ID))
		}
		return l.ID != "g"
	})
	wantTrace := []string{"+root", "a", "+g", "d", "-root"}
	if !slices.Equal(trace, wantTrace) {
		t.Fatalf("Walk = %v, want %v", trace, wantTrace)
	}
}

func TestRemovePurgesSelection(t *testing.T) {
	doc := testDoc(t).WithSelection([]LayerID{"b", "d", "a"})
	next, removed, parent, index, err := doc.Remove("g")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if parent != "root" || index != 1 {
		t.Fatalf("parent/index = %s/%d", parent, index)
	}
	if !slices.Equal(removed.IDs(), []LayerID{"g", "b", "c"}) {
		t.Fatalf("removed = %v", removed.IDs())
	}
	for _, id := range []LayerID{"g", "b", "c"} {
		if next.Has(id) {
			t.Errorf("%s still present", id)
		}
	}
	if !slices.Equal(next.Selection(), []LayerID{"d", "a"}) {
		t.Fatalf("selection = %v", next.Selection())
	}
	if err := next.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !doc.Has("b") {
		t.Fatal("original document was modified")
	}

	back, err := next.Insert(parent, index, removed)
	if err != nil {
		t.Fatalf("reinsert: %v", err)
	}
	back = back.WithSelection(doc.Selection())
	if !back.Equal(doc) {
		t.Fatal("reinsert did not restore the document")
	}
}

func TestRemoveErrors(t *testing.T) {
	doc := testDoc(t)
	if _, _, _, _, err := doc.Remove("nope"); !errors.Is(err, ErrReferenceMissing) {
		t.Errorf("missing id err = %v", err)
	}
	if _, _, _, _, err := doc.Remove("root"); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("root err = %v", err)
	}
}

func TestMove(t *testing.T) {
	doc := testDoc(t)

	next, err := doc.Move("a", "g", 1)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := next.Children("g"); !slices.Equal(got, []LayerID{"b", "a", "c"}) {
		t.Fatalf("g children = %v", got)
	}
	if p, _ := next.Parent("a"); p != "g" {
		t.Fatalf("parent = %s", p)
	}

	if _, err := doc.Move("g", "g", 0); !errors.Is(err, ErrCycle) {
		t.Errorf("self move err = %v", err)
	}
	withInner, _ := doc.Insert("g", -1, Node{Layer: group("inner")})
	if _, err := withInner.Move("g", "inner", 0); !errors.Is(err, ErrCycle) {
		t.Errorf("descendant move err = %v", err)
	}
	if _, err := doc.Move("a", "b", 0); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("leaf parent err = %v", err)
	}
}

func TestInsertRejectsDuplicates(t *testing.T) {
	doc := testDoc(t)
	if _, err := doc.Insert("root", 0, Node{Layer: rect("a", 0, 0, 1, 1)}); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("err = %v", err)
	}
	if _, err := doc.Insert("missing", 0, Node{Layer: rect("z", 0, 0, 1, 1)}); !errors.Is(err, ErrReferenceMissing) {
		t.Fatalf("err = %v", err)
	}
}

func TestWithSelectionFilters(t *testing.T) {
	doc := testDoc(t).WithSelection([]LayerID{"a", "root", "ghost", "a", "d"})
	if got := doc.Selection(); !slices.Equal(got, []LayerID{"a", "d"}) {
		t.Fatalf("selection = %v", got)
	}
}

func TestBounds(t *testing.T) {
	doc := testDoc(t)

	b, ok := doc.Bounds("g")
	if !ok || b != (geom.Rect{X: 100, Y: 100, Width: 120, Height: 20}) {
		t.Fatalf("group bounds = %+v", b)
	}

	l, _ := doc.Layer("d")
	l.Transform.Rotation = 90
	l.Transform.Size = geom.Pt(100, 50)
	doc, err := doc.WithLayer(l)
	if err != nil {
		t.Fatal(err)
	}
	b, _ = doc.Bounds("d")
	want := geom.Rect{X: 325, Y: 275, Width: 50, Height: 100}
	if !b.Min().Near(want.Min(), 1e-9) || !b.Max().Near(want.Max(), 1e-9) {
		t.Fatalf("rotated bounds = %+v, want %+v", b, want)
	}

	u, ok := doc.UnionBounds([]LayerID{"a", "ghost", "b"})
	if !ok || u != (geom.Rect{X: 0, Y: 0, Width: 120, Height: 120}) {
		t.Fatalf("union = %+v", u)
	}
}

func TestNestedFrameWorldMatrix(t *testing.T) {
	doc := testDoc(t)
	frame := NewLayer("f", "Frame", geom.Rect{X: 50, Y: 40, Width: 200, Height: 200}, Frame{})
	doc, err := doc.Insert("root", -1, Node{Layer: frame, Children: []Node{{Layer: rect("inner", 10, 10, 5, 5)}}})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := doc.Bounds("inner")
	if b != (geom.Rect{X: 60, Y: 50, Width: 5, Height: 5}) {
		t.Fatalf("bounds = %+v", b)
	}
	if d := doc.LocalDelta("inner", geom.Pt(3, 4)); !d.Near(geom.Pt(3, 4), 1e-9) {
		t.Fatalf("local delta = %+v", d)
	}
}

func TestVisualBoundsIncludesEffects(t *testing.T) {
	doc := testDoc(t)
	l, _ := doc.Layer("a")
	l.Effects = Effects{
		DropShadow{Enabled: true, Blur: 4, Offset: geom.Pt(0, 2)},
		Glow{Enabled: false, Radius: 100},
	}
	doc, _ = doc.WithLayer(l)
	vb, _ := doc.VisualBounds("a")
	if vb != (geom.Rect{X: -6, Y: -6, Width: 22, Height: 22}) {
		t.Fatalf("visual bounds = %+v", vb)
	}
}

func TestPatchCaptureRestores(t *testing.T) {
	l := rect("a", 1, 2, 3, 4)
	pos := geom.Pt(9, 9)
	op := 2.0
	name := "renamed"
	p := Patch{Position: &pos, Opacity: &op, Name: &name}

	after := p.Apply(l)
	if after.Opacity != 1 {
		t.Fatalf("opacity not clamped: %v", after.Opacity)
	}
	if after.Transform.Position != pos || after.Name != name {
		t.Fatalf("patch not applied: %+v", after)
	}
	before := p.Capture(l)
	if before.Size != nil || before.Content != nil {
		t.Fatal("capture touched untouched fields")
	}
	restored := before.Apply(after)
	if restored.Transform != l.Transform || restored.Name != l.Name || restored.Opacity != l.Opacity {
		t.Fatalf("restored = %+v", restored)
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"b", "", "a", "b"})
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("tags = %v", got)
	}
}

func TestSortedStopsKeepsInsertionOrder(t *testing.T) {
	g := GradientPaint{Stops: []ColorStop{
		{Offset: 1, Color: White},
		{Offset: 0, Color: Black},
		{Offset: 0.5, Color: Transparent},
	}}
	sorted := g.SortedStops()
	if sorted[0].Offset != 0 || sorted[1].Offset != 0.5 || sorted[2].Offset != 1 {
		t.Fatalf("sorted = %+v", sorted)
	}
	if g.Stops[0].Offset != 1 {
		t.Fatal("SortedStops reordered the original")
	}
}

func TestConstrain(t *testing.T) {
	tr := Transform{Position: geom.Pt(10, 10), Size: geom.Pt(20, 20)}
	old, grown := geom.Pt(100, 100), geom.Pt(200, 150)
	tests := []struct {
		c        Constraint
		wantPosX float64
		wantW    float64
	}{
		{ConstraintMin, 10, 20},
		{ConstraintMax, 110, 20},
		{ConstraintCenter, 60, 20},
		{ConstraintStretch, 10, 120},
		{ConstraintScale, 20, 40},
	}
	for _, tt := range tests {
		t.Run(string(tt.c), func(t *testing.T) {
			got := Constrain(Constraints{Horizontal: tt.c, Vertical: ConstraintMin}, tr, old, grown)
			if got.Position.X != tt.wantPosX || got.Size.X != tt.wantW {
				t.Fatalf("got pos %v width %v", got.Position.X, got.Size.X)
			}
			if got.Position.Y != 10 || got.Size.Y != 20 {
				t.Fatalf("vertical changed: %+v", got)
			}
		})
	}
}

func TestColorHex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#fff", "#ffffffff"},
		{"#e94560", "#e94560ff"},
		{"#00000080", "#00000080"},
	}
	for _, tt := range tests {
		c, err := ParseHex(tt.in)
		if err != nil {
			t.Fatalf("ParseHex(%q): %v", tt.in, err)
		}
		if got := c.Hex(); got != tt.want {
			t.Errorf("ParseHex(%q).Hex() = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := ParseHex("#12"); err == nil {
		t.Error("expected error for short hex")
	}
}
