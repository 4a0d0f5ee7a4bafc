package render

import (
	"math"
	"slices"
	"testing"

	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
	"github.com/inamate/designkit/internal/viewport"
)

func board(t *testing.T, layers ...document.Layer) document.Document {
	t.Helper()
	root := document.NewLayer("root", "Board", geom.Rect{Width: 400, Height: 300}, document.Frame{
		Fills:       document.Paints{document.SolidPaint{Color: document.White}},
		ClipContent: true,
	})
	doc, err := document.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, l := range layers {
		if doc, err = doc.Insert("root", -1, document.Node{Layer: l}); err != nil {
			t.Fatalf("Insert %s: %v", l.ID, err)
		}
	}
	return doc
}

func box(id document.LayerID, x, y, w, h float64) document.Layer {
	l := document.NewRect(string(id), geom.Rect{X: x, Y: y, Width: w, Height: h}, document.Black)
	l.ID = id
	return l
}

func kinds(ops []Op) []OpKind {
	out := make([]OpKind, len(ops))
	for i, op := range ops {
		out[i] = op.Kind
	}
	return out
}

func layersOf(ops []Op, kind OpKind) []document.LayerID {
	var out []document.LayerID
	for _, op := range ops {
		if op.Kind == kind {
			out = append(out, op.Layer)
		}
	}
	return out
}

func TestCompileGridThreshold(t *testing.T) {
	doc := board(t)
	tests := []struct {
		name string
		zoom float64
		show bool
		want bool
	}{
		{"hidden", 1, false, false},
		{"too dense", 0.5, true, false},
		{"at threshold", 0.8, true, true},
		{"zoomed in", 2, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vp := viewport.Viewport{Zoom: tt.zoom, ShowGrid: tt.show}
			ops := Compile(doc, vp, DefaultOptions(400, 300))
			if got := slices.Contains(kinds(ops), OpGrid); got != tt.want {
				t.Errorf("grid emitted = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompilePaintOrderAndHidden(t *testing.T) {
	hidden := box("hidden", 0, 0, 10, 10)
	hidden.Visible = false
	doc := board(t, box("a", 0, 0, 10, 10), hidden, box("b", 20, 20, 10, 10))

	ops := Compile(doc, viewport.Default(), DefaultOptions(400, 300))
	got := layersOf(ops, OpFill)
	want := []document.LayerID{"root", "a", "b"}
	if !slices.Equal(got, want) {
		t.Errorf("fill order = %v, want %v", got, want)
	}
	if ops[0].Kind != OpClear {
		t.Errorf("first op = %v, want clear", ops[0].Kind)
	}
}

func TestCompileCullsOffscreen(t *testing.T) {
	doc := board(t, box("on", 10, 10, 10, 10), box("off", 1000, 1000, 10, 10))
	root, _ := doc.Layer("root")
	root.Content = document.Frame{ClipContent: false}
	doc, _ = doc.WithLayer(root)

	ops := Compile(doc, viewport.Default(), DefaultOptions(400, 300))
	if got := layersOf(ops, OpFill); !slices.Equal(got, []document.LayerID{"on"}) {
		t.Errorf("fills = %v, want only on-screen layer", got)
	}
}

func TestCompileClipBrackets(t *testing.T) {
	doc := board(t, box("a", 0, 0, 10, 10))
	k := kinds(Compile(doc, viewport.Default(), DefaultOptions(400, 300)))
	clip := slices.Index(k, OpClip)
	unclip := slices.Index(k, OpUnclip)
	if clip < 0 || unclip < clip {
		t.Fatalf("clip at %d, unclip at %d", clip, unclip)
	}
	if fill := slices.Index(k[clip:], OpFill); fill < 0 || clip+fill > unclip {
		t.Errorf("child fill not inside clip: %v", k)
	}
}

func TestCompileLayerGroupForOpacity(t *testing.T) {
	a := box("a", 0, 0, 10, 10)
	a.Opacity = 0.5
	b := box("b", 0, 0, 10, 10)
	b.BlendMode = document.BlendMultiply
	doc := board(t, a, box("plain", 0, 0, 10, 10), b)

	ops := Compile(doc, viewport.Default(), DefaultOptions(400, 300))
	if got := layersOf(ops, OpPushLayer); !slices.Equal(got, []document.LayerID{"a", "b"}) {
		t.Errorf("push-layer = %v", got)
	}
	if got := layersOf(ops, OpPopLayer); !slices.Equal(got, []document.LayerID{"a", "b"}) {
		t.Errorf("pop-layer = %v", got)
	}
}

func TestCompileHandlesKeepScreenSize(t *testing.T) {
	doc := board(t, box("a", 50, 50, 100, 80))
	doc = doc.WithSelection([]document.LayerID{"a"})
	for _, zoom := range []float64{0.25, 1, 3} {
		vp := viewport.Viewport{Zoom: zoom}
		opts := DefaultOptions(400, 300)
		var handles []Op
		for _, op := range Compile(doc, vp, opts) {
			if op.Kind == OpHandle {
				handles = append(handles, op)
			}
		}
		if len(handles) != 8 {
			t.Fatalf("zoom %v: %d handles, want 8", zoom, len(handles))
		}
		for _, h := range handles {
			if math.Abs(h.Rect.Width-opts.HandleSize) > 1e-9 || math.Abs(h.Rect.Height-opts.HandleSize) > 1e-9 {
				t.Errorf("zoom %v: handle %v, want %vpx", zoom, h.Rect, opts.HandleSize)
			}
		}
	}
}

func TestCompileSelectionHidden(t *testing.T) {
	doc := board(t, box("a", 0, 0, 10, 10)).WithSelection([]document.LayerID{"a"})
	opts := DefaultOptions(400, 300)
	opts.HideSelection = true
	if k := kinds(Compile(doc, viewport.Default(), opts)); slices.Contains(k, OpHandle) || slices.Contains(k, OpSelection) {
		t.Errorf("selection chrome emitted: %v", k)
	}
}

func TestCompileMarqueeInScreenSpace(t *testing.T) {
	doc := board(t)
	m := geom.Rect{X: 10, Y: 10, Width: 20, Height: 20}
	opts := DefaultOptions(400, 300)
	opts.Marquee = &m
	ops := Compile(doc, viewport.Viewport{Zoom: 2, OffsetX: 5}, opts)
	last := ops[len(ops)-1]
	want := geom.Rect{X: 25, Y: 20, Width: 40, Height: 40}
	if last.Kind != OpMarquee || last.Rect != want {
		t.Errorf("last op = %v %v, want marquee %v", last.Kind, last.Rect, want)
	}
}

func TestCompileEffectPlacement(t *testing.T) {
	a := box("a", 0, 0, 10, 10)
	a.Effects = document.Effects{
		document.InnerShadow{Enabled: true, Color: document.Black},
		document.DropShadow{Enabled: true, Color: document.Black, Offset: geom.Pt(2, 2)},
		document.Blur{Enabled: false, Radius: 3},
	}
	ops := Compile(board(t, a), viewport.Default(), DefaultOptions(400, 300))
	var seq []string
	for _, op := range ops {
		if op.Layer != "a" {
			continue
		}
		switch op.Kind {
		case OpEffect:
			seq = append(seq, string(op.Effect.EffectType()))
		case OpFill:
			seq = append(seq, "fill")
		}
	}
	want := []string{string(document.EffectDropShadow), "fill", string(document.EffectInnerShadow)}
	if !slices.Equal(seq, want) {
		t.Errorf("sequence = %v, want %v", seq, want)
	}
}

func TestCompileGuides(t *testing.T) {
	doc := board(t)
	vp := viewport.Viewport{Zoom: 1, ShowGuides: true, ShowBleedSafe: true}
	var guides []Op
	for _, op := range Compile(doc, vp, DefaultOptions(400, 300)) {
		if op.Kind == OpGuide {
			guides = append(guides, op)
		}
	}
	if len(guides) != 3 {
		t.Fatalf("%d guides, want 3", len(guides))
	}
	safe := guides[2]
	if want := (geom.Rect{X: 24, Y: 24, Width: 352, Height: 252}); safe.Rect != want || len(safe.Dash) == 0 {
		t.Errorf("safe area guide = %v dash %v", safe.Rect, safe.Dash)
	}
}
