package interact

import (
	"math"
	"slices"

	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
)

// HitTest returns the topmost visible, unlocked layer whose world bounding
// box contains p. The root artboard never hits. Layers are tested front to
// back, so children of a frame are tested before the frame itself.
func HitTest(doc document.Document, p geom.Point) (document.LayerID, bool) {
	order := slices.Collect(doc.PaintOrder())
	for _, l := range slices.Backward(order) {
		if l.ID == doc.Root() || l.Kind() == document.KindGroup || l.Kind() == document.KindBooleanGroup {
			continue
		}
		if !doc.EffectivelyVisible(l.ID) || doc.EffectivelyLocked(l.ID) {
			continue
		}
		b, ok := doc.Bounds(l.ID)
		if ok && b.Contains(p) {
			return l.ID, true
		}
	}
	return "", false
}

// selectTarget lifts a hit on a group member to the outermost group below
// the root, so clicking a grouped shape picks the group. Frames stay
// individually selectable.
func selectTarget(doc document.Document, id document.LayerID) document.LayerID {
	target := id
	for _, anc := range doc.Ancestors(id) {
		if anc == doc.Root() {
			break
		}
		l, ok := doc.Layer(anc)
		if !ok {
			break
		}
		if k := l.Kind(); k == document.KindGroup || k == document.KindBooleanGroup {
			target = anc
		}
	}
	return target
}

// marqueeHits returns the selectable children of the root whose bounds
// overlap r, in z-order. Layers nested in a frame or group are never picked
// on their own: the marquee selects their top-level container, and frames
// clip whatever overflows them.
func marqueeHits(doc document.Document, r geom.Rect) []document.LayerID {
	var out []document.LayerID
	for _, id := range doc.Children(doc.Root()) {
		l, ok := doc.Layer(id)
		if !ok || !l.Selectable() {
			continue
		}
		if b, ok := doc.Bounds(id); ok && b.Intersects(r) {
			out = append(out, id)
		}
	}
	return out
}

// selectableChildren lists the root children that can be selected.
func selectableChildren(doc document.Document) []document.LayerID {
	var out []document.LayerID
	for _, id := range doc.Children(doc.Root()) {
		if l, ok := doc.Layer(id); ok && l.Selectable() {
			out = append(out, id)
		}
	}
	return out
}

// snapper finds the closest alignment between a moving box and the edges and
// centers of every other visible layer and the artboard.
type snapper struct {
	xs, ys    []float64
	tolerance float64
	grid      float64
}

func newSnapper(doc document.Document, moving []document.LayerID, tolerance, grid float64) *snapper {
	s := &snapper{tolerance: tolerance, grid: grid}
	skip := func(id document.LayerID) bool {
		for _, m := range moving {
			if id == m || doc.IsAncestor(m, id) {
				return true
			}
		}
		return false
	}
	for l := range doc.PaintOrder() {
		if skip(l.ID) || !doc.EffectivelyVisible(l.ID) {
			continue
		}
		if l.Kind() == document.KindGroup && l.ID != doc.Root() {
			continue
		}
		b, ok := doc.Bounds(l.ID)
		if !ok {
			continue
		}
		c := b.Center()
		s.xs = append(s.xs, b.X, c.X, b.Right())
		s.ys = append(s.ys, b.Y, c.Y, b.Bottom())
	}
	return s
}

// snapAxis returns the correction that moves one of edges onto the closest
// target within tolerance, and the target it snapped to.
func snapAxis(edges, targets []float64, tolerance float64) (float64, float64, bool) {
	best, at, found := math.Inf(1), 0.0, false
	for _, t := range targets {
		for _, e := range edges {
			if d := t - e; math.Abs(d) <= tolerance && math.Abs(d) < math.Abs(best) {
				best, at, found = d, t, true
			}
		}
	}
	return best, at, found
}

func snapGrid(v, grid, tolerance float64) (float64, bool) {
	if grid <= 0 {
		return 0, false
	}
	d := math.Round(v/grid)*grid - v
	return d, math.Abs(d) <= tolerance
}

// snap adjusts delta so the moved box lines up with a target. Layer edges
// win over the grid.
func (s *snapper) snap(box geom.Rect, delta geom.Point) (geom.Point, []Guide) {
	moved := box.Translate(delta)
	c := moved.Center()
	var guides []Guide
	if d, at, ok := snapAxis([]float64{moved.X, c.X, moved.Right()}, s.xs, s.tolerance); ok {
		delta.X += d
		guides = append(guides, Guide{Vertical: true, At: at})
	} else if d, ok := snapGrid(moved.X, s.grid, s.tolerance); ok {
		delta.X += d
	}
	if d, at, ok := snapAxis([]float64{moved.Y, c.Y, moved.Bottom()}, s.ys, s.tolerance); ok {
		delta.Y += d
		guides = append(guides, Guide{At: at})
	} else if d, ok := snapGrid(moved.Y, s.grid, s.tolerance); ok {
		delta.Y += d
	}
	return delta, guides
}
