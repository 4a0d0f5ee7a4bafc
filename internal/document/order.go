package document

import (
	"iter"
	"math"

	"github.com/inamate/designkit/internal/geom"
)

// LayerOrder yields every layer depth-first in post-order: each container's
// children in z-order, then the container itself, the root last. The
// sequence is finite and can be ranged over any number of times.
func (d Document) LayerOrder() iter.Seq[Layer] {
	return func(yield func(Layer) bool) {
		if _, ok := d.layers[d.root]; ok {
			d.postOrder(d.root, yield)
		}
	}
}

func (d Document) postOrder(id LayerID, yield func(Layer) bool) bool {
	for _, c := range d.children[id] {
		if !d.postOrder(c, yield) {
			return false
		}
	}
	return yield(d.layers[id].Clone())
}

// PaintOrder yields layers in the order they are painted: a container
// before its children. Leaves appear in the same order as in LayerOrder.
func (d Document) PaintOrder() iter.Seq[Layer] {
	return func(yield func(Layer) bool) {
		if _, ok := d.layers[d.root]; ok {
			d.preOrder(d.root, yield)
		}
	}
}

func (d Document) preOrder(id LayerID, yield func(Layer) bool) bool {
	if !yield(d.layers[id].Clone()) {
		return false
	}
	for _, c := range d.children[id] {
		if !d.preOrder(c, yield) {
			return false
		}
	}
	return true
}

// Visit tells a Walk callback where it is in the tree.
type Visit int

const (
	// VisitLeaf is a layer without children.
	VisitLeaf Visit = iota
	// VisitEnter precedes a container's children.
	VisitEnter
	// VisitLeave follows a container's children.
	VisitLeave
)

// Walk traverses the tree from the root. Containers are reported on entry
// and exit; returning false on entry skips the subtree (and its exit).
// Containers without children are still entered and left.
func (d Document) Walk(fn func(l Layer, v Visit) bool) {
	if _, ok := d.layers[d.root]; ok {
		d.walk(d.root, fn)
	}
}

func (d Document) walk(id LayerID, fn func(Layer, Visit) bool) {
	l := d.layers[id].Clone()
	if !l.Kind().IsContainer() {
		fn(l, VisitLeaf)
		return
	}
	if !fn(l, VisitEnter) {
		return
	}
	for _, c := range d.children[id] {
		d.walk(c, fn)
	}
	fn(l, VisitLeave)
}

// Descendants returns every id below id in paint order.
func (d Document) Descendants(id LayerID) []LayerID {
	var out []LayerID
	for _, c := range d.children[id] {
		out = append(out, c)
		out = append(out, d.Descendants(c)...)
	}
	return out
}

// WorldMatrix maps the layer's local box coordinates to world coordinates.
func (d Document) WorldMatrix(id LayerID) (geom.Matrix, bool) {
	l, ok := d.layers[id]
	if !ok {
		return geom.Identity(), false
	}
	m := l.Transform.Matrix()
	for p, ok := d.parent[id]; ok; p, ok = d.parent[p] {
		m = d.layers[p].Transform.Matrix().Multiply(m)
	}
	return m, true
}

// ParentMatrix is the world matrix of id's parent, identity for the root.
func (d Document) ParentMatrix(id LayerID) geom.Matrix {
	p, ok := d.parent[id]
	if !ok {
		return geom.Identity()
	}
	m, _ := d.WorldMatrix(p)
	return m
}

// LocalDelta converts a world-space displacement into the coordinate space
// the layer's position is expressed in.
func (d Document) LocalDelta(id LayerID, world geom.Point) geom.Point {
	return d.ParentMatrix(id).Invert().ApplyVector(world)
}

// Bounds returns the world-space axis-aligned bounds of the layer. Groups
// and boolean groups with children take the union of their children.
func (d Document) Bounds(id LayerID) (geom.Rect, bool) {
	l, ok := d.layers[id]
	if !ok {
		return geom.Rect{}, false
	}
	if k := l.Kind(); (k == KindGroup || k == KindBooleanGroup) && len(d.children[id]) > 0 {
		return d.UnionBounds(d.children[id])
	}
	m, _ := d.WorldMatrix(id)
	return m.TransformRect(geom.Rect{Width: l.Transform.Size.X, Height: l.Transform.Size.Y}), true
}

// VisualBounds grows Bounds by stroke overhang and effect extent.
func (d Document) VisualBounds(id LayerID) (geom.Rect, bool) {
	b, ok := d.Bounds(id)
	if !ok {
		return b, false
	}
	l := d.layers[id]
	grow := l.Effects.Extent()
	var stroke float64
	for _, s := range StrokesOf(l.Content) {
		stroke = max(stroke, s.Outset())
	}
	return b.Inset(-(grow + stroke)), true
}

// UnionBounds is the union of Bounds over ids; missing ids are skipped.
func (d Document) UnionBounds(ids []LayerID) (geom.Rect, bool) {
	var (
		out   geom.Rect
		found bool
	)
	for _, id := range ids {
		b, ok := d.Bounds(id)
		if !ok {
			continue
		}
		if !found {
			out, found = b, true
			continue
		}
		out = out.Union(b)
	}
	return out, found
}

// Constrain returns the child transform after its parent box was resized
// from oldSize to newSize, following the child's constraints.
func Constrain(c Constraints, t Transform, oldSize, newSize geom.Point) Transform {
	t.Position.X, t.Size.X = constrainAxis(c.Horizontal, t.Position.X, t.Size.X, oldSize.X, newSize.X)
	t.Position.Y, t.Size.Y = constrainAxis(c.Vertical, t.Position.Y, t.Size.Y, oldSize.Y, newSize.Y)
	return t
}

func constrainAxis(c Constraint, pos, size, oldP, newP float64) (float64, float64) {
	delta := newP - oldP
	switch c {
	case ConstraintMax:
		return pos + delta, size
	case ConstraintCenter:
		return pos + delta/2, size
	case ConstraintStretch:
		return pos, math.Max(0, size+delta)
	case ConstraintScale:
		if oldP == 0 {
			return pos, size
		}
		k := newP / oldP
		return pos * k, size * k
	default:
		return pos, size
	}
}
