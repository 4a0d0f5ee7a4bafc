// Package align computes alignment, distribution and flip moves for a set of
// layers. Every function returns a command.Command, or nil when the
// operation does not apply or would move nothing.
package align

import (
	"cmp"
	"math"
	"slices"

	"github.com/inamate/designkit/internal/command"
	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
)

// Edge names an alignment target.
type Edge string

const (
	Left    Edge = "left"
	CenterH Edge = "center-h"
	Right   Edge = "right"
	Top     Edge = "top"
	CenterV Edge = "center-v"
	Bottom  Edge = "bottom"
)

// Axis is the direction distribution and flips work along.
type Axis string

const (
	Horizontal Axis = "horizontal"
	Vertical   Axis = "vertical"
)

type item struct {
	id     document.LayerID
	bounds geom.Rect
}

func collect(doc document.Document, ids []document.LayerID) []item {
	var out []item
	for _, id := range command.TopLevel(doc, ids) {
		b, ok := doc.Bounds(id)
		if !ok {
			continue
		}
		out = append(out, item{id: id, bounds: b})
	}
	return out
}

// shifted returns the layer position after a world-space delta. Under a
// translation-only parent the delta is added directly.
func shifted(doc document.Document, id document.LayerID, delta geom.Point) geom.Point {
	l, _ := doc.Layer(id)
	if doc.ParentMatrix(id).IsTranslation() {
		return l.Transform.Position.Add(delta)
	}
	return l.Transform.Position.Add(doc.LocalDelta(id, delta))
}

// moveBy builds the update that shifts a layer by a world delta, or nil if
// the delta is zero.
func moveBy(doc document.Document, id document.LayerID, delta geom.Point, label string) command.Command {
	if delta == (geom.Point{}) {
		return nil
	}
	return command.NewUpdate(id, document.MovePatch(shifted(doc, id, delta)), label)
}

func batch(label string, cmds []command.Command) command.Command {
	cmds = slices.DeleteFunc(cmds, func(c command.Command) bool { return c == nil })
	if len(cmds) == 0 {
		return nil
	}
	return &command.Batch{Name: label, Commands: cmds}
}

// roundedDelta is the world delta that puts a layer's bounds origin on the
// rounded target.
func roundedDelta(from, to float64) float64 {
	return math.Round(to) - from
}

// whole rounds half up, so every value in [n-0.5, n+0.5) maps to n.
func whole(v float64) float64 {
	return math.Floor(v + 0.5)
}

// Align lines layers up on an edge or center. A single layer aligns to the
// artboard; two or more align to their union bounds. The reference edge or
// center is rounded to a whole unit and a layer moves only when its own
// edge or center does not already round to it.
func Align(doc document.Document, ids []document.LayerID, edge Edge) command.Command {
	items := collect(doc, ids)
	if len(items) == 0 {
		return nil
	}
	var ref geom.Rect
	if len(items) == 1 {
		b, ok := doc.Bounds(doc.Root())
		if !ok {
			return nil
		}
		ref = b
	} else {
		for i, it := range items {
			if i == 0 {
				ref = it.bounds
				continue
			}
			ref = ref.Union(it.bounds)
		}
	}

	// anchor picks the coordinate of a rect that is being lined up.
	var anchor func(geom.Rect) float64
	var axis Axis
	switch edge {
	case Left:
		anchor, axis = func(r geom.Rect) float64 { return r.X }, Horizontal
	case CenterH:
		anchor, axis = func(r geom.Rect) float64 { return r.X + r.Width/2 }, Horizontal
	case Right:
		anchor, axis = geom.Rect.Right, Horizontal
	case Top:
		anchor, axis = func(r geom.Rect) float64 { return r.Y }, Vertical
	case CenterV:
		anchor, axis = func(r geom.Rect) float64 { return r.Y + r.Height/2 }, Vertical
	case Bottom:
		anchor, axis = geom.Rect.Bottom, Vertical
	default:
		return nil
	}
	target := whole(anchor(ref))

	label := "Align " + string(edge)
	var cmds []command.Command
	for _, it := range items {
		cur := anchor(it.bounds)
		if whole(cur) == target {
			continue
		}
		cmds = append(cmds, moveBy(doc, it.id, along(axis, target-cur), label))
	}
	return batch(label, cmds)
}

func lead(r geom.Rect, a Axis) float64 {
	if a == Vertical {
		return r.Y
	}
	return r.X
}

func extent(r geom.Rect, a Axis) float64 {
	if a == Vertical {
		return r.Height
	}
	return r.Width
}

func center(r geom.Rect, a Axis) float64 {
	return lead(r, a) + extent(r, a)/2
}

func along(a Axis, v float64) geom.Point {
	if a == Vertical {
		return geom.Pt(0, v)
	}
	return geom.Pt(v, 0)
}

// Distribute spaces the centers of three or more layers evenly between the
// two outermost centers, which stay put.
func Distribute(doc document.Document, ids []document.LayerID, axis Axis) command.Command {
	items := collect(doc, ids)
	if len(items) < 3 {
		return nil
	}
	slices.SortStableFunc(items, func(a, b item) int {
		return cmp.Compare(center(a.bounds, axis), center(b.bounds, axis))
	})
	first := center(items[0].bounds, axis)
	last := center(items[len(items)-1].bounds, axis)
	step := (last - first) / float64(len(items)-1)

	label := "Distribute " + string(axis)
	var cmds []command.Command
	for i, it := range items[1 : len(items)-1] {
		target := first + step*float64(i+1) - extent(it.bounds, axis)/2
		d := roundedDelta(lead(it.bounds, axis), target)
		cmds = append(cmds, moveBy(doc, it.id, along(axis, d), label))
	}
	return batch(label, cmds)
}

// SpaceEvenly makes the gaps between three or more layers equal. The
// outermost layers stay put and the interior ones are laid out from the
// first. The gap is derived from the free space between the outermost
// layers unless a custom gap is given.
func SpaceEvenly(doc document.Document, ids []document.LayerID, axis Axis, gap *float64) command.Command {
	items := collect(doc, ids)
	if len(items) < 3 {
		return nil
	}
	slices.SortStableFunc(items, func(a, b item) int {
		return cmp.Compare(lead(a.bounds, axis), lead(b.bounds, axis))
	})

	var g float64
	if gap != nil {
		g = *gap
	} else {
		last := items[len(items)-1].bounds
		span := lead(last, axis) + extent(last, axis) - lead(items[0].bounds, axis)
		var total float64
		for _, it := range items {
			total += extent(it.bounds, axis)
		}
		g = (span - total) / float64(len(items)-1)
	}

	label := "Space " + string(axis)
	cursor := lead(items[0].bounds, axis) + extent(items[0].bounds, axis) + g
	var cmds []command.Command
	for _, it := range items[1 : len(items)-1] {
		d := roundedDelta(lead(it.bounds, axis), cursor)
		cmds = append(cmds, moveBy(doc, it.id, along(axis, d), label))
		cursor += extent(it.bounds, axis) + g
	}
	return batch(label, cmds)
}

// micro snaps a coordinate to a millionth of a unit. Flip positions are
// snapped so that flipping twice lands back on the stored values.
func micro(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// Flip mirrors layer positions about the center of their union bounds. Layer
// content is not mirrored. A single layer is its own union, so flipping it
// changes nothing.
func Flip(doc document.Document, ids []document.LayerID, axis Axis) command.Command {
	items := collect(doc, ids)
	if len(items) < 2 {
		return nil
	}
	u := items[0].bounds
	for _, it := range items[1:] {
		u = u.Union(it.bounds)
	}
	// Twice the union center: a layer's mirrored lead is sum - lead - extent.
	sum := micro(lead(u, axis) + lead(u, axis) + extent(u, axis))

	label := "Flip " + string(axis)
	var cmds []command.Command
	for _, it := range items {
		from := lead(it.bounds, axis)
		to := sum - from - extent(it.bounds, axis)
		if to == from {
			continue
		}
		pos := shifted(doc, it.id, along(axis, to-from))
		if axis == Vertical {
			pos.Y = micro(pos.Y)
		} else {
			pos.X = micro(pos.X)
		}
		cmds = append(cmds, command.NewUpdate(it.id, document.MovePatch(pos), label))
	}
	return batch(label, cmds)
}
