package geom

import "strings"

// Handle names one of the eight resize handles on a box.
type Handle string

const (
	HandleNW Handle = "nw"
	HandleN  Handle = "n"
	HandleNE Handle = "ne"
	HandleE  Handle = "e"
	HandleSE Handle = "se"
	HandleS  Handle = "s"
	HandleSW Handle = "sw"
	HandleW  Handle = "w"
)

// Handles lists the handles clockwise from the top-left corner.
var Handles = []Handle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}

func (h Handle) East() bool  { return strings.Contains(string(h), "e") }
func (h Handle) West() bool  { return strings.Contains(string(h), "w") }
func (h Handle) North() bool { return strings.Contains(string(h), "n") }
func (h Handle) South() bool { return strings.Contains(string(h), "s") }

// Point returns the handle's anchor on r.
func (h Handle) Point(r Rect) Point {
	x := r.X + r.Width/2
	y := r.Y + r.Height/2
	switch {
	case h.West():
		x = r.X
	case h.East():
		x = r.Right()
	}
	switch {
	case h.North():
		y = r.Y
	case h.South():
		y = r.Bottom()
	}
	return Point{X: x, Y: y}
}

// Rect returns a square of the given size centered on the handle anchor.
func (h Handle) Rect(r Rect, size float64) Rect {
	p := h.Point(r)
	return Rect{X: p.X - size/2, Y: p.Y - size/2, Width: size, Height: size}
}

// HandleAt returns the topmost handle whose square of the given size
// contains p. Corners win over edges.
func HandleAt(r Rect, p Point, size float64) (Handle, bool) {
	for _, h := range []Handle{HandleNW, HandleNE, HandleSE, HandleSW, HandleN, HandleE, HandleS, HandleW} {
		if h.Rect(r, size).Contains(p) {
			return h, true
		}
	}
	return "", false
}

// Cursor returns the CSS resize cursor for the handle.
func (h Handle) Cursor() string {
	return string(h) + "-resize"
}
