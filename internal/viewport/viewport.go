// Package viewport maps world coordinates to screen pixels.
package viewport

import (
	"math"

	"github.com/inamate/designkit/internal/geom"
)

// Viewport is the pan/zoom state of a canvas.
// screen = world*Zoom + Offset.
type Viewport struct {
	Zoom          float64 `json:"zoom"`
	OffsetX       float64 `json:"offsetX"`
	OffsetY       float64 `json:"offsetY"`
	ShowGrid      bool    `json:"showGrid"`
	ShowGuides    bool    `json:"showGuides"`
	ShowBleedSafe bool    `json:"showBleedSafe"`
	SnapEnabled   bool    `json:"snapEnabled"`
}

// Patch is a partial viewport; nil fields are left unchanged.
type Patch struct {
	Zoom          *float64 `json:"zoom,omitempty"`
	OffsetX       *float64 `json:"offsetX,omitempty"`
	OffsetY       *float64 `json:"offsetY,omitempty"`
	ShowGrid      *bool    `json:"showGrid,omitempty"`
	ShowGuides    *bool    `json:"showGuides,omitempty"`
	ShowBleedSafe *bool    `json:"showBleedSafe,omitempty"`
	SnapEnabled   *bool    `json:"snapEnabled,omitempty"`
}

// Default returns a 1:1 viewport with no offset.
func Default() Viewport {
	return Viewport{Zoom: 1}
}

// Apply returns v with the non-nil fields of p applied. A non-positive zoom is
// ignored so the viewport stays invertible.
func (v Viewport) Apply(p Patch) Viewport {
	if p.Zoom != nil && *p.Zoom > 0 && !math.IsInf(*p.Zoom, 0) {
		v.Zoom = *p.Zoom
	}
	if p.OffsetX != nil {
		v.OffsetX = *p.OffsetX
	}
	if p.OffsetY != nil {
		v.OffsetY = *p.OffsetY
	}
	if p.ShowGrid != nil {
		v.ShowGrid = *p.ShowGrid
	}
	if p.ShowGuides != nil {
		v.ShowGuides = *p.ShowGuides
	}
	if p.ShowBleedSafe != nil {
		v.ShowBleedSafe = *p.ShowBleedSafe
	}
	if p.SnapEnabled != nil {
		v.SnapEnabled = *p.SnapEnabled
	}
	return v
}

// Matrix returns the world-to-screen transform (translate then scale).
func (v Viewport) Matrix() geom.Matrix {
	return geom.Translate(v.OffsetX, v.OffsetY).Multiply(geom.Scale(v.Zoom, v.Zoom))
}

// ToScreen maps a world point to screen pixels.
func (v Viewport) ToScreen(p geom.Point) geom.Point {
	return geom.Point{X: p.X*v.Zoom + v.OffsetX, Y: p.Y*v.Zoom + v.OffsetY}
}

// ToWorld maps a screen point to world coordinates.
func (v Viewport) ToWorld(p geom.Point) geom.Point {
	return geom.Point{X: (p.X - v.OffsetX) / v.Zoom, Y: (p.Y - v.OffsetY) / v.Zoom}
}

// VisibleWorld returns the world rect covered by a screen of the given size.
func (v Viewport) VisibleWorld(width, height float64) geom.Rect {
	return geom.RectFromPoints(v.ToWorld(geom.Pt(0, 0)), v.ToWorld(geom.Pt(width, height)))
}

// ZoomAt multiplies the zoom by factor, clamped to [minZoom, maxZoom], and
// recomputes the offset so the world point under anchor (screen space) stays
// under anchor.
func (v Viewport) ZoomAt(anchor geom.Point, factor, minZoom, maxZoom float64) Viewport {
	if factor <= 0 {
		return v
	}
	world := v.ToWorld(anchor)
	zoom := clamp(v.Zoom*factor, minZoom, maxZoom)
	v.Zoom = zoom
	v.OffsetX = anchor.X - world.X*zoom
	v.OffsetY = anchor.Y - world.Y*zoom
	return v
}

// PanBy shifts the viewport by a screen-space delta.
func (v Viewport) PanBy(dx, dy float64) Viewport {
	v.OffsetX += dx
	v.OffsetY += dy
	return v
}

func clamp(x, lo, hi float64) float64 {
	if lo > 0 && x < lo {
		return lo
	}
	if hi > 0 && x > hi {
		return hi
	}
	return x
}
