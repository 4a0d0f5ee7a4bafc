package viewport

import (
	"testing"

	"github.com/inamate/designkit/internal/geom"
)

func TestZoomAtKeepsCursorWorldPointFixed(t *testing.T) {
	tests := []struct {
		name   string
		vp     Viewport
		anchor geom.Point
		factor float64
	}{
		{"zoom in", Viewport{Zoom: 1}, geom.Pt(200, 150), 1.25},
		{"zoom out", Viewport{Zoom: 2, OffsetX: -40, OffsetY: 30}, geom.Pt(17, 391), 0.8},
		{"clamped", Viewport{Zoom: 7.5, OffsetX: 3, OffsetY: 3}, geom.Pt(640, 360), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.vp.ToWorld(tt.anchor)
			next := tt.vp.ZoomAt(tt.anchor, tt.factor, 0.1, 8)
			after := next.ToScreen(before)
			if !after.Near(tt.anchor, 1e-9) {
				t.Errorf("world point maps to %v after zoom, want %v", after, tt.anchor)
			}
			if next.Zoom < 0.1 || next.Zoom > 8 {
				t.Errorf("zoom %v outside bounds", next.Zoom)
			}
		})
	}
}

func TestMatrixMatchesToScreen(t *testing.T) {
	vp := Viewport{Zoom: 1.5, OffsetX: 20, OffsetY: -10}
	p := geom.Pt(33, 44)
	if got, want := vp.Matrix().Apply(p), vp.ToScreen(p); !got.Near(want, 1e-12) {
		t.Errorf("Matrix().Apply = %v, ToScreen = %v", got, want)
	}
}

func TestApplyIgnoresNonPositiveZoom(t *testing.T) {
	zero := 0.0
	grid := true
	vp := Default().Apply(Patch{Zoom: &zero, ShowGrid: &grid})
	if vp.Zoom != 1 {
		t.Errorf("Zoom = %v, want 1", vp.Zoom)
	}
	if !vp.ShowGrid {
		t.Error("ShowGrid not applied")
	}
}
