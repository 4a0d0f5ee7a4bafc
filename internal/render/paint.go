package render

import (
	"log/slog"
	"math"

	"github.com/gogpu/gg"

	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
)

func toRGBA(c document.Color) gg.RGBA {
	return gg.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

func toMatrix(m geom.Matrix) gg.Matrix {
	return gg.Matrix{A: m[0], B: m[2], C: m[4], D: m[1], E: m[3], F: m[5]}
}

func blendMode(b document.BlendMode) gg.BlendMode {
	switch b {
	case document.BlendNormal, "":
		return gg.BlendNormal
	case document.BlendMultiply:
		return gg.BlendMultiply
	case document.BlendScreen:
		return gg.BlendScreen
	case document.BlendOverlay:
		return gg.BlendOverlay
	}
	slog.Debug("blend mode not supported by rasterizer, using normal", "blend", b)
	return gg.BlendNormal
}

func extendMode(s document.SpreadMode) gg.ExtendMode {
	switch s {
	case document.SpreadRepeat:
		return gg.ExtendRepeat
	case document.SpreadReflect:
		return gg.ExtendReflect
	default:
		return gg.ExtendPad
	}
}

// unitMatrix maps the normalized [0,1] box of a layer to screen pixels.
func unitMatrix(m geom.Matrix, size geom.Point) geom.Matrix {
	return m.Multiply(geom.Scale(size.X, size.Y))
}

// spread folds t into [0,1].
func spread(t float64, mode document.SpreadMode) float64 {
	switch mode {
	case document.SpreadRepeat:
		return t - math.Floor(t)
	case document.SpreadReflect:
		t = math.Mod(math.Abs(t), 2)
		if t > 1 {
			t = 2 - t
		}
		return t
	default:
		return math.Max(0, math.Min(1, t))
	}
}

// SampleStops interpolates sorted stops at t, which must already be folded
// into [0,1].
func SampleStops(stops []document.ColorStop, t float64) document.Color {
	switch {
	case len(stops) == 0:
		return document.Transparent
	case t <= stops[0].Offset:
		return stops[0].Color
	case t >= stops[len(stops)-1].Offset:
		return stops[len(stops)-1].Color
	}
	for i := 1; i < len(stops); i++ {
		a, b := stops[i-1], stops[i]
		if t > b.Offset {
			continue
		}
		span := b.Offset - a.Offset
		if span <= 0 {
			return b.Color
		}
		f := (t - a.Offset) / span
		return document.Color{
			R: a.Color.R + (b.Color.R-a.Color.R)*f,
			G: a.Color.G + (b.Color.G-a.Color.G)*f,
			B: a.Color.B + (b.Color.B-a.Color.B)*f,
			A: a.Color.A + (b.Color.A-a.Color.A)*f,
		}
	}
	return stops[len(stops)-1].Color
}

// GradientAt returns the gradient parameter for a point in unit gradient
// space, before spreading.
func GradientAt(typ document.GradientType, p geom.Point) float64 {
	dx, dy := p.X-0.5, p.Y-0.5
	switch typ {
	case document.GradientRadial:
		return math.Hypot(dx, dy) / 0.5
	case document.GradientAngular:
		a := math.Atan2(dy, dx) / (2 * math.Pi)
		if a < 0 {
			a++
		}
		return a
	case document.GradientDiamond:
		return (math.Abs(dx) + math.Abs(dy)) / 0.5
	default:
		return p.X
	}
}

// gradientBrush builds a brush for g painted on a layer whose local space
// maps to the screen through m. Linear and radial gradients use the native
// brushes when the mapping keeps their shape; everything else samples
// through the inverse matrix.
func gradientBrush(g document.GradientPaint, m geom.Matrix, size geom.Point) gg.Brush {
	stops := g.SortedStops()
	t := unitMatrix(m, size)
	if !g.Transform.IsIdentity() && g.Transform != (geom.Matrix{}) {
		t = t.Multiply(g.Transform)
	}
	ax, ay := t[0], t[1]
	bx, by := t[2], t[3]
	orthogonal := math.Abs(ax*bx+ay*by) < 1e-9*math.Max(1, ax*ax+ay*ay)
	conformal := orthogonal && math.Abs(math.Hypot(ax, ay)-math.Hypot(bx, by)) < 1e-9*math.Max(1, math.Hypot(ax, ay))

	switch {
	case g.Type == document.GradientLinear && orthogonal:
		s, e := t.Apply(geom.Pt(0, 0.5)), t.Apply(geom.Pt(1, 0.5))
		b := gg.NewLinearGradientBrush(s.X, s.Y, e.X, e.Y).SetExtend(extendMode(g.Spread))
		for _, st := range stops {
			b.AddColorStop(st.Offset, toRGBA(st.Color))
		}
		return b
	case g.Type == document.GradientRadial && conformal:
		c := t.Apply(geom.Pt(0.5, 0.5))
		r := 0.5 * math.Hypot(ax, ay)
		b := gg.NewRadialGradientBrush(c.X, c.Y, 0, r).SetExtend(extendMode(g.Spread))
		for _, st := range stops {
			b.AddColorStop(st.Offset, toRGBA(st.Color))
		}
		return b
	}

	inv := t.Invert()
	return gg.NewCustomBrush(func(x, y float64) gg.RGBA {
		u := inv.Apply(geom.Pt(x, y))
		return toRGBA(SampleStops(stops, spread(GradientAt(g.Type, u), g.Spread)))
	})
}

// PatternAt reports whether the pattern covers local point p.
func PatternAt(p document.PatternPaint, pt geom.Point) bool {
	scale := p.Scale
	if scale <= 0 {
		scale = 1
	}
	s := p.Spacing
	if s <= 0 {
		s = 10
	}
	if p.Rotation != 0 {
		pt = geom.RotateDegrees(-p.Rotation).Apply(pt)
	}
	x, y := pt.X/scale, pt.Y/scale
	fx, fy := x-s*math.Floor(x/s), y-s*math.Floor(y/s)
	switch p.Type {
	case document.PatternDots:
		return math.Hypot(fx-s/2, fy-s/2) <= s*0.2
	case document.PatternStripes:
		return fx < s/2
	case document.PatternGrid:
		return fx < 1 || fy < 1
	case document.PatternChecker:
		return (int(math.Floor(x/s))+int(math.Floor(y/s)))%2 == 0
	}
	return false
}

func patternBrush(p document.PatternPaint, m geom.Matrix) gg.Brush {
	inv := m.Invert()
	c := p.Color
	if p.Opacity > 0 {
		c = c.WithAlpha(p.Opacity)
	}
	on := toRGBA(c)
	return gg.NewCustomBrush(func(x, y float64) gg.RGBA {
		if PatternAt(p, inv.Apply(geom.Pt(x, y))) {
			return on
		}
		return gg.Transparent
	})
}
