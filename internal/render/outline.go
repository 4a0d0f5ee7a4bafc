package render

import (
	"math"

	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
)

// kappa approximates a quarter circle with a cubic bezier:
// 4 * (sqrt(2) - 1) / 3.
const kappa = 0.5522847498

func moveTo(x, y float64) document.PathSegment {
	return document.PathSegment{Op: document.SegMoveTo, Points: []geom.Point{{X: x, Y: y}}}
}

func lineTo(x, y float64) document.PathSegment {
	return document.PathSegment{Op: document.SegLineTo, Points: []geom.Point{{X: x, Y: y}}}
}

func cubicTo(x1, y1, x2, y2, x, y float64) document.PathSegment {
	return document.PathSegment{Op: document.SegCubicTo, Points: []geom.Point{{X: x1, Y: y1}, {X: x2, Y: y2}, {X: x, Y: y}}}
}

func closePath() document.PathSegment {
	return document.PathSegment{Op: document.SegClose}
}

// Outline returns the layer geometry in layer-local coordinates, shrunk by
// inset on every side (a negative inset grows it). Free-form paths ignore
// the inset. Groups have no outline of their own.
func Outline(l document.Layer, inset float64) []document.PathSegment {
	w, h := l.Transform.Size.X, l.Transform.Size.Y
	box := geom.Rect{Width: w, Height: h}.Inset(inset)
	box.Width = math.Max(0, box.Width)
	box.Height = math.Max(0, box.Height)

	switch c := l.Content.(type) {
	case document.Shape:
		return shapeOutline(c.Geometry, box, inset)
	case document.Path:
		segs := c.Segments
		if c.Closed && (len(segs) == 0 || segs[len(segs)-1].Op != document.SegClose) {
			segs = append(segs[:len(segs):len(segs)], closePath())
		}
		return segs
	case document.Icon:
		return transformSegments(c.Outline, geom.Scale(w, h))
	case document.Frame, document.Image, document.Text:
		return rectPath(box)
	}
	return nil
}

func shapeOutline(g document.ShapeGeometry, box geom.Rect, inset float64) []document.PathSegment {
	switch g.Type {
	case document.ShapeEllipse:
		return ellipsePath(box)
	case document.ShapePolygon:
		return polygonPath(box, max(3, g.Sides), 1)
	case document.ShapeStar:
		ratio := g.InnerRatio
		if ratio <= 0 || ratio >= 1 {
			ratio = 0.5
		}
		return polygonPath(box, max(3, g.Sides), ratio)
	case document.ShapeLine:
		y := box.Y + box.Height/2
		return []document.PathSegment{moveTo(box.X, y), lineTo(box.Right(), y)}
	default:
		var radii [4]float64
		limit := math.Min(box.Width, box.Height) / 2
		for i, r := range g.CornerRadii {
			radii[i] = math.Min(math.Max(0, r-inset), limit)
		}
		return roundRectPath(box, radii)
	}
}

func rectPath(r geom.Rect) []document.PathSegment {
	return []document.PathSegment{
		moveTo(r.X, r.Y),
		lineTo(r.Right(), r.Y),
		lineTo(r.Right(), r.Bottom()),
		lineTo(r.X, r.Bottom()),
		closePath(),
	}
}

// roundRectPath traces a rectangle with per-corner radii, clockwise from the
// top-left corner.
func roundRectPath(r geom.Rect, radii [4]float64) []document.PathSegment {
	if radii == [4]float64{} {
		return rectPath(r)
	}
	tl, tr, br, bl := radii[0], radii[1], radii[2], radii[3]
	x0, y0, x1, y1 := r.X, r.Y, r.Right(), r.Bottom()
	return []document.PathSegment{
		moveTo(x0+tl, y0),
		lineTo(x1-tr, y0),
		cubicTo(x1-tr+tr*kappa, y0, x1, y0+tr-tr*kappa, x1, y0+tr),
		lineTo(x1, y1-br),
		cubicTo(x1, y1-br+br*kappa, x1-br+br*kappa, y1, x1-br, y1),
		lineTo(x0+bl, y1),
		cubicTo(x0+bl-bl*kappa, y1, x0, y1-bl+bl*kappa, x0, y1-bl),
		lineTo(x0, y0+tl),
		cubicTo(x0, y0+tl-tl*kappa, x0+tl-tl*kappa, y0, x0+tl, y0),
		closePath(),
	}
}

// ellipsePath approximates the ellipse inscribed in r with four cubics.
func ellipsePath(r geom.Rect) []document.PathSegment {
	rx, ry := r.Width/2, r.Height/2
	cx, cy := r.X+rx, r.Y+ry
	kx, ky := rx*kappa, ry*kappa
	return []document.PathSegment{
		moveTo(cx+rx, cy),
		cubicTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry),
		cubicTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy),
		cubicTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry),
		cubicTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy),
		closePath(),
	}
}

// polygonPath traces a regular polygon inscribed in r starting at the top.
// An inner ratio below 1 alternates with inner vertices to form a star.
func polygonPath(r geom.Rect, sides int, inner float64) []document.PathSegment {
	rx, ry := r.Width/2, r.Height/2
	cx, cy := r.X+rx, r.Y+ry
	n := sides
	if inner < 1 {
		n *= 2
	}
	segs := make([]document.PathSegment, 0, n+1)
	for i := range n {
		k := 1.0
		if inner < 1 && i%2 == 1 {
			k = inner
		}
		a := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
		x, y := cx+rx*k*math.Cos(a), cy+ry*k*math.Sin(a)
		if i == 0 {
			segs = append(segs, moveTo(x, y))
		} else {
			segs = append(segs, lineTo(x, y))
		}
	}
	return append(segs, closePath())
}

func transformSegments(segs []document.PathSegment, m geom.Matrix) []document.PathSegment {
	out := make([]document.PathSegment, len(segs))
	for i, s := range segs {
		pts := make([]geom.Point, len(s.Points))
		for j, p := range s.Points {
			pts[j] = m.Apply(p)
		}
		out[i] = document.PathSegment{Op: s.Op, Points: pts}
	}
	return out
}

// Translated shifts every point of segs by d.
func Translated(segs []document.PathSegment, d geom.Point) []document.PathSegment {
	return transformSegments(segs, geom.Translate(d.X, d.Y))
}
