// Package render turns a document and viewport into a display list and
// rasterizes it with gogpu/gg.
package render

import (
	"github.com/gogpu/gg"

	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
	"github.com/inamate/designkit/internal/viewport"
)

// OpKind identifies a display-list operation.
type OpKind int

const (
	OpClear OpKind = iota
	OpGrid
	OpGuide
	OpPushLayer
	OpPopLayer
	OpClip
	OpUnclip
	OpFill
	OpStroke
	OpImage
	OpText
	OpEffect
	OpSelection
	OpHandle
	OpMarquee
)

var opNames = [...]string{
	OpClear:     "clear",
	OpGrid:      "grid",
	OpGuide:     "guide",
	OpPushLayer: "push-layer",
	OpPopLayer:  "pop-layer",
	OpClip:      "clip",
	OpUnclip:    "unclip",
	OpFill:      "fill",
	OpStroke:    "stroke",
	OpImage:     "image",
	OpText:      "text",
	OpEffect:    "effect",
	OpSelection: "selection",
	OpHandle:    "handle",
	OpMarquee:   "marquee",
}

func (k OpKind) String() string {
	if int(k) < len(opNames) {
		return opNames[k]
	}
	return "unknown"
}

// Op is one display-list entry. Transform maps layer-local coordinates to
// screen pixels; Rect is already in screen pixels.
type Op struct {
	Kind      OpKind
	Layer     document.LayerID
	Transform geom.Matrix
	Size      geom.Point
	Path      []document.PathSegment
	Paint     document.Paint
	Stroke    document.Stroke
	Effect    document.Effect
	Text      document.Text
	Image     document.Image
	Opacity   float64
	Blend     document.BlendMode
	Rect      geom.Rect
	Spacing   float64
	Origin    geom.Point
	Color     document.Color
	Dash      []float64
}

// Options controls what Compile emits besides the document itself.
type Options struct {
	// Width and Height are the surface size in pixels.
	Width, Height int

	Background     document.Color
	GridSize       float64
	MinGridPixels  float64
	GridColor      document.Color
	GuideColor     document.Color
	SafeMargin     float64
	HandleSize     float64
	SelectionColor document.Color
	HideSelection  bool

	// Marquee is the live rubber-band rectangle in world coordinates.
	Marquee *geom.Rect

	// Overlay is called last, in screen space, for tool-specific guides.
	Overlay func(dc *gg.Context)
}

// DefaultOptions returns editor defaults for a surface of the given size.
func DefaultOptions(width, height int) Options {
	return Options{
		Width:          width,
		Height:         height,
		Background:     document.MustHex("#e5e5e5"),
		GridSize:       10,
		MinGridPixels:  8,
		GridColor:      document.Black.WithAlpha(0.08),
		GuideColor:     document.MustHex("#ff00aa"),
		SafeMargin:     24,
		HandleSize:     8,
		SelectionColor: document.MustHex("#0d99ff"),
	}
}

// compiler walks the document once, tracking what each entered container
// pushed so it can be unwound on leave.
type compiler struct {
	doc    document.Document
	vp     viewport.Viewport
	opts   Options
	screen geom.Matrix
	view   geom.Rect
	ops    []Op
	scopes []scope
}

type scope struct {
	layered bool
	clipped bool
}

// Compile builds the display list for one frame: background, grid, guides,
// the document in paint order, selection handles and the marquee. It only
// reads the document.
func Compile(doc document.Document, vp viewport.Viewport, opts Options) []Op {
	c := &compiler{
		doc:    doc,
		vp:     vp,
		opts:   opts,
		screen: vp.Matrix(),
		view:   vp.VisibleWorld(float64(opts.Width), float64(opts.Height)),
	}
	c.ops = append(c.ops, Op{Kind: OpClear, Color: opts.Background})
	c.grid()
	doc.Walk(c.visit)
	c.guides()
	if !opts.HideSelection {
		c.selection()
	}
	if opts.Marquee != nil {
		c.ops = append(c.ops, Op{
			Kind:  OpMarquee,
			Rect:  c.screen.TransformRect(*opts.Marquee),
			Color: opts.SelectionColor,
		})
	}
	return c.ops
}

// GridVisible reports whether grid lines are far enough apart on screen.
func GridVisible(vp viewport.Viewport, gridSize, minPixels float64) bool {
	return vp.ShowGrid && gridSize > 0 && gridSize*vp.Zoom >= minPixels
}

func (c *compiler) grid() {
	if !GridVisible(c.vp, c.opts.GridSize, c.opts.MinGridPixels) {
		return
	}
	c.ops = append(c.ops, Op{
		Kind:    OpGrid,
		Rect:    geom.Rect{Width: float64(c.opts.Width), Height: float64(c.opts.Height)},
		Spacing: c.opts.GridSize * c.vp.Zoom,
		Origin:  c.vp.ToScreen(geom.Point{}),
		Color:   c.opts.GridColor,
	})
}

func (c *compiler) guides() {
	if !c.vp.ShowGuides && !c.vp.ShowBleedSafe {
		return
	}
	board, ok := c.doc.Bounds(c.doc.Root())
	if !ok {
		return
	}
	if c.vp.ShowGuides {
		mid := board.Center()
		for _, r := range []geom.Rect{
			{X: mid.X, Y: board.Y, Height: board.Height},
			{X: board.X, Y: mid.Y, Width: board.Width},
		} {
			c.ops = append(c.ops, Op{Kind: OpGuide, Rect: c.screen.TransformRect(r), Color: c.opts.GuideColor})
		}
	}
	if c.vp.ShowBleedSafe && c.opts.SafeMargin > 0 {
		c.ops = append(c.ops, Op{
			Kind:  OpGuide,
			Rect:  c.screen.TransformRect(board.Inset(c.opts.SafeMargin)),
			Color: c.opts.GuideColor,
			Dash:  []float64{4, 4},
		})
	}
}

// culled reports whether the layer is entirely outside the visible area.
// Only leaves and clipping frames are culled; other containers can have
// children outside their own box.
func (c *compiler) culled(l document.Layer) bool {
	if l.Kind().IsContainer() {
		f, ok := l.Content.(document.Frame)
		if !ok || !f.ClipContent {
			return false
		}
	}
	vb, ok := c.doc.VisualBounds(l.ID)
	if !ok {
		return true
	}
	return !vb.Intersects(c.view) && !c.view.Contains(vb.Min())
}

func (c *compiler) visit(l document.Layer, v document.Visit) bool {
	if v == document.VisitLeave {
		c.leave(l)
		return true
	}
	if !l.Visible || c.culled(l) {
		return false
	}
	m, _ := c.doc.WorldMatrix(l.ID)
	m = c.screen.Multiply(m)

	s := scope{layered: l.Opacity < 1 || (l.BlendMode != "" && l.BlendMode != document.BlendNormal)}
	if s.layered {
		c.ops = append(c.ops, Op{Kind: OpPushLayer, Layer: l.ID, Opacity: l.Opacity, Blend: l.BlendMode})
	}
	outline := Outline(l, 0)
	c.effects(l, m, outline, document.Underlay)
	c.content(l, m, outline)

	if v == document.VisitLeaf {
		c.finish(l, m, outline, s)
		return true
	}
	if f, ok := l.Content.(document.Frame); ok && f.ClipContent {
		s.clipped = true
		c.ops = append(c.ops, Op{Kind: OpClip, Layer: l.ID, Transform: m, Path: outline})
	}
	c.scopes = append(c.scopes, s)
	return true
}

func (c *compiler) leave(l document.Layer) {
	s := c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]
	if s.clipped {
		c.ops = append(c.ops, Op{Kind: OpUnclip, Layer: l.ID})
	}
	m, _ := c.doc.WorldMatrix(l.ID)
	m = c.screen.Multiply(m)
	c.finish(l, m, Outline(l, 0), s)
}

// finish emits strokes and the effects that draw over the content, then
// closes the layer group.
func (c *compiler) finish(l document.Layer, m geom.Matrix, outline []document.PathSegment, s scope) {
	for _, st := range document.StrokesOf(l.Content) {
		if st.Width <= 0 || st.Paint == nil {
			continue
		}
		path := outline
		switch st.Align {
		case document.StrokeInside:
			path = Outline(l, st.Width/2)
		case document.StrokeOutside:
			path = Outline(l, -st.Width/2)
		}
		c.ops = append(c.ops, Op{Kind: OpStroke, Layer: l.ID, Transform: m, Size: l.Transform.Size, Path: path, Paint: st.Paint, Stroke: st})
	}
	c.effects(l, m, outline, document.InPlace)
	c.effects(l, m, outline, document.Overlay)
	if s.layered {
		c.ops = append(c.ops, Op{Kind: OpPopLayer, Layer: l.ID})
	}
}

func (c *compiler) content(l document.Layer, m geom.Matrix, outline []document.PathSegment) {
	base := Op{Layer: l.ID, Transform: m, Size: l.Transform.Size, Path: outline}
	for _, p := range document.FillsOf(l.Content) {
		op := base
		op.Kind, op.Paint = OpFill, p
		c.ops = append(c.ops, op)
	}
	switch k := l.Content.(type) {
	case document.Image:
		op := base
		op.Kind, op.Image = OpImage, k
		c.ops = append(c.ops, op)
	case document.Text:
		op := base
		op.Kind, op.Text = OpText, k
		c.ops = append(c.ops, op)
	case document.Icon:
		op := base
		op.Kind, op.Paint = OpFill, document.SolidPaint{Color: k.Color}
		c.ops = append(c.ops, op)
	}
}

func (c *compiler) effects(l document.Layer, m geom.Matrix, outline []document.PathSegment, where document.Placement) {
	for _, e := range l.Effects {
		if !e.IsEnabled() || e.Placement() != where {
			continue
		}
		path := outline
		switch e := e.(type) {
		case document.Outline:
			path = Outline(l, -e.Width/2)
		case document.DropShadow:
			if e.Spread != 0 {
				path = Outline(l, -e.Spread)
			}
		}
		c.ops = append(c.ops, Op{Kind: OpEffect, Layer: l.ID, Transform: m, Size: l.Transform.Size, Path: path, Effect: e})
	}
}

func (c *compiler) selection() {
	size := c.opts.HandleSize / c.vp.Zoom
	for _, id := range c.doc.Selection() {
		if !c.doc.EffectivelyVisible(id) {
			continue
		}
		b, ok := c.doc.Bounds(id)
		if !ok {
			continue
		}
		c.ops = append(c.ops, Op{Kind: OpSelection, Layer: id, Rect: c.screen.TransformRect(b), Color: c.opts.SelectionColor})
		for _, h := range geom.Handles {
			c.ops = append(c.ops, Op{Kind: OpHandle, Layer: id, Rect: c.screen.TransformRect(h.Rect(b, size)), Color: c.opts.SelectionColor})
		}
	}
}
