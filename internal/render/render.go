package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
	"github.com/inamate/designkit/internal/viewport"
)

// ImageSource resolves image references to decoded bitmaps.
type ImageSource interface {
	Image(source string) (image.Image, error)
}

// Renderer executes display lists on a gg raster context. It caches font
// faces and decoded images and is safe for concurrent use.
type Renderer struct {
	images ImageSource
	font   *text.FontSource

	mu     sync.Mutex
	faces  map[float64]text.Face
	bitmap map[string]image.Image
	bufs   map[string]*gg.ImageBuf
}

// New creates a renderer. images may be nil, in which case image layers
// draw nothing.
func New(images ImageSource) (*Renderer, error) {
	font, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("loading default font: %w", err)
	}
	return &Renderer{
		images: images,
		font:   font,
		faces:  make(map[float64]text.Face),
		bitmap: make(map[string]image.Image),
		bufs:   make(map[string]*gg.ImageBuf),
	}, nil
}

// Render compiles and draws one frame.
func (r *Renderer) Render(dc *gg.Context, doc document.Document, vp viewport.Viewport, opts Options) error {
	err := r.Execute(dc, Compile(doc, vp, opts))
	if opts.Overlay != nil {
		dc.Identity()
		opts.Overlay(dc)
	}
	return err
}

// Rasterize renders the document onto a new context of the given size.
func (r *Renderer) Rasterize(doc document.Document, vp viewport.Viewport, opts Options) (*gg.Context, error) {
	dc := gg.NewContext(opts.Width, opts.Height)
	return dc, r.Render(dc, doc, vp, opts)
}

// EncodePNG rasterizes the artboard at the given scale without editor
// chrome and writes it as PNG.
func (r *Renderer) EncodePNG(w io.Writer, doc document.Document, scale float64) error {
	board, ok := doc.Bounds(doc.Root())
	if !ok {
		return fmt.Errorf("%w: document has no root", document.ErrInvalidDocument)
	}
	if scale <= 0 {
		scale = 1
	}
	vp := viewport.Default()
	vp.Zoom = scale
	vp.OffsetX, vp.OffsetY = -board.X*scale, -board.Y*scale
	vp.ShowGrid, vp.ShowGuides, vp.ShowBleedSafe = false, false, false

	opts := DefaultOptions(int(math.Ceil(board.Width*scale)), int(math.Ceil(board.Height*scale)))
	opts.Background = document.Transparent
	opts.HideSelection = true
	dc, err := r.Rasterize(doc, vp, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// Execute draws ops in order. Drawing continues past per-op failures; all
// errors are returned joined.
func (r *Renderer) Execute(dc *gg.Context, ops []Op) error {
	var errs []error
	for _, op := range ops {
		if err := r.exec(dc, op); err != nil {
			errs = append(errs, fmt.Errorf("%s op for layer %q: %w", op.Kind, op.Layer, err))
		}
		dc.Identity()
	}
	return errors.Join(errs...)
}

func (r *Renderer) exec(dc *gg.Context, op Op) error {
	switch op.Kind {
	case OpClear:
		dc.ClearWithColor(toRGBA(op.Color))
	case OpGrid:
		return drawGrid(dc, op)
	case OpGuide, OpSelection:
		dc.SetStrokeBrush(gg.Solid(toRGBA(op.Color)))
		dc.SetLineWidth(1)
		if len(op.Dash) > 0 {
			dc.SetDash(op.Dash...)
			defer dc.ClearDash()
		}
		dc.DrawRectangle(op.Rect.X, op.Rect.Y, op.Rect.Width, op.Rect.Height)
		return dc.Stroke()
	case OpHandle:
		dc.DrawRectangle(op.Rect.X, op.Rect.Y, op.Rect.Width, op.Rect.Height)
		dc.SetFillBrush(gg.Solid(gg.RGBA{R: 1, G: 1, B: 1, A: 1}))
		if err := dc.FillPreserve(); err != nil {
			return err
		}
		dc.SetStrokeBrush(gg.Solid(toRGBA(op.Color)))
		dc.SetLineWidth(1)
		return dc.Stroke()
	case OpMarquee:
		dc.DrawRectangle(op.Rect.X, op.Rect.Y, op.Rect.Width, op.Rect.Height)
		dc.SetFillBrush(gg.Solid(toRGBA(op.Color.WithAlpha(0.1))))
		if err := dc.FillPreserve(); err != nil {
			return err
		}
		dc.SetStrokeBrush(gg.Solid(toRGBA(op.Color)))
		dc.SetLineWidth(1)
		return dc.Stroke()
	case OpPushLayer:
		dc.PushLayer(blendMode(op.Blend), op.Opacity)
	case OpPopLayer:
		dc.PopLayer()
	case OpClip:
		dc.Push()
		tracePath(dc, op.Transform, op.Path)
		dc.Clip()
	case OpUnclip:
		dc.Pop()
	case OpFill:
		return r.fill(dc, op.Transform, op.Size, op.Path, op.Paint)
	case OpStroke:
		return r.stroke(dc, op)
	case OpImage:
		return r.image(dc, op)
	case OpText:
		r.text(dc, op)
	case OpEffect:
		return r.effect(dc, op)
	}
	return nil
}

func tracePath(dc *gg.Context, m geom.Matrix, segs []document.PathSegment) {
	dc.ClearPath()
	dc.SetTransform(toMatrix(m))
	for _, s := range segs {
		p := s.Points
		switch s.Op {
		case document.SegMoveTo:
			if len(p) >= 1 {
				dc.MoveTo(p[0].X, p[0].Y)
			}
		case document.SegLineTo:
			if len(p) >= 1 {
				dc.LineTo(p[0].X, p[0].Y)
			}
		case document.SegQuadTo:
			if len(p) >= 2 {
				dc.QuadraticTo(p[0].X, p[0].Y, p[1].X, p[1].Y)
			}
		case document.SegCubicTo:
			if len(p) >= 3 {
				dc.CubicTo(p[0].X, p[0].Y, p[1].X, p[1].Y, p[2].X, p[2].Y)
			}
		case document.SegClose:
			dc.ClosePath()
		}
	}
}

func (r *Renderer) brush(p document.Paint, m geom.Matrix, size geom.Point) (gg.Brush, bool) {
	switch p := p.(type) {
	case document.SolidPaint:
		return gg.Solid(toRGBA(p.Color)), true
	case document.GradientPaint:
		return gradientBrush(p, m, size), true
	case document.PatternPaint:
		return patternBrush(p, m), true
	case document.ImagePaint:
		img, ok := r.load(p.Source, document.ImageFilters{})
		if !ok {
			return nil, false
		}
		return imageBrush(img, fitImage(p.Fit, geom.Rect{}, geom.Point{}, img.Bounds(), size), m), true
	}
	return nil, false
}

func (r *Renderer) fill(dc *gg.Context, m geom.Matrix, size geom.Point, path []document.PathSegment, p document.Paint) error {
	if len(path) == 0 {
		return nil
	}
	b, ok := r.brush(p, m, size)
	if !ok {
		return nil
	}
	tracePath(dc, m, path)
	dc.SetFillBrush(b)
	return dc.Fill()
}

func (r *Renderer) stroke(dc *gg.Context, op Op) error {
	if len(op.Path) == 0 {
		return nil
	}
	b, ok := r.brush(op.Paint, op.Transform, op.Size)
	if !ok {
		return nil
	}
	st := op.Stroke
	tracePath(dc, op.Transform, op.Path)
	dc.SetStrokeBrush(b)
	dc.SetLineWidth(st.Width)
	switch st.Cap {
	case document.CapRound:
		dc.SetLineCap(gg.LineCapRound)
	case document.CapSquare:
		dc.SetLineCap(gg.LineCapSquare)
	default:
		dc.SetLineCap(gg.LineCapButt)
	}
	switch st.Join {
	case document.JoinRound:
		dc.SetLineJoin(gg.LineJoinRound)
	case document.JoinBevel:
		dc.SetLineJoin(gg.LineJoinBevel)
	default:
		dc.SetLineJoin(gg.LineJoinMiter)
	}
	if st.MiterLimit > 0 {
		dc.SetMiterLimit(st.MiterLimit)
	}
	if len(st.Dash) > 0 {
		dc.SetDash(st.Dash...)
		defer dc.ClearDash()
	}
	return dc.Stroke()
}

func drawGrid(dc *gg.Context, op Op) error {
	if op.Spacing <= 0 {
		return nil
	}
	dc.ClearPath()
	x0 := op.Origin.X - op.Spacing*math.Floor(op.Origin.X/op.Spacing)
	for x := x0; x <= op.Rect.Right(); x += op.Spacing {
		dc.MoveTo(x, op.Rect.Y)
		dc.LineTo(x, op.Rect.Bottom())
	}
	y0 := op.Origin.Y - op.Spacing*math.Floor(op.Origin.Y/op.Spacing)
	for y := y0; y <= op.Rect.Bottom(); y += op.Spacing {
		dc.MoveTo(op.Rect.X, y)
		dc.LineTo(op.Rect.Right(), y)
	}
	dc.SetStrokeBrush(gg.Solid(toRGBA(op.Color)))
	dc.SetLineWidth(1)
	return dc.Stroke()
}

// face returns a cached face for a pixel size.
func (r *Renderer) face(size float64) text.Face {
	size = math.Max(1, math.Round(size*4)/4)
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.faces[size]
	if !ok {
		f = r.font.Face(size)
		r.faces[size] = f
	}
	return f
}

// LayoutText splits t into lines for a face, wrapping at maxWidth pixels
// when positive. Explicit newlines always break.
func LayoutText(content string, face text.Face, maxWidth float64) []string {
	var lines []string
	for para := range strings.SplitSeq(content, "\n") {
		if maxWidth <= 0 || para == "" {
			lines = append(lines, para)
			continue
		}
		for _, w := range text.WrapText(para, face, maxWidth, text.WrapWord) {
			lines = append(lines, strings.TrimRight(w.Text, " "))
		}
	}
	return lines
}

// text draws the layer's string at the layer origin. Glyphs are placed in
// screen space, so rotation moves the text block but does not turn glyphs.
func (r *Renderer) text(dc *gg.Context, op Op) {
	t := op.Text
	scale := op.Transform.ScaleFactor()
	if scale <= 0 || t.Content == "" {
		return
	}
	st := t.Style
	if st.FontSize <= 0 {
		st.FontSize = document.DefaultTextStyle().FontSize
	}
	if len(t.Runs) > 0 {
		slog.Debug("text runs rendered with base style", "layer", op.Layer, "runs", len(t.Runs))
	}
	face := r.face(st.FontSize * scale)
	metrics := face.Metrics()
	lineHeight := st.FontSize * st.LineHeight * scale
	if lineHeight <= 0 {
		lineHeight = metrics.LineHeight()
	}
	origin := op.Transform.Apply(geom.Point{})
	box := op.Size.X * scale
	dc.SetFont(face)
	dc.SetRGBA(st.Color.R, st.Color.G, st.Color.B, st.Color.A)
	for i, line := range LayoutText(t.Content, face, t.MaxWidth*scale) {
		x := origin.X
		switch st.Align {
		case document.AlignCenter:
			x += (box - face.Advance(line)) / 2
		case document.AlignRight:
			x += box - face.Advance(line)
		}
		dc.DrawString(line, x, origin.Y+metrics.Ascent+float64(i)*lineHeight)
	}
}

func filterKey(source string, f document.ImageFilters) string {
	return fmt.Sprintf("%s|%g|%g|%g|%t", source, f.Brightness, f.Contrast, f.Saturation, f.Grayscale)
}

// load fetches and filters an image, caching the result.
func (r *Renderer) load(source string, f document.ImageFilters) (image.Image, bool) {
	if r.images == nil || source == "" {
		return nil, false
	}
	key := filterKey(source, f)
	r.mu.Lock()
	img, ok := r.bitmap[key]
	r.mu.Unlock()
	if ok {
		return img, img != nil
	}
	src, err := r.images.Image(source)
	if err != nil {
		slog.Warn("image unavailable", "source", source, "error", err)
		r.mu.Lock()
		r.bitmap[key] = nil
		r.mu.Unlock()
		return nil, false
	}
	if f.Blur > 0 {
		slog.Debug("image blur filter not supported by rasterizer", "source", source)
	}
	img = ApplyFilters(src, f)
	r.mu.Lock()
	r.bitmap[key] = img
	r.mu.Unlock()
	return img, true
}

func (r *Renderer) imageBuf(key string, img image.Image) *gg.ImageBuf {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bufs[key]
	if !ok {
		b = gg.ImageBufFromImage(img)
		r.bufs[key] = b
	}
	return b
}

func (r *Renderer) image(dc *gg.Context, op Op) error {
	im := op.Image
	img, ok := r.load(im.Source, im.Filters)
	if !ok {
		return nil
	}
	place := fitImage(im.Fit, im.Crop, im.Focal, img.Bounds(), op.Size)
	m := op.Transform
	if place.tile || m[1] != 0 || m[2] != 0 {
		tracePath(dc, m, op.Path)
		dc.SetFillBrush(imageBrush(img, place, m))
		return dc.Fill()
	}
	dc.Push()
	defer dc.Pop()
	tracePath(dc, m, op.Path)
	dc.Clip()
	dc.SetTransform(toMatrix(m))
	src := place.src
	dc.DrawImageEx(r.imageBuf(filterKey(im.Source, im.Filters), img), gg.DrawImageOptions{
		X:             place.dst.X,
		Y:             place.dst.Y,
		DstWidth:      place.dst.Width,
		DstHeight:     place.dst.Height,
		SrcRect:       &src,
		Interpolation: gg.InterpBilinear,
	})
	return nil
}

// placement maps a source rectangle of the bitmap onto a destination
// rectangle in layer-local coordinates.
type placement struct {
	src  image.Rectangle
	dst  geom.Rect
	tile bool
}

// fitImage resolves the fit mode. Fill covers the box around the focal
// point; a zero focal point means the center.
func fitImage(fit document.ImageFit, crop geom.Rect, focal geom.Point, bounds image.Rectangle, size geom.Point) placement {
	iw, ih := float64(bounds.Dx()), float64(bounds.Dy())
	box := geom.Rect{Width: size.X, Height: size.Y}
	p := placement{src: bounds, dst: box}
	if iw <= 0 || ih <= 0 || size.X <= 0 || size.Y <= 0 {
		return p
	}
	switch fit {
	case document.FitFit:
		s := math.Min(size.X/iw, size.Y/ih)
		w, h := iw*s, ih*s
		p.dst = geom.Rect{X: (size.X - w) / 2, Y: (size.Y - h) / 2, Width: w, Height: h}
	case document.FitCrop:
		if !crop.IsEmpty() {
			p.src = image.Rect(int(crop.X), int(crop.Y), int(crop.Right()), int(crop.Bottom())).Add(bounds.Min).Intersect(bounds)
		}
	case document.FitTile:
		p.dst = geom.Rect{Width: iw, Height: ih}
		p.tile = true
	default:
		if focal == (geom.Point{}) {
			focal = geom.Pt(0.5, 0.5)
		}
		s := math.Max(size.X/iw, size.Y/ih)
		sw, sh := size.X/s, size.Y/s
		x := (iw - sw) * focal.X
		y := (ih - sh) * focal.Y
		p.src = image.Rect(int(x), int(y), int(math.Round(x+sw)), int(math.Round(y+sh))).Add(bounds.Min)
	}
	return p
}

// imageBrush samples img through the inverse of m with nearest-neighbour
// lookup. Used when the bitmap cannot be blitted axis-aligned.
func imageBrush(img image.Image, p placement, m geom.Matrix) gg.Brush {
	inv := m.Invert()
	sw, sh := float64(p.src.Dx()), float64(p.src.Dy())
	return gg.NewCustomBrush(func(x, y float64) gg.RGBA {
		l := inv.Apply(geom.Pt(x, y))
		if p.dst.Width <= 0 || p.dst.Height <= 0 {
			return gg.Transparent
		}
		u, v := (l.X-p.dst.X)/p.dst.Width, (l.Y-p.dst.Y)/p.dst.Height
		if p.tile {
			u, v = u-math.Floor(u), v-math.Floor(v)
		} else if u < 0 || u >= 1 || v < 0 || v >= 1 {
			return gg.Transparent
		}
		px := p.src.Min.X + int(u*sw)
		py := p.src.Min.Y + int(v*sh)
		c := color.NRGBAModel.Convert(img.At(px, py)).(color.NRGBA)
		return gg.RGBA{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255, A: float64(c.A) / 255}
	})
}

// ApplyFilters returns a filtered copy of img. Brightness, contrast and
// saturation are offsets around zero; zero filters return img unchanged.
func ApplyFilters(img image.Image, f document.ImageFilters) image.Image {
	if f.Brightness == 0 && f.Contrast == 0 && f.Saturation == 0 && !f.Grayscale {
		return img
	}
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			rgb := [3]float64{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255}
			luma := 0.299*rgb[0] + 0.587*rgb[1] + 0.114*rgb[2]
			sat := 1 + f.Saturation
			if f.Grayscale {
				sat = 0
			}
			for i, v := range rgb {
				v = luma + (v-luma)*sat
				v = (v-0.5)*(1+f.Contrast) + 0.5
				v += f.Brightness
				rgb[i] = math.Max(0, math.Min(1, v))
			}
			out.SetNRGBA(x, y, color.NRGBA{
				R: uint8(math.Round(rgb[0] * 255)),
				G: uint8(math.Round(rgb[1] * 255)),
				B: uint8(math.Round(rgb[2] * 255)),
				A: c.A,
			})
		}
	}
	return out
}

func (r *Renderer) effect(dc *gg.Context, op Op) error {
	if len(op.Path) == 0 {
		return nil
	}
	switch e := op.Effect.(type) {
	case document.DropShadow:
		path := Translated(op.Path, e.Offset)
		if err := r.fill(dc, op.Transform, op.Size, path, document.SolidPaint{Color: e.Color}); err != nil {
			return err
		}
		if e.Blur > 0 {
			return softEdge(dc, op.Transform, path, e.Color.WithAlpha(0.5), e.Blur)
		}
	case document.InnerShadow:
		dc.Push()
		defer dc.Pop()
		tracePath(dc, op.Transform, op.Path)
		dc.Clip()
		return softEdge(dc, op.Transform, Translated(op.Path, e.Offset), e.Color, math.Max(1, e.Blur)*2)
	case document.Glow:
		if err := softEdge(dc, op.Transform, op.Path, e.Color.WithAlpha(0.35), e.Radius*2); err != nil {
			return err
		}
		return softEdge(dc, op.Transform, op.Path, e.Color.WithAlpha(0.6), e.Radius)
	case document.Outline:
		return softEdge(dc, op.Transform, op.Path, e.Color, e.Width)
	case document.Noise:
		tracePath(dc, op.Transform, op.Path)
		dc.SetFillBrush(noiseBrush(e))
		return dc.Fill()
	default:
		slog.Debug("effect not supported by rasterizer", "layer", op.Layer, "effect", op.Effect.EffectType())
	}
	return nil
}

// softEdge strokes path with a wide translucent pen to approximate blurred
// shadows and glows.
func softEdge(dc *gg.Context, m geom.Matrix, path []document.PathSegment, c document.Color, width float64) error {
	if width <= 0 {
		return nil
	}
	tracePath(dc, m, path)
	dc.SetStrokeBrush(gg.Solid(toRGBA(c)))
	dc.SetLineWidth(width)
	dc.SetLineJoin(gg.LineJoinRound)
	return dc.Stroke()
}

// noiseBrush returns deterministic grain in device pixels.
func noiseBrush(n document.Noise) gg.Brush {
	amount := math.Max(0, math.Min(1, n.Amount))
	seed := uint32(n.Seed)
	return gg.NewCustomBrush(func(x, y float64) gg.RGBA {
		h := uint32(int32(x))*374761393 + uint32(int32(y))*668265263 + seed*2246822519
		h = (h ^ (h >> 13)) * 1274126177
		v := float64((h^(h>>16))&0xffff) / 0xffff
		return gg.RGBA{R: v, G: v, B: v, A: amount}
	})
}
