package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
	"github.com/inamate/designkit/internal/viewport"
)

type imageMap map[string]image.Image

func (m imageMap) Image(source string) (image.Image, error) {
	img, ok := m[source]
	if !ok {
		return nil, errors.New("not found")
	}
	return img, nil
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestRasterizeSolidRect(t *testing.T) {
	red := document.NewRect("red", geom.Rect{X: 100, Y: 100, Width: 100, Height: 100}, document.RGB(1, 0, 0))
	doc := board(t, red)

	r, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dc, err := r.Rasterize(doc, viewport.Default(), DefaultOptions(400, 300))
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	img := dc.Image()
	if c := rgbaAt(img, 150, 150); c.R < 200 || c.G > 50 || c.B > 50 {
		t.Errorf("inside rect = %v, want red", c)
	}
	if c := rgbaAt(img, 20, 20); c.R < 200 || c.G < 200 || c.B < 200 {
		t.Errorf("artboard = %v, want white", c)
	}
}

func TestRasterizeZoomed(t *testing.T) {
	blue := document.NewRect("blue", geom.Rect{X: 10, Y: 10, Width: 20, Height: 20}, document.RGB(0, 0, 1))
	doc := board(t, blue)
	r, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dc, err := r.Rasterize(doc, viewport.Viewport{Zoom: 4}, DefaultOptions(200, 200))
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if c := rgbaAt(dc.Image(), 100, 100); c.B < 200 || c.R > 50 {
		t.Errorf("zoomed rect = %v, want blue", c)
	}
}

func TestEncodePNGArtboardSize(t *testing.T) {
	doc := board(t, document.NewText("t", geom.Rect{X: 10, Y: 10, Width: 200, Height: 40}, "Hello"))
	r, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var buf bytes.Buffer
	if err := r.EncodePNG(&buf, doc, 0.5); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 150 {
		t.Errorf("size = %v, want 200x150", b)
	}
}

func TestRasterizeImageLayer(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 255
		if i%4 == 1 || i%4 == 2 {
			src.Pix[i] = 0
		}
	}
	l := document.NewLayer("img", "img", geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}, document.Image{Source: "red", Fit: document.FitFill})
	doc := board(t, l)
	r, err := New(imageMap{"red": src})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dc, err := r.Rasterize(doc, viewport.Default(), DefaultOptions(400, 300))
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if c := rgbaAt(dc.Image(), 50, 50); c.R < 200 || c.G > 50 {
		t.Errorf("image pixel = %v, want red", c)
	}
}

func TestSampleStops(t *testing.T) {
	stops := document.GradientPaint{Stops: []document.ColorStop{
		{Offset: 1, Color: document.White},
		{Offset: 0, Color: document.Black},
	}}.SortedStops()
	tests := []struct {
		t    float64
		want float64
	}{
		{-1, 0},
		{0, 0},
		{0.25, 0.25},
		{0.5, 0.5},
		{1, 1},
		{2, 1},
	}
	for _, tt := range tests {
		if got := SampleStops(stops, tt.t).R; got != tt.want {
			t.Errorf("SampleStops(%v).R = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestSpread(t *testing.T) {
	tests := []struct {
		mode document.SpreadMode
		t    float64
		want float64
	}{
		{document.SpreadPad, 1.5, 1},
		{document.SpreadPad, -0.5, 0},
		{document.SpreadRepeat, 1.25, 0.25},
		{document.SpreadReflect, 1.25, 0.75},
		{document.SpreadReflect, -0.25, 0.25},
	}
	for _, tt := range tests {
		if got := spread(tt.t, tt.mode); got != tt.want {
			t.Errorf("spread(%v, %s) = %v, want %v", tt.t, tt.mode, got, tt.want)
		}
	}
}

func TestGradientAt(t *testing.T) {
	tests := []struct {
		typ  document.GradientType
		p    geom.Point
		want float64
	}{
		{document.GradientLinear, geom.Pt(0.3, 0.9), 0.3},
		{document.GradientRadial, geom.Pt(0.5, 0.5), 0},
		{document.GradientRadial, geom.Pt(1, 0.5), 1},
		{document.GradientDiamond, geom.Pt(0.75, 0.75), 1},
		{document.GradientAngular, geom.Pt(0.5, 1), 0.25},
	}
	for _, tt := range tests {
		if got := GradientAt(tt.typ, tt.p); got != tt.want {
			t.Errorf("GradientAt(%s, %v) = %v, want %v", tt.typ, tt.p, got, tt.want)
		}
	}
}

func TestPatternChecker(t *testing.T) {
	p := document.PatternPaint{Type: document.PatternChecker, Spacing: 10, Scale: 1}
	if !PatternAt(p, geom.Pt(5, 5)) || PatternAt(p, geom.Pt(15, 5)) || !PatternAt(p, geom.Pt(15, 15)) {
		t.Error("checker cells do not alternate")
	}
}

func TestFitImage(t *testing.T) {
	bounds := image.Rect(0, 0, 200, 100)
	size := geom.Pt(100, 100)

	cover := fitImage(document.FitFill, geom.Rect{}, geom.Point{}, bounds, size)
	if want := image.Rect(50, 0, 150, 100); cover.src != want {
		t.Errorf("fill src = %v, want %v", cover.src, want)
	}
	contain := fitImage(document.FitFit, geom.Rect{}, geom.Point{}, bounds, size)
	if want := (geom.Rect{X: 0, Y: 25, Width: 100, Height: 50}); contain.dst != want {
		t.Errorf("fit dst = %v, want %v", contain.dst, want)
	}
	crop := fitImage(document.FitCrop, geom.Rect{X: 10, Y: 10, Width: 20, Height: 30}, geom.Point{}, bounds, size)
	if want := image.Rect(10, 10, 30, 40); crop.src != want {
		t.Errorf("crop src = %v, want %v", crop.src, want)
	}
	if tile := fitImage(document.FitTile, geom.Rect{}, geom.Point{}, bounds, size); !tile.tile || tile.dst.Width != 200 {
		t.Errorf("tile = %+v", tile)
	}
}

func TestApplyFiltersGrayscale(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	out := ApplyFilters(src, document.ImageFilters{Grayscale: true})
	c := color.NRGBAModel.Convert(out.At(0, 0)).(color.NRGBA)
	if c.R != c.G || c.G != c.B || c.A != 255 {
		t.Errorf("grayscale = %v", c)
	}
	if ApplyFilters(src, document.ImageFilters{}) != image.Image(src) {
		t.Error("zero filters should return the source")
	}
}

func TestLayoutText(t *testing.T) {
	source, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		t.Fatalf("font: %v", err)
	}
	face := source.Face(16)

	if got := LayoutText("one\ntwo", face, 0); len(got) != 2 {
		t.Errorf("newline split = %q", got)
	}
	if got := LayoutText("alpha beta gamma delta", face, 1e6); len(got) != 1 {
		t.Errorf("wide box = %q, want one line", got)
	}
	narrow := LayoutText("alpha beta gamma delta", face, face.Advance("alpha beta")+1)
	if len(narrow) < 2 {
		t.Errorf("narrow box = %q, want wrapping", narrow)
	}
}
