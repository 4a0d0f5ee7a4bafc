//go:build js && wasm

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sync"
	"syscall/js"

	"golang.org/x/image/draw"

	"github.com/inamate/designkit/internal/align"
	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/editor"
	"github.com/inamate/designkit/internal/geom"
	"github.com/inamate/designkit/internal/interact"
	"github.com/inamate/designkit/internal/render"
	"github.com/inamate/designkit/internal/viewport"
)

// imageBank holds images the page has fetched and handed over.
type imageBank struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

func (b *imageBank) Image(source string) (image.Image, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	img, ok := b.images[source]
	if !ok {
		return nil, fmt.Errorf("image %q not loaded", source)
	}
	return img, nil
}

// animationFrames schedules callbacks with requestAnimationFrame.
type animationFrames struct{}

func (animationFrames) Request(fn func()) (cancel func()) {
	var (
		cb    js.Func
		fired bool
	)
	cb = js.FuncOf(func(js.Value, []js.Value) any {
		fired = true
		cb.Release()
		fn()
		return nil
	})
	id := js.Global().Call("requestAnimationFrame", cb)
	return func() {
		if fired {
			return
		}
		fired = true
		js.Global().Call("cancelAnimationFrame", id)
		cb.Release()
	}
}

var (
	ctrl     *editor.Controller
	renderer *render.Renderer
	bank     = &imageBank{images: make(map[string]image.Image)}
	frames   *editor.FrameScheduler
	canvas   js.Value
	onChange js.Value
)

func main() {
	var err error
	renderer, err = render.New(bank)
	if err != nil {
		slog.Error("create renderer", "error", err)
		return
	}

	ctrl = editor.New(document.NewSampleDocument(), editor.DefaultOptions())
	frames = editor.NewFrameScheduler(animationFrames{}, drawFrame)
	ctrl.AttachScheduler(frames)
	ctrl.Subscribe(func(ch editor.Change) {
		if onChange.Type() != js.TypeFunction {
			return
		}
		onChange.Invoke(js.ValueOf(map[string]any{
			"document":  ch.Kind.Has(editor.ChangeDocument),
			"selection": ch.Kind.Has(editor.ChangeSelection),
			"viewport":  ch.Kind.Has(editor.ChangeViewport),
			"history":   ch.Kind.Has(editor.ChangeHistory),
			"label":     ch.Label,
			"live":      ch.Live,
		}))
	})

	api := js.Global().Get("Object").New()

	// --- Commands (page → editor) ---
	api.Set("attachCanvas", js.FuncOf(attachCanvas))
	api.Set("onChange", js.FuncOf(setOnChange))
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	api.Set("addImage", js.FuncOf(addImage))
	api.Set("pointer", js.FuncOf(pointer))
	api.Set("wheel", js.FuncOf(wheel))
	api.Set("key", js.FuncOf(key))
	api.Set("updateLayer", js.FuncOf(updateLayer))
	api.Set("setSelection", js.FuncOf(setSelection))
	api.Set("setViewport", js.FuncOf(setViewport))
	api.Set("undo", js.FuncOf(func(js.Value, []js.Value) any { return ctrl.Undo() }))
	api.Set("redo", js.FuncOf(func(js.Value, []js.Value) any { return ctrl.Redo() }))
	api.Set("align", js.FuncOf(alignLayers))
	api.Set("distribute", js.FuncOf(distribute))
	api.Set("spaceEvenly", js.FuncOf(spaceEvenly))
	api.Set("flip", js.FuncOf(flip))

	// --- Queries (page ← editor) ---
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("getSelection", js.FuncOf(getSelection))
	api.Set("getViewport", js.FuncOf(getViewport))
	api.Set("getState", js.FuncOf(getState))
	api.Set("exportPNG", js.FuncOf(exportPNG))

	js.Global().Set("designkit", api)
	js.Global().Set("designkitReady", js.ValueOf(true))

	select {}
}

func errorValue(err error) any {
	return js.ValueOf(map[string]any{"error": err.Error()})
}

func okValue() any {
	return js.ValueOf(map[string]any{"ok": true})
}

func mods(v js.Value) interact.Modifiers {
	if v.Type() != js.TypeObject {
		return interact.Modifiers{}
	}
	return interact.Modifiers{
		Shift: v.Get("shiftKey").Truthy(),
		Ctrl:  v.Get("ctrlKey").Truthy(),
		Alt:   v.Get("altKey").Truthy(),
		Meta:  v.Get("metaKey").Truthy(),
	}
}

// drawFrame renders the current frame onto the attached canvas.
func drawFrame() {
	if canvas.IsUndefined() || canvas.IsNull() {
		return
	}
	w, h := canvas.Get("width").Int(), canvas.Get("height").Int()
	if w <= 0 || h <= 0 {
		return
	}
	dc, err := renderer.Rasterize(ctrl.Document(), ctrl.Viewport(), ctrl.RenderOptions(w, h))
	if err != nil {
		slog.Debug("frame rendered with errors", "error", err)
	}

	// ImageData wants straight alpha.
	src := dc.Image()
	nrgba := image.NewNRGBA(src.Bounds())
	draw.Draw(nrgba, nrgba.Bounds(), src, src.Bounds().Min, draw.Src)

	data := js.Global().Get("Uint8ClampedArray").New(len(nrgba.Pix))
	js.CopyBytesToJS(data, nrgba.Pix)
	imgData := js.Global().Get("ImageData").New(data, w, h)
	canvas.Call("getContext", "2d").Call("putImageData", imgData, 0, 0)
}

// --- Command Handlers ---

func attachCanvas(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorValue(errors.New("missing canvas"))
	}
	canvas = args[0]
	frames.Invalidate()
	return okValue()
}

func setOnChange(_ js.Value, args []js.Value) any {
	if len(args) > 0 {
		onChange = args[0]
	}
	return nil
}

func loadDocument(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorValue(errors.New("missing document JSON"))
	}
	doc, err := document.Unmarshal([]byte(args[0].String()))
	if err != nil {
		return errorValue(err)
	}
	ctrl.Load(doc)
	return okValue()
}

func loadSampleDocument(js.Value, []js.Value) any {
	ctrl.Load(document.NewSampleDocument())
	return okValue()
}

// addImage registers encoded image bytes (a Uint8Array) under a source name.
func addImage(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		return errorValue(errors.New("usage: addImage(source, bytes)"))
	}
	buf := make([]byte, args[1].Get("length").Int())
	js.CopyBytesToGo(buf, args[1])
	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return errorValue(err)
	}
	bank.mu.Lock()
	bank.images[args[0].String()] = img
	bank.mu.Unlock()
	frames.Invalidate()
	return okValue()
}

// pointer(phase, x, y, button, event) feeds a pointer event in canvas pixels.
func pointer(_ js.Value, args []js.Value) any {
	if len(args) < 3 {
		return nil
	}
	var typ interact.EventType
	switch args[0].String() {
	case "down":
		typ = interact.PointerDown
	case "move":
		typ = interact.PointerMove
	case "up":
		typ = interact.PointerUp
	default:
		return nil
	}
	ev := interact.Pointer(typ, geom.Pt(args[1].Float(), args[2].Float()), ctrl.Viewport())
	if len(args) > 3 {
		ev.Button = interact.Button(args[3].Int())
	}
	if len(args) > 4 {
		ev.Mods = mods(args[4])
	}
	ctrl.HandleEvent(ev)
	return js.ValueOf(ctrl.Cursor())
}

// wheel(x, y, deltaX, deltaY, event)
func wheel(_ js.Value, args []js.Value) any {
	if len(args) < 4 {
		return nil
	}
	ev := interact.Pointer(interact.Wheel, geom.Pt(args[0].Float(), args[1].Float()), ctrl.Viewport())
	ev.DeltaX, ev.DeltaY = args[2].Float(), args[3].Float()
	if len(args) > 4 {
		ev.Mods = mods(args[4])
	}
	ctrl.HandleEvent(ev)
	return nil
}

// key(keyboardEvent)
func key(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	ctrl.HandleEvent(interact.Key(args[0].Get("key").String(), mods(args[0])))
	return nil
}

func updateLayer(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		return errorValue(errors.New("usage: updateLayer(id, patchJSON, label)"))
	}
	var patch document.Patch
	if err := json.Unmarshal([]byte(args[1].String()), &patch); err != nil {
		return errorValue(err)
	}
	label := "Edit layer"
	if len(args) > 2 && args[2].Type() == js.TypeString {
		label = args[2].String()
	}
	if err := ctrl.UpdateLayer(document.LayerID(args[0].String()), patch, label); err != nil {
		return errorValue(err)
	}
	return okValue()
}

func setSelection(_ js.Value, args []js.Value) any {
	var ids []document.LayerID
	if len(args) > 0 && args[0].Type() == js.TypeObject {
		for i := range args[0].Length() {
			ids = append(ids, document.LayerID(args[0].Index(i).String()))
		}
	}
	ctrl.SelectLayers(ids)
	return nil
}

func setViewport(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	var p viewport.Patch
	if err := json.Unmarshal([]byte(args[0].String()), &p); err != nil {
		return errorValue(err)
	}
	ctrl.SetViewport(p)
	return okValue()
}

func alignLayers(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return false
	}
	return ctrl.Align(align.Edge(args[0].String()))
}

func distribute(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return false
	}
	return ctrl.Distribute(align.Axis(args[0].String()))
}

// spaceEvenly(axis, gap?) spaces the selection; gap is optional.
func spaceEvenly(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return false
	}
	var gap *float64
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		g := args[1].Float()
		gap = &g
	}
	return ctrl.SpaceEvenly(align.Axis(args[0].String()), gap)
}

func flip(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return false
	}
	return ctrl.Flip(align.Axis(args[0].String()))
}

// --- Query Handlers ---

func getDocument(js.Value, []js.Value) any {
	data, err := document.Marshal(ctrl.Document())
	if err != nil {
		return errorValue(err)
	}
	return js.ValueOf(string(data))
}

func getSelection(js.Value, []js.Value) any {
	ids := ctrl.Selection()
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return js.ValueOf(out)
}

func getViewport(js.Value, []js.Value) any {
	data, _ := json.Marshal(ctrl.Viewport())
	return js.ValueOf(string(data))
}

func getState(js.Value, []js.Value) any {
	return js.ValueOf(map[string]any{
		"state":     ctrl.State().String(),
		"mode":      string(ctrl.Mode()),
		"cursor":    ctrl.Cursor(),
		"canUndo":   ctrl.CanUndo(),
		"canRedo":   ctrl.CanRedo(),
		"undoLabel": ctrl.UndoLabel(),
		"redoLabel": ctrl.RedoLabel(),
	})
}

// exportPNG(scale) returns the artboard as PNG bytes in a Uint8Array.
func exportPNG(_ js.Value, args []js.Value) any {
	scale := 1.0
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		scale = args[0].Float()
	}
	var buf bytes.Buffer
	if err := renderer.EncodePNG(&buf, ctrl.Committed(), scale); err != nil {
		return errorValue(err)
	}
	out := js.Global().Get("Uint8Array").New(buf.Len())
	js.CopyBytesToJS(out, buf.Bytes())
	return out
}
