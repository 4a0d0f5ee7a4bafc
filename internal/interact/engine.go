package interact

import (
	"log/slog"
	"slices"

	"github.com/inamate/designkit/internal/command"
	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
	"github.com/inamate/designkit/internal/viewport"
)

// Options tunes the engine. Sizes ending in Size or Tolerance are screen
// pixels; the rest are world units.
type Options struct {
	MinZoom         float64
	MaxZoom         float64
	ZoomStep        float64
	HandleHitSize   float64
	SnapTolerance   float64
	GridSize        float64
	MinLayerSize    float64
	NudgeStep       float64
	NudgeStepLarge  float64
	DuplicateOffset geom.Point
	TextBox         geom.Point
}

// DefaultOptions returns the stock editor tuning.
func DefaultOptions() Options {
	return Options{
		MinZoom:         0.1,
		MaxZoom:         8,
		ZoomStep:        1.1,
		HandleHitSize:   10,
		SnapTolerance:   6,
		GridSize:        10,
		MinLayerSize:    10,
		NudgeStep:       1,
		NudgeStepLarge:  10,
		DuplicateOffset: geom.Pt(10, 10),
		TextBox:         geom.Pt(240, 40),
	}
}

// gesture is the data captured on pointer-down for the active drag.
type gesture struct {
	ids      []document.LayerID
	hit      document.LayerID
	anchor   geom.Point
	offset   geom.Point
	origin   geom.Point
	box      geom.Rect
	handle   geom.Handle
	start    document.Layer
	children []document.Layer
	screen   geom.Point
	vp       viewport.Viewport
	marquee  *geom.Rect
	keep     []document.LayerID
	snapper  *snapper
	pending  command.Command
}

// Engine is the interaction state machine. It is not safe for concurrent
// use; the controller drives it from a single goroutine.
type Engine struct {
	opts  Options
	state State
	mode  Mode
	g     gesture
}

// NewEngine creates an idle engine in select mode.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts, mode: ModeSelect}
}

func (e *Engine) State() State { return e.state }
func (e *Engine) Mode() Mode   { return e.mode }

// Marquee returns the live marquee rectangle in world coordinates, or nil.
func (e *Engine) Marquee() *geom.Rect {
	if e.state != MarqueeSelect {
		return nil
	}
	return e.g.marquee
}

// SetMode switches the active tool. Any gesture in progress is cancelled.
func (e *Engine) SetMode(m Mode) Result {
	var res Result
	if e.state != Idle {
		res = e.Cancel()
	}
	e.mode = m
	res.Mode = m
	res.Cursor = e.idleCursor()
	return res
}

// Cancel abandons the current gesture and rolls back its live preview.
func (e *Engine) Cancel() Result {
	if e.state == Idle {
		return Result{}
	}
	slog.Debug("gesture cancelled", "state", e.state)
	e.reset()
	return Result{Rollback: true, Cursor: e.idleCursor()}
}

func (e *Engine) reset() {
	e.state = Idle
	e.g = gesture{}
}

// abort ends a gesture whose layers disappeared from the document.
func (e *Engine) abort(reason string, id document.LayerID) Result {
	slog.Debug("gesture aborted", "state", e.state, "reason", reason, "layer", id)
	e.reset()
	return Result{Rollback: true, Cursor: e.idleCursor()}
}

// Handle advances the state machine by one event. doc is the committed
// document and vp the current viewport.
func (e *Engine) Handle(doc document.Document, vp viewport.Viewport, ev Event) Result {
	switch ev.Type {
	case PointerDown:
		return e.down(doc, vp, ev)
	case PointerMove:
		return e.move(doc, vp, ev)
	case PointerUp:
		return e.up(doc, ev)
	case Wheel:
		return e.wheel(vp, ev)
	case KeyDown:
		return e.key(doc, ev)
	}
	return Result{}
}

func (e *Engine) idleCursor() string {
	switch e.mode {
	case ModeHand:
		return "grab"
	case ModeText:
		return "text"
	}
	return "default"
}

func (e *Engine) down(doc document.Document, vp viewport.Viewport, ev Event) Result {
	var res Result
	if e.state != Idle {
		res = e.Cancel()
	}

	if ev.Button == ButtonMiddle || e.mode == ModeHand {
		e.state = Panning
		e.g = gesture{screen: ev.Screen, vp: vp}
		res.Cursor = "grabbing"
		return res
	}
	if ev.Button != ButtonPrimary {
		return res
	}
	if e.mode == ModeText {
		return e.createText(doc, ev)
	}

	if r, ok := e.startResize(doc, vp, ev); ok {
		return r
	}

	sel := doc.Selection()
	hit, ok := HitTest(doc, ev.World)
	if !ok {
		e.state = MarqueeSelect
		e.g = gesture{anchor: ev.World}
		if ev.Mods.Shift || ev.Mods.Command() {
			e.g.keep = sel
		} else if len(sel) > 0 {
			res.Selection = &[]document.LayerID{}
		}
		res.Cursor = "crosshair"
		return res
	}

	target := selectTarget(doc, hit)
	next := sel
	switch {
	case ev.Mods.Shift && slices.Contains(sel, target):
		next = slices.DeleteFunc(slices.Clone(sel), func(id document.LayerID) bool { return id == target })
		res.Selection = &next
		return res
	case ev.Mods.Shift || ev.Mods.Command():
		if !slices.Contains(sel, target) {
			next = append(slices.Clone(sel), target)
		}
	case !slices.Contains(sel, target):
		next = []document.LayerID{target}
	}
	if !slices.Equal(next, sel) {
		res.Selection = &next
	}

	var ids []document.LayerID
	for _, id := range command.TopLevel(doc, next) {
		if !doc.EffectivelyLocked(id) {
			ids = append(ids, id)
		}
	}
	box, ok := doc.UnionBounds(ids)
	if !ok {
		return res
	}
	hb, _ := doc.Bounds(target)
	e.state = DraggingMove
	e.g = gesture{
		ids:    ids,
		hit:    target,
		anchor: ev.World,
		origin: hb.Min(),
		offset: ev.World.Sub(hb.Min()),
		box:    box,
	}
	res.Cursor = "move"
	return res
}

func (e *Engine) startResize(doc document.Document, vp viewport.Viewport, ev Event) (Result, bool) {
	sel := doc.Selection()
	if len(sel) != 1 {
		return Result{}, false
	}
	l, ok := doc.Layer(sel[0])
	if !ok || !l.Selectable() || doc.EffectivelyLocked(l.ID) {
		return Result{}, false
	}
	if k := l.Kind(); k == document.KindGroup || k == document.KindBooleanGroup {
		return Result{}, false
	}
	b, ok := doc.Bounds(l.ID)
	if !ok {
		return Result{}, false
	}
	h, ok := geom.HandleAt(b, ev.World, e.opts.HandleHitSize/vp.Zoom)
	if !ok {
		return Result{}, false
	}
	var children []document.Layer
	if _, frame := l.Content.(document.Frame); frame {
		for _, id := range doc.Children(l.ID) {
			if c, ok := doc.Layer(id); ok {
				children = append(children, c)
			}
		}
	}
	e.state = DraggingResize
	e.g = gesture{
		ids:      []document.LayerID{l.ID},
		anchor:   ev.World,
		handle:   h,
		start:    l,
		children: children,
		box:      b,
	}
	return Result{Cursor: h.Cursor()}, true
}

func (e *Engine) createText(doc document.Document, ev Event) Result {
	root := doc.Root()
	rm, _ := doc.WorldMatrix(root)
	at := rm.Invert().Apply(ev.World)
	l := document.NewText("Text", geom.Rect{X: at.X, Y: at.Y, Width: e.opts.TextBox.X, Height: e.opts.TextBox.Y}, "Text")
	e.mode = ModeSelect
	return Result{
		Commit: &command.Batch{Name: "Add text", Commands: []command.Command{
			&command.Insert{Parent: root, Index: -1, Node: document.Node{Layer: l}},
			&command.Select{IDs: []document.LayerID{l.ID}},
		}},
		Mode:   ModeSelect,
		Cursor: "default",
	}
}

func (e *Engine) move(doc document.Document, vp viewport.Viewport, ev Event) Result {
	switch e.state {
	case Panning:
		d := ev.Screen.Sub(e.g.screen)
		next := e.g.vp.PanBy(d.X, d.Y)
		return Result{Viewport: &next, Cursor: "grabbing"}
	case DraggingMove:
		return e.dragMove(doc, vp, ev)
	case DraggingResize:
		return e.dragResize(doc, ev)
	case MarqueeSelect:
		r := geom.RectFromPoints(e.g.anchor, ev.World)
		e.g.marquee = &r
		return Result{Marquee: &r, Cursor: "crosshair"}
	}
	return Result{Cursor: e.hover(doc, vp, ev)}
}

func (e *Engine) hover(doc document.Document, vp viewport.Viewport, ev Event) string {
	if e.mode != ModeSelect {
		return e.idleCursor()
	}
	if sel := doc.Selection(); len(sel) == 1 {
		if b, ok := doc.Bounds(sel[0]); ok {
			if h, ok := geom.HandleAt(b, ev.World, e.opts.HandleHitSize/vp.Zoom); ok {
				return h.Cursor()
			}
		}
	}
	if _, ok := HitTest(doc, ev.World); ok {
		return "move"
	}
	return "default"
}

func (e *Engine) dragMove(doc document.Document, vp viewport.Viewport, ev Event) Result {
	for _, id := range e.g.ids {
		if !doc.Has(id) {
			return e.abort("layer removed during move", id)
		}
	}
	delta := ev.World.Sub(e.g.offset).Sub(e.g.origin)
	var guides []Guide
	if vp.SnapEnabled {
		if e.g.snapper == nil {
			grid := 0.0
			if vp.ShowGrid {
				grid = e.opts.GridSize
			}
			e.g.snapper = newSnapper(doc, e.g.ids, e.opts.SnapTolerance/vp.Zoom, grid)
		}
		delta, guides = e.g.snapper.snap(e.g.box, delta)
	}
	return e.preview(doc, command.NewTranslate(doc, e.g.ids, delta, moveLabel(len(e.g.ids))), guides, "move")
}

func moveLabel(n int) string {
	if n == 1 {
		return "Move layer"
	}
	return "Move layers"
}

// preview runs cmd against the committed document for display and keeps it
// as the gesture's pending commit.
func (e *Engine) preview(doc document.Document, cmd command.Command, guides []Guide, cursor string) Result {
	e.g.pending = cmd
	if cmd == nil {
		return Result{Preview: &doc, Guides: guides, Cursor: cursor}
	}
	next, _, err := cmd.Execute(doc)
	if err != nil {
		return e.abort(err.Error(), e.g.hit)
	}
	return Result{Preview: &next, Guides: guides, Cursor: cursor}
}

// ResizeBox applies a handle drag of d to a box, keeping the opposite edges
// fixed and both sides at least minSize.
func ResizeBox(pos, size geom.Point, h geom.Handle, d geom.Point, minSize float64) (geom.Point, geom.Point) {
	w, ht := size.X, size.Y
	switch {
	case h.East():
		w += d.X
	case h.West():
		w -= d.X
	}
	switch {
	case h.South():
		ht += d.Y
	case h.North():
		ht -= d.Y
	}
	w, ht = max(w, minSize), max(ht, minSize)
	if h.West() {
		pos.X += size.X - w
	}
	if h.North() {
		pos.Y += size.Y - ht
	}
	return pos, geom.Pt(w, ht)
}

func (e *Engine) dragResize(doc document.Document, ev Event) Result {
	start := e.g.start
	if !doc.Has(start.ID) {
		return e.abort("layer removed during resize", start.ID)
	}
	d := doc.LocalDelta(start.ID, ev.World.Sub(e.g.anchor))
	pos, size := ResizeBox(start.Transform.Position, start.Transform.Size, e.g.handle, d, e.opts.MinLayerSize)

	patch := document.BoxPatch(pos, size)
	if t, ok := start.Content.(document.Text); ok && t.MaxWidth > 0 {
		t.MaxWidth = size.X
		patch.Content = t
	}
	cmds := []command.Command{command.NewUpdate(start.ID, patch, "Resize")}
	for _, c := range e.g.children {
		t := document.Constrain(c.Constraints, c.Transform, start.Transform.Size, size)
		if t == c.Transform {
			continue
		}
		cmds = append(cmds, command.NewUpdate(c.ID, document.BoxPatch(t.Position, t.Size), "Resize"))
	}
	return e.preview(doc, &command.Batch{Name: "Resize " + start.Name, Commands: cmds}, nil, e.g.handle.Cursor())
}

func (e *Engine) up(doc document.Document, ev Event) Result {
	switch e.state {
	case DraggingMove, DraggingResize:
		cmd := e.g.pending
		e.reset()
		res := Result{Rollback: true, Cursor: "default"}
		if cmd != nil {
			res.Commit = cmd
		}
		return res
	case MarqueeSelect:
		r := geom.RectFromPoints(e.g.anchor, ev.World)
		keep := e.g.keep
		e.reset()
		res := Result{Cursor: "default"}
		if r.IsEmpty() {
			return res
		}
		next := slices.Clone(keep)
		for _, id := range marqueeHits(doc, r) {
			if !slices.Contains(next, id) {
				next = append(next, id)
			}
		}
		if next == nil {
			next = []document.LayerID{}
		}
		res.Selection = &next
		return res
	case Panning:
		e.reset()
		return Result{Cursor: e.idleCursor()}
	}
	return Result{}
}

func (e *Engine) wheel(vp viewport.Viewport, ev Event) Result {
	var next viewport.Viewport
	switch {
	case ev.Mods.Command():
		factor := e.opts.ZoomStep
		if ev.DeltaY > 0 {
			factor = 1 / factor
		}
		next = vp.ZoomAt(ev.Screen, factor, e.opts.MinZoom, e.opts.MaxZoom)
	case ev.Mods.Shift && ev.DeltaX == 0:
		next = vp.PanBy(-ev.DeltaY, 0)
	default:
		next = vp.PanBy(-ev.DeltaX, -ev.DeltaY)
	}
	if next == vp {
		return Result{}
	}
	return Result{Viewport: &next}
}

var nudges = map[string]geom.Point{
	"arrowleft":  {X: -1},
	"arrowright": {X: 1},
	"arrowup":    {Y: -1},
	"arrowdown":  {Y: 1},
}

func (e *Engine) key(doc document.Document, ev Event) Result {
	k := ev.key()
	if k == "escape" {
		res := e.Cancel()
		if len(doc.Selection()) > 0 {
			res.Selection = &[]document.LayerID{}
		}
		e.mode = ModeSelect
		res.Mode = ModeSelect
		res.Cursor = "default"
		return res
	}
	if e.state != Idle {
		return Result{}
	}

	// Any modifier selects the large nudge step.
	if dir, ok := nudges[k]; ok {
		step := e.opts.NudgeStep
		if ev.Mods.Any() {
			step = e.opts.NudgeStepLarge
		}
		var ids []document.LayerID
		for _, id := range command.TopLevel(doc, doc.Selection()) {
			if !doc.EffectivelyLocked(id) {
				ids = append(ids, id)
			}
		}
		if cmd := command.NewTranslate(doc, ids, dir.Mul(step), "Nudge"); cmd != nil {
			return Result{Commit: cmd}
		}
		return Result{}
	}

	if ev.Mods.Command() {
		switch k {
		case "z":
			if ev.Mods.Shift {
				return Result{Redo: true}
			}
			return Result{Undo: true}
		case "y":
			return Result{Redo: true}
		case "d":
			if cmd := command.NewDuplicate(doc, doc.Selection(), e.opts.DuplicateOffset); cmd != nil {
				return Result{Commit: cmd}
			}
		case "a":
			all := selectableChildren(doc)
			return Result{Selection: &all}
		case "c":
			return Result{Clipboard: ClipboardCopy}
		case "x":
			return Result{Clipboard: ClipboardCut}
		case "v":
			return Result{Clipboard: ClipboardPaste}
		}
		return Result{}
	}

	switch k {
	case "delete", "backspace":
		if cmd := command.NewRemoveSelection(doc); cmd != nil {
			return Result{Commit: cmd}
		}
		return Result{}
	case "v":
		return e.SetMode(ModeSelect)
	case "h":
		return e.SetMode(ModeHand)
	case "t":
		return e.SetMode(ModeText)
	}

	return Result{}
}
