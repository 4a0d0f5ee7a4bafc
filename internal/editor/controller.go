// Package editor owns the live editing session: the authoritative document,
// its undo history, the viewport and the interaction engine that turns input
// into commands.
package editor

import (
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/gogpu/gg"

	"github.com/inamate/designkit/internal/align"
	"github.com/inamate/designkit/internal/command"
	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
	"github.com/inamate/designkit/internal/interact"
	"github.com/inamate/designkit/internal/render"
	"github.com/inamate/designkit/internal/viewport"
)

// Options configures a controller.
type Options struct {
	Interact      interact.Options
	HistoryLimit  int
	HandleSize    float64
	GridSize      float64
	MinGridPixels float64
	FrameInterval time.Duration
}

// DefaultOptions returns the stock editor configuration.
func DefaultOptions() Options {
	return Options{
		Interact:      interact.DefaultOptions(),
		HistoryLimit:  command.DefaultHistoryLimit,
		HandleSize:    8,
		GridSize:      10,
		MinGridPixels: 8,
		FrameInterval: 16 * time.Millisecond,
	}
}

// ChangeKind flags what a Change is about.
type ChangeKind uint8

const (
	ChangeDocument ChangeKind = 1 << iota
	ChangeSelection
	ChangeViewport
	ChangeHistory
	ChangeOverlay
)

// Has reports whether k includes all of flag.
func (k ChangeKind) Has(flag ChangeKind) bool { return k&flag == flag }

// Change is the snapshot delivered to subscribers.
type Change struct {
	Kind      ChangeKind
	Document  document.Document
	Selection []document.LayerID
	Viewport  viewport.Viewport
	// Label names the command that caused a document change, if any.
	Label string
	// Live is true while the document shown is an uncommitted gesture
	// preview.
	Live bool
}

// Controller is the single owner of an editing session. It is not safe for
// concurrent use.
type Controller struct {
	opts Options

	committed document.Document
	preview   *document.Document
	vp        viewport.Viewport
	stack     *command.Stack
	engine    *interact.Engine

	cursor    string
	guides    []interact.Guide
	clipboard []document.Node

	subs    map[int]func(Change)
	nextSub int
	frames  *FrameScheduler
}

// New creates a controller editing doc.
func New(doc document.Document, opts Options) *Controller {
	return &Controller{
		opts:      opts,
		committed: doc.PruneSelection(),
		vp:        viewport.Default(),
		stack:     command.NewStack(opts.HistoryLimit),
		engine:    interact.NewEngine(opts.Interact),
		cursor:    "default",
		subs:      make(map[int]func(Change)),
	}
}

// AttachScheduler makes every visible change request a frame from s.
func (c *Controller) AttachScheduler(s *FrameScheduler) {
	c.frames = s
}

// Document returns what should be displayed: the live preview during a
// gesture, otherwise the committed document.
func (c *Controller) Document() document.Document {
	if c.preview != nil {
		return *c.preview
	}
	return c.committed
}

// Committed returns the last committed document, ignoring any preview.
func (c *Controller) Committed() document.Document { return c.committed }

func (c *Controller) Selection() []document.LayerID { return c.committed.Selection() }
func (c *Controller) Viewport() viewport.Viewport    { return c.vp }
func (c *Controller) Cursor() string                 { return c.cursor }
func (c *Controller) State() interact.State          { return c.engine.State() }
func (c *Controller) Mode() interact.Mode            { return c.engine.Mode() }
func (c *Controller) CanUndo() bool                  { return c.stack.CanUndo() }
func (c *Controller) CanRedo() bool                  { return c.stack.CanRedo() }
func (c *Controller) UndoLabel() string              { return c.stack.UndoLabel() }
func (c *Controller) RedoLabel() string              { return c.stack.RedoLabel() }

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (c *Controller) Subscribe(fn func(Change)) (unsubscribe func()) {
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() { delete(c.subs, id) }
}

func (c *Controller) notify(kind ChangeKind, label string) {
	if kind == 0 {
		return
	}
	if c.frames != nil {
		c.frames.Invalidate()
	}
	ch := Change{
		Kind:      kind,
		Document:  c.Document(),
		Selection: c.Selection(),
		Viewport:  c.vp,
		Label:     label,
		Live:      c.preview != nil,
	}
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if fn, ok := c.subs[id]; ok {
			fn(ch)
		}
	}
}

// Load replaces the document and clears the history.
func (c *Controller) Load(doc document.Document) {
	c.engine.Cancel()
	c.preview = nil
	c.guides = nil
	c.committed = doc.PruneSelection()
	c.stack.Clear()
	c.notify(ChangeDocument|ChangeSelection|ChangeHistory, "")
}

// Execute runs cmd as one undo step. Any gesture in progress is cancelled
// first. A command addressing a missing layer is dropped.
func (c *Controller) Execute(cmd command.Command) error {
	if cmd == nil {
		return nil
	}
	c.cancelGesture()
	return c.execute(cmd)
}

func (c *Controller) execute(cmd command.Command) error {
	before := c.committed
	next, err := c.stack.Execute(c.committed, cmd)
	if err != nil {
		if errors.Is(err, document.ErrReferenceMissing) {
			return nil
		}
		return err
	}
	c.committed = next
	slog.Debug("command executed", "label", cmd.Label(), "history", c.stack.Len())
	kind := ChangeDocument | ChangeHistory
	if !slices.Equal(before.Selection(), next.Selection()) {
		kind |= ChangeSelection
	}
	c.notify(kind, cmd.Label())
	return nil
}

// UpdateLayer applies a partial layer edit from a panel as one undo step.
func (c *Controller) UpdateLayer(id document.LayerID, patch document.Patch, label string) error {
	if patch.IsEmpty() {
		return nil
	}
	return c.Execute(command.NewUpdate(id, patch, label))
}

// Undo reverts the most recent command. It reports whether anything was
// undone.
func (c *Controller) Undo() bool {
	c.cancelGesture()
	label := c.stack.UndoLabel()
	next, ok, err := c.stack.Undo(c.committed)
	if !ok || err != nil {
		return false
	}
	c.committed = next
	c.notify(ChangeDocument|ChangeSelection|ChangeHistory, label)
	return true
}

// Redo re-applies the most recently undone command.
func (c *Controller) Redo() bool {
	c.cancelGesture()
	label := c.stack.RedoLabel()
	next, ok, err := c.stack.Redo(c.committed)
	if !ok || err != nil {
		return false
	}
	c.committed = next
	c.notify(ChangeDocument|ChangeSelection|ChangeHistory, label)
	return true
}

// SelectLayers replaces the selection without recording history. Unknown
// ids are dropped.
func (c *Controller) SelectLayers(ids []document.LayerID) {
	next := c.committed.WithSelection(ids)
	if slices.Equal(next.Selection(), c.committed.Selection()) {
		return
	}
	c.committed = next
	if c.preview != nil {
		p := c.preview.WithSelection(ids)
		c.preview = &p
	}
	c.notify(ChangeSelection, "")
}

// SetViewport applies a partial viewport update.
func (c *Controller) SetViewport(p viewport.Patch) {
	next := c.vp.Apply(p)
	if next == c.vp {
		return
	}
	c.vp = next
	c.notify(ChangeViewport, "")
}

// CancelGesture abandons a drag, resize or marquee and restores the
// committed document, as when the user navigates away mid-gesture.
func (c *Controller) CancelGesture() {
	if c.cancelGesture() {
		c.notify(ChangeDocument|ChangeOverlay, "")
	}
}

func (c *Controller) cancelGesture() bool {
	res := c.engine.Cancel()
	hadPreview := c.preview != nil
	c.preview = nil
	c.guides = nil
	return res.Rollback || hadPreview
}

// HandleEvent feeds one input event through the interaction engine and
// applies its result.
func (c *Controller) HandleEvent(ev interact.Event) {
	wasMarquee := c.engine.State() == interact.MarqueeSelect
	res := c.engine.Handle(c.committed, c.vp, ev)
	kind := c.apply(res)
	if wasMarquee || c.engine.State() == interact.MarqueeSelect {
		kind |= ChangeOverlay
	}
	c.notify(kind, "")
}

// apply performs everything in res except command execution notifications,
// which execute sends itself. It returns the change flags still to report.
func (c *Controller) apply(res interact.Result) ChangeKind {
	var kind ChangeKind
	if res.Cursor != "" {
		c.cursor = res.Cursor
	}
	if res.Rollback && c.preview != nil {
		c.preview = nil
		kind |= ChangeDocument
	}
	if res.Preview != nil {
		c.preview = res.Preview
		kind |= ChangeDocument
	}
	if res.Guides != nil || c.guides != nil {
		c.guides = res.Guides
		kind |= ChangeOverlay
	}
	if res.Selection != nil {
		next := c.committed.WithSelection(*res.Selection)
		if !slices.Equal(next.Selection(), c.committed.Selection()) {
			c.committed = next
			kind |= ChangeSelection
		}
	}
	if res.Viewport != nil && *res.Viewport != c.vp {
		c.vp = *res.Viewport
		kind |= ChangeViewport
	}
	if res.Commit != nil {
		if err := c.execute(res.Commit); err != nil {
			slog.Warn("gesture commit failed", "label", res.Commit.Label(), "error", err)
		} else {
			kind &^= ChangeDocument | ChangeSelection
		}
	}
	if res.Undo {
		c.Undo()
	}
	if res.Redo {
		c.Redo()
	}
	switch res.Clipboard {
	case interact.ClipboardCopy:
		c.Copy()
	case interact.ClipboardCut:
		c.Cut()
	case interact.ClipboardPaste:
		c.Paste()
	}
	return kind
}

// Copy stores the selected subtrees on the controller clipboard.
func (c *Controller) Copy() int {
	var nodes []document.Node
	for _, id := range command.TopLevel(c.committed, c.Selection()) {
		if n, ok := c.committed.Extract(id); ok {
			nodes = append(nodes, n)
		}
	}
	if len(nodes) > 0 {
		c.clipboard = nodes
	}
	return len(nodes)
}

// Cut copies the selection and removes it.
func (c *Controller) Cut() {
	if c.Copy() == 0 {
		return
	}
	if err := c.Execute(command.NewRemoveSelection(c.committed)); err != nil {
		slog.Warn("cut failed", "error", err)
	}
}

// Paste inserts the clipboard at the top of the artboard, offset so the
// copies do not hide the originals.
func (c *Controller) Paste() {
	cmd := command.NewPaste(c.committed.Root(), c.clipboard, c.opts.Interact.DuplicateOffset)
	if err := c.Execute(cmd); err != nil {
		slog.Warn("paste failed", "error", err)
	}
}

// Clipboard returns the copied subtrees.
func (c *Controller) Clipboard() []document.Node { return c.clipboard }

// Align aligns the selection. It reports false when nothing moved.
func (c *Controller) Align(edge align.Edge) bool {
	return c.run(align.Align(c.committed, c.Selection(), edge))
}

func (c *Controller) Distribute(axis align.Axis) bool {
	return c.run(align.Distribute(c.committed, c.Selection(), axis))
}

// SpaceEvenly spaces the selection along axis, using gap when non-nil.
func (c *Controller) SpaceEvenly(axis align.Axis, gap *float64) bool {
	return c.run(align.SpaceEvenly(c.committed, c.Selection(), axis, gap))
}

func (c *Controller) Flip(axis align.Axis) bool {
	return c.run(align.Flip(c.committed, c.Selection(), axis))
}

func (c *Controller) run(cmd command.Command) bool {
	if cmd == nil {
		return false
	}
	return c.Execute(cmd) == nil
}

// RenderOptions returns the renderer options for a surface of the given
// size, including the live marquee and snap guides.
func (c *Controller) RenderOptions(width, height int) render.Options {
	opts := render.DefaultOptions(width, height)
	opts.HandleSize = c.opts.HandleSize
	opts.GridSize = c.opts.GridSize
	opts.MinGridPixels = c.opts.MinGridPixels
	opts.Marquee = c.engine.Marquee()
	if guides := slices.Clone(c.guides); len(guides) > 0 {
		vp := c.vp
		color := opts.GuideColor
		opts.Overlay = func(dc *gg.Context) {
			drawGuides(dc, vp, guides, width, height, color)
		}
	}
	return opts
}

func drawGuides(dc *gg.Context, vp viewport.Viewport, guides []interact.Guide, width, height int, color document.Color) {
	dc.ClearPath()
	for _, g := range guides {
		p := vp.ToScreen(geom.Pt(g.At, g.At))
		if g.Vertical {
			dc.MoveTo(p.X, 0)
			dc.LineTo(p.X, float64(height))
		} else {
			dc.MoveTo(0, p.Y)
			dc.LineTo(float64(width), p.Y)
		}
	}
	dc.SetStrokeBrush(gg.Solid(gg.RGBA{R: color.R, G: color.G, B: color.B, A: color.A}))
	dc.SetLineWidth(1)
	if err := dc.Stroke(); err != nil {
		slog.Debug("drawing snap guides", "error", err)
	}
}
