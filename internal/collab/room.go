package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/editor"
	"github.com/inamate/designkit/internal/geom"
	"github.com/inamate/designkit/internal/interact"
	"github.com/inamate/designkit/internal/viewport"
)

const (
	inboxSize   = 64
	saveTimeout = 10 * time.Second
)

var errBusy = errors.New("another collaborator is dragging")

type eventKind int

const (
	eventMessage eventKind = iota
	eventJoin
	eventLeave
)

type event struct {
	client *Client
	kind   eventKind
	msg    *Message
	err    error // a frame the client sent that could not be decoded
}

// Room is one open document. All fields except members are owned by the
// run goroutine.
type Room struct {
	documentID string
	ctrl       *editor.Controller
	save       Saver
	autosave   time.Duration

	clients   map[string]*Client
	presence  presenceSet
	viewports map[string]viewport.Viewport
	sent      map[string]ViewportPayload
	driver    string
	dirty     bool

	members int // guarded by Hub.mu

	inbox    chan event
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newRoom(documentID string, doc document.Document, opts Options, save Saver) *Room {
	r := &Room{
		documentID: documentID,
		ctrl:       editor.New(doc, opts.Editor),
		save:       save,
		autosave:   opts.AutosaveInterval,
		clients:    make(map[string]*Client),
		presence:   make(presenceSet),
		viewports:  make(map[string]viewport.Viewport),
		sent:       make(map[string]ViewportPayload),
		inbox:      make(chan event, inboxSize),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	r.ctrl.Subscribe(r.onChange)
	return r
}

func (r *Room) run() {
	defer close(r.done)

	var tick <-chan time.Time
	if r.autosave > 0 {
		t := time.NewTicker(r.autosave)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case ev := <-r.inbox:
			r.dispatch(ev)
		case <-tick:
			r.flush()
		case <-r.quit:
			r.shutdown()
			return
		}
	}
}

// post hands ev to the room goroutine. It reports false once the room has
// shut down.
func (r *Room) post(ev event) bool {
	select {
	case r.inbox <- ev:
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) stop() {
	r.stopOnce.Do(func() { close(r.quit) })
	<-r.done
}

func (r *Room) shutdown() {
	r.ctrl.CancelGesture()
	r.flush()
	for id, c := range r.clients {
		close(c.send)
		delete(r.clients, id)
	}
	slog.Info("room closed", "document", r.documentID)
}

// flush saves the committed document if it changed since the last save.
func (r *Room) flush() {
	if !r.dirty || r.save == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := r.save(ctx, r.documentID, r.ctrl.Committed()); err != nil {
		slog.Error("autosave failed", "error", err, "document", r.documentID)
		return
	}
	r.dirty = false
	slog.Debug("document saved", "document", r.documentID)
}

func (r *Room) dispatch(ev event) {
	switch ev.kind {
	case eventJoin:
		r.join(ev.client)
	case eventLeave:
		r.leave(ev.client)
	default:
		if _, ok := r.clients[ev.client.ClientID]; !ok {
			return
		}
		if ev.err != nil {
			r.sendError(ev.client, ev.err)
			return
		}
		if err := r.handle(ev.client, ev.msg); err != nil {
			slog.Debug("message rejected", "error", err, "type", ev.msg.Type, "user", ev.client.UserID)
			r.sendError(ev.client, err)
		}
	}
}

func (r *Room) join(c *Client) {
	r.clients[c.ClientID] = c
	r.viewports[c.ClientID] = viewport.Default()

	if msg, err := newMessage(TypeWelcome, WelcomePayload{ClientID: c.ClientID, DocumentID: r.documentID}); err == nil {
		c.Send(msg)
	}
	if msg, err := r.docSync("", r.ctrl.State() != interact.Idle); err == nil {
		c.Send(msg)
	}
	if msg, err := r.presence.stateMessage(); err == nil {
		c.Send(msg)
	}

	if msg, err := newMessage(TypePresenceJoin, PresenceJoinPayload{UserID: c.UserID, DisplayName: c.DisplayName}); err == nil {
		msg.UserID = c.UserID
		r.broadcast(msg, c.ClientID)
	}

	slog.Info("client joined", "user", c.UserID, "document", r.documentID)
}

func (r *Room) leave(c *Client) {
	if _, ok := r.clients[c.ClientID]; !ok {
		return
	}
	if r.driver == c.ClientID {
		r.driver = ""
		r.ctrl.CancelGesture()
	}
	delete(r.clients, c.ClientID)
	delete(r.viewports, c.ClientID)
	delete(r.sent, c.ClientID)
	close(c.send)
	r.presence.remove(c.UserID)

	if msg, err := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: c.UserID}); err == nil {
		msg.UserID = c.UserID
		r.broadcast(msg, "")
	}

	slog.Info("client left", "user", c.UserID, "document", r.documentID)
}

func (r *Room) handle(c *Client, msg *Message) error {
	switch msg.Type {
	case TypePresenceUpdate:
		var p PresencePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid presence payload: %w", err)
		}
		p.DisplayName = c.DisplayName
		r.presence.update(c.UserID, &p)
		out, err := newMessage(TypePresenceUpdate, p)
		if err != nil {
			return err
		}
		out.UserID = c.UserID
		r.broadcast(out, c.ClientID)

	case TypePointer:
		var p PointerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid pointer payload: %w", err)
		}
		var typ interact.EventType
		switch p.Phase {
		case "down":
			typ = interact.PointerDown
		case "move":
			typ = interact.PointerMove
		case "up":
			typ = interact.PointerUp
		default:
			return fmt.Errorf("unknown pointer phase %q", p.Phase)
		}
		return r.input(c, func(vp viewport.Viewport) interact.Event {
			ev := interact.Pointer(typ, geom.Pt(p.X, p.Y), vp)
			ev.Button = p.Button
			ev.Mods = p.Mods
			return ev
		})

	case TypeWheel:
		var p WheelPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid wheel payload: %w", err)
		}
		return r.input(c, func(vp viewport.Viewport) interact.Event {
			ev := interact.Pointer(interact.Wheel, geom.Pt(p.X, p.Y), vp)
			ev.DeltaX, ev.DeltaY = p.DeltaX, p.DeltaY
			ev.Mods = p.Mods
			return ev
		})

	case TypeKey:
		var p KeyPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid key payload: %w", err)
		}
		return r.input(c, func(viewport.Viewport) interact.Event {
			return interact.Key(p.Key, p.Mods)
		})

	case TypeLayerUpdate:
		var p LayerUpdatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid layer update: %w", err)
		}
		if p.Label == "" {
			p.Label = "Edit layer"
		}
		r.driver = ""
		return r.ctrl.UpdateLayer(p.ID, p.Patch, p.Label)

	case TypeUndo:
		r.driver = ""
		r.ctrl.Undo()

	case TypeRedo:
		r.driver = ""
		r.ctrl.Redo()

	case TypeSelectionSet:
		var p SelectionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid selection: %w", err)
		}
		r.ctrl.SelectLayers(p.IDs)

	case TypeViewportSet:
		var p viewport.Patch
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid viewport: %w", err)
		}
		r.viewports[c.ClientID] = r.viewports[c.ClientID].Apply(p)
		r.sendViewport(c)

	case TypeLayersAlign:
		var p AlignPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid align payload: %w", err)
		}
		r.driver = ""
		r.ctrl.Align(p.Edge)

	case TypeLayersDistribute:
		var p DistributePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid distribute payload: %w", err)
		}
		r.driver = ""
		r.ctrl.Distribute(p.Axis)

	case TypeLayersSpaceEvenly:
		var p SpaceEvenlyPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid space payload: %w", err)
		}
		r.driver = ""
		r.ctrl.SpaceEvenly(p.Axis, p.Gap)

	case TypeLayersFlip:
		var p FlipPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid flip payload: %w", err)
		}
		r.driver = ""
		r.ctrl.Flip(p.Axis)

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

// input runs one canvas event for c against c's own viewport. Only one
// client at a time may drive a gesture.
func (r *Room) input(c *Client, build func(viewport.Viewport) interact.Event) error {
	if r.driver != "" && r.driver != c.ClientID && r.ctrl.State() != interact.Idle {
		return errBusy
	}

	vp := r.viewports[c.ClientID]
	if vp != r.ctrl.Viewport() {
		r.ctrl.SetViewport(fullPatch(vp))
	}
	r.ctrl.HandleEvent(build(vp))
	r.viewports[c.ClientID] = r.ctrl.Viewport()

	if r.ctrl.State() != interact.Idle {
		r.driver = c.ClientID
	} else {
		r.driver = ""
	}
	r.sendViewport(c)
	return nil
}

func fullPatch(vp viewport.Viewport) viewport.Patch {
	return viewport.Patch{
		Zoom:          &vp.Zoom,
		OffsetX:       &vp.OffsetX,
		OffsetY:       &vp.OffsetY,
		ShowGrid:      &vp.ShowGrid,
		ShowGuides:    &vp.ShowGuides,
		ShowBleedSafe: &vp.ShowBleedSafe,
		SnapEnabled:   &vp.SnapEnabled,
	}
}

// sendViewport tells c its viewport, cursor and tool when any of them
// changed since the last report.
func (r *Room) sendViewport(c *Client) {
	p := ViewportPayload{Viewport: r.viewports[c.ClientID], Cursor: r.ctrl.Cursor(), Mode: r.ctrl.Mode()}
	if last, ok := r.sent[c.ClientID]; ok && last == p {
		return
	}
	r.sent[c.ClientID] = p
	if msg, err := newMessage(TypeViewportChanged, p); err == nil {
		c.Send(msg)
	}
}

func (r *Room) onChange(ch editor.Change) {
	if ch.Kind.Has(editor.ChangeDocument) || ch.Kind.Has(editor.ChangeHistory) {
		if ch.Kind.Has(editor.ChangeDocument) && !ch.Live {
			r.dirty = true
		}
		if msg, err := r.docSync(ch.Label, ch.Live); err == nil {
			r.broadcast(msg, "")
		}
	}
	if ch.Kind.Has(editor.ChangeSelection) {
		if msg, err := newMessage(TypeSelectionChanged, SelectionPayload{IDs: ch.Selection}); err == nil {
			r.broadcast(msg, "")
		}
	}
}

func (r *Room) docSync(label string, live bool) (*Message, error) {
	return newMessage(TypeDocSync, DocSyncPayload{
		Document:  r.ctrl.Document(),
		Live:      live,
		Label:     label,
		CanUndo:   r.ctrl.CanUndo(),
		CanRedo:   r.ctrl.CanRedo(),
		UndoLabel: r.ctrl.UndoLabel(),
		RedoLabel: r.ctrl.RedoLabel(),
	})
}

func (r *Room) sendError(c *Client, err error) {
	if msg, e := newMessage(TypeError, ErrorPayload{Message: err.Error()}); e == nil {
		c.Send(msg)
	}
}

func (r *Room) broadcast(msg *Message, excludeClientID string) {
	for id, c := range r.clients {
		if id != excludeClientID {
			c.Send(msg)
		}
	}
}
