// Package interact is the pointer and keyboard state machine of the editor.
// It reads the document and viewport and answers each event with a Result
// describing what should change; it never mutates anything itself.
package interact

import (
	"strings"

	"github.com/inamate/designkit/internal/command"
	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
	"github.com/inamate/designkit/internal/viewport"
)

type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
	Wheel
	KeyDown
)

func (t EventType) String() string {
	switch t {
	case PointerDown:
		return "pointer-down"
	case PointerMove:
		return "pointer-move"
	case PointerUp:
		return "pointer-up"
	case Wheel:
		return "wheel"
	case KeyDown:
		return "key-down"
	}
	return "unknown"
}

type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// Modifiers is the keyboard modifier state at the time of an event.
type Modifiers struct {
	Shift bool `json:"shift,omitempty"`
	Ctrl  bool `json:"ctrl,omitempty"`
	Alt   bool `json:"alt,omitempty"`
	Meta  bool `json:"meta,omitempty"`
}

// Command reports whether the platform command key (Ctrl or Cmd) is held.
func (m Modifiers) Command() bool { return m.Ctrl || m.Meta }

// Any reports whether any modifier is held.
func (m Modifiers) Any() bool { return m.Shift || m.Ctrl || m.Alt || m.Meta }

// Event is one raw input event. Pointer and wheel events carry both screen
// and world coordinates; Key uses browser key names ("ArrowLeft", "z").
type Event struct {
	Type   EventType  `json:"type"`
	Screen geom.Point `json:"screen"`
	World  geom.Point `json:"world"`
	Button Button     `json:"button,omitempty"`
	Mods   Modifiers  `json:"mods"`
	DeltaX float64    `json:"deltaX,omitempty"`
	DeltaY float64    `json:"deltaY,omitempty"`
	Key    string     `json:"key,omitempty"`
}

// Pointer builds a pointer event at a screen position, deriving the world
// position from vp.
func Pointer(t EventType, screen geom.Point, vp viewport.Viewport) Event {
	return Event{Type: t, Screen: screen, World: vp.ToWorld(screen)}
}

// Key builds a key-down event.
func Key(key string, mods Modifiers) Event {
	return Event{Type: KeyDown, Key: key, Mods: mods}
}

func (e Event) key() string { return strings.ToLower(e.Key) }

// State is the gesture the engine is in.
type State int

const (
	Idle State = iota
	DraggingMove
	DraggingResize
	MarqueeSelect
	Panning
)

var stateNames = [...]string{
	Idle:           "idle",
	DraggingMove:   "dragging-move",
	DraggingResize: "dragging-resize",
	MarqueeSelect:  "marquee-select",
	Panning:        "panning",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Mode is the active tool.
type Mode string

const (
	ModeSelect Mode = "select"
	ModeHand   Mode = "hand"
	ModeText   Mode = "text"
)

// ClipboardAction asks the controller to copy, cut or paste the selection.
type ClipboardAction string

const (
	ClipboardCopy  ClipboardAction = "copy"
	ClipboardCut   ClipboardAction = "cut"
	ClipboardPaste ClipboardAction = "paste"
)

// Guide is a snap line in world coordinates. Vertical guides sit at x = At.
type Guide struct {
	Vertical bool    `json:"vertical"`
	At       float64 `json:"at"`
}

// Result is the engine's answer to one event. Zero fields mean "no change".
type Result struct {
	// Preview is a live document for display only. It is not recorded and is
	// discarded at the end of the gesture.
	Preview *document.Document

	// Commit is one undoable command to run against the committed document.
	Commit command.Command

	// Selection replaces the selection without recording history.
	Selection *[]document.LayerID

	// Rollback discards any live preview and shows the committed document.
	Rollback bool

	Undo bool
	Redo bool

	Viewport  *viewport.Viewport
	Marquee   *geom.Rect
	Guides    []Guide
	Cursor    string
	Mode      Mode
	Clipboard ClipboardAction
}
