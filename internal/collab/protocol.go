package collab

import (
	"encoding/json"

	"github.com/inamate/designkit/internal/align"
	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/interact"
	"github.com/inamate/designkit/internal/viewport"
)

type Message struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"documentId,omitempty"`
	ClientID   string          `json:"clientId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Seq        int64           `json:"seq,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync          = "doc.sync"
	TypeSelectionChanged = "selection.changed"
	TypeViewportChanged  = "viewport.changed"

	// Editing input
	TypePointer          = "input.pointer"
	TypeWheel            = "input.wheel"
	TypeKey              = "input.key"
	TypeLayerUpdate      = "layer.update"
	TypeUndo             = "history.undo"
	TypeRedo             = "history.redo"
	TypeSelectionSet     = "selection.set"
	TypeViewportSet      = "viewport.set"
	TypeLayersAlign       = "layers.align"
	TypeLayersDistribute  = "layers.distribute"
	TypeLayersSpaceEvenly = "layers.spaceEvenly"
	TypeLayersFlip        = "layers.flip"
)

// --- Presence ---

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

// --- Server to client ---

type WelcomePayload struct {
	ClientID   string `json:"clientId"`
	DocumentID string `json:"documentId"`
}

// DocSyncPayload carries the whole document after every change. Live is
// true for gesture previews that have not been committed.
type DocSyncPayload struct {
	Document  document.Document `json:"document"`
	Live      bool              `json:"live"`
	Label     string            `json:"label,omitempty"`
	CanUndo   bool              `json:"canUndo"`
	CanRedo   bool              `json:"canRedo"`
	UndoLabel string            `json:"undoLabel,omitempty"`
	RedoLabel string            `json:"redoLabel,omitempty"`
}

type SelectionPayload struct {
	IDs []document.LayerID `json:"ids"`
}

type ViewportPayload struct {
	Viewport viewport.Viewport `json:"viewport"`
	Cursor   string            `json:"cursor"`
	Mode     interact.Mode     `json:"mode"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// --- Client to server ---

type PointerPayload struct {
	Phase  string             `json:"phase"` // down, move or up
	X      float64            `json:"x"`
	Y      float64            `json:"y"`
	Button interact.Button    `json:"button"`
	Mods   interact.Modifiers `json:"mods"`
}

type WheelPayload struct {
	X      float64            `json:"x"`
	Y      float64            `json:"y"`
	DeltaX float64            `json:"deltaX"`
	DeltaY float64            `json:"deltaY"`
	Mods   interact.Modifiers `json:"mods"`
}

type KeyPayload struct {
	Key  string             `json:"key"`
	Mods interact.Modifiers `json:"mods"`
}

type LayerUpdatePayload struct {
	ID    document.LayerID `json:"id"`
	Patch document.Patch   `json:"patch"`
	Label string           `json:"label,omitempty"`
}

type AlignPayload struct {
	Edge align.Edge `json:"edge"`
}

type DistributePayload struct {
	Axis align.Axis `json:"axis"`
}

// SpaceEvenlyPayload spaces the selection; Gap overrides the derived gap.
type SpaceEvenlyPayload struct {
	Axis align.Axis `json:"axis"`
	Gap  *float64   `json:"gap,omitempty"`
}

type FlipPayload struct {
	Axis align.Axis `json:"axis"`
}

func newMessage(typ string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}
