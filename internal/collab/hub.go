// Package collab hosts live editing sessions over websockets. Each open
// document gets a room whose goroutine owns the document's editor
// controller; connections only exchange messages with it.
package collab

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/editor"
)

var ErrStopped = errors.New("hub stopped")

// Loader returns the stored content of a document.
type Loader func(ctx context.Context, documentID string) (document.Document, error)

// Saver persists a document's committed content.
type Saver func(ctx context.Context, documentID string, doc document.Document) error

type Options struct {
	Editor           editor.Options
	AutosaveInterval time.Duration
}

type Hub struct {
	load Loader
	save Saver
	opts Options

	mu      sync.Mutex
	rooms   map[string]*Room // documentID -> room
	stopped bool
}

func NewHub(load Loader, save Saver, opts Options) *Hub {
	return &Hub{
		load:  load,
		save:  save,
		opts:  opts,
		rooms: make(map[string]*Room),
	}
}

// Register attaches client to its document's room, opening the room and
// loading the document if this is the first connection.
func (h *Hub) Register(ctx context.Context, client *Client) error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return ErrStopped
	}
	room, ok := h.rooms[client.DocumentID]
	if !ok {
		h.mu.Unlock()
		doc, err := h.load(ctx, client.DocumentID)
		if err != nil {
			return fmt.Errorf("load document: %w", err)
		}
		h.mu.Lock()
		if h.stopped {
			h.mu.Unlock()
			return ErrStopped
		}
		if room, ok = h.rooms[client.DocumentID]; !ok {
			room = newRoom(client.DocumentID, doc, h.opts, h.save)
			h.rooms[client.DocumentID] = room
			go room.run()
		}
	}
	room.members++
	client.room = room
	h.mu.Unlock()

	room.post(event{client: client, kind: eventJoin})
	return nil
}

// Unregister detaches client. The last client to leave closes the room,
// which saves unsaved changes.
func (h *Hub) Unregister(client *Client) {
	room := client.room
	if room == nil {
		return
	}
	room.post(event{client: client, kind: eventLeave})

	h.mu.Lock()
	room.members--
	empty := room.members == 0 && h.rooms[client.DocumentID] == room
	if empty {
		delete(h.rooms, client.DocumentID)
	}
	h.mu.Unlock()

	if empty {
		room.stop()
	}
}

// Rooms returns the number of open rooms.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Stop closes every room, saving dirty documents, and refuses new clients.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.stopped = true
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	clear(h.rooms)
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, r := range rooms {
		wg.Go(r.stop)
	}
	wg.Wait()
}

// Serve runs an accepted connection for documentID until it closes.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, userID, displayName, documentID string) error {
	client := NewClient(h, conn, userID, displayName, documentID, uuid.NewString())
	if err := h.Register(ctx, client); err != nil {
		conn.Close(websocket.StatusInternalError, "document unavailable")
		return err
	}

	go client.WritePump(ctx)
	client.ReadPump(ctx)
	return nil
}
