package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
	sendBuffer = 256
)

var errMissingType = errors.New("message has no type")

// Client is one websocket connection to a document room. Frames read from
// the connection are decoded and posted to the room; frames queued by the
// room are written back with periodic pings in between.
type Client struct {
	hub         *Hub
	room        *Room
	conn        *websocket.Conn
	send        chan []byte
	UserID      string
	DisplayName string
	DocumentID  string
	ClientID    string

	dropOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, displayName, documentID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		UserID:      userID,
		DisplayName: displayName,
		DocumentID:  documentID,
		ClientID:    clientID,
	}
}

// decode parses one inbound frame and stamps it with the sender identity.
// Identity fields sent by the client are ignored.
func (c *Client) decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	if msg.Type == "" {
		return nil, errMissingType
	}
	msg.UserID = c.UserID
	msg.ClientID = c.ClientID
	msg.DocumentID = c.DocumentID
	return &msg, nil
}

// ReadPump feeds the room until the connection closes or the room stops,
// then unregisters the client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				slog.Debug("read error", "error", err, "user", c.UserID, "client", c.ClientID)
			}
			return
		}

		ev := event{client: c}
		if ev.msg, ev.err = c.decode(data); ev.err != nil {
			slog.Warn("dropping client frame", "error", ev.err, "user", c.UserID)
		}
		if !c.room.post(ev) {
			return
		}
	}
}

// write sends one frame, bounded by writeWait.
func (c *Client) write(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	if data == nil {
		return c.conn.Ping(ctx)
	}
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// WritePump drains the send queue until the room closes it or the
// connection fails.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var (
			data []byte
			ok   bool
		)
		select {
		case data, ok = <-c.send:
			if !ok {
				return
			}
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
		if err := c.write(ctx, data); err != nil {
			slog.Debug("write error", "error", err, "user", c.UserID, "client", c.ClientID)
			return
		}
	}
}

// Send queues msg for the client. It must only be called from the room
// goroutine, which also closes the send channel.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		// Slow clients are dropped; they get a fresh doc.sync on reconnect.
		c.dropOnce.Do(func() {
			slog.Warn("client send buffer full, disconnecting", "user", c.UserID, "client", c.ClientID, "type", msg.Type)
			if c.conn != nil {
				go c.conn.Close(websocket.StatusPolicyViolation, "client too slow")
			}
		})
	}
}
