package collab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/editor"
)

type memStore struct {
	mu    sync.Mutex
	docs  map[string]document.Document
	saves int
}

func (m *memStore) load(_ context.Context, id string) (document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return document.Document{}, errors.New("no such document")
	}
	return doc, nil
}

func (m *memStore) save(_ context.Context, id string, doc document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = doc
	m.saves++
	return nil
}

func (m *memStore) get(id string) (document.Document, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id], m.saves
}

func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) Message {
	t.Helper()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read waiting for %s: %v", typ, err)
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatal(err)
		}
		if m.Type == typ {
			return m
		}
	}
}

func write(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	body, _ := json.Marshal(payload)
	data, _ := json.Marshal(Message{Type: typ, Payload: body})
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func TestHubSession(t *testing.T) {
	doc, id := testDoc(t)
	st := &memStore{docs: map[string]document.Document{"doc_1": doc}}
	hub := NewHub(st.load, st.save, Options{Editor: editor.DefaultOptions(), AutosaveInterval: time.Hour})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		docID := strings.TrimPrefix(r.URL.Path, "/ws/")
		if err := hub.Serve(r.Context(), conn, "user_a", "Ada", docID); err != nil {
			t.Logf("serve: %v", err)
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/doc_1", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	welcome := readUntil(t, ctx, conn, TypeWelcome)
	var wp WelcomePayload
	json.Unmarshal(welcome.Payload, &wp)
	if wp.DocumentID != "doc_1" || wp.ClientID == "" {
		t.Errorf("welcome = %+v", wp)
	}
	readUntil(t, ctx, conn, TypeDocSync)
	if hub.Rooms() != 1 {
		t.Errorf("rooms = %d", hub.Rooms())
	}

	name := "Live"
	write(t, ctx, conn, TypeLayerUpdate, LayerUpdatePayload{ID: id, Patch: document.Patch{Name: &name}})
	m := readUntil(t, ctx, conn, TypeDocSync)
	var ds DocSyncPayload
	if err := json.Unmarshal(m.Payload, &ds); err != nil {
		t.Fatal(err)
	}
	if l, _ := ds.Document.Layer(id); l.Name != "Live" {
		t.Errorf("synced name = %q", l.Name)
	}

	conn.Close(websocket.StatusNormalClosure, "")

	// Closing the last connection closes the room, which saves.
	deadline := time.Now().Add(5 * time.Second)
	saved, saves := st.get("doc_1")
	for saves == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		saved, saves = st.get("doc_1")
	}
	if hub.Rooms() != 0 {
		t.Errorf("rooms = %d after last client left", hub.Rooms())
	}
	hub.Stop()
	if saves != 1 {
		t.Fatalf("saves = %d", saves)
	}
	if l, _ := saved.Layer(id); l.Name != "Live" {
		t.Errorf("saved name = %q", l.Name)
	}
}

func TestHubRegisterErrors(t *testing.T) {
	st := &memStore{docs: map[string]document.Document{}}
	hub := NewHub(st.load, st.save, Options{Editor: editor.DefaultOptions()})

	c := NewClient(hub, nil, "user_a", "Ada", "missing", "c1")
	if err := hub.Register(context.Background(), c); err == nil {
		t.Error("expected load error")
	}

	hub.Stop()
	if err := hub.Register(context.Background(), c); !errors.Is(err, ErrStopped) {
		t.Errorf("after stop: %v", err)
	}
}
