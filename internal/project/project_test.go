package project

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/inamate/designkit/internal/auth"
	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
	"github.com/inamate/designkit/internal/store"
)

func newService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "project.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(st.Close)
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	for _, id := range []string{"user_a", "user_b"} {
		if _, err := st.CreateUser(ctx, store.User{ID: id, Email: id + "@example.com", PasswordHash: "x", DisplayName: id}); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	return NewService(st)
}

func TestCreateSeedsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	tests := []struct {
		name          string
		width, height float64
		wantW, wantH  float64
		wantLayers    bool
	}{
		{"sample", 0, 0, 1200, 628, true},
		{"blank", 800, 600, 800, 600, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.Create(ctx, tt.name, "user_a", tt.width, tt.height)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if p.Width != tt.wantW || p.Height != tt.wantH {
				t.Errorf("size = %vx%v", p.Width, p.Height)
			}
			snap, err := s.LatestSnapshot(ctx, p.ID, "user_a")
			if err != nil {
				t.Fatalf("LatestSnapshot: %v", err)
			}
			if snap.Version != 1 {
				t.Errorf("version = %d", snap.Version)
			}
			if got := snap.Document.Len() > 1; got != tt.wantLayers {
				t.Errorf("has layers = %v, want %v", got, tt.wantLayers)
			}
		})
	}
}

func TestOwnership(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	p, err := s.Create(ctx, "Card", "user_a", 100, 100)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Get(ctx, p.ID, "user_b"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Get by stranger: %v", err)
	}
	if err := s.Delete(ctx, p.ID, "user_b"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete by stranger: %v", err)
	}
	if err := s.Delete(ctx, p.ID, "user_a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, p.ID, "user_a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
}

func TestSaveBumpsVersion(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	p, _ := s.Create(ctx, "Card", "user_a", 100, 100)

	snap, _ := s.Load(ctx, p.ID)
	doc, err := snap.Document.Insert(snap.Document.Root(), -1, document.Node{
		Layer: document.NewRect("Box", geom.Rect{Width: 10, Height: 10}, document.Black),
	})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := document.Marshal(doc)

	v, err := s.Save(ctx, p.ID, "user_a", data)
	if err != nil || v != 2 {
		t.Fatalf("Save = %d, %v", v, err)
	}
	if _, err := s.Save(ctx, p.ID, "user_a", []byte(`{"root":"missing"}`)); !errors.Is(err, ErrInvalid) {
		t.Errorf("invalid document: %v", err)
	}

	latest, _ := s.Load(ctx, p.ID)
	if latest.Version != 2 || latest.Document.Len() != 2 {
		t.Errorf("latest = v%d with %d layers", latest.Version, latest.Document.Len())
	}
}

func TestHandlers(t *testing.T) {
	h := NewHandler(newService(t))
	r := mux.NewRouter()
	r.HandleFunc("/api/documents", h.Create).Methods("POST")
	r.HandleFunc("/api/documents", h.List).Methods("GET")
	r.HandleFunc("/api/documents/{documentId}", h.Get).Methods("GET")
	r.HandleFunc("/api/documents/{documentId}/snapshot", h.GetLatestSnapshot).Methods("GET")

	do := func(method, path, body, user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req = req.WithContext(auth.WithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("POST", "/api/documents", `{"width":10}`, "user_a"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: %d", rec.Code)
	}

	rec := do("POST", "/api/documents", `{"name":"Poster","width":300,"height":200}`, "user_a")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var p Project
	json.NewDecoder(rec.Body).Decode(&p)

	if rec := do("GET", "/api/documents/"+p.ID, "", "user_b"); rec.Code != http.StatusForbidden {
		t.Errorf("stranger get: %d", rec.Code)
	}
	if rec := do("GET", "/api/documents/doc_missing", "", "user_a"); rec.Code != http.StatusNotFound {
		t.Errorf("missing get: %d", rec.Code)
	}

	rec = do("GET", "/api/documents/"+p.ID+"/snapshot", "", "user_a")
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot: %d", rec.Code)
	}
	var snap Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Version != 1 || snap.Document.Len() != 1 {
		t.Errorf("snapshot = v%d, %d layers", snap.Version, snap.Document.Len())
	}

	rec = do("GET", "/api/documents", "", "user_a")
	var list []Project
	json.NewDecoder(rec.Body).Decode(&list)
	if len(list) != 1 || list[0].Name != "Poster" {
		t.Errorf("list = %+v", list)
	}
}
