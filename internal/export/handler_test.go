package export

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/inamate/designkit/internal/auth"
	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/geom"
	"github.com/inamate/designkit/internal/project"
	"github.com/inamate/designkit/internal/render"
)

type snapshots map[string]document.Document

func (s snapshots) LatestSnapshot(_ context.Context, id, userID string) (*project.Snapshot, error) {
	if userID != "user_a" {
		return nil, project.ErrForbidden
	}
	doc, ok := s[id]
	if !ok {
		return nil, project.ErrNotFound
	}
	return &project.Snapshot{Version: 3, Document: doc}, nil
}

func newRouter(t *testing.T, docs snapshots) *mux.Router {
	t.Helper()
	rd, err := render.New(nil)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	h := NewHandler(docs, rd)
	r := mux.NewRouter()
	r.HandleFunc("/api/documents/{documentId}/export.png", h.ExportPNG).Methods("GET")
	r.HandleFunc("/api/render.png", h.RenderPNG).Methods("POST")
	return r
}

func artboard(t *testing.T) document.Document {
	t.Helper()
	doc := document.NewArtboard("Card", 100, 50)
	doc, err := doc.Insert(doc.Root(), -1, document.Node{
		Layer: document.NewRect("Red", geom.Rect{Width: 50, Height: 50}, document.MustHex("#ff0000")),
	})
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestExportPNG(t *testing.T) {
	r := newRouter(t, snapshots{"doc_1": artboard(t)})

	tests := []struct {
		name   string
		path   string
		user   string
		status int
		width  int
	}{
		{"default scale", "/api/documents/doc_1/export.png", "user_a", http.StatusOK, 100},
		{"double", "/api/documents/doc_1/export.png?scale=2", "user_a", http.StatusOK, 200},
		{"bad scale", "/api/documents/doc_1/export.png?scale=-1", "user_a", http.StatusBadRequest, 0},
		{"missing", "/api/documents/doc_2/export.png", "user_a", http.StatusNotFound, 0},
		{"forbidden", "/api/documents/doc_1/export.png", "user_b", http.StatusForbidden, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req = req.WithContext(withUser(req.Context(), tt.user))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
			if tt.width == 0 {
				return
			}
			img, err := png.Decode(rec.Body)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got := img.Bounds().Dx(); got != tt.width {
				t.Errorf("width = %d, want %d", got, tt.width)
			}
		})
	}
}

func TestRenderPNG(t *testing.T) {
	r := newRouter(t, nil)
	data, _ := document.Marshal(artboard(t))

	req := httptest.NewRequest(http.MethodPost, "/api/render.png", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if red, _, _, a := img.At(10, 10).RGBA(); red>>8 != 255 || a>>8 != 255 {
		t.Errorf("pixel (10,10) = %v, want red", img.At(10, 10))
	}

	req = httptest.NewRequest(http.MethodPost, "/api/render.png", bytes.NewReader([]byte(`{}`)))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid body: %d", rec.Code)
	}
}

func withUser(ctx context.Context, id string) context.Context {
	return auth.WithUserID(ctx, id)
}
