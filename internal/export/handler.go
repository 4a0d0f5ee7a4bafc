// Package export renders stored documents to image files.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inamate/designkit/internal/auth"
	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/project"
	"github.com/inamate/designkit/internal/render"
)

const (
	maxDocumentSize = 16 << 20
	maxScale        = 4
	maxPixels       = 8192 * 8192
)

// SnapshotLoader returns the newest content of a document the user may read.
type SnapshotLoader interface {
	LatestSnapshot(ctx context.Context, id, userID string) (*project.Snapshot, error)
}

type Handler struct {
	docs     SnapshotLoader
	renderer *render.Renderer
}

func NewHandler(docs SnapshotLoader, renderer *render.Renderer) *Handler {
	return &Handler{docs: docs, renderer: renderer}
}

// ExportPNG handles GET /api/documents/{documentId}/export.png. The
// optional scale query parameter multiplies the artboard size.
func (h *Handler) ExportPNG(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	id := mux.Vars(r)["documentId"]

	scale, err := parseScale(r.URL.Query().Get("scale"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	snap, err := h.docs.LatestSnapshot(r.Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, project.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		case errors.Is(err, project.ErrForbidden):
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		default:
			slog.Error("load snapshot for export", "error", err, "document", id)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return
	}

	h.write(w, snap.Document, scale, filename(id, snap.Version))
}

// RenderPNG handles POST /api/render.png with a document in the body. It
// lets clients export unsaved edits.
func (h *Handler) RenderPNG(w http.ResponseWriter, r *http.Request) {
	scale, err := parseScale(r.URL.Query().Get("scale"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request too large"})
		return
	}
	doc, err := document.Unmarshal(data)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	h.write(w, doc, scale, "render.png")
}

func (h *Handler) write(w http.ResponseWriter, doc document.Document, scale float64, name string) {
	board, _ := doc.Bounds(doc.Root())
	if board.Width*scale*board.Height*scale > maxPixels {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "export too large"})
		return
	}

	// Encode to a buffer so a render failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := h.renderer.EncodePNG(&buf, doc, scale); err != nil {
		slog.Error("encode png", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "render failed"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("write png response", "error", err)
	}
}

func parseScale(s string) (float64, error) {
	if s == "" {
		return 1, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v > maxScale {
		return 0, fmt.Errorf("scale must be in (0, %d]", maxScale)
	}
	return v, nil
}

func filename(id string, version int) string {
	name := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, id)
	return fmt.Sprintf("%s-v%d.png", name, version)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
