package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/inamate/designkit/internal/store"
)

const minPasswordLen = 8

var errBadRequest = errors.New("bad request")

// Handler serves registration, login and the current-user lookup.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (req *registerRequest) normalize() error {
	req.Email = normalizeEmail(req.Email)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	switch {
	case req.Email == "" || req.Password == "" || req.DisplayName == "":
		return fmt.Errorf("%w: email, password, and displayName are required", errBadRequest)
	case len(req.Password) < minPasswordLen:
		return fmt.Errorf("%w: password must be at least %d characters", errBadRequest, minPasswordLen)
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *loginRequest) normalize() error {
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return fmt.Errorf("%w: email and password are required", errBadRequest)
	}
	return nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// decode reads a JSON body into req and normalizes it.
func decode[T interface{ normalize() error }](r *http.Request, req T) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return fmt.Errorf("%w: invalid request body", errBadRequest)
	}
	return req.normalize()
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		handleServiceError(w, "register", err)
		return
	}
	result, err := h.service.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		handleServiceError(w, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		handleServiceError(w, "login", err)
		return
	}
	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleServiceError maps auth and store sentinels to responses. Anything
// unrecognized is logged and answered with a 500.
func handleServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, errBadRequest):
		msg := strings.TrimPrefix(err.Error(), errBadRequest.Error()+": ")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrEmailTaken), errors.Is(err, store.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": ErrEmailTaken.Error()})
	case errors.Is(err, ErrUserNotFound), errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": ErrUserNotFound.Error()})
	default:
		slog.Error(op+" failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
