package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/gogpu/gg"
	"github.com/gorilla/mux"

	"github.com/inamate/designkit/internal/asset"
	"github.com/inamate/designkit/internal/auth"
	"github.com/inamate/designkit/internal/collab"
	"github.com/inamate/designkit/internal/config"
	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/export"
	mw "github.com/inamate/designkit/internal/middleware"
	"github.com/inamate/designkit/internal/project"
	"github.com/inamate/designkit/internal/render"
	"github.com/inamate/designkit/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)
	gg.SetLogger(logger.With("component", "gg"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("open store", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	defer st.Close()

	authService := auth.NewService(st, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	projectService := project.NewService(st)
	projectHandler := project.NewHandler(projectService)

	library, err := asset.NewLibrary(cfg.AssetDir)
	if err != nil {
		slog.Error("open asset library", "error", err, "dir", cfg.AssetDir)
		os.Exit(1)
	}
	assetHandler := asset.NewHandler(library)

	renderer, err := render.New(library)
	if err != nil {
		slog.Error("create renderer", "error", err)
		os.Exit(1)
	}
	exportHandler := export.NewHandler(projectService, renderer)

	hub := collab.NewHub(
		func(ctx context.Context, id string) (document.Document, error) {
			snap, err := projectService.Load(ctx, id)
			if err != nil {
				return document.Document{}, err
			}
			return snap.Document, nil
		},
		func(ctx context.Context, id string, doc document.Document) error {
			_, err := projectService.Store(ctx, id, doc)
			return err
		},
		collab.Options{Editor: cfg.Editor(), AutosaveInterval: cfg.AutosaveInterval},
	)

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Public
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.Middleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/assets", assetHandler.Upload).Methods("POST")
	api.HandleFunc("/render.png", exportHandler.RenderPNG).Methods("POST")

	api.HandleFunc("/documents", projectHandler.List).Methods("GET")
	api.HandleFunc("/documents", projectHandler.Create).Methods("POST")
	api.HandleFunc("/documents/{documentId}", projectHandler.Get).Methods("GET")
	api.HandleFunc("/documents/{documentId}", projectHandler.Delete).Methods("DELETE")
	api.HandleFunc("/documents/{documentId}/snapshot", projectHandler.GetLatestSnapshot).Methods("GET")
	api.HandleFunc("/documents/{documentId}/snapshot", projectHandler.SaveSnapshot).Methods("PUT")
	api.HandleFunc("/documents/{documentId}/export.png", exportHandler.ExportPNG).Methods("GET")

	r.HandleFunc("/ws/documents/{documentId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, projectService, cfg.Origins())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Rooms save their documents on close.
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "store", cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, docs *project.Service, origins []string) {
	documentID := mux.Vars(r)["documentId"]

	// Browsers cannot set headers on websocket requests.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if err := docs.Authorize(r.Context(), documentID, userID); err != nil {
		switch {
		case errors.Is(err, project.ErrNotFound):
			http.Error(w, "document not found", http.StatusNotFound)
		case errors.Is(err, project.ErrForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			slog.Error("authorize websocket", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	user, err := authSvc.GetUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "user not found", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originHosts(origins)})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	if err := hub.Serve(r.Context(), conn, userID, user.DisplayName, documentID); err != nil {
		slog.Error("websocket session", "error", err, "document", documentID)
	}
}
