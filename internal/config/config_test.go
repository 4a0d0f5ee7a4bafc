package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 || cfg.StoreDriver != "sqlite" {
		t.Errorf("unexpected defaults: port=%d driver=%q", cfg.Port, cfg.StoreDriver)
	}
	if cfg.FrameInterval != 16*time.Millisecond {
		t.Errorf("FrameInterval = %v", cfg.FrameInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_ZOOM", "4")
	t.Setenv("HISTORY_LIMIT", "5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d", cfg.Port)
	}
	opts := cfg.Editor()
	if opts.Interact.MaxZoom != 4 {
		t.Errorf("MaxZoom = %v", opts.Interact.MaxZoom)
	}
	if opts.HistoryLimit != 5 {
		t.Errorf("HistoryLimit = %d", opts.HistoryLimit)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level = %v", cfg.Level())
	}
}

func TestLoadRejectsBadValue(t *testing.T) {
	t.Setenv("SNAP_TOLERANCE", "wide")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric SNAP_TOLERANCE")
	}
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: " http://a.test, ,http://b.test "}
	got := cfg.Origins()
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("Origins = %q", got)
	}
}

func TestLevelFallback(t *testing.T) {
	cfg := &Config{LogLevel: "loud"}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("Level = %v", cfg.Level())
	}
}
