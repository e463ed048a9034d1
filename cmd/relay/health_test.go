package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rickgao/chat-relay/internal/config"
	"github.com/rickgao/chat-relay/internal/connection"
	"github.com/rickgao/chat-relay/internal/router"
	"github.com/rickgao/chat-relay/internal/store"
)

func newHealthMux(t *testing.T) (*http.ServeMux, *store.Memory) {
	t.Helper()

	st := store.NewMemory("alice")
	rt := router.New(router.DefaultConfig(), st, st, nil)
	t.Cleanup(rt.Close)

	mux := http.NewServeMux()
	mountHealth(mux, st, st, rt, connection.NewServer(connection.DefaultServerConfig(), rt, nil))
	return mux, st
}

func TestHealth(t *testing.T) {
	mux, _ := newHealthMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Status     string                     `json:"status"`
		Components map[string]json.RawMessage `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("status = %q, want healthy", body.Status)
	}
	for _, c := range []string{"store", "connections", "router"} {
		if _, ok := body.Components[c]; !ok {
			t.Errorf("component %q missing", c)
		}
	}
}

func TestHealthStoreDown(t *testing.T) {
	mux, _ := newHealthMux(t)

	// The memory store's ping only fails on a dead context.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(ctx)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestDebugRooms(t *testing.T) {
	mux, _ := newHealthMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/rooms", nil))

	var body struct {
		Rooms []struct {
			Room    string `json:"room"`
			Members int    `json:"members"`
		} `json:"rooms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Rooms) != len(router.DefaultRooms) {
		t.Errorf("rooms = %d, want %d", len(body.Rooms), len(router.DefaultRooms))
	}
}

func TestNewLogger(t *testing.T) {
	logger := newLogger(config.LogConfig{Level: "debug", Format: "json"})
	if _, ok := logger.Handler().(*slog.JSONHandler); !ok {
		t.Errorf("handler = %T, want *slog.JSONHandler", logger.Handler())
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level not enabled")
	}

	logger = newLogger(config.LogConfig{Level: "warn", Format: "text"})
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled at warn level")
	}
}
