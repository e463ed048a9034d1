package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rickgao/chat-relay/internal/connection"
	"github.com/rickgao/chat-relay/internal/directory"
	"github.com/rickgao/chat-relay/internal/router"
	"github.com/rickgao/chat-relay/internal/store"
	"github.com/rickgao/chat-relay/internal/version"
)

// mountHealth registers /health and /debug/rooms.
func mountHealth(mux *http.ServeMux, st store.Store, dir directory.Directory, rt router.Router, ws *connection.Server) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Version    version.Info   `json:"version"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.Current(),
			Components: make(map[string]any),
		}

		if err := st.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["store"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["store"] = "connected"
		}

		health.Components["connections"] = ws.Stats()
		health.Components["router"] = rt.Stats()
		if cached, ok := dir.(*directory.Cached); ok {
			stats := cached.Stats()
			health.Components["directory_cache"] = stats
			if stats.Errors > 0 && stats.Hits == 0 {
				health.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/rooms", func(w http.ResponseWriter, r *http.Request) {
		stats := rt.Stats()

		rooms := make([]map[string]any, 0, len(stats.Occupancy))
		for _, name := range rt.Rooms() {
			rooms = append(rooms, map[string]any{
				"room":    name,
				"members": stats.Occupancy[name],
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"online": stats.Online,
			"rooms":  rooms,
		})
	})
}
