package webserver

import (
	"encoding/json"
	"net/http"

	"github.com/agentlens/agentlens/internal/metrics"
	"github.com/agentlens/agentlens/internal/webapi"
)

// registerRoutes sets up the API, health, and metrics routes on the given mux.
func registerRoutes(mux *http.ServeMux, cfg Config) {
	webapi.RegisterRoutes(mux, cfg.Store)
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.Handle("GET /metrics", metrics.Handler())
}

// handleHealthz is the liveness probe endpoint.
func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"}) //nolint:errcheck
}
