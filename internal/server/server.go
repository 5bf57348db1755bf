package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adidharmatoru/remo-signal/internal/config"
	"github.com/adidharmatoru/remo-signal/internal/middleware"
	"github.com/adidharmatoru/remo-signal/internal/websocket"
)

// Dependencies holds all service dependencies for the server
type Dependencies struct {
	WSHandler *websocket.Handler
	Logger    *slog.Logger
}

// New creates an HTTP server with all routes configured. The read/write
// timeouts apply to the upgrade handshake only; gorilla clears the deadlines
// on hijack, so established signalling sessions are unaffected.
func New(cfg *config.Config, deps *Dependencies) *http.Server {
	mux := http.NewServeMux()

	// Register routes
	registerRoutes(mux, deps)

	// Wrap with middleware
	handler := chainMiddleware(mux,
		requestIDMiddleware,
		middleware.RealIP,
		corsMiddleware(cfg),
		loggingMiddleware(deps.Logger),
		recoverMiddleware(deps.Logger),
	)

	return &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies) {
	// Health check - essential for docker, k8s, load balancers
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus collectors
	mux.Handle("GET /metrics", promhttp.Handler())

	// The signalling endpoint lives at the root path
	mux.Handle("GET /{$}", deps.WSHandler)
}
