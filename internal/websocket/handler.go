package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/adidharmatoru/remo-signal/internal/metrics"
	"github.com/adidharmatoru/remo-signal/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Peers are native apps, not browsers; the Origin header carries no
	// trust here and the hub does not authenticate anyway.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests to signalling connections.
type Handler struct {
	hub    *Hub
	logger *slog.Logger
}

// NewHandler creates the upgrade handler for the hub.
func NewHandler(hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
	}
}

// ServeHTTP upgrades the request and runs the connection to completion.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(h.hub, conn, middleware.RealIPFromContext(r.Context()), h.logger)
	metrics.ActiveConnections.Inc()
	client.logger.Info("connection established")

	go client.writePump()
	client.readPump() // Blocks until the connection terminates
}
