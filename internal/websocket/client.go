package websocket

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/adidharmatoru/remo-signal/internal/metrics"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer (SDP offers with many
	// candidates run large)
	maxMessageSize = 512 * 1024
)

// Client drives one signalling connection: a read pump feeding frames into
// the hub, a write pump draining the outbound queue, and disconnect cleanup
// keyed by the socket address. The client never learns which peer identity
// the connection carries; that association lives in the registry.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	queue  *Queue
	socket string
	logger *slog.Logger
}

// newClient wraps an upgraded connection. realIP is used only for logging.
func newClient(hub *Hub, conn *websocket.Conn, realIP string, logger *slog.Logger) *Client {
	socket := conn.RemoteAddr().String()
	return &Client{
		hub:    hub,
		conn:   conn,
		queue:  NewQueue(),
		socket: socket,
		logger: logger.With(
			"conn_id", uuid.NewString(),
			"socket", socket,
			"real_ip", realIP,
		),
	}
}

// readPump feeds inbound text frames into the hub until the connection
// terminates, then runs cleanup. Terminating the read side also closes the
// queue, which stops the write pump.
func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c.socket)
		c.queue.Close()
		_ = c.conn.Close()
		metrics.ActiveConnections.Dec()
		c.logger.Info("connection closed")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		// Any inbound frame extends the deadline, so clients that send
		// protocol-level keep_alive instead of pongs stay connected.
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if kind != websocket.TextMessage {
			continue
		}
		c.hub.HandleFrame(c.queue, frame, c.socket)
	}
}

// writePump drains the outbound queue onto the wire, one text message per
// frame, and pings the peer while idle.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		for {
			frame, ok := c.queue.Pop()
			if !ok {
				break
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}

		if c.queue.Closed() {
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		select {
		case <-c.queue.Wake():
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
