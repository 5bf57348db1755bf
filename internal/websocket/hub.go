package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/adidharmatoru/remo-signal/internal/metrics"
	"github.com/adidharmatoru/remo-signal/internal/protocol"
	"github.com/adidharmatoru/remo-signal/internal/registry"
	"github.com/adidharmatoru/remo-signal/internal/rtc"
)

// RoomAnnouncer publishes newly opened rooms to sibling hub instances.
type RoomAnnouncer interface {
	AnnounceRoom(ctx context.Context, room string)
}

// Hub is the per-frame protocol handler. It owns the one exclusive mutex that
// serializes every registry mutation; a full frame dispatch runs inside a
// single critical section, so the registry's cross-map invariants hold
// between any two frames.
//
// Nothing inside the critical section performs I/O: outbound frames land on
// non-blocking peer queues, and the room-event bus is published to only after
// the mutex is released.
type Hub struct {
	mu        sync.Mutex
	registry  *registry.Registry
	resolver  *rtc.Resolver
	announcer RoomAnnouncer
	logger    *slog.Logger
}

// NewHub creates a hub over the given registry and ICE resolver.
func NewHub(reg *registry.Registry, resolver *rtc.Resolver, logger *slog.Logger) *Hub {
	return &Hub{
		registry: reg,
		resolver: resolver,
		logger:   logger,
	}
}

// SetAnnouncer attaches the room-event bus bridge. Optional; a nil announcer
// means single-instance operation.
func (h *Hub) SetAnnouncer(a RoomAnnouncer) {
	h.announcer = a
}

// HandleFrame decodes and dispatches one inbound text frame. Any failure is
// logged with the offending frame and the connection carries on; the hub
// never closes a peer for sending a bad frame.
func (h *Hub) HandleFrame(sender registry.Sender, raw []byte, socket string) {
	timer := prometheus.NewTimer(metrics.FrameHandleSeconds)
	defer timer.ObserveDuration()

	msg, err := protocol.Decode(raw)
	if err != nil {
		metrics.HandlerErrorsTotal.WithLabelValues("malformed_frame").Inc()
		h.logger.Info("dropping malformed frame", "error", err, "frame", string(raw))
		return
	}
	metrics.FramesTotal.WithLabelValues(msg.Kind()).Inc()

	h.mu.Lock()
	newRoom, err := h.dispatch(sender, msg, raw, socket)
	sessions := h.registry.SessionCount()
	h.mu.Unlock()

	metrics.ActiveSessions.Set(float64(sessions))

	if err != nil {
		metrics.HandlerErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		h.logger.Info("error handling frame", "error", err, "frame", string(raw))
	}

	if newRoom != "" && h.announcer != nil {
		h.announcer.AnnounceRoom(context.Background(), newRoom)
	}
}

// HandleRemoteRoom fans a room opened on a sibling instance out to this
// instance's subscribers.
func (h *Hub) HandleRemoteRoom(room string) {
	h.mu.Lock()
	h.registry.NotifyRoomUpdate(room)
	h.mu.Unlock()

	metrics.RoomNotificationsTotal.Inc()
}

// Disconnect runs registry cleanup for a dropped connection, keyed by its
// socket address.
func (h *Hub) Disconnect(socket string) {
	h.mu.Lock()
	h.registry.OnDisconnect(socket)
	sessions := h.registry.SessionCount()
	h.mu.Unlock()

	metrics.ActiveSessions.Set(float64(sessions))
}

// dispatch routes one decoded frame. It runs under the hub mutex and returns
// the room name when a new session was opened, so the caller can announce it
// on the bus after unlocking.
func (h *Hub) dispatch(sender registry.Sender, msg protocol.Message, raw []byte, socket string) (string, error) {
	switch m := msg.(type) {
	case *protocol.Start:
		if err := h.registry.AddServer(m.Room, m.Name, m.OS, m.Version, m.Control, sender, socket); err != nil {
			return "", err
		}
		if err := h.send(sender, protocol.StartResponse{Room: m.Room}); err != nil {
			return "", err
		}
		h.registry.NotifyRoomUpdate(m.Room)
		metrics.RoomNotificationsTotal.Inc()
		h.logger.Info("session started", "room", m.Room, "os", m.OS, "version", m.Version)
		return m.Room, nil

	case *protocol.Join:
		if err := h.registry.AddViewer(m.From, m.Room, sender); err != nil {
			h.logger.Info("join declined", "from", m.From, "room", m.Room, "reason", err.Error())
			return "", h.send(sender, protocol.JoinDeclined{To: m.From, Reason: err.Error()})
		}
		h.logger.Info("viewer joined", "from", m.From, "room", m.Room)
		return "", h.forward(m.Room, raw)

	case *protocol.Leave:
		return "", h.registry.LeaveSession(m.From)

	case *protocol.Offer:
		return "", h.forward(m.To, raw)

	case *protocol.Answer:
		return "", h.forward(m.To, raw)

	case *protocol.Ice:
		return "", h.forward(m.To, raw)

	case *protocol.JoinDeclined:
		// Host-originated decline, relayed like any addressed frame.
		return "", h.forward(m.To, raw)

	case *protocol.IceServers:
		// Unadmitted connections resolve with an empty peer id; an active
		// whitelist rejects them.
		var peerID string
		if peer, ok := h.registry.PeerBySender(sender); ok {
			peerID = peer.ID
		}
		return "", h.send(sender, protocol.IceServersResponse{IceServers: h.resolver.Resolve(peerID)})

	case *protocol.GetRoomList:
		rooms, total := h.registry.AvailableRooms(registry.RoomQuery{
			OS:      m.OS,
			Version: m.Version,
			Server:  m.Server,
			Name:    m.Name,
			Sort:    m.Sort,
			Control: m.Control,
			Page:    m.Page,
			PerPage: m.PerPage,
		})
		return "", h.send(sender, protocol.RoomListResponse{
			Rooms:      rooms,
			TotalCount: total,
			Page:       m.Page,
			PerPage:    m.PerPage,
		})

	case *protocol.KeepAlive:
		return "", nil

	case *protocol.SubscribeRoomUpdates:
		// The subscribing peer is located by its sender handle; its room is
		// what enters the subscriber set. Unadmitted connections are ignored.
		if peer, ok := h.registry.PeerBySender(sender); ok {
			h.registry.SubscribeRoomUpdates(peer.Room)
		}
		return "", nil

	case *protocol.UnsubscribeRoomUpdates:
		if peer, ok := h.registry.PeerBySender(sender); ok {
			h.registry.UnsubscribeRoomUpdates(peer.Room)
		}
		return "", nil

	default:
		// Hub-originated kinds arriving from the client side.
		h.logger.Warn("dropping unexpected client frame", "type", msg.Kind())
		return "", nil
	}
}

// forward relays the original frame bytes to the addressed peer. Frames are
// never re-encoded, so fields the hub does not understand survive verbatim.
func (h *Hub) forward(to string, raw []byte) error {
	peer, ok := h.registry.Peer(to)
	if !ok {
		return registry.ErrPeerNotFound
	}
	if err := peer.Sender.TrySend(raw); err != nil {
		return fmt.Errorf("forward to %q: %w", to, err)
	}
	metrics.ForwardsTotal.Inc()
	return nil
}

func (h *Hub) send(sender registry.Sender, msg protocol.Message) error {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return sender.TrySend(frame)
}

// errorKind maps a dispatch failure onto its metrics label.
func errorKind(err error) string {
	switch {
	case errors.Is(err, registry.ErrDeviceOnline):
		return "device_online"
	case errors.Is(err, registry.ErrDeviceOffline):
		return "device_offline"
	case errors.Is(err, registry.ErrPeerNotFound):
		return "peer_not_found"
	case errors.Is(err, ErrQueueClosed):
		return "enqueue_failed"
	default:
		return "internal"
	}
}
