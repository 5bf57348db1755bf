package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/adidharmatoru/remo-signal/internal/pubsub"
)

// roomsTopic carries new-room events between hub instances.
const roomsTopic = "rooms"

// roomEvent is the bus payload for a newly opened room. Origin identifies the
// publishing instance so it can discard its own events; local subscribers
// were already notified synchronously during the start dispatch.
type roomEvent struct {
	Origin string `json:"origin"`
	Room   string `json:"room"`
}

// PubSubAnnouncer bridges the hub to the room-event bus. With the in-memory
// bus it is effectively inert (every event is same-origin); with the Redis
// bus it fans new-room notifications out to subscribers on every instance.
type PubSubAnnouncer struct {
	bus    pubsub.PubSub
	hub    *Hub
	origin string
	sub    pubsub.Subscription
	logger *slog.Logger
}

// NewPubSubAnnouncer creates an announcer for the hub over the given bus.
func NewPubSubAnnouncer(bus pubsub.PubSub, hub *Hub, logger *slog.Logger) *PubSubAnnouncer {
	return &PubSubAnnouncer{
		bus:    bus,
		hub:    hub,
		origin: uuid.NewString(),
		logger: logger.With("component", "announcer"),
	}
}

// Start subscribes to the rooms topic.
func (a *PubSubAnnouncer) Start(ctx context.Context) error {
	sub, err := a.bus.Subscribe(ctx, roomsTopic, a.onEvent)
	if err != nil {
		return fmt.Errorf("subscribe to %q: %w", roomsTopic, err)
	}
	a.sub = sub
	return nil
}

// Stop removes the subscription.
func (a *PubSubAnnouncer) Stop() {
	if a.sub != nil {
		_ = a.sub.Unsubscribe()
	}
}

// AnnounceRoom publishes a new-room event. Bus failures are logged and never
// affect the originating connection.
func (a *PubSubAnnouncer) AnnounceRoom(ctx context.Context, room string) {
	payload, err := json.Marshal(roomEvent{Origin: a.origin, Room: room})
	if err == nil {
		err = a.bus.Publish(ctx, roomsTopic, payload)
	}
	if err != nil {
		a.logger.Warn("failed to announce room", "room", room, "error", err)
	}
}

func (a *PubSubAnnouncer) onEvent(ctx context.Context, topic string, payload []byte) {
	var ev roomEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		a.logger.Warn("discarding malformed room event", "error", err)
		return
	}
	if ev.Origin == a.origin {
		return
	}
	a.hub.HandleRemoteRoom(ev.Room)
}
