package websocket

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adidharmatoru/remo-signal/internal/protocol"
	"github.com/adidharmatoru/remo-signal/internal/pubsub"
	"github.com/adidharmatoru/remo-signal/internal/rtc"
)

// newAnnouncedHub wires a hub and its announcer onto a shared bus.
func newAnnouncedHub(t *testing.T, bus pubsub.PubSub) (*Hub, *PubSubAnnouncer) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := newTestHub(rtc.MapSource{})
	announcer := NewPubSubAnnouncer(bus, hub, logger)
	require.NoError(t, announcer.Start(context.Background()))
	t.Cleanup(announcer.Stop)
	hub.SetAnnouncer(announcer)
	return hub, announcer
}

func TestAnnouncer_RemoteRoomReachesLocalSubscribers(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	defer bus.Close()

	hubA, _ := newAnnouncedHub(t, bus)
	hubB, _ := newAnnouncedHub(t, bus)

	// A peer on hub B subscribes to room updates.
	d := NewQueue()
	startRoom(t, hubB, d, "D", "10.0.1.1:5000")
	hubB.HandleFrame(d, []byte(`{"type":"subscribe_room_updates"}`), "10.0.1.1:5000")

	// A room opened on hub A must fan out to hub B's subscriber.
	startRoom(t, hubA, NewQueue(), "R", "10.0.0.1:5000")

	require.Eventually(t, func() bool { return d.Len() > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, &protocol.NewRoomNotification{Room: "R"}, popMessage(t, d))
}

func TestAnnouncer_SameOriginEventsDiscarded(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	defer bus.Close()

	hub, _ := newAnnouncedHub(t, bus)

	d := NewQueue()
	startRoom(t, hub, d, "D", "10.0.0.1:5000")
	hub.HandleFrame(d, []byte(`{"type":"subscribe_room_updates"}`), "10.0.0.1:5000")

	// The local subscriber is notified synchronously during dispatch; the
	// bus echo of the same event must not produce a duplicate.
	startRoom(t, hub, NewQueue(), "R", "10.0.0.2:5000")

	require.Equal(t, 1, d.Len())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, d.Len(), "bus echo produced a duplicate notification")
}

func TestAnnouncer_MalformedBusPayloadIgnored(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	defer bus.Close()

	hub, _ := newAnnouncedHub(t, bus)
	d := NewQueue()
	startRoom(t, hub, d, "D", "10.0.0.1:5000")
	hub.HandleFrame(d, []byte(`{"type":"subscribe_room_updates"}`), "10.0.0.1:5000")

	require.NoError(t, bus.Publish(context.Background(), "rooms", []byte("not json")))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, d.Len())
}

func TestAnnouncer_StoppedAnnouncerReceivesNothing(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	defer bus.Close()

	hubA, _ := newAnnouncedHub(t, bus)
	hubB, announcerB := newAnnouncedHub(t, bus)

	d := NewQueue()
	startRoom(t, hubB, d, "D", "10.0.1.1:5000")
	hubB.HandleFrame(d, []byte(`{"type":"subscribe_room_updates"}`), "10.0.1.1:5000")

	announcerB.Stop()
	startRoom(t, hubA, NewQueue(), "R", "10.0.0.1:5000")

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, d.Len())
}
