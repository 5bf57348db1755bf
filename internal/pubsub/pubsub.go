// Package pubsub is the event bus behind cross-instance room notifications.
// The in-memory backend serves single-instance deployments; the Redis backend
// fans events out to every hub instance sharing the same Redis server.
package pubsub

import "context"

// Handler processes one published payload. Handlers run on their own
// goroutines and must not block indefinitely.
type Handler func(ctx context.Context, topic string, payload []byte)

// Subscription is an active topic registration.
type Subscription interface {
	// Unsubscribe removes the registration.
	Unsubscribe() error
}

// PubSub is the bus contract. All implementations are safe for concurrent
// use.
type PubSub interface {
	// Publish delivers the payload to every subscriber of the topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for the topic and returns the
	// subscription handle.
	Subscribe(ctx context.Context, topic string, handler Handler) (Subscription, error)

	// Close shuts the bus down and releases resources.
	Close() error
}

// TopicBuilder constructs consistent topic names.
type TopicBuilder struct{}

// Rooms is the channel carrying new-room events between hub instances.
func (TopicBuilder) Rooms() string {
	return "signal:rooms"
}

// Topics is the shared topic name builder.
var Topics = TopicBuilder{}
