package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// RedisPubSub implements PubSub over Redis channels so that events published
// by one hub instance reach subscribers on every instance.
type RedisPubSub struct {
	client        *redis.Client
	mu            sync.Mutex
	subscriptions map[uint64]*redisSubscription
	nextID        atomic.Uint64
	closed        bool
	logger        *slog.Logger
}

// redisSubscription owns one Redis channel subscription and its receive loop.
type redisSubscription struct {
	ps      *RedisPubSub
	id      uint64
	topic   string
	pubsub  *redis.PubSub
	cancel  context.CancelFunc
	handler Handler
}

func (s *redisSubscription) Unsubscribe() error {
	s.cancel()
	if s.pubsub != nil {
		_ = s.pubsub.Close()
	}
	s.ps.removeSub(s.id)
	return nil
}

// NewRedisPubSub connects to Redis and verifies the connection. The url uses
// the redis://[:password@]host:port form accepted by redis.ParseURL.
func NewRedisPubSub(url string, logger *slog.Logger) (*RedisPubSub, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger = logger.With("component", "pubsub", "backend", "redis")
	logger.Info("connected to redis", "addr", opts.Addr)

	return &RedisPubSub{
		client:        client,
		subscriptions: make(map[uint64]*redisSubscription),
		logger:        logger,
	}, nil
}

// Publish delivers the payload to subscribers of the topic on all instances.
func (ps *RedisPubSub) Publish(ctx context.Context, topic string, payload []byte) error {
	ps.mu.Lock()
	closed := ps.closed
	ps.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if err := ps.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// Subscribe registers a handler for the topic and starts its receive loop.
func (ps *RedisPubSub) Subscribe(ctx context.Context, topic string, handler Handler) (Subscription, error) {
	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		return nil, ErrClosed
	}
	ps.mu.Unlock()

	redisPubSub := ps.client.Subscribe(ctx, topic)

	// Confirm the subscription before returning so no publish is missed.
	if _, err := redisPubSub.Receive(ctx); err != nil {
		_ = redisPubSub.Close()
		return nil, fmt.Errorf("failed to subscribe to redis channel: %w", err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	sub := &redisSubscription{
		ps:      ps,
		id:      ps.nextID.Add(1),
		topic:   topic,
		pubsub:  redisPubSub,
		cancel:  cancel,
		handler: handler,
	}

	ps.mu.Lock()
	ps.subscriptions[sub.id] = sub
	ps.mu.Unlock()

	go sub.receive(subCtx)

	ps.logger.Debug("subscribed to topic", "topic", topic, "sub_id", sub.id)
	return sub, nil
}

// receive dispatches channel messages to the handler until the subscription
// is cancelled or the channel closes.
func (s *redisSubscription) receive(ctx context.Context) {
	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			go s.handler(ctx, s.topic, []byte(msg.Payload))
		}
	}
}

func (ps *RedisPubSub) removeSub(id uint64) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.subscriptions, id)
}

// Close cancels every subscription and closes the client.
func (ps *RedisPubSub) Close() error {
	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		return nil
	}
	ps.closed = true
	subs := ps.subscriptions
	ps.subscriptions = make(map[uint64]*redisSubscription)
	ps.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
		if sub.pubsub != nil {
			_ = sub.pubsub.Close()
		}
	}

	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	ps.logger.Info("redis pubsub closed")
	return nil
}
