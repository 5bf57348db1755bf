package websocket

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned by TrySend once the owning connection has
// terminated. Producers treat it as best-effort delivery and move on.
var ErrQueueClosed = errors.New("outbound queue closed")

// Queue is the unbounded outbound frame buffer for one connection. Producers
// enqueue without blocking from inside the hub's critical section; the
// connection's write pump is the only consumer.
type Queue struct {
	mu     sync.Mutex
	frames [][]byte
	wake   chan struct{}
	closed bool
}

// NewQueue creates an empty open queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// TrySend appends a frame. It never blocks; the only failure is a closed
// queue.
func (q *Queue) TrySend(frame []byte) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.frames = append(q.frames, frame)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Pop removes and returns the oldest frame, if any.
func (q *Queue) Pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		return nil, false
	}
	frame := q.frames[0]
	q.frames = q.frames[1:]
	return frame, true
}

// Close drops any pending frames and fails all subsequent sends. Idempotent.
// The writer is woken so it can observe the closure.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.frames = nil
	q.mu.Unlock()

	q.signal()
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of pending frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Wake returns the channel the write pump parks on between frames. The
// channel is 1-buffered, so a signal sent while the pump is mid-drain is not
// lost.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
