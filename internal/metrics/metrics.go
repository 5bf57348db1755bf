// Package metrics exposes the hub's Prometheus collectors, served at
// GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "remo"
	subsystem = "signal"
)

var (
	// ActiveConnections tracks open signalling connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_connections",
		Help:      "Number of open signalling connections.",
	})

	// ActiveSessions tracks live rooms.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_sessions",
		Help:      "Number of live screen-sharing sessions.",
	})

	// FramesTotal counts inbound frames by message type.
	FramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frames_total",
		Help:      "Inbound frames by message type.",
	}, []string{"type"})

	// ForwardsTotal counts frames relayed verbatim to their addressed peer.
	ForwardsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "forwards_total",
		Help:      "Frames relayed verbatim to their addressed peer.",
	})

	// HandlerErrorsTotal counts frame handling failures by kind.
	HandlerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handler_errors_total",
		Help:      "Frame handling failures by kind.",
	}, []string{"kind"})

	// RoomNotificationsTotal counts new-room fan-outs to subscribers.
	RoomNotificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "room_notifications_total",
		Help:      "New-room notification fan-outs to subscribers.",
	})

	// FrameHandleSeconds observes decode plus dispatch latency per frame.
	FrameHandleSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frame_handle_seconds",
		Help:      "Time spent decoding and dispatching one frame.",
		Buckets:   prometheus.DefBuckets,
	})
)
