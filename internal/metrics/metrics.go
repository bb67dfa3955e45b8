// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "snsu"

var (
	// ConnectedClients is the number of registered websocket connections.
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "connected_clients",
		Help:      "Number of live websocket connections.",
	})

	// EventsReceived counts inbound websocket events by name.
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "events_received_total",
		Help:      "Inbound websocket events by event name.",
	}, []string{"event"})

	// FramesDropped counts frames skipped because a client's queue was full.
	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "frames_dropped_total",
		Help:      "Outbound frames dropped for slow clients.",
	})

	// MessagesDelivered counts fanned-out chat messages by kind.
	MessagesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chat",
		Name:      "messages_delivered_total",
		Help:      "Chat messages fanned out, by kind (broadcast or direct).",
	}, []string{"kind"})

	// PresenceTransitions counts online/offline flips.
	PresenceTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "presence",
		Name:      "transitions_total",
		Help:      "Presence status changes by resulting status.",
	}, []string{"status"})

	// TasksProcessed counts background tasks by type and outcome.
	TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "tasks_processed_total",
		Help:      "Background tasks handled, by type and result.",
	}, []string{"type", "result"})
)
