package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_connections_active",
			Help: "Currently open client sessions",
		},
	)

	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_received_total",
			Help: "Inbound client events by type",
		},
		[]string{"event"},
	)

	MessagesRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_relayed_total",
			Help: "message:new payloads forwarded to rooms",
		},
	)

	CallsPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_calls_placed_total",
			Help: "Call handshakes initiated",
		},
		[]string{"type"}, // "audio" or "video"
	)

	BroadcastDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_broadcast_dropped_total",
			Help: "Frames dropped because a session's send buffer was full",
		},
	)

	PresenceEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_presence_evictions_total",
			Help: "Presence entries deleted after the disconnect grace period",
		},
	)

	PersistenceErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_persistence_errors_total",
			Help: "Failed fire-and-forget writes to the user store",
		},
	)
)
