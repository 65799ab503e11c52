package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection lifecycle
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackroom_connected_clients",
			Help: "Currently connected WebSocket clients",
		},
	)

	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackroom_connections_total",
			Help: "Total accepted WebSocket connections",
		},
	)

	JoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackroom_joins_total",
			Help: "Total successful room joins",
		},
	)

	JoinsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackroom_joins_rejected_total",
			Help: "Total rejected room joins",
		},
		[]string{"reason"}, // invalid_credential, not_authorized, room_not_found
	)

	// Broadcast path
	MessagesIn = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackroom_messages_in_total",
			Help: "Total inbound client messages",
		},
	)

	EventsOut = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackroom_events_out_total",
			Help: "Total outbound events enqueued to clients",
		},
		[]string{"type"},
	)

	DroppedSlowClients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackroom_dropped_slow_clients_total",
			Help: "Clients disconnected because their send queue was full",
		},
	)

	GeofenceAlerts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackroom_geofence_alerts_total",
			Help: "Total geofence departure alerts emitted",
		},
	)

	// Movement history side channel
	MovementsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackroom_movements_enqueued_total",
			Help: "Movements accepted into the history queue",
		},
	)

	MovementsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackroom_movements_dropped_total",
			Help: "Movements dropped because the history queue was full",
		},
	)

	MovementsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackroom_movements_written_total",
			Help: "Movements persisted to the history store",
		},
	)

	MovementErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackroom_movement_errors_total",
			Help: "Failed history store writes (swallowed, never surfaced)",
		},
	)
)
