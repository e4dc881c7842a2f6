package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_connections_active",
		Help: "The current number of connected clients.",
	})
	TotalConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_connections_total",
		Help: "The total number of client connections accepted.",
	})
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_sessions_active",
		Help: "The current number of live sessions.",
	})
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_messages_received_total",
		Help: "The total number of frames received from clients.",
	})
	StateBroadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_state_broadcasts_total",
		Help: "The total number of leader state updates fanned out.",
	})
	TimeRequestsRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_time_requests_relayed_total",
		Help: "The total number of follower time requests relayed to a leader.",
	})
	TimeRequestTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_time_request_timeouts_total",
		Help: "The total number of relayed time requests that timed out.",
	})
	ProtocolErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_protocol_errors_total",
		Help: "The total number of rejected client requests.",
	}, []string{"kind"})
)
