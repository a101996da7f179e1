// Package metrics provides Prometheus metrics for the session and meeting flows.
// Labels stay low-cardinality: no channel, user, or meeting IDs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionQueriesTotal counts status queries by result (connected, disconnected, error).
	SessionQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webexmate_session_queries_total",
		Help: "Total number of session status queries, by result.",
	}, []string{"result"})

	// UnauthorizedTotal counts 401 responses observed by the RPC client.
	UnauthorizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webexmate_unauthorized_total",
		Help: "Total number of unauthorized responses from the plugin API.",
	})

	// MeetingRequestsTotal counts start meeting requests by outcome (success, provider_error, transport_error).
	MeetingRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webexmate_meeting_requests_total",
		Help: "Total number of start meeting requests, by outcome.",
	}, []string{"outcome"})

	// PushEventsTotal counts received push events by name and whether they triggered a refresh.
	PushEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webexmate_push_events_total",
		Help: "Total number of push events handled, by event and action (refresh, ignored, unhandled).",
	}, []string{"event", "action"})

	// NotificationsPostedTotal counts local system notifications by kind.
	NotificationsPostedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webexmate_notifications_posted_total",
		Help: "Total number of local notifications posted, by kind (provider_error, meeting_ready).",
	}, []string{"kind"})

	// StateTransitionsTotal counts applied store events by name.
	StateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webexmate_state_transitions_total",
		Help: "Total number of state events applied, by event.",
	}, []string{"event"})

	// PromptVisible is 1 while the connect prompt is shown.
	PromptVisible = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webexmate_prompt_visible",
		Help: "Whether the connect prompt is currently visible.",
	})

	// SessionConnected is 1 while the user is linked to Webex.
	SessionConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webexmate_session_connected",
		Help: "Whether the current user is linked to Webex.",
	})
)

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// ObserveState updates the state gauges and transition counter from one applied event.
func ObserveState(event string, connected bool, promptVisible bool) {
	StateTransitionsTotal.WithLabelValues(event).Inc()
	SessionConnected.Set(boolGauge(connected))
	PromptVisible.Set(boolGauge(promptVisible))
}
