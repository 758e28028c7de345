// Package metrics provides Prometheus metrics for the SECC session engine.
//
// Labels never carry session or connection identifiers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session outcomes.
const (
	OutcomeTerminate = "terminate"
	OutcomePause     = "pause"
	OutcomeError     = "error"
)

// Message directions.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

var (
	// Counters

	// ConnectionsTotal counts accepted connections by handshake result.
	ConnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "v2g_connections_total",
		Help: "Total number of accepted vehicle connections, by handshake result.",
	}, []string{"result"})

	// SessionsTotal counts finished sessions by outcome.
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "v2g_sessions_total",
		Help: "Total number of finished sessions, by outcome (terminate/pause/error).",
	}, []string{"outcome"})

	// MessagesTotal counts V2G messages by type and direction.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "v2g_messages_total",
		Help: "Total number of V2G messages exchanged, by message type and direction.",
	}, []string{"type", "direction"})

	// FailureResponsesTotal counts responses carrying a FAILED code.
	FailureResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "v2g_failure_responses_total",
		Help: "Total number of responses with a failure response code, by code.",
	}, []string{"code"})

	// TimeoutsTotal counts expired timers by kind.
	TimeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "v2g_timeouts_total",
		Help: "Total number of expired protocol timers, by kind.",
	}, []string{"kind"})

	// ResumptionsTotal counts SessionSetup requests that named a paused session.
	ResumptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "v2g_resumptions_total",
		Help: "Total number of resumption attempts, by result (joined/rejected).",
	}, []string{"result"})

	// ControlEventsTotal counts applied control events by kind.
	ControlEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "v2g_control_events_total",
		Help: "Total number of control events applied to sessions, by kind.",
	}, []string{"kind"})

	// Gauges

	// ActiveSessions tracks sessions currently running.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "v2g_active_sessions",
		Help: "Current number of running sessions.",
	})

	// Histograms

	// SessionDuration observes session lifetime from accept to close.
	SessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "v2g_session_duration_seconds",
		Help:    "Session lifetime from connection accept to close.",
		Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 3600, 7200, 14400},
	})
)

// RecordConnection counts an accepted connection.
func RecordConnection(result string) {
	ConnectionsTotal.WithLabelValues(result).Inc()
}

// RecordSessionStart marks a session as running.
func RecordSessionStart() {
	ActiveSessions.Inc()
}

// RecordSessionEnd records the outcome and lifetime of a session.
func RecordSessionEnd(outcome string, seconds float64) {
	ActiveSessions.Dec()
	SessionsTotal.WithLabelValues(outcome).Inc()
	SessionDuration.Observe(seconds)
}

// RecordMessage counts a message.
func RecordMessage(msgType, direction string) {
	MessagesTotal.WithLabelValues(msgType, direction).Inc()
}

// RecordFailureResponse counts a response with a failure code.
func RecordFailureResponse(code string) {
	FailureResponsesTotal.WithLabelValues(code).Inc()
}

// RecordTimeout counts an expired timer.
func RecordTimeout(kind string) {
	TimeoutsTotal.WithLabelValues(kind).Inc()
}

// RecordResumption counts a resumption attempt.
func RecordResumption(joined bool) {
	result := "rejected"
	if joined {
		result = "joined"
	}
	ResumptionsTotal.WithLabelValues(result).Inc()
}

// RecordControlEvent counts an applied control event.
func RecordControlEvent(kind string) {
	ControlEventsTotal.WithLabelValues(kind).Inc()
}
