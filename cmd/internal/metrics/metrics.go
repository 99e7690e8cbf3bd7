// Package metrics provides Prometheus observability for the auth subsystem.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors shared by the hub client, the session store,
// the activity reporter, and the transport layers.
//
// All methods are nil-safe so tests can pass a nil *Metrics.
type Metrics struct {
	// Hub round-trips by operation and outcome
	HubRequests *prometheus.CounterVec

	// Session records inserted into the store
	SessionsCreated prometheus.Counter

	// Activity heartbeats by outcome
	ActivityReports *prometheus.CounterVec

	// WebSocket handshakes by outcome
	WSHandshakes *prometheus.CounterVec
}

var (
	defOnce sync.Once
	def     *Metrics
)

// Default returns the process-wide Metrics instance registered on the
// default Prometheus registry. promauto panics on re-registration, so the
// instance is created once.
func Default() *Metrics {
	defOnce.Do(func() {
		def = &Metrics{
			HubRequests: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "hubgate_hub_requests_total",
				Help: "Total calls to the identity hub by operation and outcome",
			}, []string{"op", "outcome"}), // op: "exchange_code", "resolve_token"; outcome: "ok", "rejected", "error"

			SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
				Name: "hubgate_sessions_created_total",
				Help: "Total user records inserted into the session store",
			}),

			ActivityReports: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "hubgate_activity_reports_total",
				Help: "Total activity heartbeats by outcome",
			}, []string{"outcome"}), // outcome: "ok", "error", "dropped"

			WSHandshakes: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "hubgate_ws_handshakes_total",
				Help: "Total WebSocket handshakes by outcome",
			}, []string{"outcome"}), // outcome: "accepted", "rejected"
		}
	})
	return def
}

var gaugeOnce sync.Once

// RegisterSessionGauge exposes the current session-store size as a gauge.
// Safe to call more than once; only the first registration sticks.
func RegisterSessionGauge(size func() int) {
	gaugeOnce.Do(func() {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "hubgate_sessions_cached",
			Help: "User records currently cached in the session store",
		}, func() float64 { return float64(size()) })
	})
}

// IncHubRequest records one hub round-trip.
func (m *Metrics) IncHubRequest(op, outcome string) {
	if m != nil {
		m.HubRequests.WithLabelValues(op, outcome).Inc()
	}
}

// IncSessionCreated records one record insertion.
func (m *Metrics) IncSessionCreated() {
	if m != nil {
		m.SessionsCreated.Inc()
	}
}

// IncActivityReport records one heartbeat attempt.
func (m *Metrics) IncActivityReport(outcome string) {
	if m != nil {
		m.ActivityReports.WithLabelValues(outcome).Inc()
	}
}

// IncWSHandshake records one WebSocket handshake.
func (m *Metrics) IncWSHandshake(outcome string) {
	if m != nil {
		m.WSHandshakes.WithLabelValues(outcome).Inc()
	}
}
