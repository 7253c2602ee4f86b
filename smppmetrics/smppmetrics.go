// Package smppmetrics wraps the prometheus collectors for the handful of
// quantities the transport worker exposes for observability: unacked
// submit count, throttled state, sequence allocation, and reconnect
// count.
package smppmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps the collectors for a single bind, pre-bound to its
// system_id label so call sites don't repeat it.
type Metrics struct {
	registry *prometheus.Registry
	systemID string

	unacked    *prometheus.GaugeVec
	throttled  *prometheus.GaugeVec
	sequence   *prometheus.GaugeVec
	reconnects *prometheus.CounterVec
	submits    *prometheus.CounterVec
}

// New builds a Metrics instance labeled by systemID, registering its
// collectors on a fresh, private registry.
func New(systemID string) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		systemID: systemID,
		unacked: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "smpp",
				Name:      "unacked_submits",
				Help:      "Outbound submit_sm requests sent but not yet acknowledged.",
			},
			[]string{"system_id"},
		),
		throttled: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "smpp",
				Name:      "throttled",
				Help:      "1 if the bind is currently throttled (bus consumption paused by ESME_RTHROTTLED), else 0.",
			},
			[]string{"system_id"},
		),
		sequence: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "smpp",
				Name:      "sequence_number",
				Help:      "Last sequence number allocated for this bind.",
			},
			[]string{"system_id"},
		),
		reconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smpp",
				Name:      "reconnects_total",
				Help:      "Total reconnect attempts made by the supervising factory.",
			},
			[]string{"system_id"},
		),
		submits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smpp",
				Name:      "submits_total",
				Help:      "Total submit_sm outcomes, partitioned by result.",
			},
			[]string{"system_id", "result"},
		),
	}
	registry.MustRegister(m.unacked, m.throttled, m.sequence, m.reconnects, m.submits)
	return m
}

// SetUnacked records the current number of submit_sm requests awaiting
// submit_sm_resp.
func (m *Metrics) SetUnacked(n int) {
	m.unacked.WithLabelValues(m.systemID).Set(float64(n))
}

// SetThrottled records whether the bind is currently throttled.
func (m *Metrics) SetThrottled(throttled bool) {
	v := 0.0
	if throttled {
		v = 1.0
	}
	m.throttled.WithLabelValues(m.systemID).Set(v)
}

// SetSequence records the last sequence number allocated for this bind.
func (m *Metrics) SetSequence(seq uint32) {
	m.sequence.WithLabelValues(m.systemID).Set(float64(seq))
}

// IncReconnect counts one reconnect attempt by the supervising factory.
func (m *Metrics) IncReconnect() {
	m.reconnects.WithLabelValues(m.systemID).Inc()
}

// ObserveSubmit counts one submit_sm outcome, labeled by result (e.g.
// "ok", "throttled", "failed").
func (m *Metrics) ObserveSubmit(result string) {
	m.submits.WithLabelValues(m.systemID, result).Inc()
}

// Handler returns an HTTP handler serving this Metrics' registry for
// Prometheus scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
