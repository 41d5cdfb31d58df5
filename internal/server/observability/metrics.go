// Package observability exposes Prometheus metrics and health probes for the
// authkeeper server.
package observability

import "github.com/prometheus/client_golang/prometheus"

// Login outcomes recorded by Metrics.
const (
	OutcomeSuccess            = "success"
	OutcomeMissingFields      = "missing_fields"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInvalidToken       = "invalid_token"
	OutcomeExpired            = "expired"
	OutcomeError              = "error"
)

// Metrics holds the counters the auth service updates.
type Metrics struct {
	LoginsTotal       *prometheus.CounterVec
	SessionReadsTotal *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authkeeper_logins_total",
				Help: "Credential sign-in attempts by outcome",
			},
			[]string{"outcome"},
		),
		SessionReadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authkeeper_session_reads_total",
				Help: "Session reads by outcome",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(m.LoginsTotal, m.SessionReadsTotal)

	return m
}

// RecordLogin counts one sign-in attempt. Safe on a nil receiver.
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

// RecordSessionRead counts one session read. Safe on a nil receiver.
func (m *Metrics) RecordSessionRead(outcome string) {
	if m == nil {
		return
	}
	m.SessionReadsTotal.WithLabelValues(outcome).Inc()
}
