package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the polling booth service.
// Every method is safe on a nil receiver so services can run without metrics.
type Metrics struct {
	VotesCommitted       *prometheus.CounterVec
	DuplicateAttempts    *prometheus.CounterVec
	VerificationOutcomes *prometheus.CounterVec
	LoginAttempts        *prometheus.CounterVec
	AuditEntries         *prometheus.CounterVec
	HTTPLatency          *prometheus.HistogramVec
}

// New creates and registers all metrics on reg. Pass prometheus.DefaultRegisterer
// in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VotesCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pollbooth_votes_committed_total",
			Help: "Total ballots committed to the ledger by booth",
		}, []string{"booth_id"}),

		DuplicateAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pollbooth_duplicate_vote_attempts_total",
			Help: "Total attempts to verify or commit a voter who already voted",
		}, []string{"booth_id"}),

		VerificationOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pollbooth_verification_outcomes_total",
			Help: "Biometric gate outcomes by gate and result",
		}, []string{"gate", "result"}), // gate: "face", "fingerprint"; result: "passed", "failed"

		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pollbooth_officer_logins_total",
			Help: "Officer login attempts by result",
		}, []string{"result"}),

		AuditEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pollbooth_audit_entries_total",
			Help: "Audit entries appended by classified status",
		}, []string{"status"}),

		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pollbooth_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) IncrementVotesCommitted(boothID string) {
	if m != nil {
		m.VotesCommitted.WithLabelValues(boothID).Inc()
	}
}

func (m *Metrics) IncrementDuplicateAttempt(boothID string) {
	if m != nil {
		m.DuplicateAttempts.WithLabelValues(boothID).Inc()
	}
}

// IncrementVerificationOutcome records one biometric gate decision.
func (m *Metrics) IncrementVerificationOutcome(gate string, passed bool) {
	if m != nil {
		result := "failed"
		if passed {
			result = "passed"
		}
		m.VerificationOutcomes.WithLabelValues(gate, result).Inc()
	}
}

func (m *Metrics) IncrementLogin(success bool) {
	if m != nil {
		result := "failure"
		if success {
			result = "success"
		}
		m.LoginAttempts.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementAuditEntry(status string) {
	if m != nil {
		m.AuditEntries.WithLabelValues(status).Inc()
	}
}

// ObserveHTTPLatency records how long a request took to serve.
func (m *Metrics) ObserveHTTPLatency(method, route, status string, d time.Duration) {
	if m != nil {
		m.HTTPLatency.WithLabelValues(method, route, status).Observe(d.Seconds())
	}
}
