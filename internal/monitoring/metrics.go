package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkInAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_attempts_total",
			Help: "Scan attempts by outcome status",
		},
		[]string{"status"},
	)

	checkInDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkin_duration_seconds",
			Help:    "Time from scan receipt to decision",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"stage"},
	)

	ticketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Tickets persisted by the issuer",
		},
	)

	issuanceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_issuance_failures_total",
			Help: "Order confirmations that did not issue tickets",
		},
		[]string{"reason"},
	)
)

// Metrics is the service-facing handle on the collectors above. A nil
// *Metrics is valid and records nothing.
type Metrics struct{}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) TrackCheckIn(status string, stage string, took time.Duration) {
	if m == nil {
		return
	}
	checkInAttempts.WithLabelValues(status).Inc()
	checkInDuration.WithLabelValues(stage).Observe(took.Seconds())
}

func (m *Metrics) TrackIssued(n int) {
	if m == nil {
		return
	}
	ticketsIssued.Add(float64(n))
}

func (m *Metrics) TrackIssueFailure(reason string) {
	if m == nil {
		return
	}
	issuanceFailures.WithLabelValues(reason).Inc()
}
