package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the credential module.
type Metrics struct {
	CredentialsIssued prometheus.Counter
	SigningFailures   prometheus.Counter
	SigningDuration   prometheus.Histogram
	ResolveDuration   prometheus.Histogram
}

// New creates a new Metrics instance with all credential module metrics registered.
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "address_cri_credentials_issued_total",
			Help: "Total number of verifiable credentials issued",
		}),
		SigningFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "address_cri_credential_signing_failures_total",
			Help: "Total number of credential signing failures",
		}),
		SigningDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "address_cri_credential_signing_duration_seconds",
			Help:    "Duration of credential signing operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "address_cri_resolve_session_duration_seconds",
			Help:    "Duration of access-token to session resolution",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementCredentialsIssued records a successful credential issuance.
func (m *Metrics) IncrementCredentialsIssued() {
	m.CredentialsIssued.Inc()
}

// IncrementSigningFailures records a failed signing attempt.
func (m *Metrics) IncrementSigningFailures() {
	m.SigningFailures.Inc()
}

// ObserveSigning records the duration of a signing operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSigning(start time.Time) {
	m.SigningDuration.Observe(time.Since(start).Seconds())
}

// ObserveResolve records the duration of a token resolution.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}
