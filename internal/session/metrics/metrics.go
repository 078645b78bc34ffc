package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the session module.
// Tracks session lifecycle counts and critical path durations.
type Metrics struct {
	SessionsCreated        prometheus.Counter
	SessionsConfirmed      prometheus.Counter
	SessionsExpired        prometheus.Counter
	CreateSessionDuration  prometheus.Histogram
	SubmitAddressDuration  prometheus.Histogram
	ConfirmAddressDuration prometheus.Histogram
}

// New creates a new Metrics instance with all session module metrics registered.
func New() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "address_cri_sessions_created_total",
			Help: "Total number of verification sessions created",
		}),
		SessionsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "address_cri_sessions_confirmed_total",
			Help: "Total number of sessions reaching ADDRESS_CONFIRMED",
		}),
		SessionsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "address_cri_sessions_expired_total",
			Help: "Total number of sessions observed past their expiry",
		}),
		CreateSessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "address_cri_create_session_duration_seconds",
			Help:    "Duration of CreateSession operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		SubmitAddressDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "address_cri_submit_addresses_duration_seconds",
			Help:    "Duration of SubmitAddresses operations (includes registry lookup)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ConfirmAddressDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "address_cri_confirm_address_duration_seconds",
			Help:    "Duration of ConfirmAddress operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementSessionsCreated records a successful session creation.
func (m *Metrics) IncrementSessionsCreated() {
	m.SessionsCreated.Inc()
}

// IncrementSessionsConfirmed records a session reaching ADDRESS_CONFIRMED.
func (m *Metrics) IncrementSessionsConfirmed() {
	m.SessionsConfirmed.Inc()
}

// IncrementSessionsExpired records a session observed past its expiry.
func (m *Metrics) IncrementSessionsExpired() {
	m.SessionsExpired.Inc()
}

// ObserveCreateSession records the duration of a CreateSession operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreateSession(start time.Time) {
	m.CreateSessionDuration.Observe(time.Since(start).Seconds())
}

// ObserveSubmitAddresses records the duration of a SubmitAddresses operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSubmitAddresses(start time.Time) {
	m.SubmitAddressDuration.Observe(time.Since(start).Seconds())
}

// ObserveConfirmAddress records the duration of a ConfirmAddress operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveConfirmAddress(start time.Time) {
	m.ConfirmAddressDuration.Observe(time.Since(start).Seconds())
}
