// Package telemetry holds the Prometheus collectors for authentication and
// the registration lifecycle.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the application's collectors. Build it once with New or
// NewWith; promauto registers everything on construction.
type Metrics struct {
	AuthRejections     *prometheus.CounterVec
	Logins             *prometheus.CounterVec
	Registrations      prometheus.Counter
	PaymentTransitions *prometheus.CounterVec
	ParticipantDeletes prometheus.Counter
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuthRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "confhub_auth_rejections_total",
			Help: "Requests rejected by the authorization middleware",
		}, []string{"domain", "reason"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "confhub_logins_total",
			Help: "Login attempts by domain and outcome",
		}, []string{"domain", "outcome"}),
		Registrations: f.NewCounter(prometheus.CounterOpts{
			Name: "confhub_registrations_total",
			Help: "Participant registrations created",
		}),
		PaymentTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "confhub_payment_transitions_total",
			Help: "Payment status changes by source and target status",
		}, []string{"from", "to"}),
		ParticipantDeletes: f.NewCounter(prometheus.CounterOpts{
			Name: "confhub_participant_deletes_total",
			Help: "Participant records deleted",
		}),
	}
}

// Nil-safe helpers so components can run without metrics in tests.

func (m *Metrics) AuthRejected(domain, reason string) {
	if m == nil {
		return
	}
	m.AuthRejections.WithLabelValues(domain, reason).Inc()
}

func (m *Metrics) Login(domain, outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(domain, outcome).Inc()
}

func (m *Metrics) Registered() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}

func (m *Metrics) PaymentTransition(from, to string) {
	if m == nil {
		return
	}
	m.PaymentTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ParticipantDeleted() {
	if m == nil {
		return
	}
	m.ParticipantDeletes.Inc()
}
