package waitlist

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeInvalid   = "invalid"
	outcomeCsrf      = "csrf_rejected"
	outcomeRateLimit = "rate_limited"
	outcomeFailed    = "error"
)

type signupMetrics struct {
	signups *prometheus.CounterVec
}

// newSignupMetrics returns nil when reg is nil; the methods tolerate that.
func newSignupMetrics(reg prometheus.Registerer) *signupMetrics {
	if reg == nil {
		return nil
	}

	m := &signupMetrics{
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waitlist_signups_total",
			Help: "Waitlist signup attempts by outcome.",
		}, []string{"outcome"}),
	}
	if err := reg.Register(m.signups); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			m.signups = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil
		}
	}
	return m
}

func (m *signupMetrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(outcome).Inc()
}
