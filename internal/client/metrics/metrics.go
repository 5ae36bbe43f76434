// Package metrics exposes Prometheus counters for the token lifecycle.
//
// All methods are safe to call on a nil *Collectors, so components can be
// built without metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "sessionkeeper"

// Refresh results.
const (
	RefreshSuccess  = "success"
	RefreshReused   = "reused"
	RefreshRejected = "rejected"
	RefreshError    = "error"
	// the session ended or changed while the exchange ran
	RefreshDiscarded = "discarded"
)

type Collectors struct {
	refreshes    *prometheus.CounterVec
	coalesced    prometheus.Counter
	outcomes     *prometheus.CounterVec
	terminations *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Token refresh flights by result.",
		}, []string{"result"}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_coalesced_waiters_total",
			Help:      "Callers that joined a refresh already in flight.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fault_outcomes_total",
			Help:      "Classified failed responses by outcome.",
		}, []string{"outcome"}),
		terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_terminations_total",
			Help:      "Sessions torn down by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(c.refreshes, c.coalesced, c.outcomes, c.terminations)
	}
	return c
}

func (c *Collectors) Refresh(result string) {
	if c == nil {
		return
	}
	c.refreshes.WithLabelValues(result).Inc()
}

func (c *Collectors) Coalesced() {
	if c == nil {
		return
	}
	c.coalesced.Inc()
}

func (c *Collectors) Outcome(outcome string) {
	if c == nil {
		return
	}
	c.outcomes.WithLabelValues(outcome).Inc()
}

func (c *Collectors) Termination(reason string) {
	if c == nil {
		return
	}
	c.terminations.WithLabelValues(reason).Inc()
}
