package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions        *prometheus.CounterVec
	StoreErrors      *prometheus.CounterVec
	FallbackActive   prometheus.Gauge
	CircuitBreakerTr *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trialgate_ratelimit_decisions_total",
			Help: "Rate limit decisions by action and outcome",
		}, []string{"action", "outcome"}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trialgate_ratelimit_store_errors_total",
			Help: "Rate limit store failures by action and applied fail mode",
		}, []string{"action", "fail_mode"}),
		FallbackActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "trialgate_ratelimit_fallback_active",
			Help: "1 while the in-memory fallback store serves decisions",
		}),
		CircuitBreakerTr: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trialgate_ratelimit_circuit_transitions_total",
			Help: "Circuit breaker transitions for the rate limit store",
		}, []string{"to"}),
	}
}

func (m *Metrics) IncrementDecision(action string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	m.Decisions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) IncrementStoreError(action, failMode string) {
	if m != nil {
		m.StoreErrors.WithLabelValues(action, failMode).Inc()
	}
}

func (m *Metrics) SetFallbackActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.FallbackActive.Set(1)
		m.CircuitBreakerTr.WithLabelValues("open").Inc()
		return
	}
	m.FallbackActive.Set(0)
	m.CircuitBreakerTr.WithLabelValues("closed").Inc()
}
