package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the lifecycle engine's Prometheus collectors.
type Metrics struct {
	Transitions       *prometheus.CounterVec
	RejectedEvents    *prometheus.CounterVec
	TamperDetections  *prometheus.CounterVec
	ClockRegressions  prometheus.Counter
	JobsFired         *prometheus.CounterVec
	JobsScheduled     prometheus.Gauge
	SweepDuration     prometheus.Histogram
	SweepExpired      prometheus.Counter
	RemovalFailures   prometheus.Counter
	ReputationLookups *prometheus.CounterVec
	Notifications     *prometheus.CounterVec
}

// New registers all collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trialgate_lifecycle_transitions_total",
			Help: "Lifecycle state transitions by target state",
		}, []string{"to"}),
		RejectedEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trialgate_lifecycle_rejected_events_total",
			Help: "Inbound events rejected by the lifecycle engine, by error code",
		}, []string{"code"}),
		TamperDetections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trialgate_tamper_detections_total",
			Help: "Active trial records force-expired by the tamper validator, by reason",
		}, []string{"reason"}),
		ClockRegressions: f.NewCounter(prometheus.CounterOpts{
			Name: "trialgate_clock_regressions_total",
			Help: "Observed backward movements of the wall clock",
		}),
		JobsFired: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trialgate_scheduler_jobs_fired_total",
			Help: "Scheduled jobs fired by kind",
		}, []string{"kind"}),
		JobsScheduled: f.NewGauge(prometheus.GaugeOpts{
			Name: "trialgate_scheduler_jobs_pending",
			Help: "Jobs currently waiting in the scheduler",
		}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trialgate_sweep_duration_seconds",
			Help:    "Duration of reconciliation sweeps",
			Buckets: prometheus.DefBuckets,
		}),
		SweepExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "trialgate_sweep_expired_total",
			Help: "Trials expired by the reconciliation sweep rather than their expiry job",
		}),
		RemovalFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "trialgate_removal_failures_total",
			Help: "Failed attempts to remove a member from the gated resource",
		}),
		ReputationLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trialgate_reputation_lookups_total",
			Help: "IP reputation lookups by outcome",
		}, []string{"outcome"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trialgate_notifications_total",
			Help: "Outbound notification requests by template and result",
		}, []string{"template", "result"}),
	}
}

func (m *Metrics) IncrementTransition(to string) {
	if m != nil {
		m.Transitions.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) IncrementRejected(code string) {
	if m != nil {
		m.RejectedEvents.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) IncrementTamper(reason string) {
	if m != nil {
		m.TamperDetections.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncrementClockRegression() {
	if m != nil {
		m.ClockRegressions.Inc()
	}
}

func (m *Metrics) IncrementJobFired(kind string) {
	if m != nil {
		m.JobsFired.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SetJobsScheduled(n int) {
	if m != nil {
		m.JobsScheduled.Set(float64(n))
	}
}

func (m *Metrics) ObserveSweep(seconds float64, expired int) {
	if m != nil {
		m.SweepDuration.Observe(seconds)
		m.SweepExpired.Add(float64(expired))
	}
}

func (m *Metrics) IncrementRemovalFailure() {
	if m != nil {
		m.RemovalFailures.Inc()
	}
}

func (m *Metrics) IncrementReputation(outcome string) {
	if m != nil {
		m.ReputationLookups.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementNotification(template, result string) {
	if m != nil {
		m.Notifications.WithLabelValues(template, result).Inc()
	}
}
