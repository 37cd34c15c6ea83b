package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for case submission and workflow routing.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	CasesSubmitted      *prometheus.CounterVec
	Transitions         *prometheus.CounterVec
	TransitionConflicts prometheus.Counter
	StoreUnavailable    prometheus.Counter
	SubmitDuration      prometheus.Histogram
	ActDuration         prometheus.Histogram
}

// New registers all caseflow metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CasesSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_cases_submitted_total",
			Help: "Total number of cases submitted, by case type",
		}, []string{"case_type"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_transitions_total",
			Help: "Total number of applied workflow transitions, by action",
		}, []string{"action"}),
		TransitionConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_transition_conflicts_total",
			Help: "Optimistic write conflicts seen while acting on a case",
		}),
		StoreUnavailable: f.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_store_unavailable_total",
			Help: "Store calls that failed transiently or timed out",
		}),
		SubmitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "caseflow_submit_duration_seconds",
			Help:    "Duration of Submit operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ActDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "caseflow_act_duration_seconds",
			Help:    "Duration of Act operations including retries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementSubmitted records a successful submission.
func (m *Metrics) IncrementSubmitted(caseType string) {
	if m == nil {
		return
	}
	m.CasesSubmitted.WithLabelValues(caseType).Inc()
}

// IncrementTransition records an applied transition.
func (m *Metrics) IncrementTransition(action string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(action).Inc()
}

// IncrementConflict records a lost optimistic write.
func (m *Metrics) IncrementConflict() {
	if m == nil {
		return
	}
	m.TransitionConflicts.Inc()
}

// IncrementStoreUnavailable records a transient store failure.
func (m *Metrics) IncrementStoreUnavailable() {
	if m == nil {
		return
	}
	m.StoreUnavailable.Inc()
}

// ObserveSubmit records the duration of a Submit operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSubmit(start time.Time) {
	if m == nil {
		return
	}
	m.SubmitDuration.Observe(time.Since(start).Seconds())
}

// ObserveAct records the duration of an Act operation.
func (m *Metrics) ObserveAct(start time.Time) {
	if m == nil {
		return
	}
	m.ActDuration.Observe(time.Since(start).Seconds())
}
