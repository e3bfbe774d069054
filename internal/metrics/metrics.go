// Package metrics exposes Prometheus collectors for planning and apply outcomes.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rl1809/slot-transfer/internal/core/domain"
)

const namespace = "slot_transfer"

const (
	OutcomeOK                 = "ok"
	OutcomeInvalidRequest     = "invalid_request"
	OutcomeInsufficientSource = "insufficient_source"
	OutcomeInsufficientTarget = "insufficient_target"
	OutcomeError              = "error"
)

// Metrics is nil-safe: every method is a no-op on a nil receiver.
type Metrics struct {
	plans     *prometheus.CounterVec
	records   prometheus.Histogram
	moved     prometheus.Counter
	conflicts prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Transfer plans computed, by outcome.",
		}, []string{"outcome"}),
		records: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_records",
			Help:      "Number of slot-to-slot records per plan.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		moved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_moved_total",
			Help:      "Item units moved by applied plans.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "apply_conflicts_total",
			Help:      "Apply attempts rejected because a snapshot went stale.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.plans, m.records, m.moved, m.conflicts)
	}
	return m
}

func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrInvalidRequest):
		return OutcomeInvalidRequest
	case errors.Is(err, domain.ErrInsufficientSource):
		return OutcomeInsufficientSource
	case errors.Is(err, domain.ErrInsufficientTargetCapacity):
		return OutcomeInsufficientTarget
	default:
		return OutcomeError
	}
}

func (m *Metrics) ObservePlan(plan domain.TransferPlan, err error) {
	if m == nil {
		return
	}
	m.plans.WithLabelValues(Outcome(err)).Inc()
	if len(plan.Records) > 0 {
		m.records.Observe(float64(len(plan.Records)))
	}
}

func (m *Metrics) ObserveApplied(moved int) {
	if m == nil {
		return
	}
	m.moved.Add(float64(moved))
}

func (m *Metrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}
