package migration

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a type change request.
const (
	OutcomeMigrated  = "migrated"
	OutcomeUnchanged = "unchanged"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Metrics collects type change statistics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requests       *prometheus.CounterVec
	droppedFields  *prometheus.CounterVec
	affected       prometheus.Histogram
	impactDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semtype",
			Subsystem: "migration",
			Name:      "requests_total",
			Help:      "Type change requests by outcome.",
		}, []string{"outcome"}),
		droppedFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semtype",
			Subsystem: "migration",
			Name:      "dropped_fields_total",
			Help:      "Target fields left empty by a type change, by reason.",
		}, []string{"reason"}),
		affected: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "semtype",
			Subsystem: "impact",
			Name:      "affected_instances",
			Help:      "Number of instances affected by a type change.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		impactDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "semtype",
			Subsystem: "impact",
			Name:      "duration_seconds",
			Help:      "Time spent analyzing the impact of a type change.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.droppedFields, m.affected, m.impactDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) request(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) dropped(reason DropReason) {
	if m == nil {
		return
	}
	m.droppedFields.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) observeAffected(n int, d time.Duration) {
	if m == nil {
		return
	}
	m.affected.Observe(float64(n))
	m.impactDuration.Observe(d.Seconds())
}
