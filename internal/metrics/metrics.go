// Package metrics exposes Prometheus instrumentation for meal planning and
// a few process health helpers used by the admin surfaces.
//
//	rec := metrics.NewRecorder(prometheus.DefaultRegisterer)
//	svc := planner.NewService(inv, catalog, plans, planner.WithObserver(rec))
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records planner events as Prometheus metrics.
type Recorder struct {
	generated  prometheus.Counter
	served     *prometheus.CounterVec
	recovered  prometheus.Counter
	conflicts  prometheus.Counter
	generation prometheus.Histogram
}

// NewRecorder registers the planner metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		generated: factory.NewCounter(prometheus.CounterOpts{
			Name: "mealmatch_plans_generated_total",
			Help: "Total number of weekly plans generated and stored",
		}),
		served: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mealmatch_plans_served_total",
			Help: "Total number of weekly plans returned, by source",
		}, []string{"source"}),
		recovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "mealmatch_plan_payload_recovered_total",
			Help: "Stored plans whose payload could not be decoded and were served empty",
		}),
		conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "mealmatch_plan_insert_conflicts_total",
			Help: "Plan inserts that lost to a concurrent insert for the same week",
		}),
		generation: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mealmatch_plan_generation_seconds",
			Help:    "Time spent scoring and building a weekly plan",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

// PlanGenerated records a newly stored plan and how long it took.
func (r *Recorder) PlanGenerated(d time.Duration) {
	r.generated.Inc()
	r.generation.Observe(d.Seconds())
}

// PlanServed records a plan returned to a caller.
func (r *Recorder) PlanServed(source string) {
	r.served.WithLabelValues(source).Inc()
}

// PayloadRecovered records a stored payload that could not be decoded.
func (r *Recorder) PayloadRecovered() {
	r.recovered.Inc()
}

// InsertConflict records a lost insert race.
func (r *Recorder) InsertConflict() {
	r.conflicts.Inc()
}
