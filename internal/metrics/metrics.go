// Package metrics exposes Prometheus collectors for planning runs.
package metrics

import (
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Recorder records planning outcomes.
type Recorder struct {
	runs        *prometheus.CounterVec
	orders      *prometheus.CounterVec
	units       prometheus.Counter
	escalations prometheus.Counter
	duration    prometheus.Histogram
}

// NewRecorder registers the planner collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reorder_plan_runs_total",
			Help: "Planning runs by outcome.",
		}, []string{"status"}),
		orders: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reorder_orders_total",
			Help: "Orders proposed, by warehouse.",
		}, []string{"warehouse"}),
		units: factory.NewCounter(prometheus.CounterOpts{
			Name: "reorder_ordered_units_total",
			Help: "Units across all proposed orders.",
		}),
		escalations: factory.NewCounter(prometheus.CounterOpts{
			Name: "reorder_escalations_total",
			Help: "Required on-hand increases issued after stockouts.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "reorder_plan_duration_seconds",
			Help:    "Wall time of planning runs.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveSuccess records a completed run.
func (r *Recorder) ObserveSuccess(orders []domain.Order, escalations int, elapsed time.Duration) {
	r.runs.WithLabelValues(StatusSuccess).Inc()
	r.duration.Observe(elapsed.Seconds())
	for _, order := range orders {
		r.orders.WithLabelValues(order.Warehouse.String()).Inc()
		r.units.Add(float64(order.Quantity))
	}
	r.escalations.Add(float64(escalations))
}

// ObserveFailure records an aborted run.
func (r *Recorder) ObserveFailure(elapsed time.Duration) {
	r.runs.WithLabelValues(StatusFailure).Inc()
	r.duration.Observe(elapsed.Seconds())
}
