package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	eventsDispatched *prometheus.CounterVec
	droppedWrites    *prometheus.CounterVec
	listenerErrors   *prometheus.CounterVec
	lastPrice        *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		eventsDispatched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barflow_events_dispatched_total",
				Help: "Total number of feed events dispatched by kind",
			},
			[]string{"kind"},
		),
		droppedWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barflow_dropped_writes_total",
				Help: "Bar writes swallowed at the dispatch boundary",
			},
			[]string{"reason"},
		),
		listenerErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barflow_listener_errors_total",
				Help: "Failures raised by external fan-out listeners",
			},
			[]string{"listener"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "barflow_last_price",
				Help: "Last trade price observed for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "barflow_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordEvent counts a dispatched feed event by kind.
func (r *Recorder) RecordEvent(kind string) {
	r.eventsDispatched.WithLabelValues(kind).Inc()
}

// RecordDroppedWrite counts a swallowed persistence failure.
func (r *Recorder) RecordDroppedWrite(reason string) {
	r.droppedWrites.WithLabelValues(reason).Inc()
}

// RecordListenerError counts a failure raised by a fan-out listener.
func (r *Recorder) RecordListenerError(listener string) {
	r.listenerErrors.WithLabelValues(listener).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
