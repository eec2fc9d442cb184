package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records counters for the quick-order pipeline.
type PipelineMetrics struct {
	sliceAttempts   *prometheus.CounterVec
	prepareDuration *prometheus.HistogramVec
	priceComputes   *prometheus.CounterVec
	checkouts       *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	sliceAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slice_attempts_total",
		Help: "Slice attempts by outcome (success, fallback, failure).",
	}, []string{"outcome"})
	prepareDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prepare_batch_duration_seconds",
		Help:    "Duration of full preparation batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	priceComputes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "price_computations_total",
		Help: "Price computations by result.",
	}, []string{"result"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Checkout submissions by result.",
	}, []string{"result"})
	reg.MustRegister(sliceAttempts, prepareDuration, priceComputes, checkouts)
	return &PipelineMetrics{
		sliceAttempts:   sliceAttempts,
		prepareDuration: prepareDuration,
		priceComputes:   priceComputes,
		checkouts:       checkouts,
	}
}

// IncSliceAttempt counts one slice attempt with the given outcome.
func (m *PipelineMetrics) IncSliceAttempt(outcome string) {
	if m == nil || m.sliceAttempts == nil {
		return
	}
	m.sliceAttempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObservePrepareDuration records the duration of a preparation batch.
func (m *PipelineMetrics) ObservePrepareDuration(result string, duration time.Duration) {
	if m == nil || m.prepareDuration == nil {
		return
	}
	m.prepareDuration.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

// IncPriceComputation counts one price computation.
func (m *PipelineMetrics) IncPriceComputation(result string) {
	if m == nil || m.priceComputes == nil {
		return
	}
	m.priceComputes.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncCheckout counts one checkout submission.
func (m *PipelineMetrics) IncCheckout(result string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
