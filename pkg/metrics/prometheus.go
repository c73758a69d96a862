package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	providerCalls *prometheus.CounterVec
	cacheResults  *prometheus.CounterVec
	computations  *prometheus.CounterVec
	unresolved    *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latestValue   *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a recorder registered with the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder on reg. Tests pass a fresh
// prometheus.NewRegistry() so collectors never collide.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		providerCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finkpi_provider_calls_total",
				Help: "Statement provider calls by statement type and outcome",
			},
			[]string{"statement", "outcome"},
		),
		cacheResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finkpi_cache_requests_total",
				Help: "KPI cache lookups by result (hit, miss)",
			},
			[]string{"result"},
		),
		computations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finkpi_computations_total",
				Help: "KPI table computations by outcome",
			},
			[]string{"outcome"},
		),
		unresolved: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finkpi_unresolved_fields_total",
				Help: "Canonical fields no statement row could be matched to",
			},
			[]string{"field"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finkpi_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latestValue: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finkpi_latest_kpi_value",
				Help: "Latest period value of a KPI for a ticker",
			},
			[]string{"ticker", "metric"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finkpi_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordProviderCall counts one provider request.
func (r *Recorder) RecordProviderCall(statement string, err error) {
	r.providerCalls.WithLabelValues(statement, outcome(err)).Inc()
}

// RecordCache records a cache hit or miss.
func (r *Recorder) RecordCache(result string) {
	r.cacheResults.WithLabelValues(result).Inc()
}

// RecordComputation counts one KPI computation. The ticker is not a label.
func (r *Recorder) RecordComputation(_ string, err error) {
	r.computations.WithLabelValues(outcome(err)).Inc()
}

// RecordUnresolved counts a field that could not be resolved.
func (r *Recorder) RecordUnresolved(field string) {
	r.unresolved.WithLabelValues(field).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatest sets the latest value of metric for ticker.
func (r *Recorder) RecordLatest(ticker, metric string, value float64) {
	r.latestValue.WithLabelValues(ticker, metric).Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordProviderCall(string, error) {}
func (Nop) RecordCache(string) {}
func (Nop) RecordComputation(string, error) {}
func (Nop) RecordUnresolved(string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatest(string, string, float64) {}
func (Nop) RecordLatency(string, float64) {}
