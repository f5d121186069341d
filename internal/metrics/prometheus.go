package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector backed by Prometheus.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	runs             *prometheus.CounterVec
	runIterations    prometheus.Histogram
	runDuration      *prometheus.HistogramVec
	validationErrors *prometheus.CounterVec
}

var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer (prometheus.DefaultRegisterer if nil)
//   - namespace: metrics namespace ("pinplan" if empty)
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "pinplan"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "planner",
			Name:      "runs_total",
			Help:      "Total planning runs by outcome.",
		}, []string{"outcome"})

		p.runIterations = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "planner",
			Name:      "run_iterations",
			Help:      "Greedy loop iterations per planning run.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		})

		p.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "planner",
			Name:      "run_duration_seconds",
			Help:      "Planning run wall time in seconds by outcome.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"outcome"})

		p.validationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "validator",
			Name:      "errors_total",
			Help:      "Validation findings by error type.",
		}, []string{"type"})

		p.reg.MustRegister(p.runs, p.runIterations, p.runDuration, p.validationErrors)
	})
}

// RecordRun implements Collector.
func (p *PrometheusCollector) RecordRun(outcome string, iterations int, seconds float64) {
	p.ensureRegistered()
	p.runs.WithLabelValues(outcome).Inc()
	p.runIterations.Observe(float64(iterations))
	p.runDuration.WithLabelValues(outcome).Observe(seconds)
}

// RecordValidationError implements Collector.
func (p *PrometheusCollector) RecordValidationError(kind string) {
	p.ensureRegistered()
	p.validationErrors.WithLabelValues(kind).Inc()
}
