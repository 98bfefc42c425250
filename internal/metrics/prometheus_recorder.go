package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	passDuration    prom.Histogram
	passOutcome     *prom.CounterVec
	phaseDuration   *prom.HistogramVec
	pipelineResults *prom.CounterVec
	documents       *prom.CounterVec
	moduleFailures  *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		passDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "conveyor",
			Name:      "pass_duration_seconds",
			Help:      "Total duration of execution passes",
			Buckets:   prom.DefBuckets,
		}),
		passOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "conveyor",
			Name:      "pass_outcomes_total",
			Help:      "Pass outcomes by final status",
		}, []string{"outcome"}),
		phaseDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "conveyor",
			Name:      "phase_duration_seconds",
			Help:      "Duration of pipeline phases",
			Buckets:   prom.DefBuckets,
		}, []string{"pipeline", "phase"}),
		pipelineResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "conveyor",
			Name:      "pipeline_results_total",
			Help:      "Pipeline result counts by outcome",
		}, []string{"pipeline", "result"}),
		documents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "conveyor",
			Name:      "documents_processed_total",
			Help:      "Documents produced per pipeline phase",
		}, []string{"pipeline", "phase"}),
		moduleFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "conveyor",
			Name:      "module_failures_total",
			Help:      "Module faults by pipeline and module",
		}, []string{"pipeline", "module"}),
	}
	reg.MustRegister(pr.passDuration, pr.passOutcome, pr.phaseDuration, pr.pipelineResults, pr.documents, pr.moduleFailures)
	return pr
}

func (p *PrometheusRecorder) ObservePassDuration(d time.Duration) {
	p.passDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPassOutcome(outcome ResultLabel) {
	p.passOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObservePhaseDuration(pipeline, phase string, d time.Duration) {
	p.phaseDuration.WithLabelValues(pipeline, phase).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPipelineResult(pipeline string, result ResultLabel) {
	p.pipelineResults.WithLabelValues(pipeline, string(result)).Inc()
}

func (p *PrometheusRecorder) AddDocumentsProcessed(pipeline, phase string, n int) {
	p.documents.WithLabelValues(pipeline, phase).Add(float64(n))
}

func (p *PrometheusRecorder) IncModuleFailure(pipeline, module string) {
	p.moduleFailures.WithLabelValues(pipeline, module).Inc()
}

// HTTPHandler returns an http.Handler serving Prometheus metrics for reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
