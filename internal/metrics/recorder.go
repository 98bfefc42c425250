// Package metrics provides observability hooks for pass and pipeline
// execution. Components receive a Recorder by injection; the default
// NoopRecorder makes metrics collection zero-cost when not configured.
package metrics

import "time"

// ResultLabel enumerates pipeline result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultSkipped  ResultLabel = "skipped"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for pass and pipeline metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObservePassDuration(d time.Duration)
	IncPassOutcome(outcome ResultLabel)
	ObservePhaseDuration(pipeline string, phase string, d time.Duration)
	IncPipelineResult(pipeline string, result ResultLabel)
	AddDocumentsProcessed(pipeline string, phase string, n int)
	IncModuleFailure(pipeline string, module string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePassDuration(time.Duration)                   {}
func (NoopRecorder) IncPassOutcome(ResultLabel)                          {}
func (NoopRecorder) ObservePhaseDuration(string, string, time.Duration)  {}
func (NoopRecorder) IncPipelineResult(string, ResultLabel)               {}
func (NoopRecorder) AddDocumentsProcessed(string, string, int)           {}
func (NoopRecorder) IncModuleFailure(string, string)                     {}
