package engine

import (
	"time"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
)

// Status is the per-pipeline outcome of one execution pass.
type Status string

const (
	// StatusPending marks a pipeline that has not finished the pass yet.
	// It never appears in a finalized Result.
	StatusPending Status = ""

	StatusSucceeded Status = "succeeded"

	// StatusFailed marks a pipeline whose module chain returned an error.
	StatusFailed Status = "failed"

	// StatusSkipped marks a pipeline that did not run because one of its
	// dependencies failed or was skipped in the same pass.
	StatusSkipped Status = "skipped"

	// StatusCanceled marks a pipeline aborted by context cancellation.
	StatusCanceled Status = "canceled"
)

// PipelineResult records the outcome of one pipeline for one pass.
type PipelineResult struct {
	Name   string
	Status Status

	// Phase and Module identify where a failure occurred, when Status is
	// StatusFailed.
	Phase  Phase
	Module string
	Err    error

	// Documents is the pipeline's final output collection. Nil unless the
	// pipeline completed every phase.
	Documents []*docmodel.Document
}

// Result is the outcome of one full execution pass.
type Result struct {
	PassID    string
	StartedAt time.Time
	Duration  time.Duration
	Canceled  bool
	Pipelines map[string]*PipelineResult
}

// Succeeded reports whether every pipeline in the pass succeeded.
func (r *Result) Succeeded() bool {
	if r.Canceled {
		return false
	}
	for _, pr := range r.Pipelines {
		if pr.Status != StatusSucceeded {
			return false
		}
	}
	return true
}

// Documents returns the per-pipeline final output collections for pipelines
// that completed the pass.
func (r *Result) Documents() map[string][]*docmodel.Document {
	out := make(map[string][]*docmodel.Document, len(r.Pipelines))
	for name, pr := range r.Pipelines {
		if pr.Status == StatusSucceeded {
			out[name] = pr.Documents
		}
	}
	return out
}

// Outputs returns the final documents of a single pipeline.
func (r *Result) Outputs(pipeline string) []*docmodel.Document {
	if pr, ok := r.Pipelines[pipeline]; ok {
		return pr.Documents
	}
	return nil
}

// Failed returns the names of pipelines that failed.
func (r *Result) Failed() []string {
	return r.withStatus(StatusFailed)
}

// Skipped returns the names of pipelines skipped due to upstream failures.
func (r *Result) Skipped() []string {
	return r.withStatus(StatusSkipped)
}

func (r *Result) withStatus(status Status) []string {
	var names []string
	for name, pr := range r.Pipelines {
		if pr.Status == status {
			names = append(names, name)
		}
	}
	return names
}

// Err returns the aggregate outcome error: nil on success, a cancel error if
// the pass was interrupted, otherwise an execution error naming the failed
// and skipped pipelines.
func (r *Result) Err() error {
	if r.Canceled {
		return ferrors.CancelError("pass canceled").
			WithContext("pass_id", r.PassID).
			Build()
	}
	failed := r.Failed()
	skipped := r.Skipped()
	if len(failed) == 0 && len(skipped) == 0 {
		return nil
	}
	return ferrors.ExecutionError("execution pass had failures").
		WithContext("pass_id", r.PassID).
		WithContext("failed", failed).
		WithContext("skipped", skipped).
		Build()
}
