// Package engine implements the pipeline/phase execution engine: named
// pipelines with declared dependencies, phased partially-parallel
// scheduling, and per-pass result aggregation.
//
// The dependency rule is phase-aligned: a pipeline begins phase N only after
// its own phase N-1 and every dependency's phase N have completed, so a
// dependent never consumes a dependency's stale output from an earlier
// phase. Isolated pipelines opt out of this synchronization entirely.
package engine

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
	"git.home.luguber.info/inful/conveyor/internal/incremental"
	"git.home.luguber.info/inful/conveyor/internal/metrics"
	"git.home.luguber.info/inful/conveyor/internal/vfs"
)

// Engine holds the configured pipeline graph and the collaborators shared by
// all passes. Registration is the only mutation point and must happen before
// the first Execute call.
type Engine struct {
	pipelines map[string]*Pipeline
	fs        vfs.FS
	cache     *incremental.Cache
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFS sets the filesystem collaborator handed to modules.
func WithFS(fs vfs.FS) Option {
	return func(e *Engine) { e.fs = fs }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithCache sets the incremental cache shared across passes.
func WithCache(c *incremental.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// New creates an engine with no pipelines registered.
func New(opts ...Option) *Engine {
	e := &Engine{
		pipelines: make(map[string]*Pipeline),
		cache:     incremental.NewCache(),
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddPipeline registers a pipeline. Names must be unique.
func (e *Engine) AddPipeline(p *Pipeline) error {
	if p.Name() == "" {
		return ferrors.ConfigError("pipeline name cannot be empty").Build()
	}
	if _, exists := e.pipelines[p.Name()]; exists {
		return ferrors.ConfigError("duplicate pipeline name").
			WithContext("pipeline", p.Name()).
			Build()
	}
	e.pipelines[p.Name()] = p
	return nil
}

// Pipeline returns a registered pipeline by name.
func (e *Engine) Pipeline(name string) (*Pipeline, bool) {
	p, ok := e.pipelines[name]
	return p, ok
}

// Cache exposes the engine's incremental cache.
func (e *Engine) Cache() *incremental.Cache {
	return e.cache
}

// PassOptions parameterize one execution pass.
type PassOptions struct {
	// Filter limits which pipelines run. Dependency resolution still
	// considers the full graph: filtered-in pipelines pull in their
	// transitive dependencies, and AlwaysListed pipelines always run.
	Filter []string

	// Settings is the immutable snapshot for this pass.
	Settings Settings
}

// Execute runs one full pass. Configuration errors (cycles, missing or
// isolated dependencies, unknown filter names) abort before any execution
// with a nil result. Otherwise a Result is always returned; its Err method
// yields the aggregate outcome, which Execute also returns.
func (e *Engine) Execute(ctx context.Context, opts PassOptions) (*Result, error) {
	if err := validateGraph(e.pipelines); err != nil {
		return nil, err
	}
	sched, err := buildSchedule(e.pipelines, opts.Filter)
	if err != nil {
		return nil, err
	}

	settings := opts.Settings.Snapshot()
	if settings.ResetCache {
		e.cache.Reset()
	}

	passID := uuid.NewString()
	p := newPass(e, passID, settings, sched)

	p.logger.Info("starting execution pass",
		slog.Int("pipelines", len(p.states)),
		slog.Int("isolated", len(sched.isolated)),
		slog.Int("levels", len(sched.levels)))

	result := p.run(ctx)

	e.recordPassMetrics(result)
	p.logger.Info("execution pass finished",
		slog.Bool("success", result.Succeeded()),
		slog.Duration("duration", result.Duration),
		slog.Any("failed", result.Failed()),
		slog.Any("skipped", result.Skipped()))

	return result, result.Err()
}

func (e *Engine) recordPassMetrics(result *Result) {
	e.recorder.ObservePassDuration(result.Duration)
	switch {
	case result.Canceled:
		e.recorder.IncPassOutcome(metrics.ResultCanceled)
	case result.Succeeded():
		e.recorder.IncPassOutcome(metrics.ResultSuccess)
	default:
		e.recorder.IncPassOutcome(metrics.ResultFailed)
	}
	for _, pr := range result.Pipelines {
		if pr.Status == StatusSucceeded {
			e.recorder.IncPipelineResult(pr.Name, metrics.ResultSuccess)
		}
	}
}
