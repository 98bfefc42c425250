package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
	"git.home.luguber.info/inful/conveyor/internal/logfields"
	"git.home.luguber.info/inful/conveyor/internal/metrics"
	"git.home.luguber.info/inful/conveyor/internal/observability"
)

// pipeState is the per-pipeline mutable state of one pass. Each state is
// written only by the goroutine currently executing that pipeline; cross
// reads of status happen after level barriers.
type pipeState struct {
	pipeline   *Pipeline
	result     *PipelineResult
	docs       []*docmodel.Document
	phasesDone int
}

// pass drives a single execution of the schedule.
type pass struct {
	engine *Engine
	sched  *schedule
	states map[string]*pipeState
	ec     *ExecContext
	logger *slog.Logger
	result *Result

	// outputs holds each pipeline's collection as of its last completed
	// phase, for consumption by dependent pipelines. Guarded by outMu since
	// isolated pipelines publish concurrently with synchronized ones.
	outMu    sync.RWMutex
	outputs  map[string][]*docmodel.Document
	canceled sync.Once
}

func newPass(e *Engine, passID string, settings Settings, sched *schedule) *pass {
	logger := e.logger.With(logfields.PassID(passID))
	p := &pass{
		engine:  e,
		sched:   sched,
		states:  make(map[string]*pipeState),
		logger:  logger,
		outputs: make(map[string][]*docmodel.Document),
		result: &Result{
			PassID:    passID,
			StartedAt: time.Now(),
			Pipelines: make(map[string]*PipelineResult),
		},
	}
	p.ec = &ExecContext{
		PassID:   passID,
		Settings: settings,
		FS:       e.fs,
		Cache:    e.cache,
		Logger:   logger,
		Recorder: e.recorder,
		outputs:  p.publishedOutputs,
	}
	for _, pl := range sched.selected() {
		st := &pipeState{
			pipeline: pl,
			result:   &PipelineResult{Name: pl.Name()},
		}
		p.states[pl.Name()] = st
		p.result.Pipelines[pl.Name()] = st.result
	}
	return p
}

func (p *pass) publishedOutputs(pipeline string) []*docmodel.Document {
	p.outMu.RLock()
	defer p.outMu.RUnlock()
	return p.outputs[pipeline]
}

func (p *pass) publish(pipeline string, docs []*docmodel.Document) {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	p.outputs[pipeline] = docs
}

func (p *pass) markCanceled() {
	p.canceled.Do(func() { p.result.Canceled = true })
}

// run executes isolated pipelines concurrently with the synchronized
// phase/level groups, then finalizes statuses and the aggregate outcome.
func (p *pass) run(ctx context.Context) *Result {
	ctx = observability.WithPassID(ctx, p.result.PassID)

	var isolatedGroup errgroup.Group
	for _, pl := range p.sched.isolated {
		st := p.states[pl.Name()]
		isolatedGroup.Go(func() error {
			for _, phase := range Phases {
				if !p.runPipelinePhase(ctx, st, phase) {
					return nil
				}
			}
			return nil
		})
	}

phases:
	for _, phase := range Phases {
		for _, level := range p.sched.levels {
			if ctx.Err() != nil {
				p.markCanceled()
				break phases
			}
			var group errgroup.Group
			for _, pl := range level {
				st := p.states[pl.Name()]
				if st.result.Status != StatusPending {
					continue
				}
				if p.skipIfUpstreamFailed(st, phase) {
					continue
				}
				group.Go(func() error {
					p.runPipelinePhase(ctx, st, phase)
					return nil
				})
			}
			_ = group.Wait()
		}
	}

	_ = isolatedGroup.Wait()

	// Anything still pending either completed every phase or was overtaken
	// by cancellation mid-pass. Pipelines that finished all phases count as
	// succeeded even on a canceled pass, so callers know which outputs are
	// valid.
	for _, st := range p.states {
		if st.result.Status == StatusPending {
			if p.result.Canceled && st.phasesDone < len(Phases) {
				st.result.Status = StatusCanceled
				continue
			}
			st.result.Status = StatusSucceeded
			st.result.Documents = st.docs
		}
	}

	p.result.Duration = time.Since(p.result.StartedAt)
	return p.result
}

// skipIfUpstreamFailed marks st skipped when any dependency has failed, been
// skipped, or been canceled, and reports whether it did so.
func (p *pass) skipIfUpstreamFailed(st *pipeState, phase Phase) bool {
	for _, dep := range st.pipeline.Dependencies() {
		depState, ok := p.states[dep]
		if !ok {
			continue
		}
		switch depState.result.Status {
		case StatusFailed, StatusSkipped, StatusCanceled:
			st.result.Status = StatusSkipped
			st.result.Phase = phase
			st.result.Err = ferrors.UpstreamError("upstream pipeline failed").
				WithContext("pipeline", st.pipeline.Name()).
				WithContext("upstream", dep).
				Build()
			p.logger.Warn("skipping pipeline, upstream failed",
				logfields.Pipeline(st.pipeline.Name()),
				slog.String("upstream", dep))
			p.engine.recorder.IncPipelineResult(st.pipeline.Name(), metrics.ResultSkipped)
			return true
		}
	}
	return false
}

// runPipelinePhase executes one phase of one pipeline and updates its state.
// It returns false when the pipeline cannot continue (failure or cancel).
func (p *pass) runPipelinePhase(ctx context.Context, st *pipeState, phase Phase) bool {
	name := st.pipeline.Name()
	modules := st.pipeline.Modules(phase)
	if len(modules) == 0 {
		st.phasesDone++
		p.publish(name, st.docs)
		return true
	}

	ctx = observability.WithPipeline(ctx, name)
	ctx = observability.WithPhase(ctx, phase.String())

	start := time.Now()
	docs := st.docs
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			st.result.Status = StatusCanceled
			p.markCanceled()
			return false
		}
		out, err := m.Execute(ctx, p.ec, docs)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				st.result.Status = StatusCanceled
				p.markCanceled()
				return false
			}
			st.result.Status = StatusFailed
			st.result.Phase = phase
			st.result.Module = m.Name()
			st.result.Err = ferrors.WrapError(err, ferrors.CategoryModule, "module failed").
				WithContext("pipeline", name).
				WithContext("phase", phase.String()).
				WithContext("module", m.Name()).
				Build()
			p.logger.Error("module failed",
				logfields.Pipeline(name),
				logfields.Phase(phase.String()),
				logfields.Module(m.Name()),
				logfields.Error(err))
			p.engine.recorder.IncModuleFailure(name, m.Name())
			p.engine.recorder.IncPipelineResult(name, metrics.ResultFailed)
			return false
		}
		docs = out
	}
	st.docs = docs
	st.phasesDone++
	p.publish(name, docs)

	p.engine.recorder.ObservePhaseDuration(name, phase.String(), time.Since(start))
	p.engine.recorder.AddDocumentsProcessed(name, phase.String(), len(docs))
	p.logger.Debug("phase completed",
		logfields.Pipeline(name),
		logfields.Phase(phase.String()),
		logfields.Documents(len(docs)))
	return true
}
