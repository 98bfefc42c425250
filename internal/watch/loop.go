package watch

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/conveyor/internal/engine"
	"git.home.luguber.info/inful/conveyor/internal/events"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
)

// DefaultDebounce is the quiet window after the first change notification
// before a pass starts, batching editor save bursts into one rebuild.
const DefaultDebounce = 300 * time.Millisecond

// Executor runs one execution pass. Satisfied by *engine.Engine.
type Executor interface {
	Execute(ctx context.Context, opts engine.PassOptions) (*engine.Result, error)
}

// Loop owns the mutable settings between passes and re-executes the engine
// whenever the change queue wakes it. Settings are snapshotted per pass by
// the engine, so mutating them between passes is safe.
type Loop struct {
	queue    *ChangeQueue
	exec     Executor
	bus      *events.Bus
	logger   *slog.Logger
	debounce time.Duration
	filter   []string
	settings engine.Settings

	// resetNext forces a cache reset on the next pass. Set after a pass
	// ends in an execution error so stale incremental state from the broken
	// pass cannot poison the recovery build. Cleared once consumed.
	resetNext bool
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

func WithDebounce(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.debounce = d
		}
	}
}

func WithFilter(pipelines ...string) LoopOption {
	return func(l *Loop) { l.filter = pipelines }
}

func WithSettings(settings engine.Settings) LoopOption {
	return func(l *Loop) { l.settings = settings }
}

func WithBus(bus *events.Bus) LoopOption {
	return func(l *Loop) { l.bus = bus }
}

// NewLoop creates a rebuild loop reading from queue and executing exec.
func NewLoop(queue *ChangeQueue, exec Executor, logger *slog.Logger, opts ...LoopOption) *Loop {
	l := &Loop{
		queue:    queue,
		exec:     exec,
		logger:   logger,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes an initial pass, then one pass per drained change batch until
// ctx is canceled. Errors from individual passes are reported via the bus
// and the log but do not stop the loop; only configuration errors do, since
// re-running a misconfigured graph cannot succeed.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.runPass(ctx, nil); err != nil {
		if ferrors.HasCategory(err, ferrors.CategoryConfig) {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.queue.Wake():
		}

		// Quiet window: further notifications during the timer merge into
		// the same batch via the queue's dedup set.
		timer := time.NewTimer(l.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		changed := l.queue.Drain()
		if len(changed) == 0 {
			continue
		}

		if err := l.runPass(ctx, changed); err != nil {
			if ferrors.HasCategory(err, ferrors.CategoryConfig) {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// RunOnce executes a single pass outside the watch loop.
func (l *Loop) RunOnce(ctx context.Context) (*engine.Result, error) {
	settings := l.consumeSettings()
	return l.exec.Execute(ctx, engine.PassOptions{Filter: l.filter, Settings: settings})
}

func (l *Loop) runPass(ctx context.Context, changed []string) error {
	if l.bus != nil {
		_ = l.bus.Publish(ctx, events.PassStarted{Changed: changed, At: time.Now()})
	}
	l.logger.Info("starting execution pass", slog.Int("changed", len(changed)))

	settings := l.consumeSettings()
	result, err := l.exec.Execute(ctx, engine.PassOptions{Filter: l.filter, Settings: settings})

	if err != nil && ferrors.HasCategory(err, ferrors.CategoryExecution) {
		l.resetNext = true
	}

	l.publishCompleted(ctx, result, err)
	if err != nil {
		l.logger.Warn("execution pass failed", slog.Any("error", err))
		return err
	}

	l.logger.Info("execution pass succeeded",
		slog.String("pass_id", result.PassID),
		slog.Duration("duration", result.Duration))
	return nil
}

// consumeSettings returns the settings for the next pass, applying and
// clearing a pending forced cache reset.
func (l *Loop) consumeSettings() engine.Settings {
	settings := l.settings
	if l.resetNext {
		settings.ResetCache = true
		l.resetNext = false
	}
	return settings
}

func (l *Loop) publishCompleted(ctx context.Context, result *engine.Result, err error) {
	if l.bus == nil {
		return
	}
	evt := events.PassCompleted{Err: err}
	if result != nil {
		evt.PassID = result.PassID
		evt.Succeeded = result.Succeeded()
		evt.Canceled = result.Canceled
		evt.Duration = result.Duration
		for _, docs := range result.Documents() {
			evt.Documents += len(docs)
		}
	}
	_ = l.bus.Publish(ctx, evt)
}
