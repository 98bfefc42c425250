package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/conveyor/internal/config"
	"git.home.luguber.info/inful/conveyor/internal/engine"
	"git.home.luguber.info/inful/conveyor/internal/logfields"
	"git.home.luguber.info/inful/conveyor/internal/metrics"
	"git.home.luguber.info/inful/conveyor/internal/passlog"
)

// BuildOptions are flags for the build command.
type BuildOptions struct {
	// Pipelines filters the pass to the named pipelines plus their
	// transitive dependencies. Empty runs everything.
	Pipelines []string

	// ResetCache discards incremental state before the pass.
	ResetCache bool
}

// RunBuild executes a single pass and records it in the pass log when one is
// configured.
func RunBuild(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts BuildOptions) error {
	e, err := BuildEngine(cfg, logger, metrics.NoopRecorder{})
	if err != nil {
		return err
	}

	settings := engineSettings(cfg)
	settings.ResetCache = opts.ResetCache

	result, passErr := e.Execute(ctx, engine.PassOptions{
		Filter:   opts.Pipelines,
		Settings: settings,
	})

	if result != nil {
		logPassOutcome(logger, result, passErr)
		if cfg.PassLog.Path != "" {
			if logErr := appendPassLog(ctx, cfg.PassLog.Path, result, passErr); logErr != nil {
				logger.Warn("pass log write failed", logfields.Error(logErr))
			}
		}
	}
	return passErr
}

func logPassOutcome(logger *slog.Logger, result *engine.Result, passErr error) {
	documents := 0
	for _, docs := range result.Documents() {
		documents += len(docs)
	}
	if passErr != nil {
		logger.Error("pass failed",
			logfields.PassID(result.PassID),
			logfields.DurationMS(float64(result.Duration.Milliseconds())),
			slog.Any("failed", result.Failed()),
			slog.Any("skipped", result.Skipped()),
			logfields.Error(passErr))
		return
	}
	logger.Info("pass succeeded",
		logfields.PassID(result.PassID),
		logfields.DurationMS(float64(result.Duration.Milliseconds())),
		logfields.Documents(documents))
}

func appendPassLog(ctx context.Context, path string, result *engine.Result, passErr error) error {
	store, err := passlog.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return store.RecordResult(ctx, result, passErr)
}
