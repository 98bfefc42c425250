package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/conveyor/internal/config"
	"git.home.luguber.info/inful/conveyor/internal/events"
	"git.home.luguber.info/inful/conveyor/internal/logfields"
	"git.home.luguber.info/inful/conveyor/internal/metrics"
	"git.home.luguber.info/inful/conveyor/internal/notify"
	"git.home.luguber.info/inful/conveyor/internal/passlog"
	"git.home.luguber.info/inful/conveyor/internal/preview"
	"git.home.luguber.info/inful/conveyor/internal/watch"
)

// RunWatch starts watch mode: filesystem watcher, debounced rebuild loop,
// and the optional preview server, NATS notifier, pass log, and scheduled
// rebuilds. Blocks until ctx is canceled or a configuration error surfaces.
func RunWatch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	recorder, metricsHandler := buildRecorder(cfg)

	e, err := BuildEngine(cfg, logger, recorder)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	defer bus.Close()

	queue := watch.NewChangeQueue()
	loop := watch.NewLoop(queue, e, logger,
		watch.WithDebounce(cfg.Watch.Debounce),
		watch.WithSettings(engineSettings(cfg)),
		watch.WithBus(bus))

	watcher, err := watch.NewWatcher(cfg.Input, queue, bus, logger)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error { return loop.Run(ctx) })
	group.Go(func() error { return watcher.Run(ctx) })

	if cfg.Preview.Enabled {
		server := preview.NewServer(cfg.Output, logger, previewOptions(metricsHandler)...)
		group.Go(func() error { return server.Run(ctx, cfg.Preview.Addr, bus) })
	}

	if cfg.Notify.Enabled {
		notifier, err := notify.NewNotifier(cfg.Notify.URL, cfg.Notify.Subject, logger)
		if err != nil {
			return err
		}
		defer notifier.Close()
		group.Go(func() error { return notifier.Run(ctx, bus) })
	}

	if cfg.PassLog.Path != "" {
		store, err := passlog.NewSQLiteStore(cfg.PassLog.Path)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		group.Go(func() error { return consumePassLog(ctx, bus, store, logger) })
	}

	if cfg.Watch.Schedule != "" {
		stop, err := startSchedule(cfg.Watch.Schedule, queue, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func buildRecorder(cfg *config.Config) (metrics.Recorder, http.Handler) {
	if !cfg.Preview.Enabled || !cfg.Preview.Metrics {
		return metrics.NoopRecorder{}, nil
	}
	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)
	return recorder, metrics.HTTPHandler(registry)
}

func previewOptions(metricsHandler http.Handler) []preview.ServerOption {
	if metricsHandler == nil {
		return nil
	}
	return []preview.ServerOption{preview.WithMetricsHandler(metricsHandler)}
}

// consumePassLog persists every completed pass seen on the bus.
func consumePassLog(ctx context.Context, bus *events.Bus, store *passlog.SQLiteStore, logger *slog.Logger) error {
	ch, unsub := events.Subscribe[events.PassCompleted](bus, 16)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			rec := passlog.Record{
				PassID:    evt.PassID,
				StartedAt: time.Now().Add(-evt.Duration),
				Duration:  evt.Duration,
				Documents: evt.Documents,
			}
			switch {
			case evt.Canceled:
				rec.Outcome = passlog.OutcomeCanceled
			case evt.Succeeded:
				rec.Outcome = passlog.OutcomeSucceeded
			default:
				rec.Outcome = passlog.OutcomeFailed
			}
			if evt.Err != nil {
				rec.Error = evt.Err.Error()
			}
			if err := store.Append(ctx, rec); err != nil {
				logger.Warn("pass log write failed", logfields.Error(err))
			}
		}
	}
}

// startSchedule wakes the rebuild loop on a cron schedule, independent of
// filesystem changes.
func startSchedule(expr string, queue *watch.ChangeQueue, logger *slog.Logger) (func(), error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(func() {
			logger.Debug("scheduled rebuild triggered")
			queue.NotifyChanged("schedule:" + expr)
		}),
		gocron.WithName("scheduled-rebuild"),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	scheduler.Start()
	logger.Info("scheduled rebuilds enabled", slog.String("schedule", expr))
	return func() { _ = scheduler.Shutdown() }, nil
}
