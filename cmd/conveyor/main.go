package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/conveyor/cmd/conveyor/commands"
	"git.home.luguber.info/inful/conveyor/internal/config"
	"git.home.luguber.info/inful/conveyor/internal/logfields"
	"git.home.luguber.info/inful/conveyor/internal/observability"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"conveyor.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Pipelines  []string `short:"p" help:"Run only these pipelines (plus their dependencies)"`
		ResetCache bool     `help:"Discard incremental state before the pass"`
	} `cmd:"" help:"Run one execution pass over the configured pipelines"`

	Watch struct{} `cmd:"" help:"Watch the input root and re-execute on changes, with live preview"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`
}

func main() {
	kctx := kong.Parse(&CLI)

	// .env values never override the process environment.
	_ = godotenv.Load()

	if kctx.Command() == "init" {
		logger := observability.Setup(observability.LogConfig{})
		if err := commands.InitConfig(CLI.Config, CLI.Init.Force); err != nil {
			logger.Error("init failed", logfields.Error(err))
			os.Exit(1)
		}
		logger.Info("configuration written", logfields.Path(CLI.Config))
		return
	}

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		observability.Setup(observability.LogConfig{}).Error("configuration error", logfields.Error(err))
		os.Exit(1)
	}

	level := string(cfg.Logging.Level)
	if CLI.Verbose {
		level = "debug"
	}
	logger := observability.Setup(observability.LogConfig{
		Level:  level,
		Format: string(cfg.Logging.Format),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch kctx.Command() {
	case "build":
		err = commands.RunBuild(ctx, cfg, logger, commands.BuildOptions{
			Pipelines:  CLI.Build.Pipelines,
			ResetCache: CLI.Build.ResetCache,
		})
	case "watch":
		err = commands.RunWatch(ctx, cfg, logger)
	default:
		logger.Error("unknown command", slog.String("command", kctx.Command()))
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", logfields.Error(err))
		os.Exit(1)
	}
}
