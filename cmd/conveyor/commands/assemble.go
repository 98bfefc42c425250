// Package commands implements the conveyor CLI commands: single-pass build,
// watch mode with live preview, and config scaffolding.
package commands

import (
	"log/slog"
	"os"

	"github.com/go-git/go-billy/v5/osfs"

	"git.home.luguber.info/inful/conveyor/internal/config"
	"git.home.luguber.info/inful/conveyor/internal/dirmeta"
	"git.home.luguber.info/inful/conveyor/internal/engine"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
	"git.home.luguber.info/inful/conveyor/internal/metrics"
	"git.home.luguber.info/inful/conveyor/internal/modules"
	"git.home.luguber.info/inful/conveyor/internal/vfs"
)

// BuildEngine assembles a configured engine over the OS filesystem roots.
func BuildEngine(cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) (*engine.Engine, error) {
	if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create output root").
			WithContext("path", cfg.Output).
			Build()
	}
	if st, err := os.Stat(cfg.Input); err != nil || !st.IsDir() {
		return nil, ferrors.ConfigError("input root not found or not a directory").
			WithContext("path", cfg.Input).
			Build()
	}

	fs := vfs.New(osfs.New(cfg.Input), osfs.New(cfg.Output))
	e := engine.New(
		engine.WithFS(fs),
		engine.WithLogger(logger),
		engine.WithRecorder(recorder),
	)

	for _, pc := range cfg.Pipelines {
		if err := e.AddPipeline(buildPipeline(pc, cfg.Metadata)); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// buildPipeline maps one pipeline declaration onto the built-in modules,
// phase by phase.
func buildPipeline(pc config.Pipeline, meta config.MetadataConfig) *engine.Pipeline {
	var opts []engine.PipelineOption

	if len(pc.Dependencies) > 0 {
		opts = append(opts, engine.WithDependencies(pc.Dependencies...))
	}
	if pc.Isolated {
		opts = append(opts, engine.Isolated())
	}
	if pc.AlwaysListed {
		opts = append(opts, engine.AlwaysListed())
	}

	if len(pc.Input) > 0 {
		opts = append(opts, engine.WithModules(engine.PhaseInput, modules.ReadFiles(pc.Input...)))
	}

	var process []engine.Module
	if pc.FrontMatter {
		process = append(process, modules.FrontMatter())
	}
	if pc.DirectoryMetadata {
		process = append(process, dirmeta.New(dirmeta.Options{
			DefaultInherited: meta.DefaultInherited,
			DefaultReplace:   meta.DefaultReplace,
		}))
	}
	if pc.Markdown {
		process = append(process, modules.Markdown())
	}
	if len(process) > 0 {
		opts = append(opts, engine.WithModules(engine.PhaseProcess, process...))
	}

	if pc.Slug {
		opts = append(opts, engine.WithModules(engine.PhasePostProcess, modules.Slug()))
	}
	if pc.Write {
		opts = append(opts, engine.WithModules(engine.PhaseOutput, modules.WriteFiles()))
	}
	if pc.LinkCheck {
		opts = append(opts, engine.WithModules(engine.PhaseValidation, modules.LinkCheck()))
	}

	return engine.NewPipeline(pc.Name, opts...)
}

// engineSettings derives the per-pass settings from configuration.
func engineSettings(cfg *config.Config) engine.Settings {
	return engine.Settings{
		PreserveMetadataFiles: cfg.Metadata.PreserveFiles,
		Values:                cfg.Settings,
	}
}
