package engine

import (
	"log/slog"
	"maps"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
	"git.home.luguber.info/inful/conveyor/internal/incremental"
	"git.home.luguber.info/inful/conveyor/internal/metrics"
	"git.home.luguber.info/inful/conveyor/internal/vfs"
)

// Settings is the immutable per-pass snapshot of global settings. The watch
// loop owns the only mutable copy and hands a snapshot to each Execute call;
// nothing mutates settings while a pass is in flight.
type Settings struct {
	// ResetCache clears the incremental cache before the pass runs. The
	// watch loop sets it transiently after a pass ends in an execution
	// error, so corrupted incremental state cannot propagate.
	ResetCache bool

	// PreserveMetadataFiles keeps directory-metadata documents in the output
	// set instead of dropping them after merging.
	PreserveMetadataFiles bool

	// Values carries arbitrary global settings readable by modules.
	Values map[string]any
}

// Value looks up a global setting.
func (s Settings) Value(key string) (any, bool) {
	v, ok := s.Values[key]
	return v, ok
}

// Snapshot returns a deep-enough copy: the Values map is copied so later
// mutation of the owner's copy cannot be observed by an in-flight pass.
func (s Settings) Snapshot() Settings {
	values := make(map[string]any, len(s.Values))
	maps.Copy(values, s.Values)
	s.Values = values
	return s
}

// ExecContext is handed to every module invocation. It exposes read access
// to the settings snapshot, the filesystem collaborator, the incremental
// cache, and the pass-scoped logger. Cancellation travels separately in the
// context.Context parameter of Module.Execute.
type ExecContext struct {
	PassID   string
	Settings Settings
	FS       vfs.FS
	Cache    *incremental.Cache
	Logger   *slog.Logger
	Recorder metrics.Recorder

	outputs func(pipeline string) []*docmodel.Document
}

// Outputs returns another pipeline's document collection as of its last
// completed phase. It is only well-defined for pipelines the caller's
// pipeline declares as dependencies: the phase-aligned scheduling barrier
// guarantees those are settled for the current phase.
func (ec *ExecContext) Outputs(pipeline string) []*docmodel.Document {
	if ec.outputs == nil {
		return nil
	}
	return ec.outputs(pipeline)
}
