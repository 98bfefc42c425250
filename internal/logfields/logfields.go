package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPassID     = "pass_id"
	KeyPipeline   = "pipeline"
	KeyPhase      = "phase"
	KeyModule     = "module"
	KeyDocuments  = "documents"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func PassID(id string) slog.Attr      { return slog.String(KeyPassID, id) }
func Pipeline(name string) slog.Attr  { return slog.String(KeyPipeline, name) }
func Phase(name string) slog.Attr     { return slog.String(KeyPhase, name) }
func Module(name string) slog.Attr    { return slog.String(KeyModule, name) }
func Documents(n int) slog.Attr       { return slog.Int(KeyDocuments, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
