// Package observability wires structured logging for the process: handler
// setup from configuration plus context-scoped log fields so every record
// emitted during a pass carries its pass and pipeline identity.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogConfig selects the handler for the process-wide logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// Format is text or json. Defaults to text.
	Format string
	// Output defaults to stderr.
	Output io.Writer
}

// Setup builds a logger from cfg and installs it as the slog default.
func Setup(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogContext carries pass-scoped identifiers through a context.Context.
type LogContext struct {
	PassID   string
	Pipeline string
	Phase    string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithPassID adds a pass ID to the context.
func WithPassID(ctx context.Context, passID string) context.Context {
	lc := extractLogContext(ctx)
	lc.PassID = passID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithPipeline adds a pipeline name to the context.
func WithPipeline(ctx context.Context, pipeline string) context.Context {
	lc := extractLogContext(ctx)
	lc.Pipeline = pipeline
	return context.WithValue(ctx, logContextKey, lc)
}

// WithPhase adds a phase name to the context.
func WithPhase(ctx context.Context, phase string) context.Context {
	lc := extractLogContext(ctx)
	lc.Phase = phase
	return context.WithValue(ctx, logContextKey, lc)
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

func extractLogContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	attrs := []slog.Attr{}

	if lc.PassID != "" {
		attrs = append(attrs, slog.String("pass.id", lc.PassID))
	}
	if lc.Pipeline != "" {
		attrs = append(attrs, slog.String("pipeline", lc.Pipeline))
	}
	if lc.Phase != "" {
		attrs = append(attrs, slog.String("phase", lc.Phase))
	}
	return attrs
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelInfo, msg, append(getLogAttrs(ctx), attrs...)...)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelWarn, msg, append(getLogAttrs(ctx), attrs...)...)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelError, msg, append(getLogAttrs(ctx), attrs...)...)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelDebug, msg, append(getLogAttrs(ctx), attrs...)...)
}
