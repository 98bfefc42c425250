package errors

import (
	"errors"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid pipeline graph").
			WithSeverity(SeverityFatal).
			WithContext("pipeline", "content").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid pipeline graph" {
			t.Errorf("expected message 'invalid pipeline graph', got %s", err.Message())
		}

		pipeline, exists := err.Context().GetString("pipeline")
		if !exists || pipeline != "content" {
			t.Errorf("expected context pipeline=content, got %v", pipeline)
		}
	})

	t.Run("Error detection", func(t *testing.T) {
		err := ConfigError("test error").Build()

		if _, ok := AsClassified(err); !ok {
			t.Error("expected error to be classified")
		}
		if !HasCategory(err, CategoryConfig) {
			t.Error("expected error to have config category")
		}
		if HasCategory(err, CategoryModule) {
			t.Error("expected category check to be exact")
		}
		if !err.IsFatal() {
			t.Error("expected config error to be fatal")
		}
	})

	t.Run("Plain errors are not classified", func(t *testing.T) {
		err := errors.New("plain")

		if HasCategory(err, CategoryConfig) {
			t.Error("plain error should not match any category")
		}
		if GetCategory(err) != CategoryInternal {
			t.Errorf("expected fallback category %s, got %s", CategoryInternal, GetCategory(err))
		}
		if GetSeverity(err) != SeverityError {
			t.Errorf("expected fallback severity %s, got %s", SeverityError, GetSeverity(err))
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Fluent API", func(t *testing.T) {
		originalErr := errors.New("original error")
		err := WrapError(originalErr, CategoryFileSystem, "write failed").
			Warning().
			WithContext("path", "public/index.html").
			WithContext("attempt", 2).
			Build()

		if err.Category() != CategoryFileSystem {
			t.Errorf("expected category %s, got %s", CategoryFileSystem, err.Category())
		}
		if err.Severity() != SeverityWarning {
			t.Errorf("expected severity %s, got %s", SeverityWarning, err.Severity())
		}
		if !errors.Is(err, originalErr) {
			t.Error("expected error to wrap original error")
		}

		path, _ := err.Context().GetString("path")
		if path != "public/index.html" {
			t.Errorf("expected path context 'public/index.html', got %s", path)
		}
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
		}{
			{"ConfigError", ConfigError("test"), CategoryConfig, SeverityFatal},
			{"ValidationError", ValidationError("test"), CategoryValidation, SeverityFatal},
			{"ModuleError", ModuleError("test"), CategoryModule, SeverityError},
			{"UpstreamError", UpstreamError("test"), CategoryUpstream, SeverityWarning},
			{"CancelError", CancelError("test"), CategoryCancel, SeverityError},
			{"ExecutionError", ExecutionError("test"), CategoryExecution, SeverityError},
			{"ContentError", ContentError("test"), CategoryContent, SeverityError},
			{"FileSystemError", FileSystemError("test"), CategoryFileSystem, SeverityError},
			{"InternalError", InternalError("test"), CategoryInternal, SeverityError},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				if err.Category() != tt.category {
					t.Errorf("expected category %s, got %s", tt.category, err.Category())
				}
				if err.Severity() != tt.severity {
					t.Errorf("expected severity %s, got %s", tt.severity, err.Severity())
				}
			})
		}
	})
}

func TestErrorContext(t *testing.T) {
	t.Run("Context operations", func(t *testing.T) {
		ctx := make(ErrorContext)
		ctx = ctx.Set("key1", "value1")
		ctx = ctx.Set("key2", 42)

		value1, exists1 := ctx.GetString("key1")
		if !exists1 || value1 != "value1" {
			t.Errorf("expected key1=value1, got %v", value1)
		}

		value2, exists2 := ctx.Get("key2")
		if !exists2 || value2 != 42 {
			t.Errorf("expected key2=42, got %v", value2)
		}

		_, exists3 := ctx.Get("nonexistent")
		if exists3 {
			t.Error("expected nonexistent key to not exist")
		}
	})

	t.Run("Context merge", func(t *testing.T) {
		ctx1 := make(ErrorContext)
		ctx1 = ctx1.Set("key1", "value1")
		ctx1 = ctx1.Set("shared", "original")

		ctx2 := make(ErrorContext)
		ctx2 = ctx2.Set("key2", "value2")
		ctx2 = ctx2.Set("shared", "overridden")

		merged := ctx1.Merge(ctx2)

		value1, _ := merged.GetString("key1")
		value2, _ := merged.GetString("key2")
		shared, _ := merged.GetString("shared")

		if value1 != "value1" {
			t.Errorf("expected key1=value1, got %s", value1)
		}
		if value2 != "value2" {
			t.Errorf("expected key2=value2, got %s", value2)
		}
		if shared != "overridden" {
			t.Errorf("expected shared=overridden, got %s", shared)
		}
	})

	t.Run("WithContext returns new error", func(t *testing.T) {
		base := ModuleError("boom").WithContext("module", "markdown").Build()
		extended := base.WithContext("pipeline", "content")

		if _, exists := base.Context().Get("pipeline"); exists {
			t.Error("expected base error context to be unchanged")
		}
		pipeline, _ := extended.Context().GetString("pipeline")
		if pipeline != "content" {
			t.Errorf("expected pipeline=content, got %s", pipeline)
		}
		module, _ := extended.Context().GetString("module")
		if module != "markdown" {
			t.Errorf("expected module context to carry over, got %s", module)
		}
	})
}
