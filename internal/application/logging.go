package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/resource-calendar/internal/logging"
	"github.com/example/resource-calendar/internal/persistence"
	"github.com/example/resource-calendar/internal/registry"
	"github.com/example/resource-calendar/internal/scheduler"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateName):
		return "duplicate"
	case errors.Is(err, ErrResourceConflict):
		return "conflict"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, persistence.ErrInvalidDocument):
		return "invalid_document"
	case errors.Is(err, persistence.ErrIO):
		return "persistence"
	case errors.Is(err, scheduler.ErrRuleViolation):
		return "rule_violation"
	case errors.Is(err, scheduler.ErrInvalidDate), errors.Is(err, registry.ErrEmptyName):
		return "validation"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
