package routefilter

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with routefilter-specific context. It provides
// structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler. If handler is nil,
// uses the default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{Logger: slog.New(handler)}
}

// WithFilter adds a filter name field to the logger.
func (l *Logger) WithFilter(name string) *Logger {
	return &Logger{Logger: l.Logger.With("filter", name)}
}

// WithVehicle adds a vehicle field to the logger.
func (l *Logger) WithVehicle(vehicle int) *Logger {
	return &Logger{Logger: l.Logger.With("vehicle", vehicle)}
}

// LogReject logs a rejected candidate with the rejecting filter.
func (l *Logger) LogReject(filterName string, deltaSize int) {
	l.Debug("candidate rejected",
		"filter", filterName,
		"delta_size", deltaSize,
	)
}

// LogAcceptStats logs aggregate accept statistics.
func (l *Logger) LogAcceptStats(accepts, rejects, lnsHits int64) {
	l.Debug("accept statistics",
		"accepts", accepts,
		"rejects", rejects,
		"lns_hits", lnsHits,
	)
}

// LogSynchronize logs a synchronization with the committed objective value.
func (l *Logger) LogSynchronize(objectiveValue int64) {
	l.Debug("synchronized",
		"objective_value", objectiveValue,
	)
}
