package logger

import (
	"context"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/lmittmann/tint"
)

// Logger wraps slog.Logger with contextual fields
type Logger struct {
	*slog.Logger
	level slog.Level
}

// New creates a new logger
func New(level, format string) *Logger {
	var handler slog.Handler

	logLevel := parseLevel(level)

	switch format {
	case "json":
		opts := &slog.HandlerOptions{
			Level: logLevel,
		}
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		// Use tint for beautiful colored console output
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.TimeOnly, // HH:MM:SS
			AddSource:  false,          // Don't show source file by default
		})
	}

	return &Logger{
		Logger: slog.New(handler),
		level:  logLevel,
	}
}

// WithContext returns a logger with trace_id from context
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if traceID := ctx.Value("trace_id"); traceID != nil {
		return &Logger{
			Logger: l.With("trace_id", traceID),
			level:  l.level,
		}
	}
	return l
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{
		Logger: l.With(args...),
		level:  l.level,
	}
}

// WithExecutionID adds execution_id to logger context
func (l *Logger) WithExecutionID(executionID string) *Logger {
	return &Logger{
		Logger: l.With("execution_id", executionID),
		level:  l.level,
	}
}

// WithWorkflowID adds workflow_id to logger context, for log lines that
// span an entire run rather than one node (registration, scheduling,
// level transitions).
func (l *Logger) WithWorkflowID(workflowID string) *Logger {
	return &Logger{
		Logger: l.With("workflow_id", workflowID),
		level:  l.level,
	}
}

// WithNodeID adds node_id to logger context
func (l *Logger) WithNodeID(nodeID string) *Logger {
	return &Logger{
		Logger: l.With("node_id", nodeID),
		level:  l.level,
	}
}

// Error logs an error. The full goroutine stack is only attached at debug
// level — a DAG run can fail hundreds of nodes under normal operation
// (§4.6 failure isolation lets the rest of the graph keep going), and
// capturing debug.Stack() for every one of them in production is wasted
// cost for a trace that Status/ErrorKind on the node result already
// explains.
func (l *Logger) Error(msg string, args ...any) {
	if l.level <= slog.LevelDebug {
		args = append(args, "stack", string(debug.Stack()))
	}
	l.Logger.Error(msg, args...)
}

// ErrorContext logs an error with context, attaching a stack trace under
// the same debug-level condition as Error.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	if l.level <= slog.LevelDebug {
		args = append(args, "stack", string(debug.Stack()))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}