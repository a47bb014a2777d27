// Package logging provides structured logging for the lumina meeting
// assistant. It wraps zerolog behind a small interface so components can log
// without caring whether output is human-readable (interactive use) or JSON
// (daemon mode), and so session logs can be mirrored to a file sink.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey type for context values to avoid collisions.
type ContextKey string

// SessionIDKey carries the active meeting session identifier through
// contexts so every log line in a session can be correlated.
const SessionIDKey ContextKey = "session_id"

// WithSessionID returns a context carrying the session ID for WithContext.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// Level represents logging severity levels.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level sets the minimum log level (debug, info, warn, error).
	Level Level

	// Component is included in all log entries (e.g., "poller", "session").
	Component string

	// JSONFormat enables JSON output when true, console output when false.
	JSONFormat bool

	// Output sets the writer for logs (defaults to os.Stderr).
	Output io.Writer

	// Sinks are optional sinks that receive every entry, e.g. a session
	// log file under the data directory.
	Sinks []Sink
}

// DefaultConfig returns a Config suitable for interactive use.
func DefaultConfig() *Config {
	return &Config{
		Level:     LevelInfo,
		Component: "lumina",
		Output:    os.Stderr,
	}
}

// Logger is the interface for structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a new Logger with the given fields attached to all
	// subsequent entries.
	With(fields ...Field) Logger

	// WithContext returns a Logger that includes the session ID from ctx,
	// if one is present.
	WithContext(ctx context.Context) Logger
}

// Field is a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Err creates a Field for an error.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

type logger struct {
	zl        zerolog.Logger
	component string
	sinks     []Sink
}

// NewLogger creates a Logger from cfg. A nil cfg uses defaults.
func NewLogger(cfg *Config) Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var zl zerolog.Logger
	if cfg.JSONFormat {
		zl = zerolog.New(output).With().
			Timestamp().
			Str("component", cfg.Component).
			Logger()
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().
			Timestamp().
			Str("component", cfg.Component).
			Logger()
	}

	return &logger{zl: zl, component: cfg.Component, sinks: cfg.Sinks}
}

func parseLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *logger) Debug(msg string, fields ...Field) { l.emit(l.zl.Debug(), "debug", msg, fields) }
func (l *logger) Info(msg string, fields ...Field)  { l.emit(l.zl.Info(), "info", msg, fields) }
func (l *logger) Warn(msg string, fields ...Field)  { l.emit(l.zl.Warn(), "warn", msg, fields) }
func (l *logger) Error(msg string, fields ...Field) { l.emit(l.zl.Error(), "error", msg, fields) }

func (l *logger) emit(event *zerolog.Event, level, msg string, fields []Field) {
	addFields(event, fields).Msg(msg)
	l.sendToSinks(level, msg, fields)
}

// With returns a new logger with additional fields.
func (l *logger) With(fields ...Field) Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = addFieldToContext(ctx, f)
	}
	return &logger{zl: ctx.Logger(), component: l.component, sinks: l.sinks}
}

// WithContext returns a logger carrying the session ID from ctx.
func (l *logger) WithContext(ctx context.Context) Logger {
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok && sessionID != "" {
		return l.With(F("session_id", sessionID))
	}
	return l
}

func addFields(event *zerolog.Event, fields []Field) *zerolog.Event {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			event = event.Str(f.Key, v)
		case int:
			event = event.Int(f.Key, v)
		case int64:
			event = event.Int64(f.Key, v)
		case float64:
			event = event.Float64(f.Key, v)
		case bool:
			event = event.Bool(f.Key, v)
		case error:
			event = event.Err(v)
		case time.Duration:
			event = event.Dur(f.Key, v)
		case time.Time:
			event = event.Time(f.Key, v)
		default:
			event = event.Interface(f.Key, v)
		}
	}
	return event
}

func addFieldToContext(ctx zerolog.Context, f Field) zerolog.Context {
	switch v := f.Value.(type) {
	case string:
		return ctx.Str(f.Key, v)
	case int:
		return ctx.Int(f.Key, v)
	case int64:
		return ctx.Int64(f.Key, v)
	case float64:
		return ctx.Float64(f.Key, v)
	case bool:
		return ctx.Bool(f.Key, v)
	case error:
		return ctx.Err(v)
	case time.Duration:
		return ctx.Dur(f.Key, v)
	case time.Time:
		return ctx.Time(f.Key, v)
	default:
		return ctx.Interface(f.Key, v)
	}
}

func (l *logger) sendToSinks(level, msg string, fields []Field) {
	if len(l.sinks) == 0 {
		return
	}

	fieldMap := make(map[string]string, len(fields))
	for _, f := range fields {
		fieldMap[f.Key] = fmt.Sprint(f.Value)
	}

	entry := Entry{
		Timestamp: time.Now(),
		Level:     level,
		Component: l.component,
		Message:   msg,
		Fields:    fieldMap,
	}

	for _, sink := range l.sinks {
		sink.Write(entry)
	}
}

// Global provides a package-level logger for convenience.
var global Logger

// SetGlobal sets the global logger instance.
func SetGlobal(l Logger) {
	global = l
}

// Global returns the global logger, initializing with defaults if not set.
func Global() Logger {
	if global == nil {
		global = NewLogger(DefaultConfig())
	}
	return global
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field)               {}
func (nopLogger) Info(string, ...Field)                {}
func (nopLogger) Warn(string, ...Field)                {}
func (nopLogger) Error(string, ...Field)               {}
func (n nopLogger) With(...Field) Logger               { return n }
func (n nopLogger) WithContext(context.Context) Logger { return n }

// NewNopLogger returns a logger that discards all output. Useful for tests.
func NewNopLogger() Logger {
	return nopLogger{}
}
