// Package logging provides the structured logger shared by the router,
// the encoders and the HTTP service.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	// LevelDebug is for detailed debugging information
	LevelDebug LogLevel = iota
	// LevelInfo is for general informational messages
	LevelInfo
	// LevelWarn is for warning messages
	LevelWarn
	// LevelError is for error messages
	LevelError
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name such as "debug" or "WARN" to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger is the interface for logging operations
type Logger interface {
	// Debug logs a debug message
	Debug(msg string, keyvals ...any)
	// Info logs an informational message
	Info(msg string, keyvals ...any)
	// Warn logs a warning message
	Warn(msg string, keyvals ...any)
	// Error logs an error message
	Error(msg string, keyvals ...any)
	// With returns a new logger with additional key-value pairs
	With(keyvals ...any) Logger
}

// zeroLogger adapts a zerolog.Logger to Logger
type zeroLogger struct {
	zl zerolog.Logger
}

// New creates a logger that writes JSON lines to w
func New(w io.Writer, minLevel LogLevel) Logger {
	zl := zerolog.New(w).Level(minLevel.zerolog()).With().Timestamp().Logger()
	return &zeroLogger{zl: zl}
}

// NewConsole creates a logger that writes human-readable lines to w
func NewConsole(w io.Writer, minLevel LogLevel) Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: true}
	zl := zerolog.New(cw).Level(minLevel.zerolog()).With().Timestamp().Logger()
	return &zeroLogger{zl: zl}
}

// NewStdLogger creates a console logger that writes to stderr
func NewStdLogger(minLevel LogLevel) Logger {
	return NewConsole(os.Stderr, minLevel)
}

// FromZerolog wraps an existing zerolog.Logger
func FromZerolog(zl zerolog.Logger) Logger {
	return &zeroLogger{zl: zl}
}

// Debug logs a debug message
func (l *zeroLogger) Debug(msg string, keyvals ...any) {
	l.log(l.zl.Debug(), msg, keyvals)
}

// Info logs an informational message
func (l *zeroLogger) Info(msg string, keyvals ...any) {
	l.log(l.zl.Info(), msg, keyvals)
}

// Warn logs a warning message
func (l *zeroLogger) Warn(msg string, keyvals ...any) {
	l.log(l.zl.Warn(), msg, keyvals)
}

// Error logs an error message
func (l *zeroLogger) Error(msg string, keyvals ...any) {
	l.log(l.zl.Error(), msg, keyvals)
}

// With returns a new logger with additional key-value pairs
func (l *zeroLogger) With(keyvals ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if err, ok := keyvals[i+1].(error); ok {
			ctx = ctx.AnErr(key, err)
			continue
		}
		ctx = ctx.Interface(key, keyvals[i+1])
	}
	return &zeroLogger{zl: ctx.Logger()}
}

// log attaches keyvals to the event and emits it; a trailing key without
// a value is dropped
func (l *zeroLogger) log(ev *zerolog.Event, msg string, keyvals []any) {
	if ev == nil {
		return
	}
	for i := 0; i+1 < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		switch v := keyvals[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case string:
			ev = ev.Str(key, v)
		case int:
			ev = ev.Int(key, v)
		case float64:
			ev = ev.Float64(key, v)
		case bool:
			ev = ev.Bool(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}

// nopLogger is a no-op logger that discards all log messages
type nopLogger struct{}

func (nopLogger) Debug(msg string, keyvals ...any) {}
func (nopLogger) Info(msg string, keyvals ...any)  {}
func (nopLogger) Warn(msg string, keyvals ...any)  {}
func (nopLogger) Error(msg string, keyvals ...any) {}

// With returns the same nopLogger
func (n nopLogger) With(keyvals ...any) Logger {
	return n
}

// Nop returns a logger that discards all messages
func Nop() Logger {
	return nopLogger{}
}
