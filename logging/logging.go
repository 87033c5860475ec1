// Package logging provides the structured logging facade used across the
// library, backed by zerolog. Components obtain a field-scoped logger once
// at construction and reuse it.
package logging

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Fields represents structured logging fields.
type Fields map[string]any

// Logger is the interface the library expects for logging.
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(err error, msg string, fields ...Fields)

	// WithFields returns a logger with preset fields.
	WithFields(fields Fields) Logger
}

type zeroLogger struct {
	zl zerolog.Logger
}

var (
	mu     sync.RWMutex
	global Logger = newZeroLogger(defaultOutput())
)

func defaultOutput() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func newZeroLogger(zl zerolog.Logger) *zeroLogger {
	return &zeroLogger{zl: zl}
}

// SetGlobalLogger replaces the process-wide logger. Passing nil installs a
// no-op logger.
func SetGlobalLogger(logger Logger) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		global = NoOp()
	} else {
		global = logger
	}
}

// SetLevel sets the minimum level for the zerolog backend.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// NewConsoleLogger returns a logger writing human-readable output, for CLI
// use. JSON output remains the default.
func NewConsoleLogger() Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	return newZeroLogger(zerolog.New(out).With().Timestamp().Logger())
}

func (l *zeroLogger) event(ev *zerolog.Event, msg string, fields []Fields) {
	for _, f := range fields {
		for k, v := range f {
			ev = ev.Interface(k, v)
		}
	}
	ev.Msg(msg)
}

func (l *zeroLogger) Debug(msg string, fields ...Fields) {
	l.event(l.zl.Debug(), msg, fields)
}

func (l *zeroLogger) Info(msg string, fields ...Fields) {
	l.event(l.zl.Info(), msg, fields)
}

func (l *zeroLogger) Warn(msg string, fields ...Fields) {
	l.event(l.zl.Warn(), msg, fields)
}

func (l *zeroLogger) Error(err error, msg string, fields ...Fields) {
	l.event(l.zl.Error().Err(err), msg, fields)
}

func (l *zeroLogger) WithFields(fields Fields) Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &zeroLogger{zl: ctx.Logger()}
}

// Package-level functions that use the global logger.

func Debug(msg string, fields ...Fields) {
	current().Debug(msg, fields...)
}

func Info(msg string, fields ...Fields) {
	current().Info(msg, fields...)
}

func Warn(msg string, fields ...Fields) {
	current().Warn(msg, fields...)
}

func Error(err error, msg string, fields ...Fields) {
	current().Error(err, msg, fields...)
}

func WithFields(fields Fields) Logger {
	return current().WithFields(fields)
}

func current() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// NoOp returns a logger that discards everything. Useful in tests.
func NoOp() Logger {
	return noOpLogger{}
}

type noOpLogger struct{}

func (noOpLogger) Debug(msg string, fields ...Fields)            {}
func (noOpLogger) Info(msg string, fields ...Fields)             {}
func (noOpLogger) Warn(msg string, fields ...Fields)             {}
func (noOpLogger) Error(err error, msg string, fields ...Fields) {}
func (noOpLogger) WithFields(fields Fields) Logger               { return noOpLogger{} }
