package framegraph

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/resource"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for framegraph and its sub-packages.
// By default, framegraph produces no log output.
//
// SetLogger is safe for concurrent use: it stores the new logger
// atomically. Pass nil to disable logging (restore default silence).
//
// Log levels used:
//   - [slog.LevelDebug]: per-pass and per-resource events
//   - [slog.LevelInfo]: compile/execute lifecycle
//   - [slog.LevelWarn]: degraded frames, barrier validation mismatches
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	resource.SetLogger(l)
	backend.SetLogger(l)
}

// Logger returns the current logger used by framegraph.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// PropagateLogger passes the current logger to a device if it implements
// the loggerSetter interface. Called by hosts that construct devices
// outside the registry.
func PropagateLogger(d backend.Device) {
	if ls, ok := d.(loggerSetter); ok {
		ls.SetLogger(Logger())
	}
}
