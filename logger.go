package pso

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/pso/render"
	"github.com/gogpu/pso/shader"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for pso and its sub-packages.
// By default, pso produces no log output. Pass nil to restore silence.
//
// Log levels used by pso:
//   - [slog.LevelDebug]: pipeline cache creation, pipeline builds
//   - [slog.LevelWarn]: default sampler substitution, off-thread release,
//     unusable cache blobs
//   - [slog.LevelError]: pipeline build failures, unmatched vertex
//     attributes, cache inconsistencies
//
// Example:
//
//	pso.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	render.SetLogger(l)
	shader.SetLogger(l)
}

// Logger returns the current logger used by pso.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// slogger returns the current logger for internal use.
func slogger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the current logger to a backend device if it
// implements loggerSetter. Called when a Cache binds to a device.
func propagateLogger(dev any) {
	if ls, ok := dev.(loggerSetter); ok {
		ls.SetLogger(Logger())
	}
}
