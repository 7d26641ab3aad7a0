package xr

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/xr/driver"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine,
// including threaded renderer workers.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for xr and all its sub-packages.
// By default, xr produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the default
// silent behavior.
//
// Log levels used by xr:
//   - [slog.LevelDebug]: per-frame diagnostics (begin results, image indices)
//   - [slog.LevelInfo]: lifecycle (instance created, session state changes)
//   - [slog.LevelWarn]: transient runtime conditions, release failures
//   - [slog.LevelError]: runtime validation messages
//
// Example:
//
//	xr.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by xr.
// Sub-packages (app/, threaded/, panel/, driver/sim/) call this to share the
// same logger configuration without introducing import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// severityLevel maps a runtime diagnostic severity to a log level.
func severityLevel(sev driver.DebugMessageSeverity) slog.Level {
	switch {
	case sev&driver.DebugSeverityError != 0:
		return slog.LevelError
	case sev&driver.DebugSeverityWarning != 0:
		return slog.LevelWarn
	case sev&driver.DebugSeverityInfo != 0:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// logDebugMessage forwards a runtime diagnostic message to l.
func logDebugMessage(l *slog.Logger, msg driver.DebugMessage) {
	l.Log(context.Background(), severityLevel(msg.Severity), "xr: runtime message",
		"id", msg.MessageID,
		"function", msg.FunctionName,
		"message", msg.Message)
}
