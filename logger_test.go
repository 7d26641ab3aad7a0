package xr

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/xr/driver"
)

func TestNopHandler(t *testing.T) {
	h := nopHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(context.Background(), level) {
			t.Errorf("nopHandler.Enabled(%v) = true, want false", level)
		}
	}
	if err := h.Handle(context.Background(), slog.Record{}); err != nil {
		t.Errorf("nopHandler.Handle() = %v, want nil", err)
	}
	if _, ok := h.WithAttrs([]slog.Attr{slog.String("key", "val")}).(nopHandler); !ok {
		t.Error("nopHandler.WithAttrs() did not return nopHandler")
	}
	if _, ok := h.WithGroup("group").(nopHandler); !ok {
		t.Error("nopHandler.WithGroup() did not return nopHandler")
	}
}

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn} {
		if l.Enabled(context.Background(), level) {
			t.Errorf("default logger should not be enabled for %v", level)
		}
	}
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	SetLogger(custom)

	if Logger() != custom {
		t.Error("Logger() did not return the custom logger set via SetLogger")
	}
	Logger().Info("test message", "key", "value")
	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("expected log output to contain 'test message', got: %s", buf.String())
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should produce a disabled logger")
	}
}

func TestSeverityLevel(t *testing.T) {
	tests := []struct {
		sev  driver.DebugMessageSeverity
		want slog.Level
	}{
		{driver.DebugSeverityVerbose, slog.LevelDebug},
		{driver.DebugSeverityInfo, slog.LevelInfo},
		{driver.DebugSeverityWarning, slog.LevelWarn},
		{driver.DebugSeverityError, slog.LevelError},
		{driver.DebugSeverityWarning | driver.DebugSeverityError, slog.LevelError},
	}
	for _, tt := range tests {
		if got := severityLevel(tt.sev); got != tt.want {
			t.Errorf("severityLevel(%#x) = %v, want %v", tt.sev, got, tt.want)
		}
	}
}

func TestLogDebugMessage(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logDebugMessage(l, driver.DebugMessage{
		Severity:     driver.DebugSeverityInfo,
		FunctionName: "xrCreateInstance",
		Message:      "filtered",
	})
	logDebugMessage(l, driver.DebugMessage{
		Severity:     driver.DebugSeverityError,
		FunctionName: "xrEndFrame",
		Message:      "call order invalid",
	})

	out := buf.String()
	if strings.Contains(out, "filtered") {
		t.Errorf("info message should be filtered at warn level, got: %s", out)
	}
	if !strings.Contains(out, "call order invalid") || !strings.Contains(out, "level=ERROR") {
		t.Errorf("error message missing from output: %s", out)
	}
}

func TestLoggerConcurrentAccess(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var wg sync.WaitGroup
	const goroutines = 50
	for range goroutines {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if l := Logger(); l == nil {
				t.Error("Logger() returned nil during concurrent access")
			} else {
				l.Debug("concurrent read")
			}
		}()
		go func() {
			defer wg.Done()
			SetLogger(slog.Default())
			SetLogger(nil)
		}()
	}
	wg.Wait()
}

func BenchmarkLoggerDisabledLog(b *testing.B) {
	l := Logger()
	b.ReportAllocs()
	for b.Loop() {
		l.Debug("message", "key", "value")
	}
}
