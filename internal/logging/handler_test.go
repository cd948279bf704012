package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(h)

	now := time.Now()
	logger.Info("spawned", "argv", "make -j 8")

	output := buf.String()

	if !strings.Contains(output, "INFO") {
		t.Errorf("expected level INFO in output, got: %q", output)
	}
	if !strings.Contains(output, "spawned") {
		t.Errorf("expected message in output, got: %q", output)
	}
	if !strings.Contains(output, "argv=make -j 8") {
		t.Errorf("expected attribute in output, got: %q", output)
	}
	if !strings.Contains(output, now.Format(time.Kitchen)) {
		t.Errorf("expected time %q in output, got: %q", now.Format(time.Kitchen), output)
	}
}

func TestHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, nil)).With("platform", "linux")

	logger.Info("configured", "arch", "x86_64")

	output := buf.String()
	if !strings.Contains(output, "platform=linux") {
		t.Errorf("expected common attribute in output, got: %q", output)
	}
	if !strings.Contains(output, "arch=x86_64") {
		t.Errorf("expected local attribute in output, got: %q", output)
	}
}

func TestHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, nil)).WithGroup("task")

	logger.Info("exited", "code", 2, slog.Group("proc", "pid", 42))

	output := buf.String()
	if !strings.Contains(output, "task.code=2") {
		t.Errorf("expected group-prefixed key, got: %q", output)
	}
	if !strings.Contains(output, "task.proc.pid=42") {
		t.Errorf("expected nested group key, got: %q", output)
	}
}

func TestHandler_Enabled(t *testing.T) {
	h := NewHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})

	ctx := t.Context()
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("expected Info level to be disabled when min level is Warn")
	}
	if !h.Enabled(ctx, slog.LevelWarn) {
		t.Error("expected Warn level to be enabled")
	}
}

func TestHandler_TraceLevelName(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: LevelTrace}))

	logger.Log(t.Context(), LevelTrace, "resolving")

	if !strings.Contains(buf.String(), "TRACE") {
		t.Errorf("expected TRACE level name, got: %q", buf.String())
	}
}

func TestHandler_NoTime(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, nil)

	r := slog.NewRecord(time.Time{}, slog.LevelInfo, "no time", 0)
	if err := h.Handle(t.Context(), r); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if !strings.HasPrefix(buf.String(), "INFO") {
		t.Errorf("expected output to start with level, got: %q", buf.String())
	}
}

func TestHandler_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	logger.Info("environment", "GITHUB_TOKEN", "secret12345", "CFLAGS", "-O3")

	output := buf.String()
	if strings.Contains(output, "secret12345") {
		t.Error("GITHUB_TOKEN value should be redacted")
	}
	if !strings.Contains(output, "GITHUB_TOKEN=****2345") {
		t.Errorf("expected masked token, got: %q", output)
	}
	if !strings.Contains(output, "CFLAGS=-O3") {
		t.Errorf("non-secret values should pass through, got: %q", output)
	}

	buf.Reset()
	logger.Info("token value", "foo", "ghp_secrettoken")
	if !strings.Contains(buf.String(), "foo=****oken") {
		t.Errorf("expected masked value based on prefix, got: %q", buf.String())
	}
}
