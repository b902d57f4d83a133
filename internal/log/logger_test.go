package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentStorage, Output: &buf})
	l.Info("opened", FieldSlot, "default")

	out := buf.String()
	if !strings.Contains(out, "component=storage") || !strings.Contains(out, "slot=default") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRequestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	rl := NewRequestLogger(New(Config{Level: slog.LevelInfo, Output: &buf}))
	r := httptest.NewRequest("GET", "/api/budget?year=2025", nil)

	rl.LogHTTPEnd(context.Background(), r, 503, 12, "10.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("5xx should log at error: %q", buf.String())
	}

	buf.Reset()
	rl.LogMutation(context.Background(), "update_amount", "u1", "2025-03", "food", "groceries", true, errors.New("disk full"))
	out := buf.String()
	for _, want := range []string{"level=ERROR", "user_id=u1", "month=2025-03", "applied=true", "component=planner"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != ComponentApp {
		t.Fatalf("expected default logger")
	}
	custom := New(DefaultConfig()).WithComponent(ComponentWorker)
	if got := FromContext(NewContext(context.Background(), custom)); got != custom {
		t.Fatalf("logger not taken from context")
	}
}
