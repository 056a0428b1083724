package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf, Component: ComponentApp})
	l.WithComponent(ComponentLedger).Info("hello", FieldUsername, "alice")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentLedger || rec[FieldUsername] != "alice" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf, Component: ComponentApp})
	l.Info("hidden")
	l.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestStructuredLoggerHTTPEndLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf}))
	r := httptest.NewRequest(http.MethodPost, "/income", nil)

	sl.LogHTTPEnd(context.Background(), r, "/income", 500, 12, "127.0.0.1")
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Fatalf("5xx should log at error: %s", buf.String())
	}
	buf.Reset()
	sl.LogHTTPEnd(context.Background(), r, "/income", 303, 1, "127.0.0.1")
	if !strings.Contains(buf.String(), `"level":"INFO"`) {
		t.Fatalf("3xx should log at info: %s", buf.String())
	}
}

func TestStructuredLoggerLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
	sl.LogError(context.Background(), "save failed", errors.New("disk full"), ComponentPersist, OpSave, nil)
	if !strings.Contains(buf.String(), "disk full") || !strings.Contains(buf.String(), ComponentPersist) {
		t.Fatalf("unexpected output %s", buf.String())
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatalf("expected default logger")
	}
}
