package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithField("user_id", 42).Info("user touched")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["message"] != "user touched" {
		t.Errorf("expected message field, got %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("expected lowercase level, got %v", entry["level"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestWarnLevelRenamed(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)

	log.Warn("careful")

	if !strings.Contains(buf.String(), `"level":"warning"`) {
		t.Errorf("expected level warning, got %s", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("error", &buf)

	log.Info("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("info record should be filtered at error level: %s", buf.String())
	}

	log.Error("kept")
	if buf.Len() == 0 {
		t.Error("error record should pass at error level")
	}
}

func TestMultiHandlerFanOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewJSONHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
		nil,
	)
	log := &Logger{Logger: slog.New(h)}

	log.WithRequestID("req-1").Info("hello")

	for name, buf := range map[string]*bytes.Buffer{"first": &a, "second": &b} {
		if !strings.Contains(buf.String(), "req-1") {
			t.Errorf("%s handler missing record: %s", name, buf.String())
		}
	}
}
