package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

func jsonLogger(buf *bytes.Buffer) Logger {
	return NewLogger(&Config{
		Level:      LevelDebug,
		Component:  "test",
		JSONFormat: true,
		Output:     buf,
	})
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("parsing log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf)

	log.Info("session starting", F("meeting_id", "meet-1"), F("attempt", 2))

	entry := lastLine(t, &buf)
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["message"] != "session starting" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["component"] != "test" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["meeting_id"] != "meet-1" {
		t.Errorf("meeting_id = %v", entry["meeting_id"])
	}
	if entry["attempt"] != float64(2) {
		t.Errorf("attempt = %v", entry["attempt"])
	}
}

func TestLogger_ErrField(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf)

	log.Error("stage failed", Err(fmt.Errorf("disk full")))

	entry := lastLine(t, &buf)
	if entry["error"] != "disk full" {
		t.Errorf("error = %v", entry["error"])
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf).With(F("session_id", "sess-1"))

	log.Info("first")
	log.Info("second")

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if !strings.Contains(line, `"session_id":"sess-1"`) {
			t.Errorf("line missing inherited field: %s", line)
		}
	}
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf)

	ctx := WithSessionID(context.Background(), "sess-9")
	log.WithContext(ctx).Info("probed")

	entry := lastLine(t, &buf)
	if entry["session_id"] != "sess-9" {
		t.Errorf("session_id = %v", entry["session_id"])
	}

	// A context without a session ID leaves the logger unchanged.
	buf.Reset()
	log.WithContext(context.Background()).Info("plain")
	entry = lastLine(t, &buf)
	if _, ok := entry["session_id"]; ok {
		t.Error("unexpected session_id field")
	}
}

type memorySink struct {
	entries []Entry
}

func (m *memorySink) Write(entry Entry)           { m.entries = append(m.entries, entry) }
func (m *memorySink) Flush(context.Context) error { return nil }
func (m *memorySink) Close() error                { return nil }

func TestLogger_Sinks(t *testing.T) {
	sink := &memorySink{}
	log := NewLogger(&Config{
		Level:     LevelDebug,
		Component: "test",
		Output:    new(bytes.Buffer),
		Sinks:     []Sink{sink},
	})

	log.Warn("meeting dropped", F("meeting_id", "meet-1"), F("wait", 3*time.Second))

	if len(sink.entries) != 1 {
		t.Fatalf("entries = %d", len(sink.entries))
	}
	e := sink.entries[0]
	if e.Level != "warn" || e.Message != "meeting dropped" {
		t.Errorf("entry = %+v", e)
	}
	if e.Fields["meeting_id"] != "meet-1" {
		t.Errorf("fields = %v", e.Fields)
	}
}

func TestFormatEntry(t *testing.T) {
	e := Entry{
		Timestamp: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		Level:     "info",
		Component: "session",
		Message:   "admitted",
		Fields:    map[string]string{"b_key": "2", "a_key": "1"},
	}
	got := formatEntry(e)
	want := "2026-09-01T10:00:00Z [INFO] session: admitted a_key=1 b_key=2"
	if got != want {
		t.Errorf("formatEntry = %q, want %q", got, want)
	}
}
