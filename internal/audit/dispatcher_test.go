package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(context.Context, Event) { <-s.release }

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatal("nil dispatcher should report zero counters")
	}
}

func TestDispatcherDeliversAndFlushesOnClose(t *testing.T) {
	sink := NewChannelSink(10)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 10}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}
	d.Close()

	if got := len(sink.Events()); got != 5 {
		t.Fatalf("expected 5 events flushed, got %d", got)
	}
	if d.Delivered() != 5 {
		t.Fatalf("expected delivered=5, got %d", d.Delivered())
	}

	d.Emit(context.Background(), Event{EventType: "after_close"})
	if got := len(sink.Events()); got != 5 {
		t.Fatalf("emit after close must be ignored, got %d", got)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// One event is held by the sink, one sits in the buffer, the rest drop.
	deadline := time.Now().Add(time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		d.Emit(context.Background(), Event{EventType: "otp_issued"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events")
	}

	close(sink.release)
	d.Close()
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "register", Email: "a@example.com", Success: true})
	sink.Emit(context.Background(), Event{EventType: "login_failure", Error: "INVALID_CREDENTIALS"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if first.EventType != "register" || first.Email != "a@example.com" || !first.Success {
		t.Fatalf("unexpected event: %+v", first)
	}
}

func TestZerologSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	sink := NewZerologSink(zerolog.New(&buf))

	sink.Emit(context.Background(), Event{EventType: "login_failure", Error: "INVALID_CREDENTIALS", Metadata: map[string]string{"reason": "password"}})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if line["level"] != "warn" || line["event"] != "login_failure" || line["error"] != "INVALID_CREDENTIALS" || line["reason"] != "password" {
		t.Fatalf("unexpected log line: %v", line)
	}
	if line["component"] != "audit" {
		t.Fatalf("missing component field: %v", line)
	}
}
