package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestChannelSinkDelivers(t *testing.T) {
	sink := NewChannelSink(4)

	sink.Emit(context.Background(), Event{EventType: EventCheckAllowed, Action: "login"})

	select {
	case got := <-sink.Events():
		if got.EventType != EventCheckAllowed || got.Action != "login" {
			t.Fatalf("event = %+v", got)
		}
	default:
		t.Fatal("expected buffered event")
	}
}

func TestChannelSinkRespectsContext(t *testing.T) {
	sink := NewChannelSink(1)
	sink.Emit(context.Background(), Event{}) // fill the buffer

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		sink.Emit(ctx, Event{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked despite cancelled context")
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: EventCheckBlocked, Identifier: "abc"})
	sink.Emit(context.Background(), Event{EventType: EventReset})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}

	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.EventType != EventCheckBlocked || first.Identifier != "abc" {
		t.Fatalf("event = %+v", first)
	}
}
