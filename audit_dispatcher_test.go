package agentauth

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestAuditDispatcherDisabled(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, NewChannelSink(1))
	if d != nil {
		t.Fatal("disabled audit must produce a nil dispatcher")
	}
	// All operations on a nil dispatcher are no-ops.
	d.Emit(context.Background(), AuditEvent{EventType: AuditFlowBegin})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestAuditDispatcherDeliversAndStamps(t *testing.T) {
	sink := NewChannelSink(8)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8}, sink)
	t.Cleanup(d.Close)

	d.Emit(context.Background(), AuditEvent{EventType: AuditFlowBegin, UserID: "u1"})

	select {
	case event := <-sink.Events():
		if event.EventType != AuditFlowBegin || event.UserID != "u1" {
			t.Fatalf("unexpected event: %+v", event)
		}
		if event.ID == "" {
			t.Fatal("dispatcher must stamp an event id")
		}
		if event.Timestamp.IsZero() {
			t.Fatal("dispatcher must stamp a timestamp")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
	}
}

func TestAuditDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: AuditSignOut})
	}
	d.Close()

	for i := 0; i < 5; i++ {
		select {
		case <-sink.Events():
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d never delivered after close", i)
		}
	}

	// Emit after close is a silent no-op.
	d.Emit(context.Background(), AuditEvent{EventType: AuditSignOut})
}

func TestAuditDispatcherDropIfFull(t *testing.T) {
	// An unbuffered-ish sink that never consumes forces drops once the
	// dispatch buffer is full.
	blocked := make(chan struct{})
	sink := blockingSink{release: blocked}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: AuditFlowBegin})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events under back-pressure")
	}

	close(blocked)
	d.Close()
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(_ context.Context, _ AuditEvent) {
	<-s.release
}

func TestJSONWriterSinkOutput(t *testing.T) {
	var buf strings.Builder
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		EventType: AuditFlowComplete,
		UserID:    "u1",
		Success:   true,
	})

	line := buf.String()
	if !strings.HasSuffix(line, "\n") {
		t.Fatal("expected newline-terminated output")
	}
	if !strings.Contains(line, `"event_type":"flow_complete"`) {
		t.Fatalf("unexpected output: %s", line)
	}
	if !strings.Contains(line, `"success":true`) {
		t.Fatalf("unexpected output: %s", line)
	}
}

func TestFlowEmitsAuditTrail(t *testing.T) {
	ctx := context.Background()
	client := newMockTokenClient()
	client.acceptCode = "654321"
	sink := NewChannelSink(32)

	auth, err := New().
		WithStorage(NewMemoryStorage()).
		WithTokenClient(client).
		WithHandlers(testHandler()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if _, err := auth.BeginOrContinueFlow(ctx, messageTurn("hello"), ""); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if _, err := auth.BeginOrContinueFlow(ctx, messageTurn("654321"), ""); err != nil {
		t.Fatalf("continue failed: %v", err)
	}
	auth.Close()

	types := map[string]int{}
	for {
		select {
		case event := <-sink.Events():
			types[event.EventType]++
			if event.UserID != "u1" || event.ChannelID != "webchat" || event.HandlerID != "graph" {
				t.Fatalf("event missing identity fields: %+v", event)
			}
		case <-time.After(100 * time.Millisecond):
			if types[AuditFlowBegin] != 1 {
				t.Fatalf("expected one flow_begin event, got %d", types[AuditFlowBegin])
			}
			if types[AuditFlowComplete] != 1 {
				t.Fatalf("expected one flow_complete event, got %d", types[AuditFlowComplete])
			}
			return
		}
	}
}
