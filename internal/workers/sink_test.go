package workers

import (
	"context"
	"testing"
	"time"

	"github.com/benvon/doit/internal/events"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogSink_Send(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	sink := LogSink{Logger: zap.New(core)}

	err := sink.Send(context.Background(), events.Event{
		Type:     events.TypeReminderDue,
		ClientID: "alice",
		At:       time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		Payload:  map[string]any{"id": "a1"},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	entries := logs.FilterMessage("event").All()
	if len(entries) != 1 {
		t.Fatalf("Expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["type"] != "reminder.due" || fields["client_id"] != "alice" {
		t.Errorf("Unexpected fields: %v", fields)
	}

	// a zero sink does not panic
	if err := (LogSink{}).Send(context.Background(), events.Event{}); err != nil {
		t.Errorf("Expected nil error from a zero sink, got %v", err)
	}
}
