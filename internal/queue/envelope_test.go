package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/benvon/doit/internal/events"
	"github.com/google/uuid"
)

func TestNewEnvelope(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	event := events.Event{Type: events.TypeReminderDue, ClientID: "client-1", At: at}

	tests := []struct {
		name         string
		ttl          time.Duration
		wantNotAfter *time.Time
	}{
		{"no ttl", 0, nil},
		{"negative ttl", -time.Minute, nil},
		{"with ttl", 15 * time.Minute, func() *time.Time { v := at.Add(15 * time.Minute); return &v }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := NewEnvelope(event, tt.ttl)
			if env.ID == uuid.Nil {
				t.Error("Expected envelope ID to be set")
			}
			if env.RoutingKey() != "reminder.due" {
				t.Errorf("Expected routing key reminder.due, got %s", env.RoutingKey())
			}
			switch {
			case tt.wantNotAfter == nil && env.NotAfter != nil:
				t.Errorf("Expected no expiry, got %v", env.NotAfter)
			case tt.wantNotAfter != nil && (env.NotAfter == nil || !env.NotAfter.Equal(*tt.wantNotAfter)):
				t.Errorf("Expected expiry %v, got %v", tt.wantNotAfter, env.NotAfter)
			}
		})
	}
}

func TestNewEnvelope_FillsTimestamp(t *testing.T) {
	t.Parallel()

	env := NewEnvelope(events.Event{Type: events.TypeTasksChanged}, 0)
	if env.Event.At.IsZero() {
		t.Error("Expected event time to be filled")
	}
}

func TestEnvelope_IsExpired(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	env := NewEnvelope(events.Event{Type: events.TypeReminderDue, At: at}, time.Minute)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before expiry", at.Add(30 * time.Second), false},
		{"at expiry", at.Add(time.Minute), false},
		{"after expiry", at.Add(2 * time.Minute), true},
	}
	for _, tt := range tests {
		if got := env.IsExpired(tt.now); got != tt.want {
			t.Errorf("%s: IsExpired = %v, want %v", tt.name, got, tt.want)
		}
	}

	forever := NewEnvelope(events.Event{Type: events.TypeTasksChanged, At: at}, 0)
	if forever.IsExpired(at.Add(24 * time.Hour)) {
		t.Error("Expected an envelope without ttl never to expire")
	}
}

func TestEnvelope_JSON(t *testing.T) {
	t.Parallel()

	env := NewEnvelope(events.Event{
		Type:     events.TypeTasksChanged,
		ClientID: "client-1",
		At:       time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		Payload:  map[string]any{"op": "add"},
	}, 0)

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded Envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.ID != env.ID || decoded.Event.Type != env.Event.Type || decoded.Event.ClientID != "client-1" {
		t.Errorf("Unexpected decoded envelope %+v", decoded)
	}
	payload, ok := decoded.Event.Payload.(map[string]any)
	if !ok || payload["op"] != "add" {
		t.Errorf("Expected payload to survive, got %#v", decoded.Event.Payload)
	}
}
