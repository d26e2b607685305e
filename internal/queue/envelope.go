package queue

import (
	"time"

	"github.com/benvon/doit/internal/events"
	"github.com/google/uuid"
)

// Envelope is the message body published to the broker
type Envelope struct {
	ID       uuid.UUID    `json:"id"`
	Event    events.Event `json:"event"`
	NotAfter *time.Time   `json:"not_after,omitempty"` // nil = never expires
}

// NewEnvelope wraps an event. A positive ttl makes the message expire that
// long after the event happened; reminders are useless once stale.
func NewEnvelope(event events.Event, ttl time.Duration) *Envelope {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	env := &Envelope{ID: uuid.New(), Event: event}
	if ttl > 0 {
		notAfter := event.At.Add(ttl)
		env.NotAfter = &notAfter
	}
	return env
}

// IsExpired reports whether the envelope is past its NotAfter at now
func (e *Envelope) IsExpired(now time.Time) bool {
	if e.NotAfter == nil {
		return false
	}
	return now.After(*e.NotAfter)
}

// RoutingKey is the event type, so consumers can bind to e.g. "reminder.*"
func (e *Envelope) RoutingKey() string {
	return string(e.Event.Type)
}
