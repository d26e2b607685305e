package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Type identifies what changed
type Type string

const (
	TypeAuthChanged  Type = "auth.changed"
	TypeTasksChanged Type = "tasks.changed"
	TypeThemeChanged Type = "theme.changed"
	TypeReminderDue  Type = "reminder.due"
)

// Event is a state-change notification for one client namespace
type Event struct {
	Type     Type      `json:"type"`
	ClientID string    `json:"client_id"`
	At       time.Time `json:"at"`
	Payload  any       `json:"payload,omitempty"`
}

// Publisher accepts events. State containers depend on this, not on Bus.
type Publisher interface {
	Publish(Event)
}

// Sink delivers events somewhere outside the process
type Sink interface {
	Send(ctx context.Context, event Event) error
}

// Nop discards every event
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(Event) {}

// Bus fans events out to in-process subscribers. Publish never blocks:
// a subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	log    *zap.Logger
}

// NewBus creates an empty bus
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{subs: make(map[int]chan Event), log: log}
}

// Publish implements Publisher
func (b *Bus) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.log.Warn("event_dropped_slow_subscriber",
				zap.Int("subscriber", id),
				zap.String("type", string(event.Type)),
				zap.String("client_id", event.ClientID),
			)
		}
	}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// cancel func unregisters it and closes the channel; it is safe to call twice.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of registered subscribers
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Forward subscribes to the bus and hands every event to sink until ctx is
// done. Sink failures are logged; delivery is best effort.
func Forward(ctx context.Context, bus *Bus, sink Sink, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	ch, cancel := bus.Subscribe(256)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := sink.Send(ctx, event); err != nil {
				log.Warn("event_forward_failed",
					zap.String("type", string(event.Type)),
					zap.String("client_id", event.ClientID),
					zap.Error(err),
				)
			}
		}
	}
}
