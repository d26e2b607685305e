package queue

import (
	"context"

	"github.com/benvon/doit/internal/events"
)

// MessageInterface lets consumers be tested without a broker
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetEvent() events.Event
}

// EventQueue carries state-change events between processes
type EventQueue interface {
	events.Sink

	// Consume delivers events matching the binding patterns (e.g.
	// "tasks.*") until ctx is cancelled. Every message must be acked.
	Consume(ctx context.Context, bindings []string, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the broker connection
	Close() error

	// HealthCheck verifies the broker connection is usable
	HealthCheck(ctx context.Context) error
}
