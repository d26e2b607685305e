package workers

import (
	"context"

	"github.com/benvon/doit/internal/events"
	"go.uber.org/zap"
)

// LogSink writes reminders to the log. The worker uses it when no broker
// is configured.
type LogSink struct {
	Logger *zap.Logger
}

// Send implements events.Sink
func (s LogSink) Send(_ context.Context, event events.Event) error {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("event",
		zap.String("type", string(event.Type)),
		zap.String("client_id", event.ClientID),
		zap.Time("at", event.At),
		zap.Any("payload", event.Payload),
	)
	return nil
}

var _ events.Sink = LogSink{}
