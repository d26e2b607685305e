package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/benvon/doit/internal/events"
	"github.com/benvon/doit/internal/queue"
	"github.com/spf13/cobra"
)

// consumer is the part of queue.EventQueue watch needs
type consumer interface {
	Consume(ctx context.Context, bindings []string, prefetchCount int) (<-chan *queue.Message, <-chan error, error)
	Close() error
}

// NewWatchCmd creates the watch command
func NewWatchCmd(e *env) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print reminders as the worker announces them",
		Long:  "Follow reminder.due events on RabbitMQ until interrupted. Only the --client reminders are shown unless --all is set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.opts.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.RabbitMQURL == "" {
				return fmt.Errorf("RABBITMQ_URL is not set")
			}
			q, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			filter := e.clientID()
			if all {
				filter = ""
			}
			return watch(cmd.Context(), q, filter, cfg.RabbitMQPrefetch, e.printer())
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "show reminders of every client")
	return cmd
}

// watch prints reminder.due events for clientID (every client when empty)
// until ctx ends or the delivery stream breaks.
func watch(ctx context.Context, q consumer, clientID string, prefetch int, p *printer) error {
	msgs, errs, err := q.Consume(ctx, []string{string(events.TypeReminderDue)}, prefetch)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			if err != nil {
				return fmt.Errorf("watch reminders: %w", err)
			}
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := deliver(msg, clientID, p); err != nil {
				return err
			}
		}
	}
}

// deliver acks msg and prints it when it belongs to clientID
func deliver(msg queue.MessageInterface, clientID string, p *printer) error {
	event := msg.GetEvent()
	if err := msg.Ack(); err != nil {
		return fmt.Errorf("ack reminder: %w", err)
	}
	if clientID != "" && event.ClientID != clientID {
		return nil
	}
	fields, _ := event.Payload.(map[string]any)
	return p.value(event, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "%s  [%s] %v (%v)\n",
			event.At.Local().Format("15:04:05"), event.ClientID, fields["title"], fields["priority"])
	})
}
