package workers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benvon/doit/internal/events"
	"github.com/benvon/doit/internal/metrics"
	"github.com/benvon/doit/internal/storage"
	"github.com/benvon/doit/internal/tasks"
	"go.uber.org/zap"
)

// DefaultScanInterval is how often the reminder scanner looks for due tasks
const DefaultScanInterval = 30 * time.Second

// ReminderScanner walks every client namespace and announces tasks whose
// reminder has come due. Each (task, reminder time) pair is announced once
// per process; a changed reminder time is announced again. Pairs that stop
// being due (task deleted, completed or rescheduled) are forgotten after the
// scan that no longer sees them.
type ReminderScanner struct {
	store   storage.Store
	sink    events.Sink
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu        sync.Mutex
	announced map[string]struct{}
}

// NewReminderScanner creates a scanner reading from store and sending to sink
func NewReminderScanner(store storage.Store, sink events.Sink, logger *zap.Logger, m *metrics.Metrics) *ReminderScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderScanner{
		store:     store,
		sink:      sink,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
		announced: make(map[string]struct{}),
	}
}

// Run scans once immediately and then on every tick until ctx is done
func (r *ReminderScanner) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Scan(ctx); err != nil {
			r.logger.Warn("reminder_scan_failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Scan checks every namespace once and returns how many reminders it sent
func (r *ReminderScanner) Scan(ctx context.Context) (int, error) {
	namespaces, err := r.store.Namespaces(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list namespaces: %w", err)
	}

	now := r.now()
	sent := 0
	due := make(map[string]struct{})
	unread := make(map[string]struct{})
	for _, ns := range namespaces {
		accessor, err := storage.NewAccessor(r.store, ns, r.logger)
		if err != nil {
			r.logger.Warn("skipping_namespace", zap.String("namespace", ns), zap.Error(err))
			continue
		}
		items, err := accessor.LoadTasks(ctx)
		if err != nil {
			unread[ns] = struct{}{}
			continue
		}

		for _, task := range tasks.Due(items, now) {
			key := announceKey(ns, task.ID, *task.Notification)
			due[key] = struct{}{}
			if r.seen(key) {
				continue
			}

			event := events.Event{
				Type:     events.TypeReminderDue,
				ClientID: ns,
				At:       now.UTC(),
				Payload: map[string]any{
					"id":           task.ID,
					"title":        task.Title,
					"priority":     task.Priority,
					"notification": task.Notification,
				},
			}
			if err := r.sink.Send(ctx, event); err != nil {
				r.logger.Warn("reminder_send_failed",
					zap.String("client_id", ns),
					zap.String("task_id", task.ID),
					zap.Error(err),
				)
				continue
			}

			r.remember(key)
			r.metrics.ReminderSent()
			sent++
		}
	}

	r.forget(due, unread)

	if sent > 0 {
		r.logger.Info("reminders_sent",
			zap.Int("count", sent),
			zap.Int("namespace_count", len(namespaces)),
		)
	}
	return sent, nil
}

func announceKey(namespace, taskID string, at time.Time) string {
	return namespace + "/" + taskID + "/" + at.UTC().Format(time.RFC3339Nano)
}

// forget drops announced keys that were not due in the last scan. Keys of
// namespaces that could not be read are kept so a store hiccup does not
// repeat reminders.
func (r *ReminderScanner) forget(due, unread map[string]struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.announced {
		if _, ok := due[key]; ok {
			continue
		}
		ns, _, _ := strings.Cut(key, "/")
		if _, ok := unread[ns]; ok {
			continue
		}
		delete(r.announced, key)
	}
}

func (r *ReminderScanner) seen(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.announced[key]
	return ok
}

func (r *ReminderScanner) remember(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announced[key] = struct{}{}
}
