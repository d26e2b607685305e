package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/benvon/doit/internal/events"
	"github.com/benvon/doit/internal/models"
	"github.com/benvon/doit/internal/storage"
	"github.com/benvon/doit/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxTitleLength bounds a task title in runes
const MaxTitleLength = 500

// State is a point-in-time copy of the task container
type State struct {
	Items      []models.Task     `json:"items"`
	Filter     models.Filter     `json:"filter"`
	SearchTerm string            `json:"searchTerm"`
	Status     models.LoadStatus `json:"status"`
	Error      string            `json:"error,omitempty"`
}

// Container owns the task list of one client. The list is kept in insertion
// order and written back to the store after every mutation; filter and search
// term live only in memory and reset to all/empty for each new container.
//
// Other processes (the CLI, a second server) may write the same namespace, so
// every mutation first reloads the stored list and applies itself on top.
type Container struct {
	mu     sync.RWMutex
	items  []models.Task
	filter models.Filter
	search string
	status models.LoadStatus
	errMsg string

	// persistMu spans reload, change and save of one mutation
	persistMu sync.Mutex

	store    *storage.Accessor
	loc      *time.Location
	now      func() time.Time
	newID    func() (string, error)
	events   events.Publisher
	clientID string
	log      *zap.Logger
}

// Option configures a Container
type Option func(*Container)

// WithLocation sets the timezone used for calendar-day comparisons
func WithLocation(loc *time.Location) Option {
	return func(c *Container) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator replaces the UUIDv7 id source
func WithIDGenerator(gen func() (string, error)) Option {
	return func(c *Container) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// WithPublisher sets where state changes are announced
func WithPublisher(p events.Publisher) Option {
	return func(c *Container) {
		if p != nil {
			c.events = p
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(c *Container) {
		if log != nil {
			c.log = log
		}
	}
}

func newV7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewContainer creates a container holding the tasks persisted in store.
// A missing or corrupt list starts empty.
func NewContainer(ctx context.Context, store *storage.Accessor, opts ...Option) *Container {
	c := &Container{
		filter:   models.FilterAll,
		status:   models.StatusIdle,
		store:    store,
		loc:      time.Local,
		now:      time.Now,
		newID:    newV7,
		events:   events.Nop{},
		clientID: store.Namespace(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.items = store.Tasks(ctx)
	return c
}

// Location returns the timezone used for the today filter
func (c *Container) Location() *time.Location {
	return c.loc
}

// Add appends a new open, unstarred task. Title is trimmed first; an empty
// priority means medium.
func (c *Container) Add(ctx context.Context, title string, priority models.Priority) (models.Task, error) {
	title = validation.SanitizeText(title)
	if title == "" {
		return models.Task{}, ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return models.Task{}, ErrTitleTooLong
	}
	if priority == "" {
		priority = models.PriorityMedium
	}
	if err := validation.ValidatePriority(string(priority)); err != nil {
		return models.Task{}, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	c.setStatus(models.StatusLoading, "")

	id, err := c.newID()
	if err != nil {
		c.setStatus(models.StatusFailed, err.Error())
		return models.Task{}, fmt.Errorf("failed to generate task id: %w", err)
	}

	task := models.Task{
		ID:        id,
		Title:     title,
		Priority:  priority,
		CreatedAt: c.now().UTC(),
	}

	c.mutate(ctx, "add", func() bool {
		c.items = append(c.items, task)
		c.status = models.StatusSucceeded
		return true
	})
	c.publish("add", task.ID)
	return task.Clone(), nil
}

// Delete removes the task with id. It reports whether a task was removed;
// an absent id changes nothing.
func (c *Container) Delete(ctx context.Context, id string) bool {
	c.setStatus(models.StatusLoading, "")

	removed := c.mutate(ctx, "delete", func() bool {
		c.status = models.StatusSucceeded
		idx := c.indexLocked(id)
		if idx < 0 {
			return false
		}
		c.items = append(c.items[:idx], c.items[idx+1:]...)
		return true
	})
	c.publish("delete", id)
	return removed
}

// ToggleComplete flips the completed flag of the task with id
func (c *Container) ToggleComplete(ctx context.Context, id string) (models.Task, bool) {
	return c.update(ctx, "toggle_complete", id, func(t *models.Task) {
		t.Completed = !t.Completed
	})
}

// ToggleImportant flips the important flag of the task with id
func (c *Container) ToggleImportant(ctx context.Context, id string) (models.Task, bool) {
	return c.update(ctx, "toggle_important", id, func(t *models.Task) {
		t.Important = !t.Important
	})
}

// SetNotification sets the reminder of the task with id
func (c *Container) SetNotification(ctx context.Context, id string, at time.Time) (models.Task, bool, error) {
	if at.IsZero() {
		return models.Task{}, false, ErrInvalidReminder
	}
	at = at.UTC()
	task, ok := c.update(ctx, "set_notification", id, func(t *models.Task) {
		t.Notification = &at
	})
	return task, ok, nil
}

// ClearNotification removes the reminder of the task with id
func (c *Container) ClearNotification(ctx context.Context, id string) (models.Task, bool) {
	return c.update(ctx, "clear_notification", id, func(t *models.Task) {
		t.Notification = nil
	})
}

// SetFilter changes the active category
func (c *Container) SetFilter(filter models.Filter) error {
	if err := validation.ValidateFilter(string(filter)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFilter, filter)
	}
	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()
	c.publish("set_filter", "")
	return nil
}

// SetSearchTerm changes the search text
func (c *Container) SetSearchTerm(term string) {
	c.mu.Lock()
	c.search = term
	c.mu.Unlock()
	c.publish("set_search", "")
}

// ClearSearch resets the search text
func (c *Container) ClearSearch() {
	c.SetSearchTerm("")
}

// Filtered applies the current search term and category to the list.
// It is recomputed on every call.
func (c *Container) Filtered(now time.Time) []models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Select(c.items, c.filter, c.search, now, c.loc)
}

// DueNotifications returns open tasks whose reminder time has passed
func (c *Container) DueNotifications(now time.Time) []models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Due(c.items, now)
}

// Counts returns the per-category badge numbers
func (c *Container) Counts(now time.Time) Counts {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Tally(c.items, now, c.loc)
}

// All returns every task in insertion order
func (c *Container) All() []models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.CloneTasks(c.items)
}

// Get returns the task with id
func (c *Container) Get(id string) (models.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := c.indexLocked(id)
	if idx < 0 {
		return models.Task{}, false
	}
	return c.items[idx].Clone(), true
}

// Snapshot returns a copy of the full state
func (c *Container) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		Items:      models.CloneTasks(c.items),
		Filter:     c.filter,
		SearchTerm: c.search,
		Status:     c.status,
		Error:      c.errMsg,
	}
}

// Refresh replaces the in-memory list with the stored one so writes made
// elsewhere become visible. On a failed read the current list is kept.
func (c *Container) Refresh(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	return c.reload(ctx)
}

func (c *Container) update(ctx context.Context, op, id string, fn func(*models.Task)) (models.Task, bool) {
	var task models.Task
	ok := c.mutate(ctx, op, func() bool {
		idx := c.indexLocked(id)
		if idx < 0 {
			return false
		}
		fn(&c.items[idx])
		task = c.items[idx].Clone()
		return true
	})
	if !ok {
		return models.Task{}, false
	}
	c.publish(op, id)
	return task, true
}

func (c *Container) indexLocked(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Container) setStatus(status models.LoadStatus, msg string) {
	c.mu.Lock()
	c.status = status
	c.errMsg = msg
	c.mu.Unlock()
}

// mutate reloads the stored list, runs change under c.mu and, when change
// reports a modification, writes the whole list back. A failed reload or
// write is logged; while the store stays unreadable the in-memory list is
// what callers see.
func (c *Container) mutate(ctx context.Context, op string, change func() bool) bool {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	if err := c.reload(ctx); err != nil {
		c.log.Warn("todos_reload_failed",
			zap.String("client_id", c.clientID),
			zap.String("op", op),
			zap.Error(err),
		)
	}

	c.mu.Lock()
	changed := change()
	snapshot := models.CloneTasks(c.items)
	c.mu.Unlock()
	if !changed {
		return false
	}

	if err := c.store.SaveTasks(ctx, snapshot); err != nil {
		c.log.Warn("todos_not_persisted",
			zap.String("client_id", c.clientID),
			zap.String("op", op),
			zap.Error(err),
		)
	}
	return true
}

// reload must be called with persistMu held
func (c *Container) reload(ctx context.Context) error {
	items, err := c.store.LoadTasks(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

func (c *Container) publish(op, id string) {
	c.mu.RLock()
	count := len(c.items)
	c.mu.RUnlock()

	c.events.Publish(events.Event{
		Type:     events.TypeTasksChanged,
		ClientID: c.clientID,
		Payload: map[string]any{
			"op":    op,
			"id":    id,
			"count": count,
		},
	})
}
