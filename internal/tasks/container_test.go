package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benvon/doit/internal/models"
	"github.com/benvon/doit/internal/storage"
	"github.com/benvon/doit/internal/validation"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

// fakeClock advances one minute on every read so createdAt values differ
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(time.Minute)
	return f.now
}

func sequentialIDs() func() (string, error) {
	var (
		mu sync.Mutex
		n  int
	)
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("task-%03d", n), nil
	}
}

func newTestContainer(t *testing.T, store storage.Store, opts ...Option) *Container {
	t.Helper()
	a, err := storage.NewAccessor(store, "client-1", nil)
	if err != nil {
		t.Fatalf("NewAccessor failed: %v", err)
	}
	clock := &fakeClock{now: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)}
	base := []Option{WithClock(clock.Now), WithIDGenerator(sequentialIDs()), WithLocation(time.UTC)}
	return NewContainer(context.Background(), a, append(base, opts...)...)
}

func titles(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func mustAdd(t *testing.T, c *Container, title string, p models.Priority) models.Task {
	t.Helper()
	task, err := c.Add(context.Background(), title, p)
	if err != nil {
		t.Fatalf("Add(%q) failed: %v", title, err)
	}
	return task
}

func TestContainer_Add(t *testing.T) {
	t.Parallel()

	c := newTestContainer(t, storage.NewMemoryStore())
	for i, title := range []string{"Buy milk", "  Pay rent  ", "Call mom"} {
		task := mustAdd(t, c, title, models.PriorityLow)
		if got := len(c.All()); got != i+1 {
			t.Fatalf("Expected %d tasks, got %d", i+1, got)
		}
		if task.Completed || task.Important {
			t.Errorf("Expected new task to be open and unstarred, got %+v", task)
		}
		if task.CreatedAt.IsZero() || task.ID == "" {
			t.Errorf("Expected id and createdAt to be assigned, got %+v", task)
		}
		if task.Notification != nil {
			t.Error("Expected no reminder on a new task")
		}
	}

	if diff := cmp.Diff([]string{"Buy milk", "Pay rent", "Call mom"}, titles(c.All())); diff != "" {
		t.Errorf("Unexpected order (-want +got):\n%s", diff)
	}
	if got := c.Snapshot().Status; got != models.StatusSucceeded {
		t.Errorf("Expected status succeeded, got %s", got)
	}
}

func TestContainer_AddRejectsInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		title    string
		priority models.Priority
		want     error
	}{
		{"empty title", "", models.PriorityHigh, ErrEmptyTitle},
		{"whitespace title", "   ", models.PriorityHigh, ErrEmptyTitle},
		{"control characters only", "\x00\x01", models.PriorityHigh, ErrEmptyTitle},
		{"unknown priority", "Buy milk", "urgent", ErrInvalidPriority},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestContainer(t, storage.NewMemoryStore())
			mustAdd(t, c, "existing", models.PriorityLow)

			_, err := c.Add(context.Background(), tt.title, tt.priority)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, validation.ErrInvalid) {
				t.Errorf("Expected error to wrap validation.ErrInvalid, got %v", err)
			}
			if got := len(c.All()); got != 1 {
				t.Errorf("Expected collection unchanged, got %d tasks", got)
			}
		})
	}
}

func TestContainer_AddTitleTooLong(t *testing.T) {
	t.Parallel()

	long := make([]byte, MaxTitleLength+1)
	for i := range long {
		long[i] = 'a'
	}
	c := newTestContainer(t, storage.NewMemoryStore())
	if _, err := c.Add(context.Background(), string(long), models.PriorityLow); !errors.Is(err, ErrTitleTooLong) {
		t.Fatalf("Expected ErrTitleTooLong, got %v", err)
	}
}

func TestContainer_AddDefaultsToMedium(t *testing.T) {
	t.Parallel()

	c := newTestContainer(t, storage.NewMemoryStore())
	task := mustAdd(t, c, "Buy milk", "")
	if task.Priority != models.PriorityMedium {
		t.Errorf("Expected medium priority, got %s", task.Priority)
	}
}

func TestContainer_AddAssignsTimeOrderedIDs(t *testing.T) {
	t.Parallel()

	a, err := storage.NewAccessor(storage.NewMemoryStore(), "client-1", nil)
	if err != nil {
		t.Fatalf("NewAccessor failed: %v", err)
	}
	c := NewContainer(context.Background(), a)

	var prev string
	for i := 0; i < 20; i++ {
		task := mustAdd(t, c, fmt.Sprintf("task %d", i), models.PriorityLow)
		id, err := uuid.Parse(task.ID)
		if err != nil {
			t.Fatalf("Expected a UUID, got %q", task.ID)
		}
		if id.Version() != 7 {
			t.Errorf("Expected UUIDv7, got version %d", id.Version())
		}
		if prev != "" && task.ID <= prev {
			t.Errorf("Expected ids to increase, got %s after %s", task.ID, prev)
		}
		prev = task.ID
	}
}

func TestContainer_Delete(t *testing.T) {
	t.Parallel()

	c := newTestContainer(t, storage.NewMemoryStore())
	a := mustAdd(t, c, "a", models.PriorityLow)
	mustAdd(t, c, "b", models.PriorityLow)

	if c.Delete(context.Background(), "missing") {
		t.Error("Expected delete of an absent id to report false")
	}
	if got := len(c.All()); got != 2 {
		t.Fatalf("Expected collection unchanged, got %d tasks", got)
	}

	if !c.Delete(context.Background(), a.ID) {
		t.Fatal("Expected delete to report true")
	}
	if got := len(c.All()); got != 1 {
		t.Fatalf("Expected 1 task, got %d", got)
	}
	if _, ok := c.Get(a.ID); ok {
		t.Error("Expected deleted task to be gone")
	}
}

func TestContainer_Toggles(t *testing.T) {
	t.Parallel()

	c := newTestContainer(t, storage.NewMemoryStore())
	task := mustAdd(t, c, "a", models.PriorityLow)

	got, ok := c.ToggleComplete(context.Background(), task.ID)
	if !ok || !got.Completed {
		t.Fatalf("Expected task completed, got %+v ok=%v", got, ok)
	}
	got, _ = c.ToggleComplete(context.Background(), task.ID)
	if got.Completed != task.Completed {
		t.Error("Expected toggling twice to restore completed flag")
	}

	got, ok = c.ToggleImportant(context.Background(), task.ID)
	if !ok || !got.Important {
		t.Fatalf("Expected task important, got %+v ok=%v", got, ok)
	}
	got, _ = c.ToggleImportant(context.Background(), task.ID)
	if got.Important {
		t.Error("Expected toggling twice to restore important flag")
	}

	before := c.All()
	if _, ok := c.ToggleComplete(context.Background(), "missing"); ok {
		t.Error("Expected toggle of absent id to report false")
	}
	if _, ok := c.ToggleImportant(context.Background(), "missing"); ok {
		t.Error("Expected toggle of absent id to report false")
	}
	if diff := cmp.Diff(before, c.All()); diff != "" {
		t.Errorf("Expected collection unchanged (-want +got):\n%s", diff)
	}
}

func TestContainer_Notifications(t *testing.T) {
	t.Parallel()

	c := newTestContainer(t, storage.NewMemoryStore())
	task := mustAdd(t, c, "a", models.PriorityLow)
	at := time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC)

	got, ok, err := c.SetNotification(context.Background(), task.ID, at)
	if err != nil || !ok {
		t.Fatalf("SetNotification failed: ok=%v err=%v", ok, err)
	}
	if got.Notification == nil || !got.Notification.Equal(at) {
		t.Errorf("Expected reminder %v, got %v", at, got.Notification)
	}

	if _, _, err := c.SetNotification(context.Background(), task.ID, time.Time{}); !errors.Is(err, ErrInvalidReminder) {
		t.Errorf("Expected ErrInvalidReminder for zero time, got %v", err)
	}
	if _, ok, _ := c.SetNotification(context.Background(), "missing", at); ok {
		t.Error("Expected absent id to report false")
	}

	got, ok = c.ClearNotification(context.Background(), task.ID)
	if !ok || got.Notification != nil {
		t.Errorf("Expected reminder cleared, got %+v", got)
	}
}

func TestContainer_ReturnedTasksDoNotAlias(t *testing.T) {
	t.Parallel()

	c := newTestContainer(t, storage.NewMemoryStore())
	task := mustAdd(t, c, "a", models.PriorityLow)
	got, _, _ := c.SetNotification(context.Background(), task.ID, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	*got.Notification = time.Time{}
	all := c.All()
	all[0].Title = "changed"

	stored, _ := c.Get(task.ID)
	if stored.Title != "a" || stored.Notification.IsZero() {
		t.Errorf("Expected container state to be isolated from callers, got %+v", stored)
	}
}

func TestContainer_Persistence(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	c := newTestContainer(t, store)
	a := mustAdd(t, c, "Buy milk", models.PriorityMedium)
	mustAdd(t, c, "Pay rent", models.PriorityHigh)
	c.ToggleImportant(context.Background(), a.ID)
	if err := c.SetFilter(models.FilterImportant); err != nil {
		t.Fatalf("SetFilter failed: %v", err)
	}
	c.SetSearchTerm("milk")

	reloaded := newTestContainer(t, store)
	if diff := cmp.Diff(c.All(), reloaded.All()); diff != "" {
		t.Errorf("Expected reloaded tasks to match (-want +got):\n%s", diff)
	}
	state := reloaded.Snapshot()
	if state.Filter != models.FilterAll || state.SearchTerm != "" {
		t.Errorf("Expected filter and search to reset, got %q / %q", state.Filter, state.SearchTerm)
	}
}

func TestContainer_SharedNamespace(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	ctx := context.Background()
	first := newTestContainer(t, store)
	n := 0
	second := newTestContainer(t, store, WithIDGenerator(func() (string, error) {
		n++
		return fmt.Sprintf("other-%03d", n), nil
	}))

	a := mustAdd(t, first, "from first", models.PriorityLow)
	mustAdd(t, second, "from second", models.PriorityHigh)
	if _, ok := second.ToggleComplete(ctx, a.ID); !ok {
		t.Error("Expected a mutation to see tasks written by another container")
	}
	mustAdd(t, first, "again from first", models.PriorityMedium)

	want := []string{"from first", "from second", "again from first"}
	if diff := cmp.Diff(want, titles(first.All())); diff != "" {
		t.Errorf("first container list mismatch (-want +got):\n%s", diff)
	}
	stored, _ := first.Get(a.ID)
	if !stored.Completed {
		t.Error("Expected the completion made elsewhere to be kept")
	}

	if err := second.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if diff := cmp.Diff(first.All(), second.All()); diff != "" {
		t.Errorf("Expected Refresh to load the stored list (-want +got):\n%s", diff)
	}
}

func TestContainer_CorruptListStartsEmpty(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	if err := store.Set(context.Background(), "client-1", storage.KeyTodos, "{not json"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	c := newTestContainer(t, store)
	if got := len(c.All()); got != 0 {
		t.Fatalf("Expected empty list, got %d", got)
	}
	mustAdd(t, c, "fresh", models.PriorityLow)
	if got := len(c.All()); got != 1 {
		t.Errorf("Expected container to keep working, got %d tasks", got)
	}
}

func TestContainer_SetFilter(t *testing.T) {
	t.Parallel()

	c := newTestContainer(t, storage.NewMemoryStore())
	if err := c.SetFilter("planned"); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("Expected ErrInvalidFilter, got %v", err)
	}
	if got := c.Snapshot().Filter; got != models.FilterAll {
		t.Errorf("Expected filter to stay all, got %s", got)
	}
}

func TestContainer_FilteredHighKeepsOrder(t *testing.T) {
	t.Parallel()

	c := newTestContainer(t, storage.NewMemoryStore())
	mustAdd(t, c, "h1", models.PriorityHigh)
	mustAdd(t, c, "m1", models.PriorityMedium)
	mustAdd(t, c, "h2", models.PriorityHigh)
	mustAdd(t, c, "l1", models.PriorityLow)
	mustAdd(t, c, "h3", models.PriorityHigh)

	if err := c.SetFilter(models.FilterHigh); err != nil {
		t.Fatalf("SetFilter failed: %v", err)
	}
	if diff := cmp.Diff([]string{"h1", "h2", "h3"}, titles(c.Filtered(time.Now()))); diff != "" {
		t.Errorf("Unexpected filtered view (-want +got):\n%s", diff)
	}
}

func TestContainer_FilteredSearchAndCategoryCompose(t *testing.T) {
	t.Parallel()

	c := newTestContainer(t, storage.NewMemoryStore())
	a := mustAdd(t, c, "abc important", models.PriorityLow)
	mustAdd(t, c, "ABC plain", models.PriorityLow)
	x := mustAdd(t, c, "xyz important", models.PriorityLow)
	c.ToggleImportant(context.Background(), a.ID)
	c.ToggleImportant(context.Background(), x.ID)

	c.SetSearchTerm("abc")
	if err := c.SetFilter(models.FilterImportant); err != nil {
		t.Fatalf("SetFilter failed: %v", err)
	}
	if diff := cmp.Diff([]string{"abc important"}, titles(c.Filtered(time.Now()))); diff != "" {
		t.Errorf("Expected conjunction of search and category (-want +got):\n%s", diff)
	}

	c.ClearSearch()
	if diff := cmp.Diff([]string{"abc important", "xyz important"}, titles(c.Filtered(time.Now()))); diff != "" {
		t.Errorf("Unexpected view after ClearSearch (-want +got):\n%s", diff)
	}
}

func TestContainer_DueAndCounts(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	c := newTestContainer(t, storage.NewMemoryStore())
	past := mustAdd(t, c, "past", models.PriorityLow)
	done := mustAdd(t, c, "past but done", models.PriorityLow)
	later := mustAdd(t, c, "later today", models.PriorityLow)
	mustAdd(t, c, "no reminder", models.PriorityLow)

	ctx := context.Background()
	c.SetNotification(ctx, past.ID, now.Add(-time.Hour))
	c.SetNotification(ctx, done.ID, now.Add(-2*time.Hour))
	c.SetNotification(ctx, later.ID, now.Add(3*time.Hour))
	c.ToggleComplete(ctx, done.ID)
	c.ToggleImportant(ctx, later.ID)

	if diff := cmp.Diff([]string{"past"}, titles(c.DueNotifications(now))); diff != "" {
		t.Errorf("Unexpected due list (-want +got):\n%s", diff)
	}

	want := Counts{All: 4, Important: 1, Today: 2, Completed: 1, Pending: 3, Due: 1}
	if diff := cmp.Diff(want, c.Counts(now)); diff != "" {
		t.Errorf("Unexpected counts (-want +got):\n%s", diff)
	}

	c.ToggleComplete(ctx, past.ID)
	if got := len(c.DueNotifications(now)); got != 0 {
		t.Errorf("Expected marking done to dismiss the reminder, got %d due", got)
	}
}

func TestContainer_EndToEndSortedView(t *testing.T) {
	t.Parallel()

	c := newTestContainer(t, storage.NewMemoryStore())
	mustAdd(t, c, "Buy milk", models.PriorityMedium)
	mustAdd(t, c, "Pay rent", models.PriorityHigh)

	got := titles(SortForDisplay(c.Filtered(time.Now())))
	if diff := cmp.Diff([]string{"Pay rent", "Buy milk"}, got); diff != "" {
		t.Errorf("Unexpected display order (-want +got):\n%s", diff)
	}
}

func TestContainer_ConcurrentMutations(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	a, err := storage.NewAccessor(store, "client-1", nil)
	if err != nil {
		t.Fatalf("NewAccessor failed: %v", err)
	}
	c := NewContainer(context.Background(), a)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task, err := c.Add(context.Background(), fmt.Sprintf("task %d", i), models.PriorityLow)
			if err != nil {
				t.Errorf("Add failed: %v", err)
				return
			}
			c.ToggleComplete(context.Background(), task.ID)
		}(i)
	}
	wg.Wait()

	if got := len(c.All()); got != 25 {
		t.Fatalf("Expected 25 tasks, got %d", got)
	}
	if diff := cmp.Diff(c.All(), a.Tasks(context.Background())); diff != "" {
		t.Errorf("Expected the last write to match memory (-want +got):\n%s", diff)
	}
}
