package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/doit/internal/metrics"
	"github.com/benvon/doit/internal/models"
	"github.com/benvon/doit/internal/tasks"
	"github.com/benvon/doit/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Sort orders accepted by ListTodos
const (
	SortPriority = "priority"
	SortCreated  = "created"
)

// TodoHandler handles todo-related requests against the caller's task container
type TodoHandler struct {
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// TodoHandlerOption configures a TodoHandler
type TodoHandlerOption func(*TodoHandler)

// WithTodoClock replaces the clock used for reminders and the today view
func WithTodoClock(now func() time.Time) TodoHandlerOption {
	return func(h *TodoHandler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(m *metrics.Metrics, logger *zap.Logger, opts ...TodoHandlerOption) *TodoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &TodoHandler{metrics: m, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers todo routes on the given router
// The router should already have the /todos prefix (e.g., from apiRouter.PathPrefix("/todos"))
func (h *TodoHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTodos).Methods("GET")
	r.HandleFunc("", h.CreateTodo).Methods("POST")
	r.HandleFunc("/due", h.ListDue).Methods("GET")
	r.HandleFunc("/counts", h.GetCounts).Methods("GET")
	r.HandleFunc("/filter", h.SetFilter).Methods("PUT")
	r.HandleFunc("/search", h.SetSearch).Methods("PUT")
	r.HandleFunc("/search", h.ClearSearch).Methods("DELETE")
	r.HandleFunc("/{id}", h.GetTodo).Methods("GET")
	r.HandleFunc("/{id}", h.DeleteTodo).Methods("DELETE")
	r.HandleFunc("/{id}/complete", h.ToggleComplete).Methods("POST")
	r.HandleFunc("/{id}/important", h.ToggleImportant).Methods("POST")
	r.HandleFunc("/{id}/notification", h.SetNotification).Methods("PUT")
	r.HandleFunc("/{id}/notification", h.ClearNotification).Methods("DELETE")
}

// CreateTodoRequest represents a create todo request. Title length is
// checked after sanitizing, by the container.
type CreateTodoRequest struct {
	Title    string          `json:"title" validate:"required"`
	Priority models.Priority `json:"priority,omitempty" validate:"omitempty,priority"`
}

// FilterRequest selects the active category
type FilterRequest struct {
	Filter models.Filter `json:"filter" validate:"required,task_filter"`
}

// SearchRequest sets the search term; an empty term shows everything
type SearchRequest struct {
	Term string `json:"term" validate:"max=500"`
}

// NotificationRequest schedules a reminder either as an absolute RFC 3339
// instant or as a local date and clock time, as a date picker would send.
type NotificationRequest struct {
	At   string `json:"at,omitempty" validate:"required_without_all=Date Time"`
	Date string `json:"date,omitempty" validate:"required_without=At"`
	Time string `json:"time,omitempty" validate:"required_without=At"`
}

// ListTodosResponse is the filtered list plus the state that produced it
type ListTodosResponse struct {
	Todos      []models.Task `json:"todos"`
	Filter     models.Filter `json:"filter"`
	SearchTerm string        `json:"searchTerm"`
	Total      int           `json:"total"`
}

// ListTodos returns the filtered view. Query parameters filter and search
// override the stored selection for this request only; sort is priority
// (the display order, default) or created (insertion order).
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	container := session.Tasks
	state := container.Snapshot()
	query := r.URL.Query()

	filter := state.Filter
	if f := query.Get("filter"); f != "" {
		if err := validation.ValidateFilter(f); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		filter = models.Filter(f)
	}
	search := state.SearchTerm
	if query.Has("search") {
		search = query.Get("search")
	}

	sortOrder := query.Get("sort")
	if sortOrder == "" {
		sortOrder = SortPriority
	}
	if sortOrder != SortPriority && sortOrder != SortCreated {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "sort must be 'priority' or 'created'")
		return
	}

	items := tasks.Select(state.Items, filter, search, h.now(), container.Location())
	if sortOrder == SortPriority {
		items = tasks.SortForDisplay(items)
	}

	respondJSON(w, http.StatusOK, ListTodosResponse{
		Todos:      items,
		Filter:     filter,
		SearchTerm: search,
		Total:      len(items),
	})
}

// CreateTodo creates a new todo
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var req CreateTodoRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	task, err := session.Tasks.Add(r.Context(), req.Title, req.Priority)
	if err != nil {
		if errors.Is(err, validation.ErrInvalid) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		h.logger.Error("failed_to_create_todo", zap.String("client_id", session.ClientID), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create todo")
		return
	}

	h.metrics.TaskMutation("add")
	respondJSON(w, http.StatusCreated, task)
}

// GetTodo returns one todo
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	task, found := session.Tasks.Get(mux.Vars(r)["id"])
	if !found {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Todo not found")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// DeleteTodo removes a todo. Deleting an unknown id succeeds.
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	if session.Tasks.Delete(r.Context(), mux.Vars(r)["id"]) {
		h.metrics.TaskMutation("delete")
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleComplete flips the completed flag
func (h *TodoHandler) ToggleComplete(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	task, found := session.Tasks.ToggleComplete(r.Context(), mux.Vars(r)["id"])
	h.respondMutation(w, "complete", task, found)
}

// ToggleImportant flips the important flag
func (h *TodoHandler) ToggleImportant(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	task, found := session.Tasks.ToggleImportant(r.Context(), mux.Vars(r)["id"])
	h.respondMutation(w, "important", task, found)
}

// SetNotification schedules a reminder on a todo
func (h *TodoHandler) SetNotification(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var req NotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	at, err := h.reminderTime(req, session.Tasks.Location())
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	task, found, err := session.Tasks.SetNotification(r.Context(), mux.Vars(r)["id"], at)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	h.respondMutation(w, "notification_set", task, found)
}

// ClearNotification removes the reminder of a todo
func (h *TodoHandler) ClearNotification(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	task, found := session.Tasks.ClearNotification(r.Context(), mux.Vars(r)["id"])
	h.respondMutation(w, "notification_cleared", task, found)
}

// ListDue returns the todos whose reminder has come due
func (h *TodoHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, session.Tasks.DueNotifications(h.now()))
}

// GetCounts returns the sidebar badge counts
func (h *TodoHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, session.Tasks.Counts(h.now()))
}

// SetFilter changes the stored category selection
func (h *TodoHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req FilterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if err := session.Tasks.SetFilter(req.Filter); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.selection(session.Tasks.Snapshot()))
}

// SetSearch changes the stored search term
func (h *TodoHandler) SetSearch(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	session.Tasks.SetSearchTerm(req.Term)
	respondJSON(w, http.StatusOK, h.selection(session.Tasks.Snapshot()))
}

// ClearSearch empties the stored search term
func (h *TodoHandler) ClearSearch(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	session.Tasks.ClearSearch()
	respondJSON(w, http.StatusOK, h.selection(session.Tasks.Snapshot()))
}

func (h *TodoHandler) selection(state tasks.State) map[string]any {
	return map[string]any{"filter": state.Filter, "searchTerm": state.SearchTerm}
}

func (h *TodoHandler) respondMutation(w http.ResponseWriter, op string, task models.Task, found bool) {
	if !found {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Todo not found")
		return
	}
	h.metrics.TaskMutation(op)
	respondJSON(w, http.StatusOK, task)
}

func (h *TodoHandler) reminderTime(req NotificationRequest, loc *time.Location) (time.Time, error) {
	if at := strings.TrimSpace(req.At); at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", tasks.ErrInvalidReminder, err)
		}
		return parsed, nil
	}
	return tasks.ParseReminder(req.Date, req.Time, loc)
}
