package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/benvon/doit/internal/app"
	"github.com/benvon/doit/internal/models"
	"github.com/benvon/doit/internal/tasks"
	"github.com/gorilla/mux"
)

// Navigation targets of the view layer
const (
	PathHome     = "/"
	PathLogin    = "/login"
	PathNotFound = "/404"
	PathTodos    = "/todos"
)

// TaskViews are the task pages that require a signed-in session. Views
// mapped to a filter show that category regardless of the stored selection.
var TaskViews = map[string]models.Filter{
	"/todos":     "",
	"/today":     models.FilterToday,
	"/important": models.FilterImportant,
	"/planned":   "",
	"/assigned":  "",
	"/calendar":  "",
	"/notes":     "",
}

// ViewHandler serves the page models of the view layer as JSON. A client
// renders them; the handler decides gating and redirects.
type ViewHandler struct {
	now func() time.Time
}

// NewViewHandler creates a view handler
func NewViewHandler(now func() time.Time) *ViewHandler {
	if now == nil {
		now = time.Now
	}
	return &ViewHandler{now: now}
}

// RegisterRoutes registers the page routes on the root router
func (h *ViewHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc(PathHome, h.Home).Methods("GET")
	r.HandleFunc(PathLogin, h.Login).Methods("GET")
	r.HandleFunc(PathNotFound, h.NotFound).Methods("GET")
	for path := range TaskViews {
		r.HandleFunc(path, h.TaskPage).Methods("GET")
	}
	r.HandleFunc(PathTodos+"/{id}", h.TaskDetail).Methods("GET")
}

// HomeView is the landing page
type HomeView struct {
	View          string       `json:"view"`
	Authenticated bool         `json:"authenticated"`
	Next          string       `json:"next"`
	Theme         models.Theme `json:"theme"`
}

// LoginView is the login page
type LoginView struct {
	View          string       `json:"view"`
	Authenticated bool         `json:"authenticated"`
	Status        string       `json:"status"`
	Error         string       `json:"error,omitempty"`
	Theme         models.Theme `json:"theme"`
}

// TaskPageView is one of the task pages: the filtered list sorted for
// display and split into open and done, with the sidebar counts and the
// due reminders of the header.
type TaskPageView struct {
	View       string        `json:"view"`
	Filter     models.Filter `json:"filter"`
	SearchTerm string        `json:"searchTerm"`
	Pending    []models.Task `json:"pending"`
	Completed  []models.Task `json:"completed"`
	Counts     tasks.Counts  `json:"counts"`
	Due        []models.Task `json:"due"`
	Theme      models.Theme  `json:"theme"`
}

// TaskDetailView is the detail panel of one task
type TaskDetailView struct {
	View string      `json:"view"`
	Task models.Task `json:"task"`
}

// Home serves the landing page; it points signed-in clients at their tasks
func (h *ViewHandler) Home(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	authenticated := session.Auth.IsAuthenticated()
	next := PathLogin
	if authenticated {
		next = PathTodos
	}
	respondJSON(w, http.StatusOK, HomeView{View: "home", Authenticated: authenticated, Next: next, Theme: session.Theme()})
}

// Login serves the login page with the state of the last attempt
func (h *ViewHandler) Login(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	state := session.Auth.State()
	respondJSON(w, http.StatusOK, LoginView{
		View:          "login",
		Authenticated: state.IsAuthenticated(),
		Status:        string(state.Status),
		Error:         state.Error,
		Theme:         session.Theme(),
	})
}

// NotFound serves the not-found page
func (h *ViewHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	respondJSONError(w, http.StatusNotFound, "Not Found", "Page not found")
}

// TaskPage serves one of the gated task pages
func (h *ViewHandler) TaskPage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.gate(w, r)
	if !ok {
		return
	}

	now := h.now()
	state := session.Tasks.Snapshot()
	filter := state.Filter
	if forced := TaskViews[r.URL.Path]; forced != "" {
		filter = forced
	}

	visible := tasks.Select(state.Items, filter, state.SearchTerm, now, session.Tasks.Location())
	pending, completed := tasks.Partition(tasks.SortForDisplay(visible))

	respondJSON(w, http.StatusOK, TaskPageView{
		View:       strings.TrimPrefix(r.URL.Path, "/"),
		Filter:     filter,
		SearchTerm: state.SearchTerm,
		Pending:    pending,
		Completed:  completed,
		Counts:     session.Tasks.Counts(now),
		Due:        session.Tasks.DueNotifications(now),
		Theme:      session.Theme(),
	})
}

// TaskDetail serves the detail panel of the selected task
func (h *ViewHandler) TaskDetail(w http.ResponseWriter, r *http.Request) {
	session, ok := h.gate(w, r)
	if !ok {
		return
	}
	task, found := session.Tasks.Get(mux.Vars(r)["id"])
	if !found {
		http.Redirect(w, r, PathNotFound, http.StatusSeeOther)
		return
	}
	respondJSON(w, http.StatusOK, TaskDetailView{View: "detail", Task: task})
}

// gate redirects clients without a session token to the login page
func (h *ViewHandler) gate(w http.ResponseWriter, r *http.Request) (*app.Session, bool) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return nil, false
	}
	if !session.Auth.IsAuthenticated() {
		http.Redirect(w, r, PathLogin, http.StatusSeeOther)
		return nil, false
	}
	return session, true
}

// RedirectUnknown sends unknown page paths to the not-found view. Unknown
// API paths get a JSON 404 instead, since API clients do not follow pages.
func RedirectUnknown() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Endpoint not found")
			return
		}
		http.Redirect(w, r, PathNotFound, http.StatusSeeOther)
	})
}
