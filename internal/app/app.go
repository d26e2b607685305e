package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/doit/internal/auth"
	"github.com/benvon/doit/internal/events"
	"github.com/benvon/doit/internal/models"
	"github.com/benvon/doit/internal/storage"
	"github.com/benvon/doit/internal/tasks"
	"github.com/benvon/doit/internal/validation"
	"github.com/benvon/doit/internal/weather"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultMaxSessions bounds the sessions kept in memory
const DefaultMaxSessions = 1024

// Options configures an App
type Options struct {
	Store       storage.Store
	Issuer      *auth.Issuer
	Weather     *weather.Client
	Publisher   events.Publisher
	Logger      *zap.Logger
	LoginDelay  time.Duration
	Location    *time.Location
	Credentials *auth.Credentials
	// MaxSessions caps live sessions; the least recently used is dropped.
	// Zero means DefaultMaxSessions.
	MaxSessions int
}

// App owns the per-client sessions. One App is created per process and
// passed to whatever serves the clients; nothing is reached through globals.
//
// Sessions are a cache over the store. Another process may write the same
// namespace, so a cached session is refreshed from the store each time it is
// handed out, and an evicted one is simply rebuilt on next use.
type App struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]

	store       storage.Store
	issuer      *auth.Issuer
	weather     *weather.Client
	events      events.Publisher
	log         *zap.Logger
	loginDelay  time.Duration
	loc         *time.Location
	credentials *auth.Credentials
}

// New creates an App. Store and Issuer are required.
func New(opts Options) (*App, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Issuer == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	a := &App{
		store:       opts.Store,
		issuer:      opts.Issuer,
		weather:     opts.Weather,
		events:      opts.Publisher,
		log:         opts.Logger,
		loginDelay:  opts.LoginDelay,
		loc:         opts.Location,
		credentials: opts.Credentials,
	}
	if a.events == nil {
		a.events = events.Nop{}
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	if a.loc == nil {
		a.loc = time.Local
	}

	size := opts.MaxSessions
	if size <= 0 {
		size = DefaultMaxSessions
	}
	sessions, err := lru.NewWithEvict(size, func(clientID string, _ *Session) {
		a.log.Debug("session_evicted", zap.String("client_id", clientID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	a.sessions = sessions
	return a, nil
}

// Weather returns the shared weather client; nil when none is configured
func (a *App) Weather() *weather.Client {
	return a.weather
}

// Store returns the backing store
func (a *App) Store() storage.Store {
	return a.store
}

// Location returns the timezone used for calendar-day views
func (a *App) Location() *time.Location {
	return a.loc
}

// Session returns the session of clientID, creating it from the store on
// first use and refreshing it from the store afterwards.
func (a *App) Session(ctx context.Context, clientID string) (*Session, error) {
	if clientID == "" {
		clientID = storage.DefaultNamespace
	}
	if err := storage.ValidateNamespace(clientID); err != nil {
		return nil, fmt.Errorf("%w: %v", validation.ErrInvalid, err)
	}

	// mu makes lookup and creation one step so a client never gets two sessions
	a.mu.Lock()
	s, ok := a.sessions.Get(clientID)
	if !ok {
		var err error
		s, err = a.newSession(ctx, clientID)
		a.mu.Unlock()
		if err != nil {
			return nil, err
		}
		a.log.Debug("session_created", zap.String("client_id", clientID))
		return s, nil
	}
	a.mu.Unlock()

	s.Refresh(ctx)
	return s, nil
}

// Sessions returns the client ids with a live session, oldest use first
func (a *App) Sessions() []string {
	return a.sessions.Keys()
}

func (a *App) newSession(ctx context.Context, clientID string) (*Session, error) {
	accessor, err := storage.NewAccessor(a.store, clientID, a.log)
	if err != nil {
		return nil, err
	}

	authOpts := []auth.Option{
		auth.WithDelay(a.loginDelay),
		auth.WithPublisher(a.events),
		auth.WithLogger(a.log),
	}
	if a.credentials != nil {
		authOpts = append(authOpts, auth.WithCredentials(*a.credentials))
	}

	s := &Session{
		ClientID: clientID,
		Auth:     auth.NewContainer(ctx, accessor, a.issuer, authOpts...),
		Tasks: tasks.NewContainer(ctx, accessor,
			tasks.WithLocation(a.loc),
			tasks.WithPublisher(a.events),
			tasks.WithLogger(a.log),
		),
		store:  accessor,
		events: a.events,
		log:    a.log,
		theme:  accessor.Theme(ctx),
	}
	a.sessions.Add(clientID, s)
	return s, nil
}

// Session is the explicit state of one client: its auth container, its
// task container and its theme preference.
type Session struct {
	ClientID string
	Auth     *auth.Container
	Tasks    *tasks.Container

	mu     sync.RWMutex
	theme  models.Theme
	store  *storage.Accessor
	events events.Publisher
	log    *zap.Logger
}

// Refresh reloads auth, tasks and theme from the store. Read failures are
// logged and leave the cached state in place.
func (s *Session) Refresh(ctx context.Context) {
	if err := s.Auth.Refresh(ctx); err != nil {
		s.log.Warn("session_refresh_failed", zap.String("client_id", s.ClientID), zap.String("part", "auth"), zap.Error(err))
	}
	if err := s.Tasks.Refresh(ctx); err != nil {
		s.log.Warn("session_refresh_failed", zap.String("client_id", s.ClientID), zap.String("part", "todos"), zap.Error(err))
	}
	theme, err := s.store.LoadTheme(ctx)
	if err != nil {
		s.log.Warn("session_refresh_failed", zap.String("client_id", s.ClientID), zap.String("part", "theme"), zap.Error(err))
		return
	}
	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()
}

// Theme returns the current theme
func (s *Session) Theme() models.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// SetTheme changes and persists the theme
func (s *Session) SetTheme(ctx context.Context, theme models.Theme) (models.Theme, error) {
	if err := validation.ValidateTheme(string(theme)); err != nil {
		return s.Theme(), err
	}
	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()
	s.saveTheme(ctx, theme)
	return theme, nil
}

// ToggleTheme flips between dark and light
func (s *Session) ToggleTheme(ctx context.Context) models.Theme {
	s.mu.Lock()
	s.theme = s.theme.Toggle()
	theme := s.theme
	s.mu.Unlock()
	s.saveTheme(ctx, theme)
	return theme
}

func (s *Session) saveTheme(ctx context.Context, theme models.Theme) {
	if err := s.store.SaveTheme(ctx, theme); err != nil {
		s.log.Warn("theme_not_persisted", zap.String("client_id", s.ClientID), zap.Error(err))
	}
	s.events.Publish(events.Event{
		Type:     events.TypeThemeChanged,
		ClientID: s.ClientID,
		Payload:  map[string]any{"theme": theme},
	})
}
