package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/benvon/doit/internal/events"
	"github.com/benvon/doit/internal/models"
	"github.com/benvon/doit/internal/storage"
	"go.uber.org/zap"
)

// DefaultLoginDelay simulates the round trip of a real login call
const DefaultLoginDelay = 800 * time.Millisecond

// ErrInvalidCredentials is returned when the email/password pair does not match
var ErrInvalidCredentials = errors.New("invalid credentials")

// State is a point-in-time copy of the authentication container
type State struct {
	Token  string            `json:"-"`
	User   *models.User      `json:"user"`
	Status models.LoadStatus `json:"status"`
	Error  string            `json:"error,omitempty"`
}

// IsAuthenticated reports whether a token is present
func (s State) IsAuthenticated() bool {
	return s.Token != ""
}

// Container holds the session of one client.
//
// Status moves idle -> loading -> succeeded|failed on every login attempt;
// Logout always returns to idle with no credentials. Concurrent logins are
// not deduplicated: whichever finishes last decides the final state.
type Container struct {
	mu    sync.RWMutex
	state State

	store    *storage.Accessor
	creds    Credentials
	issuer   *Issuer
	delay    time.Duration
	events   events.Publisher
	clientID string
	log      *zap.Logger
}

// Option configures a Container
type Option func(*Container)

// WithDelay sets the simulated login latency
func WithDelay(d time.Duration) Option {
	return func(c *Container) { c.delay = d }
}

// WithCredentials replaces the built-in demo credentials
func WithCredentials(creds Credentials) Option {
	return func(c *Container) { c.creds = creds }
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

// NewContainer creates a container and restores any session persisted in
// store. A token without a user (or the reverse) is treated as no session.
func NewContainer(ctx context.Context, store *storage.Accessor, issuer *Issuer, opts ...Option) *Container {
	c := &Container{
		store:    store,
		issuer:   issuer,
		delay:    DefaultLoginDelay,
		events:   events.Nop{},
		clientID: store.Namespace(),
		log:      zap.NewNop(),
		state:    State{Status: models.StatusIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.creds.hash) == 0 {
		c.creds = DemoCredentials()
	}

	token := store.Token(ctx)
	user := store.User(ctx)
	if token != "" && user != nil {
		c.state.Token = token
		c.state.User = user
	} else if token != "" || user != nil {
		c.log.Warn("discarding_partial_session", zap.String("client_id", c.clientID))
	}

	return c
}

// Login checks email and password against the fixed credentials after the
// simulated delay. On success the new token and user are persisted.
func (c *Container) Login(ctx context.Context, email, password string) (State, error) {
	c.mu.Lock()
	c.state.Status = models.StatusLoading
	c.state.Error = ""
	c.mu.Unlock()
	c.publish()

	if err := c.wait(ctx); err != nil {
		return c.fail(err), err
	}

	if !c.creds.Match(email, password) {
		c.log.Info("login_failed", zap.String("client_id", c.clientID))
		return c.fail(ErrInvalidCredentials), ErrInvalidCredentials
	}

	user := c.creds.User()
	token, err := c.issuer.Issue(user)
	if err != nil {
		return c.fail(err), err
	}

	if err := c.store.SaveSession(ctx, token, user); err != nil {
		c.log.Warn("session_not_persisted", zap.String("client_id", c.clientID), zap.Error(err))
	}

	c.mu.Lock()
	c.state = State{Token: token, User: &user, Status: models.StatusSucceeded}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.publish()

	c.log.Info("login_succeeded", zap.String("client_id", c.clientID))
	return snapshot, nil
}

// Logout clears the session in memory and in the store. It is idempotent.
func (c *Container) Logout(ctx context.Context) State {
	c.mu.Lock()
	c.state = State{Status: models.StatusIdle}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.store.ClearSession(ctx); err != nil {
		c.log.Warn("session_not_cleared", zap.String("client_id", c.clientID), zap.Error(err))
	}
	c.publish()
	return snapshot
}

// IsAuthenticated reports whether a token is present
func (c *Container) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Token != ""
}

// State returns a copy of the current state
func (c *Container) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Refresh re-reads the persisted session so a login or logout written by
// another process is seen here. It does nothing while a login is in flight
// and keeps the current session when the store cannot be read.
func (c *Container) Refresh(ctx context.Context) error {
	token, user, err := c.store.LoadSession(ctx)
	if err != nil {
		return err
	}
	if token == "" || user == nil {
		token, user = "", nil
	}

	c.mu.Lock()
	if c.state.Status == models.StatusLoading || c.state.Token == token {
		c.mu.Unlock()
		return nil
	}
	if token == "" {
		c.state = State{Status: models.StatusIdle}
	} else {
		c.state = State{Token: token, User: user, Status: models.StatusSucceeded}
	}
	c.mu.Unlock()

	c.log.Debug("session_refreshed", zap.String("client_id", c.clientID), zap.Bool("authenticated", token != ""))
	c.publish()
	return nil
}

// Authorize reports whether token is the current session token and still verifies
func (c *Container) Authorize(token string) bool {
	c.mu.RLock()
	current := c.state.Token
	c.mu.RUnlock()

	if token == "" || current == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(current)) != 1 {
		return false
	}
	if err := c.issuer.Verify(token); err != nil {
		c.log.Debug("session_token_rejected", zap.String("client_id", c.clientID), zap.Error(err))
		return false
	}
	return true
}

func (c *Container) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Container) fail(err error) State {
	c.mu.Lock()
	c.state.Status = models.StatusFailed
	c.state.Error = err.Error()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.publish()
	return snapshot
}

func (c *Container) snapshotLocked() State {
	s := c.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (c *Container) publish() {
	state := c.State()
	c.events.Publish(events.Event{
		Type:     events.TypeAuthChanged,
		ClientID: c.clientID,
		Payload: map[string]any{
			"authenticated": state.IsAuthenticated(),
			"status":        state.Status,
			"error":         state.Error,
		},
	})
}
