package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benvon/doit/internal/models"
	"go.uber.org/zap"
)

// Accessor is the typed view of one namespace. Reads never fail: a missing,
// unreadable or corrupt value is logged and replaced by the empty value, so a
// broken task list degrades to "no tasks" instead of taking the caller down.
// Writes return their error after logging it.
type Accessor struct {
	store     Store
	namespace string
	log       *zap.Logger
}

// NewAccessor binds a store to a namespace
func NewAccessor(store Store, namespace string, log *zap.Logger) (*Accessor, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Accessor{store: store, namespace: namespace, log: log}, nil
}

// Namespace returns the namespace this accessor is bound to
func (a *Accessor) Namespace() string {
	return a.namespace
}

// Token returns the persisted session token, or "" if there is none
func (a *Accessor) Token(ctx context.Context) string {
	v, ok := a.read(ctx, KeyToken)
	if !ok {
		return ""
	}
	return v
}

// User returns the persisted user record, or nil
func (a *Accessor) User(ctx context.Context) *models.User {
	v, ok := a.read(ctx, KeyUser)
	if !ok {
		return nil
	}
	return a.parseUser(v)
}

func (a *Accessor) parseUser(v string) *models.User {
	if v == "" || v == "null" {
		return nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(v), &user); err != nil {
		a.log.Warn("corrupt_persisted_value",
			zap.String("namespace", a.namespace),
			zap.String("key", KeyUser),
			zap.Error(err),
		)
		return nil
	}
	return &user
}

// SaveSession persists token and user together
func (a *Accessor) SaveSession(ctx context.Context, token string, user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	return errors.Join(
		a.write(ctx, KeyToken, token),
		a.write(ctx, KeyUser, string(raw)),
	)
}

// ClearSession removes the persisted token and user
func (a *Accessor) ClearSession(ctx context.Context) error {
	return errors.Join(
		a.remove(ctx, KeyToken),
		a.remove(ctx, KeyUser),
	)
}

// LoadSession returns the persisted token and user. Unlike Token and User it
// reports a failed read, so callers holding a session can keep it. A token
// without a user (or the reverse) comes back as is.
func (a *Accessor) LoadSession(ctx context.Context) (string, *models.User, error) {
	token, _, err := a.get(ctx, KeyToken)
	if err != nil {
		return "", nil, err
	}
	raw, _, err := a.get(ctx, KeyUser)
	if err != nil {
		return "", nil, err
	}
	return token, a.parseUser(raw), nil
}

// Tasks returns the persisted task list in insertion order; never nil
func (a *Accessor) Tasks(ctx context.Context) []models.Task {
	tasks, err := a.LoadTasks(ctx)
	if err != nil {
		return []models.Task{}
	}
	return tasks
}

// LoadTasks is Tasks but reports a failed read. A corrupt list is still
// logged and returned as empty.
func (a *Accessor) LoadTasks(ctx context.Context) ([]models.Task, error) {
	v, ok, err := a.get(ctx, KeyTodos)
	if err != nil {
		return nil, err
	}
	if !ok || v == "" {
		return []models.Task{}, nil
	}
	var tasks []models.Task
	if err := json.Unmarshal([]byte(v), &tasks); err != nil {
		a.log.Error("error_loading_todos",
			zap.String("namespace", a.namespace),
			zap.Error(err),
		)
		return []models.Task{}, nil
	}
	if tasks == nil {
		return []models.Task{}, nil
	}
	return tasks, nil
}

// SaveTasks persists the full task list
func (a *Accessor) SaveTasks(ctx context.Context, tasks []models.Task) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	raw, err := json.Marshal(tasks)
	if err != nil {
		a.log.Error("error_saving_todos", zap.String("namespace", a.namespace), zap.Error(err))
		return fmt.Errorf("failed to marshal todos: %w", err)
	}
	return a.write(ctx, KeyTodos, string(raw))
}

// Theme returns the persisted theme, defaulting to dark
func (a *Accessor) Theme(ctx context.Context) models.Theme {
	theme, err := a.LoadTheme(ctx)
	if err != nil {
		return models.DefaultTheme
	}
	return theme
}

// LoadTheme is Theme but reports a failed read
func (a *Accessor) LoadTheme(ctx context.Context) (models.Theme, error) {
	v, ok, err := a.get(ctx, KeyTheme)
	if err != nil {
		return "", err
	}
	if !ok {
		return models.DefaultTheme, nil
	}
	switch t := models.Theme(v); t {
	case models.ThemeDark, models.ThemeLight:
		return t, nil
	default:
		a.log.Warn("corrupt_persisted_value",
			zap.String("namespace", a.namespace),
			zap.String("key", KeyTheme),
		)
		return models.DefaultTheme, nil
	}
}

// SaveTheme persists the theme preference
func (a *Accessor) SaveTheme(ctx context.Context, theme models.Theme) error {
	return a.write(ctx, KeyTheme, string(theme))
}

func (a *Accessor) read(ctx context.Context, key string) (string, bool) {
	v, ok, err := a.get(ctx, key)
	if err != nil {
		return "", false
	}
	return v, ok
}

func (a *Accessor) get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := a.store.Get(ctx, a.namespace, key)
	if err != nil {
		a.log.Error("store_read_failed",
			zap.String("namespace", a.namespace),
			zap.String("key", key),
			zap.Error(err),
		)
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, ok, nil
}

func (a *Accessor) write(ctx context.Context, key, value string) error {
	if err := a.store.Set(ctx, a.namespace, key, value); err != nil {
		a.log.Error("store_write_failed",
			zap.String("namespace", a.namespace),
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

func (a *Accessor) remove(ctx context.Context, key string) error {
	if err := a.store.Delete(ctx, a.namespace, key); err != nil {
		a.log.Error("store_delete_failed",
			zap.String("namespace", a.namespace),
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}
