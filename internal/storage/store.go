package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Keys of the persisted state layout. Nothing else is ever written.
const (
	KeyToken = "token"
	KeyUser  = "user"
	KeyTodos = "todos"
	KeyTheme = "theme"
)

// DefaultNamespace is used when a caller does not identify itself
const DefaultNamespace = "default"

var (
	// ErrInvalidNamespace is returned for namespaces that could escape the backend layout
	ErrInvalidNamespace = errors.New("invalid namespace")
	// ErrUnknownKey is returned when a key outside the persisted layout is used
	ErrUnknownKey = errors.New("unknown storage key")
)

// Store is a flat key-value store partitioned into namespaces. A namespace is
// the equivalent of one browser profile: each client gets its own token,
// user, todos and theme.
type Store interface {
	// Get returns the value for key and whether it was present
	Get(ctx context.Context, namespace, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, namespace, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, namespace, key string) error

	// Namespaces lists the namespaces known to the backend. A namespace
	// whose keys were all deleted may still be listed.
	Namespaces(ctx context.Context) ([]string, error)

	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error

	// Close releases backend resources
	Close() error
}

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateNamespace checks that a namespace is safe to use as a file name or key segment
func ValidateNamespace(namespace string) error {
	if !namespacePattern.MatchString(namespace) {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, namespace)
	}
	return nil
}

func validateKey(key string) error {
	switch key {
	case KeyToken, KeyUser, KeyTodos, KeyTheme:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

func validateAddress(namespace, key string) error {
	if err := ValidateNamespace(namespace); err != nil {
		return err
	}
	return validateKey(key)
}
