package weather

import (
	"errors"
	"fmt"

	"github.com/benvon/doit/internal/validation"
)

// Kind separates failures the UI shows differently
type Kind int

const (
	// KindNetwork covers transport failures, provider errors and bad payloads
	KindNetwork Kind = iota
	// KindNotFound means the provider does not know the place
	KindNotFound
)

func (k Kind) String() string {
	if k == KindNotFound {
		return "not_found"
	}
	return "network"
}

var (
	// ErrNotFound matches any *Error of KindNotFound
	ErrNotFound = errors.New("location not found")
	// ErrUnavailable matches any *Error of KindNetwork
	ErrUnavailable = errors.New("weather service unavailable")
	// ErrInvalidQuery is returned before any network call for unusable input
	ErrInvalidQuery = fmt.Errorf("%w: invalid weather query", validation.ErrInvalid)
)

// Error is returned for every failed lookup
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("weather lookup failed (status %d, %s): %s", e.StatusCode, e.Kind, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("weather lookup failed (status %d, %s)", e.StatusCode, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("weather lookup failed (%s): %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("weather lookup failed (%s)", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinels
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrUnavailable:
		return e.Kind == KindNetwork
	default:
		return false
	}
}

// IsNotFound reports whether err is a not-found lookup failure
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
