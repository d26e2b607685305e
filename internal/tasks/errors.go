package tasks

import (
	"fmt"

	"github.com/benvon/doit/internal/validation"
)

// Rejected input. Every one wraps validation.ErrInvalid and is returned
// before any state changes.
var (
	ErrEmptyTitle      = fmt.Errorf("%w: title is required", validation.ErrInvalid)
	ErrTitleTooLong    = fmt.Errorf("%w: title is too long", validation.ErrInvalid)
	ErrInvalidPriority = fmt.Errorf("%w: invalid priority", validation.ErrInvalid)
	ErrInvalidFilter   = fmt.Errorf("%w: invalid filter", validation.ErrInvalid)
	ErrInvalidReminder = fmt.Errorf("%w: invalid reminder date or time", validation.ErrInvalid)
)
