package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/doit/internal/models"
	"github.com/go-playground/validator/v10"
)

// ErrInvalid is wrapped by every input validation failure so callers can
// tell rejected input apart from infrastructure errors with errors.Is.
var ErrInvalid = errors.New("validation failed")

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("priority", validatePriority); err != nil {
		panic(fmt.Sprintf("failed to register priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_filter", validateFilter); err != nil {
		panic(fmt.Sprintf("failed to register task_filter validator: %v", err))
	}
	if err := Validate.RegisterValidation("theme", validateTheme); err != nil {
		panic(fmt.Sprintf("failed to register theme validator: %v", err))
	}
}

func validatePriority(fl validator.FieldLevel) bool {
	return ValidatePriority(fl.Field().String()) == nil
}

func validateFilter(fl validator.FieldLevel) bool {
	return ValidateFilter(fl.Field().String()) == nil
}

func validateTheme(fl validator.FieldLevel) bool {
	return ValidateTheme(fl.Field().String()) == nil
}

// SanitizeText trims whitespace and removes control characters except newline and tab
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return strings.TrimSpace(sanitized.String())
}

// ValidatePriority validates a Priority string value
func ValidatePriority(value string) error {
	switch models.Priority(value) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return nil
	default:
		return fmt.Errorf("%w: invalid priority: %q (must be 'low', 'medium', or 'high')", ErrInvalid, value)
	}
}

// ValidateFilter validates a task filter category
func ValidateFilter(value string) error {
	switch models.Filter(value) {
	case models.FilterAll, models.FilterImportant, models.FilterToday,
		models.FilterHigh, models.FilterMedium, models.FilterLow:
		return nil
	default:
		return fmt.Errorf("%w: invalid filter: %q", ErrInvalid, value)
	}
}

// ValidateTheme validates a theme name
func ValidateTheme(value string) error {
	switch models.Theme(value) {
	case models.ThemeDark, models.ThemeLight:
		return nil
	default:
		return fmt.Errorf("%w: invalid theme: %q (must be 'dark' or 'light')", ErrInvalid, value)
	}
}

// Struct runs struct-tag validation and folds the first failure into ErrInvalid
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return fmt.Errorf("%w: field %s failed on %q", ErrInvalid, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalid, err)
}
