package validation

import (
	"errors"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Buy milk", "Buy milk"},
		{"surrounding whitespace", "   Pay rent  ", "Pay rent"},
		{"only whitespace", "   ", ""},
		{"control characters", "Call\x00 mom\x07", "Call mom"},
		{"keeps tab inside", "a\tb", "a\tb"},
		{"control chars around spaces", "\x01  x  \x02", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidatePriority(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"low", "medium", "high"} {
		if err := ValidatePriority(v); err != nil {
			t.Errorf("Expected %q to be valid, got %v", v, err)
		}
	}
	for _, v := range []string{"", "urgent", "HIGH"} {
		err := ValidatePriority(v)
		if err == nil {
			t.Errorf("Expected %q to be invalid", v)
			continue
		}
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("Expected error for %q to wrap ErrInvalid, got %v", v, err)
		}
	}
}

func TestValidateFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		valid bool
	}{
		{"all", true},
		{"important", true},
		{"today", true},
		{"high", true},
		{"medium", true},
		{"low", true},
		{"planned", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()
			err := ValidateFilter(tt.value)
			if tt.valid && err != nil {
				t.Errorf("Expected %q to be valid, got %v", tt.value, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected %q to be invalid", tt.value)
			}
		})
	}
}

func TestStruct(t *testing.T) {
	t.Parallel()

	type request struct {
		Title    string `validate:"required"`
		Priority string `validate:"omitempty,priority"`
		Theme    string `validate:"omitempty,theme"`
	}

	if err := Struct(request{Title: "x", Priority: "high", Theme: "dark"}); err != nil {
		t.Fatalf("Expected valid request, got %v", err)
	}

	err := Struct(request{Title: "x", Priority: "urgent"})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Expected ErrInvalid for bad priority, got %v", err)
	}

	err = Struct(request{})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Expected ErrInvalid for missing title, got %v", err)
	}
}
