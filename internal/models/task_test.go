package models

import (
	"testing"
	"time"
)

func TestPriority_Rank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value Priority
		want  int
	}{
		{"high", PriorityHigh, 1},
		{"medium", PriorityMedium, 2},
		{"low", PriorityLow, 3},
		{"unknown", Priority("urgent"), 4},
		{"empty", Priority(""), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.value.Rank(); got != tt.want {
				t.Errorf("Rank(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestFilter_PriorityValues(t *testing.T) {
	t.Parallel()

	// priority filters must match the stored priority strings
	for _, p := range []Priority{PriorityHigh, PriorityMedium, PriorityLow} {
		if string(Filter(p)) != string(p) {
			t.Errorf("Expected filter %q to equal priority %q", Filter(p), p)
		}
	}
	if FilterHigh != "high" || FilterMedium != "medium" || FilterLow != "low" {
		t.Error("Expected priority filters to use the priority names")
	}
}

func TestTheme_Toggle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value Theme
		want  Theme
	}{
		{"dark", ThemeDark, ThemeLight},
		{"light", ThemeLight, ThemeDark},
		{"garbage", Theme("sepia"), ThemeLight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.value.Toggle(); got != tt.want {
				t.Errorf("Toggle(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
	if DefaultTheme != ThemeDark {
		t.Errorf("Expected dark to be the default theme, got %q", DefaultTheme)
	}
}

func TestTask_CloneDoesNotAlias(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	orig := Task{ID: "a1", Title: "Pay rent", Notification: &at}

	clone := orig.Clone()
	*clone.Notification = at.Add(time.Hour)
	if !orig.Notification.Equal(at) {
		t.Error("Expected the clone's reminder to be independent of the original")
	}

	list := CloneTasks([]Task{orig})
	list[0].Title = "changed"
	*list[0].Notification = at.Add(2 * time.Hour)
	if orig.Title != "Pay rent" || !orig.Notification.Equal(at) {
		t.Error("Expected CloneTasks to copy every element deeply")
	}
	if got := CloneTasks(nil); len(got) != 0 {
		t.Errorf("Expected an empty copy of nil, got %v", got)
	}
}
