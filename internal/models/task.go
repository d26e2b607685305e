package models

import (
	"time"
)

// Priority represents how urgent a task is
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank returns the display rank of the priority (high first).
// Unknown priorities sort after every known one.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Filter is the active category used by the filtered task view
type Filter string

const (
	FilterAll       Filter = "all"
	FilterImportant Filter = "important"
	FilterToday     Filter = "today"
	FilterHigh      Filter = Filter(PriorityHigh)
	FilterMedium    Filter = Filter(PriorityMedium)
	FilterLow       Filter = Filter(PriorityLow)
)

// LoadStatus tracks the last asynchronous step of a state container
type LoadStatus string

const (
	StatusIdle      LoadStatus = "idle"
	StatusLoading   LoadStatus = "loading"
	StatusSucceeded LoadStatus = "succeeded"
	StatusFailed    LoadStatus = "failed"
)

// Task represents a single todo item. The JSON layout is the persisted one.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Priority     Priority   `json:"priority"`
	Completed    bool       `json:"completed"`
	Important    bool       `json:"important"`
	CreatedAt    time.Time  `json:"createdAt"`
	Notification *time.Time `json:"notification"`
}

// Clone returns a deep copy so callers never alias container state
func (t Task) Clone() Task {
	if t.Notification != nil {
		n := *t.Notification
		t.Notification = &n
	}
	return t
}

// CloneTasks copies a task slice element by element
func CloneTasks(in []Task) []Task {
	out := make([]Task, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
