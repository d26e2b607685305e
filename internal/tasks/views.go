package tasks

import (
	"slices"
	"strings"
	"time"

	"github.com/benvon/doit/internal/models"
)

// Counts are the per-category badge numbers shown next to each list
type Counts struct {
	All       int `json:"all"`
	Important int `json:"important"`
	Today     int `json:"today"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Due       int `json:"due"`
}

// Select narrows tasks by search term and then by category. The search is a
// case-insensitive substring match on the title. Relative order is kept.
func Select(tasks []models.Task, filter models.Filter, search string, now time.Time, loc *time.Location) []models.Task {
	term := strings.ToLower(search)
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if term != "" && !strings.Contains(strings.ToLower(t.Title), term) {
			continue
		}
		if !matchesFilter(t, filter, now, loc) {
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}

func matchesFilter(t models.Task, filter models.Filter, now time.Time, loc *time.Location) bool {
	switch filter {
	case models.FilterAll, "":
		return true
	case models.FilterImportant:
		return t.Important
	case models.FilterToday:
		return t.Notification != nil && sameDay(*t.Notification, now, loc)
	case models.FilterHigh, models.FilterMedium, models.FilterLow:
		return t.Priority == models.Priority(filter)
	default:
		return false
	}
}

// Due returns the open tasks whose reminder is at or before now
func Due(tasks []models.Task, now time.Time) []models.Task {
	out := make([]models.Task, 0)
	for _, t := range tasks {
		if isDue(t, now) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func isDue(t models.Task, now time.Time) bool {
	return t.Notification != nil && !t.Notification.After(now) && !t.Completed
}

// SortForDisplay orders by priority (high first) and then newest first.
// The input is left untouched.
func SortForDisplay(tasks []models.Task) []models.Task {
	out := models.CloneTasks(tasks)
	slices.SortStableFunc(out, func(a, b models.Task) int {
		if r := a.Priority.Rank() - b.Priority.Rank(); r != 0 {
			return r
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// Partition splits tasks into open and completed, keeping order in each
func Partition(tasks []models.Task) (pending, completed []models.Task) {
	pending = make([]models.Task, 0, len(tasks))
	completed = make([]models.Task, 0)
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t.Clone())
		} else {
			pending = append(pending, t.Clone())
		}
	}
	return pending, completed
}

// Tally computes the category counts. Today only counts open tasks.
func Tally(tasks []models.Task, now time.Time, loc *time.Location) Counts {
	var c Counts
	for _, t := range tasks {
		c.All++
		if t.Important {
			c.Important++
		}
		if t.Completed {
			c.Completed++
		} else {
			c.Pending++
			if t.Notification != nil && sameDay(*t.Notification, now, loc) {
				c.Today++
			}
		}
		if isDue(t, now) {
			c.Due++
		}
	}
	return c
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
