package tasks

import (
	"fmt"
	"strings"
	"time"
)

const (
	reminderDateLayout  = "2006-01-02"
	reminderClockLayout = "15:04"
)

// ParseReminder combines a YYYY-MM-DD date and an HH:MM clock time in loc
// into a single reminder timestamp.
func ParseReminder(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("%w: date and time are both required", ErrInvalidReminder)
	}
	if loc == nil {
		loc = time.Local
	}

	ts, err := time.ParseInLocation(reminderDateLayout+" "+reminderClockLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidReminder, err)
	}
	return ts, nil
}
