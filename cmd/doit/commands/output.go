package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/benvon/doit/internal/models"
)

type printer struct {
	out  io.Writer
	json bool
}

// value writes v as indented JSON, or calls text for the human form
func (p *printer) value(v any, text func(w io.Writer)) error {
	if p.json {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(p.out)
	return nil
}

// tasks prints a task table
func (p *printer) tasks(items []models.Task, loc *time.Location) error {
	if p.json {
		if items == nil {
			items = []models.Task{}
		}
		return p.value(items, nil)
	}
	if len(items) == 0 {
		_, _ = fmt.Fprintln(p.out, "No tasks")
		return nil
	}

	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tDONE\tSTAR\tPRIORITY\tREMINDER\tTITLE")
	for _, t := range items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(t.ID), mark(t.Completed, "x"), mark(t.Important, "*"), t.Priority, reminder(t, loc), t.Title)
	}
	return tw.Flush()
}

// task prints a one-line confirmation for a single task
func (p *printer) task(verb string, t models.Task) error {
	return p.value(t, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "%s %s %q\n", verb, shortID(t.ID), t.Title)
	})
}

func mark(on bool, sym string) string {
	if on {
		return sym
	}
	return ""
}

func reminder(t models.Task, loc *time.Location) string {
	if t.Notification == nil {
		return "-"
	}
	return t.Notification.In(loc).Format("2006-01-02 15:04")
}

// shortIDLength is enough to tell ids apart in a personal list
const shortIDLength = 8

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) <= shortIDLength {
		return id
	}
	return id[len(id)-shortIDLength:]
}
