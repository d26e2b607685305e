package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/benvon/doit/internal/models"
	"github.com/benvon/doit/internal/tasks"
	"github.com/benvon/doit/internal/validation"
	"github.com/spf13/cobra"
)

// Sort orders accepted by list --sort
const (
	SortPriority = "priority"
	SortCreated  = "created"
)

// resolveID finds the task a user typed: a full id or a unique tail of the
// short id shown by list.
func resolveID(items []models.Task, arg string) (string, error) {
	arg = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(arg), "-", ""))
	if arg == "" {
		return "", fmt.Errorf("task id is required")
	}

	var match string
	for _, t := range items {
		compact := strings.ReplaceAll(t.ID, "-", "")
		if compact == arg {
			return t.ID, nil
		}
		if strings.HasSuffix(compact, arg) {
			if match != "" {
				return "", fmt.Errorf("task id %q is ambiguous", arg)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no task matches %q", arg)
	}
	return match, nil
}

// NewAddCmd creates the add command
func NewAddCmd(e *env) *cobra.Command {
	var priority string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := e.openAuthed(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			task, err := rt.session.Tasks.Add(cmd.Context(), strings.Join(args, " "), models.Priority(priority))
			if err != nil {
				return err
			}
			return e.printer().task("Added", task)
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", string(models.PriorityMedium), "low, medium or high")
	return cmd
}

// NewListCmd creates the list command
func NewListCmd(e *env) *cobra.Command {
	var filter, search, sortOrder string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Long:    "List tasks matching a category and search text, highest priority first.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateFilter(filter); err != nil {
				return err
			}
			if sortOrder != SortPriority && sortOrder != SortCreated {
				return fmt.Errorf("sort must be %q or %q", SortPriority, SortCreated)
			}

			rt, err := e.openAuthed(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			loc := rt.session.Tasks.Location()
			items := tasks.Select(rt.session.Tasks.All(), models.Filter(filter), search, e.opts.Now(), loc)
			if sortOrder == SortPriority {
				items = tasks.SortForDisplay(items)
			}
			return e.printer().tasks(items, loc)
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", string(models.FilterAll), "all, important, today, high, medium or low")
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive title search")
	cmd.Flags().StringVar(&sortOrder, "sort", SortPriority, "priority or created")
	return cmd
}

// toggleCmd builds done/star style commands that flip one flag of a task
func toggleCmd(e *env, use, short, verb string, toggle func(rt *runtime, cmd *cobra.Command, id string) (models.Task, bool)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := e.openAuthed(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := resolveID(rt.session.Tasks.All(), args[0])
			if err != nil {
				return err
			}
			task, ok := toggle(rt, cmd, id)
			if !ok {
				return fmt.Errorf("no task matches %q", args[0])
			}
			return e.printer().task(verb, task)
		},
	}
}

// NewDoneCmd creates the done command
func NewDoneCmd(e *env) *cobra.Command {
	return toggleCmd(e, "done", "Toggle whether a task is completed", "Toggled",
		func(rt *runtime, cmd *cobra.Command, id string) (models.Task, bool) {
			return rt.session.Tasks.ToggleComplete(cmd.Context(), id)
		})
}

// NewStarCmd creates the star command
func NewStarCmd(e *env) *cobra.Command {
	return toggleCmd(e, "star", "Toggle whether a task is important", "Starred",
		func(rt *runtime, cmd *cobra.Command, id string) (models.Task, bool) {
			return rt.session.Tasks.ToggleImportant(cmd.Context(), id)
		})
}

// NewUnremindCmd creates the unremind command
func NewUnremindCmd(e *env) *cobra.Command {
	return toggleCmd(e, "unremind", "Remove the reminder of a task", "Cleared reminder of",
		func(rt *runtime, cmd *cobra.Command, id string) (models.Task, bool) {
			return rt.session.Tasks.ClearNotification(cmd.Context(), id)
		})
}

// NewRemoveCmd creates the rm command
func NewRemoveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := e.openAuthed(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := resolveID(rt.session.Tasks.All(), args[0])
			if err != nil {
				return err
			}
			task, _ := rt.session.Tasks.Get(id)
			rt.session.Tasks.Delete(cmd.Context(), id)
			return e.printer().task("Deleted", task)
		},
	}
}

// NewRemindCmd creates the remind command
func NewRemindCmd(e *env) *cobra.Command {
	var date, clock, at string
	cmd := &cobra.Command{
		Use:   "remind <id>",
		Short: "Set a reminder on a task",
		Long:  "Set a reminder either with --date YYYY-MM-DD and --time HH:MM in the configured timezone, or with --at as RFC 3339.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := e.openAuthed(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			var when time.Time
			switch {
			case at != "" && (date != "" || clock != ""):
				return fmt.Errorf("use either --at or --date/--time, not both")
			case at != "":
				when, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("%w: %v", tasks.ErrInvalidReminder, err)
				}
			default:
				when, err = tasks.ParseReminder(date, clock, rt.session.Tasks.Location())
				if err != nil {
					return err
				}
			}

			id, err := resolveID(rt.session.Tasks.All(), args[0])
			if err != nil {
				return err
			}
			task, ok, err := rt.session.Tasks.SetNotification(cmd.Context(), id, when)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no task matches %q", args[0])
			}
			return e.printer().value(task, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "Reminder for %q set to %s\n", task.Title, reminder(task, rt.session.Tasks.Location()))
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reminder date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&clock, "time", "", "reminder time (HH:MM)")
	cmd.Flags().StringVar(&at, "at", "", "reminder timestamp (RFC 3339)")
	return cmd
}

// NewDueCmd creates the due command
func NewDueCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "List open tasks whose reminder has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := e.openAuthed(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			return e.printer().tasks(rt.session.Tasks.DueNotifications(e.opts.Now()), rt.session.Tasks.Location())
		},
	}
}

// NewCountsCmd creates the counts command
func NewCountsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show the number of tasks per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := e.openAuthed(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			c := rt.session.Tasks.Counts(e.opts.Now())
			return e.printer().value(c, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "all %d  important %d  today %d  pending %d  completed %d  due %d\n",
					c.All, c.Important, c.Today, c.Pending, c.Completed, c.Due)
			})
		},
	}
}
