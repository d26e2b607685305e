package commands

import (
	"fmt"
	"io"

	"github.com/benvon/doit/internal/models"
	"github.com/spf13/cobra"
)

// NewThemeCmd creates the theme command
func NewThemeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [dark|light|toggle]",
		Short:     "Show or change the color theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(models.ThemeDark), string(models.ThemeLight), "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			theme := rt.session.Theme()
			if len(args) == 1 {
				if args[0] == "toggle" {
					theme = rt.session.ToggleTheme(cmd.Context())
				} else if theme, err = rt.session.SetTheme(cmd.Context(), models.Theme(args[0])); err != nil {
					return err
				}
			}
			return e.printer().value(map[string]models.Theme{"theme": theme}, func(w io.Writer) {
				_, _ = fmt.Fprintln(w, theme)
			})
		},
	}
}
