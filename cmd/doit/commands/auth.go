package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/benvon/doit/internal/auth"
	"github.com/spf13/cobra"
)

// NewLoginCmd creates the login command
func NewLoginCmd(e *env) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			state, err := rt.session.Auth.Login(cmd.Context(), email, password)
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return fmt.Errorf("login failed: %s", state.Error)
			}
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			return e.printer().value(state, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "Logged in as %s <%s>\n", state.User.Name, state.User.Email)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			state := rt.session.Auth.Logout(cmd.Context())
			return e.printer().value(state, func(w io.Writer) {
				_, _ = fmt.Fprintln(w, "Logged out")
			})
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			state := rt.session.Auth.State()
			return e.printer().value(state, func(w io.Writer) {
				if !state.IsAuthenticated() || state.User == nil {
					_, _ = fmt.Fprintln(w, "Not logged in")
					return
				}
				_, _ = fmt.Fprintf(w, "%s <%s> (client %s)\n", state.User.Name, state.User.Email, rt.session.ClientID)
			})
		},
	}
}
