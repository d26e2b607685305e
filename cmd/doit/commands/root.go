package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/benvon/doit/internal/app"
	"github.com/benvon/doit/internal/auth"
	"github.com/benvon/doit/internal/config"
	"github.com/benvon/doit/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Output formats accepted by --output
const (
	OutputText = "text"
	OutputJSON = "json"
)

// ErrNotLoggedIn is returned by task commands when the client has no session
var ErrNotLoggedIn = errors.New("not logged in, run 'doit login' first")

// Options lets tests replace the pieces main wires from the environment
type Options struct {
	// Store overrides the configured backend; it is not closed by commands
	Store storage.Store
	// Out receives command output; defaults to stdout
	Out io.Writer
	// Now replaces the wall clock for reminders and the today view
	Now func() time.Time
	// LoadConfig replaces config.Load
	LoadConfig func() (*config.Config, error)
}

// env carries the resolved settings of one invocation
type env struct {
	opts Options
	v    *viper.Viper
}

// NewRootCmd creates the doit command tree
func NewRootCmd(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}

	e := &env{opts: opts, v: viper.New()}

	cmd := &cobra.Command{
		Use:           "doit",
		Short:         "Manage your DoIt tasks from the terminal",
		Long:          "Command line client for DoIt. Works directly against the configured store, so tasks show up in the web app too.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.init(cmd)
		},
	}
	cmd.SetOut(opts.Out)

	flags := cmd.PersistentFlags()
	flags.String("client", storage.DefaultNamespace, "client id whose session to use")
	flags.StringP("output", "o", OutputText, "output format (text|json)")
	flags.String("store-backend", "", "override STORE_BACKEND")
	flags.String("store-path", "", "override STORE_PATH")
	flags.String("config", "", "CLI defaults file (yaml)")

	cmd.AddCommand(
		NewLoginCmd(e),
		NewLogoutCmd(e),
		NewWhoamiCmd(e),
		NewAddCmd(e),
		NewListCmd(e),
		NewDoneCmd(e),
		NewStarCmd(e),
		NewRemoveCmd(e),
		NewRemindCmd(e),
		NewUnremindCmd(e),
		NewDueCmd(e),
		NewCountsCmd(e),
		NewWeatherCmd(e),
		NewThemeCmd(e),
		NewWatchCmd(e),
	)
	return cmd
}

// init binds flags and DOIT_* variables, then reads the optional defaults file
func (e *env) init(cmd *cobra.Command) error {
	e.v.SetEnvPrefix("DOIT")
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	e.v.AutomaticEnv()
	if err := e.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if path := e.v.GetString("config"); path != "" {
		e.v.SetConfigFile(path)
		if err := e.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}

	switch e.output() {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("unknown output format %q", e.output())
	}
	return nil
}

func (e *env) output() string {
	return strings.ToLower(e.v.GetString("output"))
}

func (e *env) clientID() string {
	return e.v.GetString("client")
}

func (e *env) printer() *printer {
	return &printer{out: e.opts.Out, json: e.output() == OutputJSON}
}

// runtime is everything a command needs for one client
type runtime struct {
	cfg     *config.Config
	app     *app.App
	session *app.Session
	store   storage.Store
	owned   bool
}

func (r *runtime) Close() {
	if r.owned && r.store != nil {
		_ = r.store.Close()
	}
}

// open loads config, opens the store and builds the session of --client
func (e *env) open(ctx context.Context) (*runtime, error) {
	cfg, err := e.opts.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if backend := e.v.GetString("store-backend"); backend != "" {
		cfg.StoreBackend = backend
	}
	if path := e.v.GetString("store-path"); path != "" {
		cfg.StorePath = path
	}

	rt := &runtime{cfg: cfg, store: e.opts.Store}
	if rt.store == nil {
		if cfg.StoreBackend == storage.BackendMemory {
			return nil, fmt.Errorf("the memory store does not survive between commands, pick another STORE_BACKEND")
		}
		rt.store, err = storage.Open(ctx, storage.Options{
			Backend:     cfg.StoreBackend,
			Path:        cfg.StorePath,
			RedisURL:    cfg.RedisURL,
			DatabaseURL: cfg.DatabaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		rt.owned = true
	}

	issuer, err := auth.NewIssuer([]byte(cfg.TokenSecret))
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("create token issuer: %w", err)
	}
	loc, err := cfg.TimeLocation()
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.app, err = app.New(app.Options{
		Store:      rt.store,
		Issuer:     issuer,
		LoginDelay: cfg.LoginDelay,
		Location:   loc,
	})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("create app: %w", err)
	}

	rt.session, err = rt.app.Session(ctx, e.clientID())
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open session: %w", err)
	}
	return rt, nil
}

// openAuthed is open plus the login gate every task command goes through
func (e *env) openAuthed(ctx context.Context) (*runtime, error) {
	rt, err := e.open(ctx)
	if err != nil {
		return nil, err
	}
	if !rt.session.Auth.IsAuthenticated() {
		rt.Close()
		return nil, ErrNotLoggedIn
	}
	return rt, nil
}
