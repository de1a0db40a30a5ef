package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lborres/agenda"
)

// routeAnnotation maps a command onto the navigation route it enters
const routeAnnotation = "agenda/route"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"

	stdin  io.Reader
	config Config
	logger *slog.Logger
	app    *App
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the agenda CLI.
func NewRootCommand(stdin io.Reader) *cobra.Command {
	cmd, _ := newRootCommand(stdin)
	return cmd
}

func newRootCommand(stdin io.Reader) (*cobra.Command, *RootOptions) {
	opts := &RootOptions{stdin: stdin}

	cmd := &cobra.Command{
		Use:           "agenda",
		Short:         "agenda - events and locations from the terminal",
		Long:          "A client for the agenda events service: log in, then manage events, locations and users.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			cfg, err := LoadConfig(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.config = cfg
			opts.logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)

			route, guarded := cmd.Annotations[routeAnnotation]
			if !guarded {
				return nil
			}
			return opts.navigate(cmd.Context(), agenda.RouteName(route))
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.close()
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default "+DefaultConfigPath()+")")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewSignupCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewLocationsCommand(opts))
	cmd.AddCommand(NewUsersCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMockAPICommand(opts))

	return cmd, opts
}

// Execute runs the CLI and returns the process exit code
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd, opts := newRootCommand(stdin)
	// PersistentPostRunE is skipped when a command fails
	defer opts.close()

	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	if !isValidFormat(format) {
		format = "text"
	}
	out := &OutputFormatter{Format: format, Writer: stderr}
	if format == "json" {
		out.Writer = stdout
	}
	_ = out.Error(err)

	return GetExitCode(err)
}

// guarded marks cmd as entering route
func guarded(cmd *cobra.Command, route agenda.RouteName) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[routeAnnotation] = string(route)
	return cmd
}

// navigate bootstraps the session and runs the guard for route.
// A redirect means the command may not run now.
func (o *RootOptions) navigate(ctx context.Context, route agenda.RouteName) error {
	app, err := o.App(ctx)
	if err != nil {
		return err
	}

	state := app.Agenda.Bootstrap(ctx)
	decision := app.Agenda.Navigate(route)
	if decision.Proceed() {
		return nil
	}

	switch decision.Redirect {
	case agenda.RouteHome:
		return NewExitError(ExitNavigation, fmt.Sprintf("already logged in as %s, run agenda logout first", state.User.Email))
	case agenda.RouteLogin:
		return NewExitError(ExitNavigation, "not logged in, run agenda login")
	default:
		return NewExitError(ExitNavigation, fmt.Sprintf("cannot enter %s: redirected to %s", route, decision.Redirect))
	}
}

// App builds the invocation's Agenda on first use
func (o *RootOptions) App(ctx context.Context) (*App, error) {
	if o.app != nil {
		return o.app, nil
	}
	app, err := newApp(ctx, o.config, o.logger, nil)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "could not set up agenda", err)
	}
	o.app = app
	return app, nil
}

func (o *RootOptions) close() error {
	if o.app == nil {
		return nil
	}
	err := o.app.Close()
	o.app = nil
	return err
}

func (o *RootOptions) output(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
