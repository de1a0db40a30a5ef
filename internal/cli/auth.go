package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lborres/agenda"
)

type credentialFlags struct {
	email         string
	passwordStdin bool
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "account email (prompted when omitted)")
	cmd.Flags().BoolVar(&f.passwordStdin, "password-stdin", false, "read the password from stdin")
}

func NewLoginCommand(opts *RootOptions) *cobra.Command {
	var creds credentialFlags

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := opts.prompt(cmd, "Email: ", creds.email)
			if err != nil {
				return err
			}
			password, err := opts.readPassword(cmd, creds.passwordStdin)
			if err != nil {
				return err
			}

			user, err := opts.app.Agenda.Session.Login(cmd.Context(), agenda.LoginInput{
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}

			return opts.output(cmd).Success(user, fmt.Sprintf("Logged in as %s <%s>", user.Name(), user.Email))
		},
	}
	creds.register(cmd)

	return guarded(cmd, agenda.RouteLogin)
}

func NewSignupCommand(opts *RootOptions) *cobra.Command {
	var (
		creds     credentialFlags
		firstName string
		lastName  string
	)

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log into it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := opts.prompt(cmd, "Email: ", creds.email)
			if err != nil {
				return err
			}
			password, err := opts.readPassword(cmd, creds.passwordStdin)
			if err != nil {
				return err
			}

			user, err := opts.app.Agenda.Session.Register(cmd.Context(), agenda.SignUpInput{
				FirstName: firstName,
				LastName:  lastName,
				Email:     email,
				Password:  password,
			})
			if err != nil {
				return err
			}

			return opts.output(cmd).Success(user, fmt.Sprintf("Welcome, %s. You are logged in.", user.Name()))
		},
	}
	creds.register(cmd)
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")

	return guarded(cmd, agenda.RouteSignup)
}

func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.app.Agenda.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			return opts.output(cmd).Success(map[string]bool{"loggedOut": true}, "Logged out")
		},
	}

	return guarded(cmd, agenda.RouteHome)
}

func NewWhoamiCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user := opts.app.Agenda.Session.State().User
			return opts.output(cmd).Success(user, fmt.Sprintf("%s <%s> (%s)", user.Name(), user.Email, user.ID))
		},
	}

	return guarded(cmd, agenda.RouteHome)
}

// prompt returns value, or asks for it when it is empty and stdin is a terminal
func (o *RootOptions) prompt(cmd *cobra.Command, label, value string) (string, error) {
	if value != "" || !o.interactive() {
		return value, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := bufio.NewReader(o.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", WrapExitError(ExitCommandError, "could not read input", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads one line from stdin with --password-stdin, otherwise
// prompts on the terminal without echo
func (o *RootOptions) readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(o.stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", WrapExitError(ExitCommandError, "could not read password", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	if !o.interactive() {
		return "", NewExitError(ExitCommandError, "no terminal for the password prompt, use --password-stdin")
	}

	fd := int(o.stdin.(*os.File).Fd())
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", WrapExitError(ExitCommandError, "could not read password", err)
	}
	return string(password), nil
}

func (o *RootOptions) interactive() bool {
	f, ok := o.stdin.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
