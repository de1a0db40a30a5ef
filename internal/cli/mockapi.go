package cli

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lborres/agenda"
	"github.com/lborres/agenda/internal/fakeapi"
)

func NewMockAPICommand(opts *RootOptions) *cobra.Command {
	var (
		addr   string
		secret string
		seed   bool
	)

	cmd := &cobra.Command{
		Use:    "mock-api",
		Short:  "Run an in-memory stand-in for the remote services",
		Long:   "Serve /auth/login, /auth/signup, /auth/me and /graphql from memory, for demos and local development.",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := fakeapi.New(fakeapi.Config{Secret: []byte(secret)})
			if seed {
				seedDemo(backend)
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           backend.Router(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts.logger.Warn("mock api listening", "addr", addr, "seeded", seed)
			return serveUntilDone(ctx,
				func() error {
					if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				},
				srv.Close)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":3000", "listen address")
	cmd.Flags().StringVar(&secret, "secret", "", "token signing secret (built-in default when empty)")
	cmd.Flags().BoolVar(&seed, "seed", true, "add a demo account (demo@example.com / demo) and sample data")

	return cmd
}

func seedDemo(backend *fakeapi.Server) {
	demo := backend.AddUser("Demo", "User", "demo@example.com", "demo")
	backend.AddUser("Ada", "Lovelace", "ada@example.com", "ada")

	hall := backend.AddLocation("Main hall", "MH")
	backend.AddLocation("Annex", "AX")

	start := time.Now().UTC().Truncate(time.Hour).Add(24 * time.Hour)
	for i, title := range []string{"Kickoff", "Planning", "Retrospective"} {
		begin := start.Add(time.Duration(i) * 48 * time.Hour)
		backend.AddEvent(agenda.Event{
			Title:        title,
			StartDate:    begin,
			EndDate:      begin.Add(time.Hour),
			Location:     &agenda.LocationRef{ID: hall.ID, Name: hall.Name},
			CreatedBy:    &agenda.UserRef{ID: demo.ID, FirstName: demo.FirstName, LastName: demo.LastName},
			Participants: []agenda.User{demo},
		})
	}
}
