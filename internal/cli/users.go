package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lborres/agenda"
)

func NewUsersCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Browse users",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := opts.app.Agenda.Catalog.LoadUsers(cmd.Context())
			if err != nil {
				return err
			}

			lines := make([]string, 0, len(users))
			for _, u := range users {
				lines = append(lines, fmt.Sprintf("%s  %s <%s>", u.ID, u.Name(), u.Email))
			}
			if len(lines) == 0 {
				lines = append(lines, "no users")
			}
			return opts.output(cmd).Success(users, lines...)
		},
	}
	cmd.AddCommand(guarded(list, agenda.RouteUsers))

	return cmd
}
