package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lborres/agenda"
)

func NewLocationsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "List and manage locations",
	}

	cmd.AddCommand(newLocationsListCommand(opts))
	cmd.AddCommand(newLocationsCreateCommand(opts))
	cmd.AddCommand(newLocationsUpdateCommand(opts))
	cmd.AddCommand(newLocationsDeleteCommand(opts))

	return cmd
}

func newLocationsListCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			locations, err := opts.app.Agenda.Catalog.LoadLocations(cmd.Context())
			if err != nil {
				return err
			}

			lines := make([]string, 0, len(locations))
			for _, l := range locations {
				lines = append(lines, formatLocation(l))
			}
			if len(lines) == 0 {
				lines = append(lines, "no locations")
			}
			return opts.output(cmd).Success(locations, lines...)
		},
	}

	return guarded(cmd, agenda.RouteLocations)
}

func newLocationsCreateCommand(opts *RootOptions) *cobra.Command {
	var input agenda.CreateLocationInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			location, err := opts.app.Agenda.Catalog.CreateLocation(cmd.Context(), input)
			if err != nil {
				return err
			}
			return opts.output(cmd).Success(location, "Created "+formatLocation(*location))
		},
	}
	cmd.Flags().StringVar(&input.Name, "name", "", "location name")
	cmd.Flags().StringVar(&input.LocationCode, "code", "", "location code")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("code")

	return guarded(cmd, agenda.RouteLocations)
}

func newLocationsUpdateCommand(opts *RootOptions) *cobra.Command {
	var name, code string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a location or change its code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := agenda.UpdateLocationInput{ID: args[0]}
			if cmd.Flags().Changed("name") {
				input.Name = &name
			}
			if cmd.Flags().Changed("code") {
				input.LocationCode = &code
			}

			location, err := opts.app.Agenda.Catalog.UpdateLocation(cmd.Context(), input)
			if err != nil {
				return err
			}
			return opts.output(cmd).Success(location, "Updated "+formatLocation(*location))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "location name")
	cmd.Flags().StringVar(&code, "code", "", "location code")

	return guarded(cmd, agenda.RouteLocations)
}

func newLocationsDeleteCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.app.Agenda.Catalog.DeleteLocation(cmd.Context(), args[0]); err != nil {
				return err
			}
			return opts.output(cmd).Success(map[string]string{"deleted": args[0]}, "Deleted location "+args[0])
		},
	}

	return guarded(cmd, agenda.RouteLocations)
}

func formatLocation(l agenda.Location) string {
	return fmt.Sprintf("%s  %-8s  %s", l.ID, l.LocationCode, l.Name)
}
