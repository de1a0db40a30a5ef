package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lborres/agenda"
)

const timeLayout = "2006-01-02 15:04"

func NewEventsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List and manage events",
	}

	cmd.AddCommand(newEventsListCommand(opts))
	cmd.AddCommand(newEventsCreateCommand(opts))
	cmd.AddCommand(newEventsUpdateCommand(opts))
	cmd.AddCommand(newEventsDeleteCommand(opts))

	return cmd
}

func newEventsListCommand(opts *RootOptions) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := opts.app.Agenda.Catalog.LoadEvents(cmd.Context(), agenda.FindManyArgs{Page: page, Limit: limit})
			if err != nil {
				return err
			}

			lines := make([]string, 0, len(result.Data)+1)
			for _, e := range result.Data {
				lines = append(lines, formatEvent(e))
			}
			lines = append(lines, fmt.Sprintf("page %d, %d of %d events", result.Meta.Page, len(result.Data), result.Meta.Total))

			return opts.output(cmd).Success(result, lines...)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 10, "events per page")

	return guarded(cmd, agenda.RouteEvents)
}

func newEventsCreateCommand(opts *RootOptions) *cobra.Command {
	var (
		input        agenda.CreateEventInput
		start, end   string
		participants []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if input.StartDate, err = parseTime("start", start); err != nil {
				return err
			}
			if input.EndDate, err = parseTime("end", end); err != nil {
				return err
			}
			input.ParticipantIDs = participants

			event, err := opts.app.Agenda.Catalog.CreateEvent(cmd.Context(), input)
			if err != nil {
				return err
			}
			return opts.output(cmd).Success(event, "Created "+formatEvent(*event))
		},
	}
	cmd.Flags().StringVar(&input.Title, "title", "", "event title")
	cmd.Flags().StringVar(&input.Description, "description", "", "event description")
	cmd.Flags().StringVar(&start, "start", "", "start time (RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "end time (RFC 3339)")
	cmd.Flags().StringVar(&input.LocationID, "location", "", "location id")
	cmd.Flags().StringSliceVar(&participants, "participant", nil, "participant user id (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return guarded(cmd, agenda.RouteEvents)
}

func newEventsUpdateCommand(opts *RootOptions) *cobra.Command {
	var (
		title, description, start, end, location string
		participants                             []string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := agenda.UpdateEventInput{ID: args[0]}
			flags := cmd.Flags()

			if flags.Changed("title") {
				input.Title = &title
			}
			if flags.Changed("description") {
				input.Description = &description
			}
			if flags.Changed("location") {
				input.LocationID = &location
			}
			if flags.Changed("participant") {
				input.ParticipantIDs = participants
			}
			if flags.Changed("start") {
				t, err := parseTime("start", start)
				if err != nil {
					return err
				}
				input.StartDate = &t
			}
			if flags.Changed("end") {
				t, err := parseTime("end", end)
				if err != nil {
					return err
				}
				input.EndDate = &t
			}

			event, err := opts.app.Agenda.Catalog.UpdateEvent(cmd.Context(), input)
			if err != nil {
				return err
			}
			return opts.output(cmd).Success(event, "Updated "+formatEvent(*event))
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "event title")
	cmd.Flags().StringVar(&description, "description", "", "event description")
	cmd.Flags().StringVar(&start, "start", "", "start time (RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "end time (RFC 3339)")
	cmd.Flags().StringVar(&location, "location", "", "location id")
	cmd.Flags().StringSliceVar(&participants, "participant", nil, "participant user id (repeatable)")

	return guarded(cmd, agenda.RouteEvent)
}

func newEventsDeleteCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.app.Agenda.Catalog.DeleteEvent(cmd.Context(), args[0]); err != nil {
				return err
			}
			return opts.output(cmd).Success(map[string]string{"deleted": args[0]}, "Deleted event "+args[0])
		},
	}

	return guarded(cmd, agenda.RouteEvent)
}

func parseTime(flag, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s", flag), err)
	}
	return t, nil
}

func formatEvent(e agenda.Event) string {
	line := fmt.Sprintf("%s  %s  %s", e.ID, e.StartDate.Local().Format(timeLayout), e.Title)
	if e.Location != nil && e.Location.Name != "" {
		line += "  @ " + e.Location.Name
	}
	return line
}
