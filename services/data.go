package services

import (
	"context"
	"fmt"

	"github.com/lborres/agenda/core"
)

// DataClient talks to the remote GraphQL data service.
// Calls carry the bearer token of the TokenSource when there is one.
type DataClient struct {
	remote *remote
	tokens core.TokenSource
}

// Ensure DataClient implements core.DataService
var _ core.DataService = (*DataClient)(nil)

func NewDataClient(cfg ClientConfig, tokens core.TokenSource) (*DataClient, error) {
	r, err := newRemote(cfg, "data-client")
	if err != nil {
		return nil, err
	}
	return &DataClient{remote: r, tokens: tokens}, nil
}

func (c *DataClient) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *DataClient) ListEvents(ctx context.Context, args core.FindManyArgs) (*core.EventPage, error) {
	var out struct {
		Events *core.EventPage `json:"events"`
	}
	vars := map[string]any{"input": args}
	if err := c.remote.query(ctx, "FindManyEvents", findManyEventsQuery, c.token(), vars, &out); err != nil {
		return nil, err
	}
	if out.Events == nil {
		return nil, fmt.Errorf("data.FindManyEvents: %w: missing events", core.ErrMalformedResponse)
	}
	return out.Events, nil
}

func (c *DataClient) CreateEvent(ctx context.Context, input core.CreateEventInput) (*core.Event, error) {
	var out struct {
		Event *core.Event `json:"createEvent"`
	}
	vars := map[string]any{"input": input}
	if err := c.remote.query(ctx, "CreateEvent", createEventMutation, c.token(), vars, &out); err != nil {
		return nil, err
	}
	return checkEntity(out.Event, "CreateEvent")
}

func (c *DataClient) UpdateEvent(ctx context.Context, input core.UpdateEventInput) (*core.Event, error) {
	var out struct {
		Event *core.Event `json:"updateEvent"`
	}
	vars := map[string]any{"input": input}
	if err := c.remote.query(ctx, "UpdateEvent", updateEventMutation, c.token(), vars, &out); err != nil {
		return nil, err
	}
	return checkEntity(out.Event, "UpdateEvent")
}

func (c *DataClient) DeleteEvent(ctx context.Context, id string) error {
	var out struct {
		Removed *struct {
			Title string `json:"title"`
		} `json:"removeEvent"`
	}
	if err := c.remote.query(ctx, "DeleteEvent", deleteEventMutation, c.token(), map[string]any{"id": id}, &out); err != nil {
		return err
	}
	if out.Removed == nil {
		return fmt.Errorf("data.DeleteEvent: %w: missing removeEvent", core.ErrMalformedResponse)
	}
	return nil
}

func (c *DataClient) ListLocations(ctx context.Context) ([]core.Location, error) {
	var out struct {
		Locations []core.Location `json:"locations"`
	}
	if err := c.remote.query(ctx, "Locations", locationsQuery, c.token(), nil, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

func (c *DataClient) CreateLocation(ctx context.Context, input core.CreateLocationInput) (*core.Location, error) {
	var out struct {
		Location *core.Location `json:"createLocation"`
	}
	vars := map[string]any{"input": input}
	if err := c.remote.query(ctx, "CreateLocation", createLocationMutation, c.token(), vars, &out); err != nil {
		return nil, err
	}
	return checkEntity(out.Location, "CreateLocation")
}

func (c *DataClient) UpdateLocation(ctx context.Context, input core.UpdateLocationInput) (*core.Location, error) {
	var out struct {
		Location *core.Location `json:"updateLocation"`
	}
	vars := map[string]any{"input": input}
	if err := c.remote.query(ctx, "UpdateLocation", updateLocationMutation, c.token(), vars, &out); err != nil {
		return nil, err
	}
	return checkEntity(out.Location, "UpdateLocation")
}

func (c *DataClient) DeleteLocation(ctx context.Context, id string) error {
	var out struct {
		Removed *struct {
			Name string `json:"name"`
		} `json:"removeLocation"`
	}
	if err := c.remote.query(ctx, "DeleteLocation", deleteLocationMutation, c.token(), map[string]any{"id": id}, &out); err != nil {
		return err
	}
	if out.Removed == nil {
		return fmt.Errorf("data.DeleteLocation: %w: missing removeLocation", core.ErrMalformedResponse)
	}
	return nil
}

func (c *DataClient) ListUsers(ctx context.Context) ([]core.User, error) {
	var out struct {
		Users []core.User `json:"users"`
	}
	if err := c.remote.query(ctx, "Users", usersQuery, c.token(), nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// checkEntity rejects a mutation result without an id
func checkEntity[T core.Entity](item *T, operation string) (*T, error) {
	if item == nil || (*item).EntityID() == "" {
		return nil, fmt.Errorf("data.%s: %w: missing id", operation, core.ErrMalformedResponse)
	}
	return item, nil
}
