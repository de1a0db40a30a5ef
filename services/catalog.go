package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lborres/agenda/core"
)

type CatalogConfig struct {
	// EventsPolicy decides how a fetched event page is folded into the
	// events store. Default: append new ids.
	EventsPolicy core.MergePolicy
	Logger       *slog.Logger
}

// Catalog loads and mutates events, locations and users through the data
// service and keeps the entity stores in step with the responses.
type Catalog struct {
	data         core.DataService
	stores       *core.Stores
	eventsPolicy core.MergePolicy
	logger       *slog.Logger
}

func NewCatalog(data core.DataService, stores *core.Stores, cfg CatalogConfig) (*Catalog, error) {
	if data == nil {
		return nil, core.ErrDataServiceRequired
	}
	if stores == nil {
		stores = core.NewStores()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Catalog{
		data:         data,
		stores:       stores,
		eventsPolicy: cfg.EventsPolicy,
		logger:       logger.With("component", "catalog"),
	}, nil
}

func (c *Catalog) Stores() *core.Stores {
	return c.stores
}

// ============================================
// EVENTS
// ============================================

// LoadEvents fetches one page of events and folds it into the events store
func (c *Catalog) LoadEvents(ctx context.Context, args core.FindManyArgs) (*core.EventPage, error) {
	page, err := c.data.ListEvents(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	n, err := c.stores.Events.Apply(c.eventsPolicy, page.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store events: %w", err)
	}

	c.logger.Debug("events loaded",
		"policy", c.eventsPolicy.String(),
		"page", page.Meta.Page,
		"received", len(page.Data),
		"stored", n)
	return page, nil
}

func (c *Catalog) CreateEvent(ctx context.Context, input core.CreateEventInput) (*core.Event, error) {
	event, err := c.data.CreateEvent(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	if _, err := c.stores.Events.Add(*event); err != nil {
		return nil, err
	}
	return event, nil
}

func (c *Catalog) UpdateEvent(ctx context.Context, input core.UpdateEventInput) (*core.Event, error) {
	event, err := c.data.UpdateEvent(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	if _, err := c.stores.Events.Update(*event); err != nil {
		return nil, err
	}
	return event, nil
}

func (c *Catalog) DeleteEvent(ctx context.Context, id string) error {
	if err := c.data.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	c.stores.Events.Remove(id)
	return nil
}

// ============================================
// LOCATIONS
// ============================================

// LoadLocations fetches every location and replaces the locations store
func (c *Catalog) LoadLocations(ctx context.Context) ([]core.Location, error) {
	locations, err := c.data.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}
	if err := c.stores.Locations.ReplaceAll(locations); err != nil {
		return nil, fmt.Errorf("failed to store locations: %w", err)
	}
	return locations, nil
}

func (c *Catalog) CreateLocation(ctx context.Context, input core.CreateLocationInput) (*core.Location, error) {
	location, err := c.data.CreateLocation(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}
	if _, err := c.stores.Locations.Add(*location); err != nil {
		return nil, err
	}
	return location, nil
}

func (c *Catalog) UpdateLocation(ctx context.Context, input core.UpdateLocationInput) (*core.Location, error) {
	location, err := c.data.UpdateLocation(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to update location: %w", err)
	}
	if _, err := c.stores.Locations.Update(*location); err != nil {
		return nil, err
	}
	return location, nil
}

func (c *Catalog) DeleteLocation(ctx context.Context, id string) error {
	if err := c.data.DeleteLocation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	c.stores.Locations.Remove(id)
	return nil
}

// ============================================
// USERS
// ============================================

// LoadUsers fetches the users and appends the unseen ones.
// An empty answer leaves the store as it is.
func (c *Catalog) LoadUsers(ctx context.Context) ([]core.User, error) {
	users, err := c.data.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	if len(users) == 0 {
		return users, nil
	}
	if _, err := c.stores.Users.MergeNew(users); err != nil {
		return nil, fmt.Errorf("failed to store users: %w", err)
	}
	return users, nil
}
