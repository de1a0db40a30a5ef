package services

import (
	"context"
	"errors"
	"testing"

	"github.com/lborres/agenda/core"
)

func newTestCatalog(t *testing.T, policy core.MergePolicy) (*Catalog, *FakeDataService) {
	t.Helper()
	data := NewFakeDataService()
	catalog, err := NewCatalog(data, core.NewStores(), CatalogConfig{EventsPolicy: policy, Logger: discardLogger})
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	return catalog, data
}

func eventIDs(events []core.Event) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewCatalog_RequiresDataService(t *testing.T) {
	_, err := NewCatalog(nil, nil, CatalogConfig{})
	if !errors.Is(err, core.ErrDataServiceRequired) {
		t.Fatalf("NewCatalog(nil) error = %v, want ErrDataServiceRequired", err)
	}
}

// Requirement: each call site applies its own merge policy to the events store.
func TestCatalog_LoadEvents(t *testing.T) {
	tests := []struct {
		name    string
		policy  core.MergePolicy
		wantIDs []string
	}{
		{name: "append keeps what was loaded before", policy: core.PolicyAppendNew, wantIDs: []string{"old", "e1", "e2"}},
		{name: "replace keeps only the new page", policy: core.PolicyReplace, wantIDs: []string{"e1", "e2"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			catalog, data := newTestCatalog(t, test.policy)
			data.Seed([]core.Event{{ID: "e1", Title: "fresh"}, {ID: "e2"}}, nil, nil)
			_, _ = catalog.Stores().Events.Add(core.Event{ID: "old"})

			// Act
			page, err := catalog.LoadEvents(context.Background(), core.FindManyArgs{Page: 1, Limit: 10})

			// Assert
			if err != nil {
				t.Fatalf("LoadEvents() error = %v", err)
			}
			if page.Meta.Total != 2 {
				t.Errorf("Meta.Total = %d, want 2", page.Meta.Total)
			}
			if got := eventIDs(catalog.Stores().Events.All()); !sameIDs(got, test.wantIDs) {
				t.Errorf("store ids = %v, want %v", got, test.wantIDs)
			}
		})
	}
}

// Requirement: reloading events never overwrites entries already in the store.
func TestCatalog_LoadEventsAppendDoesNotOverwrite(t *testing.T) {
	catalog, data := newTestCatalog(t, core.PolicyAppendNew)
	_, _ = catalog.Stores().Events.Add(core.Event{ID: "e1", Title: "local"})
	data.Seed([]core.Event{{ID: "e1", Title: "remote"}}, nil, nil)

	if _, err := catalog.LoadEvents(context.Background(), core.FindManyArgs{}); err != nil {
		t.Fatalf("LoadEvents() error = %v", err)
	}

	got, _ := catalog.Stores().Events.Get("e1")
	if got.Title != "local" {
		t.Errorf("Title = %q, want local", got.Title)
	}
}

func TestCatalog_LoadEventsRejectsEntityWithoutID(t *testing.T) {
	catalog, data := newTestCatalog(t, core.PolicyAppendNew)
	data.Seed([]core.Event{{ID: "e1"}, {Title: "no id"}}, nil, nil)

	_, err := catalog.LoadEvents(context.Background(), core.FindManyArgs{})

	if !errors.Is(err, core.ErrInvalidEntity) {
		t.Fatalf("LoadEvents() error = %v, want ErrInvalidEntity", err)
	}
	if catalog.Stores().Events.Len() != 0 {
		t.Error("no event should be stored from a rejected page")
	}
}

func TestCatalog_LoadLocationsReplaces(t *testing.T) {
	catalog, data := newTestCatalog(t, core.PolicyAppendNew)
	_, _ = catalog.Stores().Locations.Add(core.Location{ID: "gone"})
	data.Seed(nil, []core.Location{{ID: "l1", Name: "Hall"}}, nil)

	locations, err := catalog.LoadLocations(context.Background())

	if err != nil {
		t.Fatalf("LoadLocations() error = %v", err)
	}
	if len(locations) != 1 {
		t.Errorf("LoadLocations() = %+v", locations)
	}
	all := catalog.Stores().Locations.All()
	if len(all) != 1 || all[0].ID != "l1" {
		t.Errorf("store = %+v, want only l1", all)
	}
}

func TestCatalog_LoadUsers(t *testing.T) {
	t.Run("empty answer is ignored", func(t *testing.T) {
		catalog, _ := newTestCatalog(t, core.PolicyAppendNew)
		_, _ = catalog.Stores().Users.Add(core.User{ID: "u1"})

		if _, err := catalog.LoadUsers(context.Background()); err != nil {
			t.Fatalf("LoadUsers() error = %v", err)
		}
		if catalog.Stores().Users.Len() != 1 {
			t.Errorf("Len() = %d, want 1", catalog.Stores().Users.Len())
		}
	})

	t.Run("new users are appended", func(t *testing.T) {
		catalog, data := newTestCatalog(t, core.PolicyAppendNew)
		_, _ = catalog.Stores().Users.Add(core.User{ID: "u1", FirstName: "Local"})
		data.Seed(nil, nil, []core.User{{ID: "u1", FirstName: "Remote"}, {ID: "u2"}})

		if _, err := catalog.LoadUsers(context.Background()); err != nil {
			t.Fatalf("LoadUsers() error = %v", err)
		}
		u1, _ := catalog.Stores().Users.Get("u1")
		if catalog.Stores().Users.Len() != 2 || u1.FirstName != "Local" {
			t.Errorf("users = %+v", catalog.Stores().Users.All())
		}
	})
}

func TestCatalog_EventMutations(t *testing.T) {
	ctx := context.Background()
	catalog, _ := newTestCatalog(t, core.PolicyAppendNew)
	events := catalog.Stores().Events

	created, err := catalog.CreateEvent(ctx, core.CreateEventInput{Title: "Kickoff"})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if _, err := events.Get(created.ID); err != nil {
		t.Fatalf("created event not in store: %v", err)
	}

	title := "Renamed"
	if _, err := catalog.UpdateEvent(ctx, core.UpdateEventInput{ID: created.ID, Title: &title}); err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}
	got, _ := events.Get(created.ID)
	if got.Title != "Renamed" {
		t.Errorf("stored Title = %q, want Renamed", got.Title)
	}

	if err := catalog.DeleteEvent(ctx, created.ID); err != nil {
		t.Fatalf("DeleteEvent() error = %v", err)
	}
	if _, err := events.Get(created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
}

func TestCatalog_LocationMutations(t *testing.T) {
	ctx := context.Background()
	catalog, _ := newTestCatalog(t, core.PolicyAppendNew)
	locations := catalog.Stores().Locations

	created, err := catalog.CreateLocation(ctx, core.CreateLocationInput{Name: "Annex", LocationCode: "AX"})
	if err != nil {
		t.Fatalf("CreateLocation() error = %v", err)
	}

	name := "Annex B"
	if _, err := catalog.UpdateLocation(ctx, core.UpdateLocationInput{ID: created.ID, Name: &name}); err != nil {
		t.Fatalf("UpdateLocation() error = %v", err)
	}
	got, _ := locations.Get(created.ID)
	if got.Name != "Annex B" || got.LocationCode != "AX" {
		t.Errorf("stored = %+v", got)
	}

	if err := catalog.DeleteLocation(ctx, created.ID); err != nil {
		t.Fatalf("DeleteLocation() error = %v", err)
	}
	if locations.Len() != 0 {
		t.Errorf("Len() = %d, want 0", locations.Len())
	}
}

// Requirement: an entity created after a load never collides with a seeded id.
func TestCatalog_CreateAfterLoadKeepsSeededEntries(t *testing.T) {
	ctx := context.Background()
	catalog, data := newTestCatalog(t, core.PolicyAppendNew)
	data.Seed([]core.Event{{ID: "e1", Title: "Seeded"}}, []core.Location{{ID: "l1", Name: "Main hall"}}, nil)
	if _, err := catalog.LoadEvents(ctx, core.FindManyArgs{Page: 1, Limit: 10}); err != nil {
		t.Fatalf("LoadEvents() error = %v", err)
	}
	if _, err := catalog.LoadLocations(ctx); err != nil {
		t.Fatalf("LoadLocations() error = %v", err)
	}

	event, err := catalog.CreateEvent(ctx, core.CreateEventInput{Title: "New"})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	location, err := catalog.CreateLocation(ctx, core.CreateLocationInput{Name: "Annex"})
	if err != nil {
		t.Fatalf("CreateLocation() error = %v", err)
	}

	if event.ID == "e1" || location.ID == "l1" {
		t.Fatalf("created ids reuse seeded ids: event %q, location %q", event.ID, location.ID)
	}
	if n := catalog.Stores().Events.Len(); n != 2 {
		t.Errorf("events stored = %d, want 2", n)
	}
	if n := catalog.Stores().Locations.Len(); n != 2 {
		t.Errorf("locations stored = %d, want 2", n)
	}

	if err := catalog.DeleteLocation(ctx, location.ID); err != nil {
		t.Fatalf("DeleteLocation() error = %v", err)
	}
	if _, err := catalog.Stores().Locations.Get("l1"); err != nil {
		t.Errorf("seeded location removed: %v", err)
	}
}

// Requirement: a failed remote call leaves the stores untouched.
func TestCatalog_RemoteFailure(t *testing.T) {
	remoteErr := &core.RemoteError{Op: "data.test", StatusCode: 500}

	tests := []struct {
		name string
		call func(c *Catalog) error
	}{
		{name: "LoadEvents", call: func(c *Catalog) error { _, err := c.LoadEvents(context.Background(), core.FindManyArgs{}); return err }},
		{name: "LoadLocations", call: func(c *Catalog) error { _, err := c.LoadLocations(context.Background()); return err }},
		{name: "LoadUsers", call: func(c *Catalog) error { _, err := c.LoadUsers(context.Background()); return err }},
		{name: "CreateEvent", call: func(c *Catalog) error {
			_, err := c.CreateEvent(context.Background(), core.CreateEventInput{Title: "x"})
			return err
		}},
		{name: "DeleteEvent", call: func(c *Catalog) error { return c.DeleteEvent(context.Background(), "e1") }},
		{name: "DeleteLocation", call: func(c *Catalog) error { return c.DeleteLocation(context.Background(), "l1") }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			catalog, data := newTestCatalog(t, core.PolicyReplace)
			stores := catalog.Stores()
			_, _ = stores.Events.Add(core.Event{ID: "e1"})
			_, _ = stores.Locations.Add(core.Location{ID: "l1"})
			_, _ = stores.Users.Add(core.User{ID: "u1"})
			data.Err = remoteErr

			// Act
			err := test.call(catalog)

			// Assert
			if !errors.Is(err, core.ErrRemoteCallFailed) {
				t.Fatalf("error = %v, want ErrRemoteCallFailed", err)
			}
			if stores.Events.Len() != 1 || stores.Locations.Len() != 1 || stores.Users.Len() != 1 {
				t.Error("stores changed after a failed call")
			}
		})
	}
}
