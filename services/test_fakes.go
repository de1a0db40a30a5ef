package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/lborres/agenda/core"
)

// FakeTokenStorage is a test-only fake implementing core.TokenStorage.
// It stores values in a map and exposes error fields for behavior injection.
type FakeTokenStorage struct {
	values map[string]string
	mu     sync.RWMutex

	GetErr    error
	SetErr    error
	RemoveErr error
}

func NewFakeTokenStorage() *FakeTokenStorage {
	return &FakeTokenStorage{
		values: make(map[string]string),
	}
}

func (f *FakeTokenStorage) Get(_ context.Context, key string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.GetErr != nil {
		return "", f.GetErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", core.ErrTokenNotFound
	}
	return v, nil
}

func (f *FakeTokenStorage) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetErr != nil {
		return f.SetErr
	}
	f.values[key] = value
	return nil
}

func (f *FakeTokenStorage) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	delete(f.values, key)
	return nil
}

// Has reports whether key is stored
func (f *FakeTokenStorage) Has(key string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.values[key]
	return ok
}

// FakeAuthService is a test-only fake implementing core.AuthService.
// Tokens are "token-<user id>".
type FakeAuthService struct {
	mu        sync.Mutex
	users     map[string]core.User // by email
	passwords map[string]string    // by email

	LoginErr  error
	SignUpErr error
	MeErr     error

	MeCalls int
}

func NewFakeAuthService() *FakeAuthService {
	return &FakeAuthService{
		users:     make(map[string]core.User),
		passwords: make(map[string]string),
	}
}

// AddUser registers an account the fake will accept
func (f *FakeAuthService) AddUser(u core.User, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.Email] = u
	f.passwords[u.Email] = password
}

func (f *FakeAuthService) Login(_ context.Context, input core.LoginInput) (*core.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	u, ok := f.users[input.Email]
	if !ok || f.passwords[input.Email] != input.Password {
		return nil, &core.RemoteError{Op: "auth.login", StatusCode: 401, Message: "Invalid credentials"}
	}
	return authResponse(u), nil
}

func (f *FakeAuthService) SignUp(_ context.Context, input core.SignUpInput) (*core.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SignUpErr != nil {
		return nil, f.SignUpErr
	}
	if _, exists := f.users[input.Email]; exists {
		return nil, &core.RemoteError{Op: "auth.signup", StatusCode: 409, Message: "Email already registered"}
	}
	u := core.User{
		ID:        fmt.Sprintf("u%d", len(f.users)+1),
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
	}
	f.users[u.Email] = u
	f.passwords[u.Email] = input.Password
	return authResponse(u), nil
}

func (f *FakeAuthService) Me(_ context.Context, token string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MeCalls++
	if f.MeErr != nil {
		return nil, f.MeErr
	}
	for _, u := range f.users {
		if "token-"+u.ID == token {
			user := u
			return &user, nil
		}
	}
	return nil, &core.RemoteError{Op: "auth.me", StatusCode: 401, Message: "Unauthorized"}
}

func authResponse(u core.User) *core.AuthResponse {
	return &core.AuthResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		AccessToken: "token-" + u.ID,
	}
}

// FakeDataService is a test-only fake implementing core.DataService.
// It keeps entities in slices and exposes error fields for behavior injection.
type FakeDataService struct {
	mu        sync.Mutex
	events    []core.Event
	locations []core.Location
	users     []core.User
	nextID    int

	Err error // returned by every call when set
}

func NewFakeDataService() *FakeDataService {
	return &FakeDataService{}
}

// Seed replaces the fake's contents
func (f *FakeDataService) Seed(events []core.Event, locations []core.Location, users []core.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = slices.Clone(events)
	f.locations = slices.Clone(locations)
	f.users = slices.Clone(users)
}

// id returns the next sequential id not already taken by seeded or created entities
func (f *FakeDataService) id(prefix string) string {
	for {
		f.nextID++
		id := fmt.Sprintf("%s%d", prefix, f.nextID)
		taken := slices.ContainsFunc(f.events, func(e core.Event) bool { return e.ID == id }) ||
			slices.ContainsFunc(f.locations, func(l core.Location) bool { return l.ID == id })
		if !taken {
			return id
		}
	}
}

func (f *FakeDataService) ListEvents(_ context.Context, args core.FindManyArgs) (*core.EventPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	page, limit := max(args.Page, 1), args.Limit
	if limit <= 0 {
		limit = 10
	}
	start := min((page-1)*limit, len(f.events))
	end := min(start+limit, len(f.events))

	return &core.EventPage{
		Data: slices.Clone(f.events[start:end]),
		Meta: core.PageMeta{Page: page, Limit: limit, Total: len(f.events)},
	}, nil
}

func (f *FakeDataService) CreateEvent(_ context.Context, input core.CreateEventInput) (*core.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	e := core.Event{
		ID:          f.id("e"),
		Title:       input.Title,
		Description: input.Description,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}
	f.events = append(f.events, e)
	return &e, nil
}

func (f *FakeDataService) UpdateEvent(_ context.Context, input core.UpdateEventInput) (*core.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	i := slices.IndexFunc(f.events, func(e core.Event) bool { return e.ID == input.ID })
	if i < 0 {
		return nil, &core.RemoteError{Op: "data.UpdateEvent", StatusCode: 200, Message: "Not Found"}
	}
	if input.Title != nil {
		f.events[i].Title = *input.Title
	}
	if input.Description != nil {
		f.events[i].Description = *input.Description
	}
	e := f.events[i]
	return &e, nil
}

func (f *FakeDataService) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.events = slices.DeleteFunc(f.events, func(e core.Event) bool { return e.ID == id })
	return nil
}

func (f *FakeDataService) ListLocations(_ context.Context) ([]core.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return slices.Clone(f.locations), nil
}

func (f *FakeDataService) CreateLocation(_ context.Context, input core.CreateLocationInput) (*core.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	l := core.Location{ID: f.id("l"), Name: input.Name, LocationCode: input.LocationCode}
	f.locations = append(f.locations, l)
	return &l, nil
}

func (f *FakeDataService) UpdateLocation(_ context.Context, input core.UpdateLocationInput) (*core.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	i := slices.IndexFunc(f.locations, func(l core.Location) bool { return l.ID == input.ID })
	if i < 0 {
		return nil, &core.RemoteError{Op: "data.UpdateLocation", StatusCode: 200, Message: "Not Found"}
	}
	if input.Name != nil {
		f.locations[i].Name = *input.Name
	}
	if input.LocationCode != nil {
		f.locations[i].LocationCode = *input.LocationCode
	}
	l := f.locations[i]
	return &l, nil
}

func (f *FakeDataService) DeleteLocation(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.locations = slices.DeleteFunc(f.locations, func(l core.Location) bool { return l.ID == id })
	return nil
}

func (f *FakeDataService) ListUsers(_ context.Context) ([]core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return slices.Clone(f.users), nil
}
