package core

import (
	"context"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORT (durable key-value)
// ============================================

// TokenStorage persists the session token across process restarts.
//
// Get returns ErrTokenNotFound when the key is absent. Remove of an absent
// key is not an error.
type TokenStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// ============================================
// REMOTE AUTH PORT
// ============================================

// AuthService is the remote authentication service
type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	SignUp(ctx context.Context, input SignUpInput) (*AuthResponse, error)
	// Me checks a token and returns the identity it belongs to
	Me(ctx context.Context, token string) (*User, error)
}

// ============================================
// REMOTE DATA PORT
// ============================================

// DataService is the remote data service for events, locations and users
type DataService interface {
	ListEvents(ctx context.Context, args FindManyArgs) (*EventPage, error)
	CreateEvent(ctx context.Context, input CreateEventInput) (*Event, error)
	UpdateEvent(ctx context.Context, input UpdateEventInput) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error

	ListLocations(ctx context.Context) ([]Location, error)
	CreateLocation(ctx context.Context, input CreateLocationInput) (*Location, error)
	UpdateLocation(ctx context.Context, input UpdateLocationInput) (*Location, error)
	DeleteLocation(ctx context.Context, id string) error

	ListUsers(ctx context.Context) ([]User, error)
}

// TokenSource hands out the current bearer token for remote data calls
type TokenSource interface {
	Token() string
}

// ============================================
// SESSION PORT (for navigation adapters)
// ============================================

// SessionProvider is what navigation adapters need from the session manager
type SessionProvider interface {
	State() SessionState
	Initialize(ctx context.Context)
	Login(ctx context.Context, input LoginInput) (*User, error)
	Register(ctx context.Context, input SignUpInput) (*User, error)
	Logout(ctx context.Context) error
}
