package core

import "time"

// Entity is anything an EntityStore can hold.
//
// The id must be stable and unique within one store.
type Entity interface {
	EntityID() string
}

// User represents a user account as seen by the client
//
// This is the "identity" - who is logged in, and who takes part in events
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (u User) EntityID() string { return u.ID }

// Name is the display name shown by views
func (u User) Name() string {
	return u.FirstName + " " + u.LastName
}

// UserRef is the embedded creator record of an event
type UserRef struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LocationRef is the embedded location record of an event
type LocationRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Location struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	LocationCode string `json:"locationCode"`
}

func (l Location) EntityID() string { return l.ID }

type Event struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	StartDate    time.Time    `json:"startDate"`
	EndDate      time.Time    `json:"endDate"`
	Location     *LocationRef `json:"location,omitempty"`
	CreatedBy    *UserRef     `json:"createdBy,omitempty"`
	Participants []User       `json:"participants,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func (e Event) EntityID() string { return e.ID }

// PageMeta describes one page of a paginated listing
type PageMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// EventPage is the paginated event listing returned by the data service
type EventPage struct {
	Data []Event  `json:"data"`
	Meta PageMeta `json:"meta"`
}

// FindManyArgs selects a page of a listing. Zero values let the server pick.
type FindManyArgs struct {
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

type CreateEventInput struct {
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	LocationID     string    `json:"locationId,omitempty"`
	ParticipantIDs []string  `json:"participantIds,omitempty"`
}

// UpdateEventInput only sends the fields that are set
type UpdateEventInput struct {
	ID             string     `json:"id"`
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	LocationID     *string    `json:"locationId,omitempty"`
	ParticipantIDs []string   `json:"participantIds,omitempty"`
}

type CreateLocationInput struct {
	Name         string `json:"name"`
	LocationCode string `json:"locationCode"`
}

type UpdateLocationInput struct {
	ID           string  `json:"id"`
	Name         *string `json:"name,omitempty"`
	LocationCode *string `json:"locationCode,omitempty"`
}

// LoginInput contains the credentials sent to the auth service
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpInput contains the data needed to register a new user
type SignUpInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// AuthResponse is what the auth service returns for login and sign-up
type AuthResponse struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
}

func (r *AuthResponse) user() *User {
	return &User{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
	}
}

// SessionState is a snapshot of the session manager.
//
// User and Token are both set or both empty once an action has completed.
type SessionState struct {
	User        *User  `json:"user"`
	Token       string `json:"-"` // Never expose in JSON
	Initialized bool   `json:"initialized"`
}

func (s SessionState) Authenticated() bool {
	return s.User != nil && s.Token != ""
}

// Phase names the observable state of a session
type Phase int

const (
	PhaseUnbootstrapped Phase = iota
	PhaseAnonymous
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseUnbootstrapped:
		return "unbootstrapped"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

func (s SessionState) Phase() Phase {
	switch {
	case s.Authenticated():
		return PhaseAuthenticated
	case s.Initialized:
		return PhaseAnonymous
	default:
		return PhaseUnbootstrapped
	}
}
