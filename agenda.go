package agenda

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/lborres/agenda/core"
	"github.com/lborres/agenda/pkg/crypto"
	"github.com/lborres/agenda/services"
)

// interfaces
type (
	TokenStorage    = core.TokenStorage
	AuthService     = core.AuthService
	DataService     = core.DataService
	TokenSource     = core.TokenSource
	SessionProvider = core.SessionProvider
)

// structs
type (
	SessionManager = core.SessionManager
	SessionConfig  = core.SessionConfig
	SessionState   = core.SessionState
	RouteRegistry  = core.RouteRegistry
	Route          = core.Route
	RouteName      = core.RouteName
	RouteClass     = core.RouteClass
	Decision       = core.Decision
	MergePolicy    = core.MergePolicy
	Stores         = core.Stores
	StoreStats     = core.StoreStats
	Catalog        = services.Catalog
	RemoteError    = core.RemoteError
)

type (
	User                = core.User
	Location            = core.Location
	Event               = core.Event
	LocationRef         = core.LocationRef
	UserRef             = core.UserRef
	EventPage           = core.EventPage
	PageMeta            = core.PageMeta
	FindManyArgs        = core.FindManyArgs
	LoginInput          = core.LoginInput
	SignUpInput         = core.SignUpInput
	CreateEventInput    = core.CreateEventInput
	UpdateEventInput    = core.UpdateEventInput
	CreateLocationInput = core.CreateLocationInput
	UpdateLocationInput = core.UpdateLocationInput
)

const (
	PolicyAppendNew = core.PolicyAppendNew
	PolicyReplace   = core.PolicyReplace

	ClassProtected = core.ClassProtected
	ClassGuestOnly = core.ClassGuestOnly
	ClassBootstrap = core.ClassBootstrap
	ClassOpen      = core.ClassOpen

	RouteHome      = core.RouteHome
	RouteLogin     = core.RouteLogin
	RouteSignup    = core.RouteSignup
	RouteCheckAuth = core.RouteCheckAuth
	RouteEvents    = core.RouteEvents
	RouteEvent     = core.RouteEvent
	RouteLocations = core.RouteLocations
	RouteUsers     = core.RouteUsers

	DefaultTokenKey = core.DefaultTokenKey
	DefaultTimeout  = services.DefaultTimeout
)

// Constructors & helpers (convenience re-exports)
var (
	Decide           = core.Decide
	DefaultRoutes    = core.DefaultRoutes
	ParseMergePolicy = core.ParseMergePolicy
	NewSealer        = crypto.NewSealer
)

var (
	ErrRemoteCallFailed  = core.ErrRemoteCallFailed
	ErrMalformedResponse = core.ErrMalformedResponse
	ErrInvalidEntity     = core.ErrInvalidEntity
	ErrNotFound          = core.ErrNotFound
)

var (
	ErrTokenNotFound    = core.ErrTokenNotFound
	ErrTokenExpired     = core.ErrTokenExpired
	ErrEmailRequired    = core.ErrEmailRequired
	ErrPasswordRequired = core.ErrPasswordRequired
	ErrNameRequired     = core.ErrNameRequired
)

var (
	ErrRouteConflict = core.ErrRouteConflict
	ErrUnknownRoute  = core.ErrUnknownRoute
)

var (
	ErrAuthServiceRequired  = core.ErrAuthServiceRequired
	ErrDataServiceRequired  = core.ErrDataServiceRequired
	ErrTokenStorageRequired = core.ErrTokenStorageRequired
	ErrBaseURLRequired      = core.ErrBaseURLRequired
)

// HTTPAdapter mounts the guarded views of an Agenda on a web framework
type HTTPAdapter interface {
	RegisterRoutes(a *Agenda) error
}

type Config struct {
	// BaseURL of the remote auth and data services.
	// Required unless both AuthService and DataService are set.
	BaseURL string

	// TokenStorage keeps the session token across restarts
	TokenStorage TokenStorage

	// Optional config
	HTTP         HTTPAdapter
	Timeout      time.Duration
	HTTPClient   *http.Client
	TokenKey     string
	EventsPolicy MergePolicy
	Routes       []Route
	Logger       *slog.Logger

	// AuthService and DataService replace the HTTP clients
	AuthService AuthService
	DataService DataService
}

// Agenda wires the session manager, the navigation guard and the entity
// stores of one client. Create it once per process with New.
type Agenda struct {
	Session *SessionManager
	Routes  *RouteRegistry
	Stores  *Stores
	Catalog *Catalog

	logger *slog.Logger
}

func New(config Config) (*Agenda, error) {
	if config.TokenStorage == nil {
		return nil, ErrTokenStorageRequired
	}

	// Set Defaults

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	clientConfig := services.ClientConfig{
		BaseURL:    config.BaseURL,
		Timeout:    timeout,
		HTTPClient: config.HTTPClient,
		Logger:     logger,
	}

	authService := config.AuthService
	if authService == nil {
		client, err := services.NewAuthClient(clientConfig)
		if err != nil {
			return nil, err
		}
		authService = client
	}

	session := core.NewSessionManager(core.SessionConfig{
		TokenKey: config.TokenKey,
		Logger:   logger,
	}, authService, config.TokenStorage)

	dataService := config.DataService
	if dataService == nil {
		client, err := services.NewDataClient(clientConfig, session)
		if err != nil {
			return nil, err
		}
		dataService = client
	}

	stores := core.NewStores()
	catalog, err := services.NewCatalog(dataService, stores, services.CatalogConfig{
		EventsPolicy: config.EventsPolicy,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	routes := core.NewRouteRegistry()
	if err := routes.Register(config.Routes...); err != nil {
		return nil, err
	}

	a := &Agenda{
		Session: session,
		Routes:  routes,
		Stores:  stores,
		Catalog: catalog,
		logger:  logger,
	}
	session.OnChange(a.onSessionChange)

	if config.HTTP != nil {
		if err := config.HTTP.RegisterRoutes(a); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// entity caches belong to one identity
func (a *Agenda) onSessionChange(state SessionState) {
	a.logger.Debug("session changed", "phase", state.Phase().String())
	if !state.Authenticated() {
		a.Stores.Clear()
	}
}

// Bootstrap runs the one-time session bootstrap and returns the result
func (a *Agenda) Bootstrap(ctx context.Context) SessionState {
	a.Session.Initialize(ctx)
	return a.Session.State()
}

// Navigate runs the guard for the named route against the current session
func (a *Agenda) Navigate(name RouteName) Decision {
	return a.Routes.Decide(name, a.Session.State())
}
