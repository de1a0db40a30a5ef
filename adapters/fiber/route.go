package fiber

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lborres/agenda"
	"github.com/lborres/agenda/pkg/crypto"
)

// Routes the web shell adds to the default views
const (
	RouteHealth   agenda.RouteName = "health"
	RouteMetrics  agenda.RouteName = "metrics"
	RouteLogout   agenda.RouteName = "logout"
	RouteLocation agenda.RouteName = "location"
)

func shellRoutes() []agenda.Route {
	return []agenda.Route{
		{Name: RouteHealth, Path: "/health", Class: agenda.ClassOpen, Description: "Liveness probe"},
		{Name: RouteMetrics, Path: "/metrics", Class: agenda.ClassOpen, Description: "Prometheus metrics"},
		{Name: RouteLogout, Path: "/logout", Class: agenda.ClassProtected, Description: "End the session"},
		{Name: RouteLocation, Path: "/locations/:id", Class: agenda.ClassProtected, Description: "Single location"},
	}
}

type Adapter struct {
	app      *fiber.App
	agenda   *agenda.Agenda
	registry *prometheus.Registry
	metrics  *Metrics
	logger   *slog.Logger
}

var _ agenda.HTTPAdapter = (*Adapter)(nil)

type Option func(*Adapter)

// WithRegistry exposes the shell's metrics on reg instead of a private registry
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *Adapter) {
		a.registry = reg
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func New(app *fiber.App, opts ...Option) *Adapter {
	a := &Adapter{app: app}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With("component", "web")
	return a
}

func (a *Adapter) RegisterRoutes(ag *agenda.Agenda) error {
	if err := ag.Routes.Register(shellRoutes()...); err != nil {
		return err
	}
	a.agenda = ag

	metrics, err := NewMetrics(a.registry, ag)
	if err != nil {
		return err
	}
	a.metrics = metrics

	a.app.Use(requestid.New(requestid.Config{Generator: crypto.RequestID}))

	// Open routes
	a.app.Get(a.path(RouteHealth), a.guard(RouteHealth), a.health)
	a.app.Get(a.path(RouteMetrics), a.guard(RouteMetrics), a.metrics.Handler())

	// Bootstrap and guest-only routes
	a.app.Get(a.path(agenda.RouteCheckAuth), a.guard(agenda.RouteCheckAuth), a.checkAuth)
	a.app.Get(a.path(agenda.RouteLogin), a.guard(agenda.RouteLogin), a.loginForm)
	a.app.Post(a.path(agenda.RouteLogin), a.guard(agenda.RouteLogin), a.login)
	a.app.Get(a.path(agenda.RouteSignup), a.guard(agenda.RouteSignup), a.signupForm)
	a.app.Post(a.path(agenda.RouteSignup), a.guard(agenda.RouteSignup), a.signup)

	// Protected routes
	a.app.Get(a.path(agenda.RouteHome), a.guard(agenda.RouteHome), a.home)
	a.app.Post(a.path(RouteLogout), a.guard(RouteLogout), a.logout)

	a.app.Get(a.path(agenda.RouteEvents), a.guard(agenda.RouteEvents), a.listEvents)
	a.app.Post(a.path(agenda.RouteEvents), a.guard(agenda.RouteEvents), a.createEvent)
	a.app.Get(a.path(agenda.RouteEvent), a.guard(agenda.RouteEvent), a.getEvent)
	a.app.Patch(a.path(agenda.RouteEvent), a.guard(agenda.RouteEvent), a.updateEvent)
	a.app.Delete(a.path(agenda.RouteEvent), a.guard(agenda.RouteEvent), a.deleteEvent)

	a.app.Get(a.path(agenda.RouteLocations), a.guard(agenda.RouteLocations), a.listLocations)
	a.app.Post(a.path(agenda.RouteLocations), a.guard(agenda.RouteLocations), a.createLocation)
	a.app.Patch(a.path(RouteLocation), a.guard(RouteLocation), a.updateLocation)
	a.app.Delete(a.path(RouteLocation), a.guard(RouteLocation), a.deleteLocation)

	a.app.Get(a.path(agenda.RouteUsers), a.guard(agenda.RouteUsers), a.listUsers)

	return nil
}

func (a *Adapter) path(name agenda.RouteName) string {
	return a.agenda.Routes.Path(name)
}
