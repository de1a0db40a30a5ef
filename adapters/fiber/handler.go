package fiber

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"

	"github.com/lborres/agenda"
)

type viewResponse struct {
	View   string       `json:"view"`
	User   *agenda.User `json:"user,omitempty"`
	Fields []string     `json:"fields,omitempty"`
}

func (a *Adapter) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// checkAuth runs the session bootstrap, then sends the visitor on to the
// view the guard picks for a settled session
func (a *Adapter) checkAuth(c fiber.Ctx) error {
	a.agenda.Session.Initialize(c.Context())

	decision := a.agenda.Navigate(agenda.RouteCheckAuth)
	if decision.Proceed() {
		return a.redirect(c, agenda.RouteLogin)
	}
	return a.redirect(c, decision.Redirect)
}

func (a *Adapter) loginForm(c fiber.Ctx) error {
	return c.JSON(viewResponse{View: string(agenda.RouteLogin), Fields: []string{"email", "password"}})
}

func (a *Adapter) login(c fiber.Ctx) error {
	var input agenda.LoginInput
	if err := c.Bind().Body(&input); err != nil {
		return badRequest(c)
	}

	if _, err := a.agenda.Session.Login(c.Context(), input); err != nil {
		a.logger.Info("login rejected", "error", err, "request_id", requestID(c))
		return handleError(c, err)
	}
	return a.redirect(c, agenda.RouteHome)
}

func (a *Adapter) signupForm(c fiber.Ctx) error {
	return c.JSON(viewResponse{
		View:   string(agenda.RouteSignup),
		Fields: []string{"firstName", "lastName", "email", "password"},
	})
}

func (a *Adapter) signup(c fiber.Ctx) error {
	var input agenda.SignUpInput
	if err := c.Bind().Body(&input); err != nil {
		return badRequest(c)
	}

	if _, err := a.agenda.Session.Register(c.Context(), input); err != nil {
		a.logger.Info("sign-up rejected", "error", err, "request_id", requestID(c))
		return handleError(c, err)
	}
	return a.redirect(c, agenda.RouteHome)
}

func (a *Adapter) logout(c fiber.Ctx) error {
	if err := a.agenda.Session.Logout(c.Context()); err != nil {
		// the session is cleared even when the stored token survives
		a.logger.Warn("logout incomplete", "error", err, "request_id", requestID(c))
	}
	return a.redirect(c, agenda.RouteLogin)
}

func (a *Adapter) home(c fiber.Ctx) error {
	state := a.agenda.Session.State()
	return c.JSON(viewResponse{View: string(agenda.RouteHome), User: state.User})
}

// ============================================
// EVENTS
// ============================================

func (a *Adapter) listEvents(c fiber.Ctx) error {
	args := agenda.FindManyArgs{
		Page:  fiber.Query[int](c, "page"),
		Limit: fiber.Query[int](c, "limit"),
	}

	page, err := a.agenda.Catalog.LoadEvents(c.Context(), args)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(page)
}

func (a *Adapter) createEvent(c fiber.Ctx) error {
	var input agenda.CreateEventInput
	if err := c.Bind().Body(&input); err != nil {
		return badRequest(c)
	}

	event, err := a.agenda.Catalog.CreateEvent(c.Context(), input)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(event)
}

// getEvent answers from the events store, loading the first page once when
// the id is not cached yet
func (a *Adapter) getEvent(c fiber.Ctx) error {
	id := c.Params("id")

	event, err := a.agenda.Stores.Events.Get(id)
	if errors.Is(err, agenda.ErrNotFound) {
		if _, loadErr := a.agenda.Catalog.LoadEvents(c.Context(), agenda.FindManyArgs{}); loadErr != nil {
			return handleError(c, loadErr)
		}
		event, err = a.agenda.Stores.Events.Get(id)
	}
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(event)
}

func (a *Adapter) updateEvent(c fiber.Ctx) error {
	var input agenda.UpdateEventInput
	if err := c.Bind().Body(&input); err != nil {
		return badRequest(c)
	}
	input.ID = c.Params("id")

	event, err := a.agenda.Catalog.UpdateEvent(c.Context(), input)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(event)
}

func (a *Adapter) deleteEvent(c fiber.Ctx) error {
	if err := a.agenda.Catalog.DeleteEvent(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// ============================================
// LOCATIONS & USERS
// ============================================

func (a *Adapter) listLocations(c fiber.Ctx) error {
	locations, err := a.agenda.Catalog.LoadLocations(c.Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(locations)
}

func (a *Adapter) createLocation(c fiber.Ctx) error {
	var input agenda.CreateLocationInput
	if err := c.Bind().Body(&input); err != nil {
		return badRequest(c)
	}

	location, err := a.agenda.Catalog.CreateLocation(c.Context(), input)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(location)
}

func (a *Adapter) updateLocation(c fiber.Ctx) error {
	var input agenda.UpdateLocationInput
	if err := c.Bind().Body(&input); err != nil {
		return badRequest(c)
	}
	input.ID = c.Params("id")

	location, err := a.agenda.Catalog.UpdateLocation(c.Context(), input)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(location)
}

func (a *Adapter) deleteLocation(c fiber.Ctx) error {
	if err := a.agenda.Catalog.DeleteLocation(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func (a *Adapter) listUsers(c fiber.Ctx) error {
	users, err := a.agenda.Catalog.LoadUsers(c.Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(users)
}

// ============================================
// ERRORS
// ============================================

func requestID(c fiber.Ctx) string {
	return requestid.FromContext(c)
}

func badRequest(c fiber.Ctx) error {
	return c.Status(http.StatusBadRequest).JSON(map[string]string{
		"error": "invalid request body",
	})
}

// handleError maps errors to appropriate HTTP responses
func handleError(c fiber.Ctx, err error) error {
	status := mapErrorToStatus(err)
	return c.Status(status).JSON(map[string]string{
		"error": err.Error(),
	})
}

// mapErrorToStatus maps agenda error types to HTTP status codes.
// Client errors reported by the remote services keep their status.
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var remote *agenda.RemoteError
	switch {
	case errors.Is(err, agenda.ErrEmailRequired),
		errors.Is(err, agenda.ErrPasswordRequired),
		errors.Is(err, agenda.ErrNameRequired),
		errors.Is(err, agenda.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, agenda.ErrNotFound):
		return http.StatusNotFound

	case errors.As(err, &remote) && remote.StatusCode >= 400 && remote.StatusCode < 500:
		return remote.StatusCode

	case errors.Is(err, agenda.ErrRemoteCallFailed),
		errors.Is(err, agenda.ErrMalformedResponse):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
