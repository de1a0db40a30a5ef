package core

import (
	"fmt"
)

// Route is a framework-agnostic navigation target.
//
// Navigation adapters (web shell, CLI) map their own paths or commands onto
// these names and ask the registry for a decision before entering them.
type Route struct {
	Name        RouteName
	Path        string
	Class       RouteClass
	Description string
}

// DefaultRoutes returns the application's views
func DefaultRoutes() []Route {
	return []Route{
		{Name: RouteHome, Path: "/", Class: ClassProtected, Description: "Signed-in landing view"},
		{Name: RouteLogin, Path: "/login", Class: ClassGuestOnly, Description: "Log in with email and password"},
		{Name: RouteSignup, Path: "/signup", Class: ClassGuestOnly, Description: "Create an account"},
		{Name: RouteCheckAuth, Path: "/checkauth", Class: ClassBootstrap, Description: "Restore the persisted session"},
		{Name: RouteEvents, Path: "/events", Class: ClassProtected, Description: "List and manage events"},
		{Name: RouteEvent, Path: "/events/:id", Class: ClassProtected, Description: "Single event"},
		{Name: RouteLocations, Path: "/locations", Class: ClassProtected, Description: "List and manage locations"},
		{Name: RouteUsers, Path: "/users", Class: ClassProtected, Description: "List users"},
	}
}

// RouteRegistry holds the routes known to the navigation layer and
// rejects duplicate names or paths.
type RouteRegistry struct {
	byName map[RouteName]*Route
	byPath map[string]*Route
	order  []RouteName
}

// NewRouteRegistry creates a registry with DefaultRoutes pre-registered
func NewRouteRegistry() *RouteRegistry {
	reg := &RouteRegistry{
		byName: make(map[RouteName]*Route),
		byPath: make(map[string]*Route),
	}

	// defaults never conflict with each other
	_ = reg.Register(DefaultRoutes()...)

	return reg
}

// Register adds routes. If any of them conflicts with a registered route or
// with another route in the same batch, none are registered.
func (r *RouteRegistry) Register(routes ...Route) error {
	seenNames := make(map[RouteName]bool)
	seenPaths := make(map[string]bool)

	for _, rt := range routes {
		if _, exists := r.byName[rt.Name]; exists || seenNames[rt.Name] {
			return fmt.Errorf("%w: name %q", ErrRouteConflict, rt.Name)
		}
		if rt.Path != "" {
			if _, exists := r.byPath[rt.Path]; exists || seenPaths[rt.Path] {
				return fmt.Errorf("%w: path %q", ErrRouteConflict, rt.Path)
			}
			seenPaths[rt.Path] = true
		}
		seenNames[rt.Name] = true
	}

	for i := range routes {
		rt := routes[i]
		r.byName[rt.Name] = &rt
		if rt.Path != "" {
			r.byPath[rt.Path] = &rt
		}
		r.order = append(r.order, rt.Name)
	}

	return nil
}

// Lookup returns the route registered under name
func (r *RouteRegistry) Lookup(name RouteName) (Route, error) {
	rt, ok := r.byName[name]
	if !ok {
		return Route{}, fmt.Errorf("%w: %q", ErrUnknownRoute, name)
	}
	return *rt, nil
}

// Path returns the path of a route, or "" if it is unknown
func (r *RouteRegistry) Path(name RouteName) string {
	if rt, ok := r.byName[name]; ok {
		return rt.Path
	}
	return ""
}

// Routes returns all routes in registration order
func (r *RouteRegistry) Routes() []Route {
	result := make([]Route, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, *r.byName[name])
	}
	return result
}

// Decide runs the guard for the named route. Unknown routes are treated
// as protected.
func (r *RouteRegistry) Decide(name RouteName, state SessionState) Decision {
	class := ClassProtected
	if rt, ok := r.byName[name]; ok {
		class = rt.Class
	}
	return Decide(class, state)
}
