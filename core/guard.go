package core

// RouteClass says how a route is gated by session state
type RouteClass int

const (
	// ClassProtected routes need an authenticated session
	ClassProtected RouteClass = iota
	// ClassGuestOnly routes (login, signup) are only for anonymous sessions
	ClassGuestOnly
	// ClassBootstrap is the route that runs or awaits session bootstrap
	ClassBootstrap
	// ClassOpen routes are never gated
	ClassOpen
)

func (c RouteClass) String() string {
	switch c {
	case ClassProtected:
		return "protected"
	case ClassGuestOnly:
		return "guest-only"
	case ClassBootstrap:
		return "bootstrap"
	case ClassOpen:
		return "open"
	default:
		return "unknown"
	}
}

// RouteName identifies a navigation target
type RouteName string

const (
	RouteHome      RouteName = "home"
	RouteLogin     RouteName = "login"
	RouteSignup    RouteName = "signup"
	RouteCheckAuth RouteName = "checkauth"
	RouteEvents    RouteName = "events"
	RouteEvent     RouteName = "event"
	RouteLocations RouteName = "locations"
	RouteUsers     RouteName = "users"
)

// Decision is the outcome of a guard check: proceed, or redirect to a route
type Decision struct {
	Redirect RouteName
}

func (d Decision) Proceed() bool {
	return d.Redirect == ""
}

func proceed() Decision {
	return Decision{}
}

func redirect(to RouteName) Decision {
	return Decision{Redirect: to}
}

// Decide gates navigation to a route of the given class.
//
// It depends only on the session state. Being authenticated always wins:
// an authenticated session is sent home from login, signup and bootstrap.
func Decide(class RouteClass, state SessionState) Decision {
	switch class {
	case ClassOpen:
		return proceed()

	case ClassBootstrap:
		if state.Authenticated() {
			return redirect(RouteHome)
		}
		if state.Initialized {
			return redirect(RouteLogin)
		}
		return proceed()

	case ClassGuestOnly:
		if state.Authenticated() {
			return redirect(RouteHome)
		}
		if !state.Initialized {
			return redirect(RouteCheckAuth)
		}
		return proceed()

	default:
		if !state.Initialized {
			return redirect(RouteCheckAuth)
		}
		if !state.Authenticated() {
			return redirect(RouteLogin)
		}
		return proceed()
	}
}
