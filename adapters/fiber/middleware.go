package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lborres/agenda"
)

// guard builds the navigation middleware for one route. A redirect decision
// answers 303 See Other with the target view's path.
func (a *Adapter) guard(name agenda.RouteName) fiber.Handler {
	return func(c fiber.Ctx) error {
		decision := a.agenda.Navigate(name)
		a.metrics.observe(name, decision)

		if decision.Proceed() {
			return c.Next()
		}
		return a.redirect(c, decision.Redirect)
	}
}

func (a *Adapter) redirect(c fiber.Ctx, to agenda.RouteName) error {
	return c.Redirect().Status(fiber.StatusSeeOther).To(a.path(to))
}
