package middleware

import (
	"github.com/labstack/echo/v4"
)

// ForbiddenPath is the access-denied page.
const ForbiddenPath = "/user/forbidden"

// RequireRole returns a middleware that enforces that the authenticated
// user holds one of the given roles, as stored in context by
// SessionAuth. Browsers are sent to the forbidden page rather than
// handed a bare 403, consistent with the challenge behavior of the
// session gate.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[role] {
				return c.Redirect(302, ForbiddenPath)
			}
			return next(c)
		}
	}
}
