package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/payment-workflow/internal/auth"
)

// RequirePermission returns a middleware that rejects callers whose
// permission snapshot intersects none of the given permissions (OR
// semantics). It assumes Authenticate ran earlier on the chain.
// Routes with ownership nuance do their checks in the handler
// instead; this gate is for routes where the permission alone
// decides.
func RequirePermission(perms ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := c.Get(auth.CallerKey).(auth.Caller)
			if !ok {
				return unauthorized(c, "unauthenticated")
			}
			if !auth.HasAny(caller.Permissions, perms...) {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false,
					"message": "insufficient permissions",
					"errors": []echo.Map{
						{"field": "required", "message": strings.Join(perms, ", ")},
						{"field": "held", "message": strings.Join(caller.Permissions.Slice(), ", ")},
					},
					"timestamp": time.Now().UTC(),
				})
			}
			return next(c)
		}
	}
}
