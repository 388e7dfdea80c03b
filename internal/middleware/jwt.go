// Package middleware contains reusable HTTP middleware: bearer
// authentication with per-request permission resolution, permission
// gates, Redis rate limiting and response caching.
package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/payment-workflow/internal/auth"
	"github.com/iliyamo/payment-workflow/internal/repository"
	"github.com/iliyamo/payment-workflow/internal/utils"
)

// Authenticate returns an Echo middleware that validates a Bearer
// access token, resolves the subject into a user row, snapshots the
// user's role permissions and attaches the resulting auth.Caller to
// the request context under auth.CallerKey. Handlers read the caller
// back with a typed lookup instead of individual claim keys, so
// identity and permissions travel together.
//
// Responses: 401 for missing/invalid/expired tokens or a vanished
// subject, 403 for a deactivated account.
func Authenticate(secret string, users *repository.UserRepo, roles *repository.RoleRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return unauthorized(c, "missing bearer token")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				if errors.Is(err, utils.ErrExpiredToken) {
					return unauthorized(c, "access token expired")
				}
				return unauthorized(c, "invalid access token")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return unauthorized(c, "unknown subject")
				}
				return envelopeError(c, http.StatusInternalServerError, "load user failed")
			}
			if !u.IsActive {
				return envelopeError(c, http.StatusForbidden, "account is deactivated")
			}
			role, err := roles.GetByID(ctx, u.RoleID)
			if err != nil {
				return envelopeError(c, http.StatusInternalServerError, "load role failed")
			}

			c.Set(auth.CallerKey, auth.Caller{
				ID:          u.ID,
				Email:       u.Email,
				RoleID:      role.ID,
				RoleName:    role.Name,
				Permissions: auth.NewPermissionSet(role.Permissions),
			})
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	return envelopeError(c, http.StatusUnauthorized, msg)
}

// envelopeError mirrors the handler package's response envelope for
// failures produced before a handler runs.
func envelopeError(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{
		"success":   false,
		"message":   msg,
		"timestamp": time.Now().UTC(),
	})
}
