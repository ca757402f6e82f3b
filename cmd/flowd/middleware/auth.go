package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ContextKey avoids collisions with other packages' echo.Context keys.
type ContextKey string

// APIKeyHeader is the header flowd expects callers to authenticate with,
// mirroring the teacher's X-User-ID extraction pattern but carrying a
// shared secret rather than an identity.
const APIKeyHeader = "X-API-Key"

// AuthenticatedKey is the context key set once a request has passed
// authentication.
const AuthenticatedKey ContextKey = "authenticated"

// RequireAPIKey rejects requests missing X-API-Key or presenting one that
// doesn't match the configured key. Skipped entirely when expectedKey is
// empty — a deployment with no API_KEY configured runs open, matching
// the teacher's "allow empty username" backwards-compatible default.
func RequireAPIKey(expectedKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if expectedKey == "" {
				return next(c)
			}

			key := c.Request().Header.Get(APIKeyHeader)
			if key == "" || key != expectedKey {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "missing or invalid " + APIKeyHeader,
				})
			}

			c.Set(string(AuthenticatedKey), true)
			return next(c)
		}
	}
}
