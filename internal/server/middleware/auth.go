package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const apiKeyHeader = "X-API-Key"

// AuthMiddleware accepts requests carrying the configured API key in the
// X-API-Key header or as a bearer token. Without a configured key every
// request passes.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		expected := c.(*AppContext).App.APIKey
		if expected == "" {
			return next(c)
		}

		token := c.Request().Header.Get(apiKeyHeader)
		if token == "" {
			if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}
		return next(c)
	}
}
