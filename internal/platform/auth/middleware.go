package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// SessionConfig configures SessionMiddleware.
type SessionConfig struct {
	Issuer      *TokenIssuer
	Revocations *RevocationList
	// Skipper lets public routes through without a token.
	Skipper func(c echo.Context) bool
}

// SessionMiddleware verifies the bearer token and stores the caller's Session
// on the request context and on the echo context under "session".
func SessionMiddleware(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := cfg.Issuer.Parse(strings.TrimSpace(parts[1]))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if cfg.Revocations != nil && cfg.Revocations.IsRevoked(claims.ID) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
			}

			sess := claims.Session()
			c.Set("session", sess)
			c.Set("claims", claims)
			c.SetRequest(c.Request().WithContext(WithSession(c.Request().Context(), sess)))

			return next(c)
		}
	}
}

// ClaimsFromEcho returns the verified claims of the current request.
func ClaimsFromEcho(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get("claims").(*Claims)
	return claims, ok
}

// SessionFromEcho returns the session of the current request or a 401 error.
func SessionFromEcho(c echo.Context) (Session, error) {
	if s, ok := c.Get("session").(Session); ok {
		return s, nil
	}
	if s, ok := SessionFromContext(c.Request().Context()); ok {
		return s, nil
	}
	return Session{}, echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
}
