package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass session authentication.
var publicPaths = map[string]bool{
	"/health":             true,
	"/api/v1/auth/login":  true,
	"/api/v1/auth/signup": true,
}

// AuthSkipper returns true for requests whose route should skip
// authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether path is reachable without a session.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
