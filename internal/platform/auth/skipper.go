package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// publicPaths bypass authentication and company resolution.
var publicPaths = map[string]bool{
	"/health":            true,
	"/health/db":         true,
	"/metrics":           true,
	"/api/v1/auth/login": true,
}

// AuthSkipper matches on the registered route path, so query strings and
// path parameters do not matter.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}

// sessionStatePath is polled by clients for the warning state and does not
// count as user activity.
const sessionStatePath = "/api/v1/session"

func isActivity(c echo.Context) bool {
	r := c.Request()
	return !(r.Method == http.MethodGet && strings.TrimSuffix(r.URL.Path, "/") == sessionStatePath)
}
