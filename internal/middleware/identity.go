package middleware

import "github.com/labstack/echo/v4"

// userIDKey is where JWTAuth stores the authenticated user's id.
const userIDKey = "user_id"

// UserID returns the authenticated user's id, or "" on public routes.
func UserID(c echo.Context) string {
	s, _ := c.Get(userIDKey).(string)
	return s
}

// userIDOr returns the authenticated user's id or fallback.  Rate-limit
// and cache keys use it so anonymous callers share one namespace.
func userIDOr(c echo.Context, fallback string) string {
	if s := UserID(c); s != "" {
		return s
	}
	return fallback
}
