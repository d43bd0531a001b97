package middleware

import "github.com/labstack/echo/v4"

// ActorID returns the authenticated staff member's canonical id, or ""
// on public routes.
func ActorID(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok {
		return v
	}
	return ""
}

// rateSubject identifies the caller for rate limiting; unauthenticated
// guests share the "anon" subject and are told apart by IP.
func rateSubject(c echo.Context) string {
	if id := ActorID(c); id != "" {
		return id
	}
	return "anon"
}
