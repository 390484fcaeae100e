package helpers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/petportrait/internal/core/domain/ratelimit"
)

// ClientIdentity derives the rate-limit identity from forwarding headers: the
// first X-Forwarded-For entry, then X-Real-IP, then "unknown". The socket
// address is never consulted, so header-less clients share one bucket.
func ClientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	return ratelimit.UnknownIdentity
}

// GetClientIdentity returns the identity resolved by the rate limit
// middleware, deriving it from the request when the middleware did not run.
func GetClientIdentity(c echo.Context) string {
	if id, ok := GetClientIdentityRaw(c); ok && id != "" {
		return id
	}
	return ClientIdentity(c.Request())
}

// GetRequestID returns the id assigned by the RequestID middleware.
func GetRequestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
