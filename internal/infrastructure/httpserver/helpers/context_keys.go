package helpers

import (
	"github.com/labstack/echo/v4"

	"github.com/avatarctic/petportrait/internal/core/domain/ratelimit"
)

type ctxKey string

const (
	keyClientIdentity    ctxKey = "client_identity"
	keyRateLimitDecision ctxKey = "rate_limit_decision"
)

func SetClientIdentity(c echo.Context, identity string) { c.Set(string(keyClientIdentity), identity) }
func GetClientIdentityRaw(c echo.Context) (string, bool) {
	v := c.Get(string(keyClientIdentity))
	s, ok := v.(string)
	return s, ok
}

func SetRateLimitDecision(c echo.Context, d ratelimit.Decision) {
	c.Set(string(keyRateLimitDecision), d)
}
func GetRateLimitDecisionRaw(c echo.Context) (ratelimit.Decision, bool) {
	v := c.Get(string(keyRateLimitDecision))
	d, ok := v.(ratelimit.Decision)
	return d, ok
}
