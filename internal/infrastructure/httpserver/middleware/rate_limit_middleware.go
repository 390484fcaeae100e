package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/petportrait/internal/core/domain/generation"
	"github.com/avatarctic/petportrait/internal/core/domain/ratelimit"
	"github.com/avatarctic/petportrait/internal/core/ports"
	"github.com/avatarctic/petportrait/internal/infrastructure/httpserver/helpers"
)

type RateLimitMiddleware struct {
	rateLimiter ports.RateLimiterService
	logger      *logrus.Logger
}

func NewRateLimitMiddleware(rateLimiter ports.RateLimiterService, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter, logger: logger}
}

// Handler consumes one request from the caller's window before the route
// runs. Limiter store failures let the request through.
func (r *RateLimitMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := helpers.ClientIdentity(c.Request())
			helpers.SetClientIdentity(c, identity)

			decision, rlErr := r.rateLimiter.Check(c.Request().Context(), identity)
			if rlErr != nil {
				if r.logger != nil {
					r.logger.WithError(rlErr).WithField("identity", ratelimit.MaskIdentity(identity)).Warn("rate limiter error; allowing request (fail-open)")
				}
				return next(c)
			}
			helpers.SetRateLimitDecision(c, decision)

			remaining := decision.Limit - decision.Count
			if remaining < 0 || !decision.Allowed {
				remaining = 0
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !decision.Allowed {
				h.Set("Retry-After", strconv.Itoa(decision.RetryAfterSec))
				if r.logger != nil {
					r.logger.WithFields(logrus.Fields{
						"identity":    ratelimit.MaskIdentity(identity),
						"retry_after": decision.RetryAfterSec,
						"outcome":     generation.OutcomeRateLimited,
					}).Info("request rate limited")
				}
				return echo.NewHTTPError(http.StatusTooManyRequests,
					fmt.Sprintf("Too many requests. Please wait %d seconds before trying again.", decision.RetryAfterSec))
			}
			return next(c)
		}
	}
}
