package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/petportrait/internal/core/domain/ratelimit"
	"github.com/avatarctic/petportrait/internal/infrastructure/httpserver/helpers"
)

type LoggingMiddleware struct {
	logger *logrus.Logger
}

func NewLoggingMiddleware(logger *logrus.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// RequestLogging writes one debug line per finished request. Client
// identities are masked the same way the stats endpoint masks them.
func (m *LoggingMiddleware) RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.logger == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}
			m.logger.WithFields(logrus.Fields{
				"method":     c.Request().Method,
				"route":      c.Path(),
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
				"client":     ratelimit.MaskIdentity(helpers.GetClientIdentity(c)),
				"request_id": helpers.GetRequestID(c),
			}).Debug("request finished")
			return err
		}
	}
}
