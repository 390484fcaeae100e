package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// getStats serves the masked limiter telemetry. It never consumes quota.
func (s *Server) getStats(c echo.Context) error {
	stats, err := s.rateLimiter.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load rate limiter stats").SetInternal(err)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, stats)
}
