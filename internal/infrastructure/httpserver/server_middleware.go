package httpserver

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4/middleware"
)

// multipartOverhead leaves room for the text fields and boundaries around the
// image part.
const multipartOverhead = 1 << 20

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Logger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.config.AllowedOrigins,
	}))
	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.echo.Use(middleware.BodyLimit(fmt.Sprintf("%dK", (s.upload.MaxImageBytes+multipartOverhead)/1024)))

	s.echo.Use(s.middleware.Metrics.CollectHTTPMetrics())
	s.echo.Use(s.middleware.Logging.RequestLogging())
}
