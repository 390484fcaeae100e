package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const healthCheckTimeout = 2 * time.Second

type dependencyHealth struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// healthReport is the /health payload. Generation does not need Redis or
// Postgres to be up, so an unhealthy dependency marks the service degraded
// while it keeps accepting requests.
type healthReport struct {
	Status       string             `json:"status"`
	Service      string             `json:"service"`
	CheckedAt    string             `json:"checked_at"`
	UptimeSec    int64              `json:"uptime_sec"`
	Dependencies []dependencyHealth `json:"dependencies"`
}

func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	report := healthReport{
		Status:       "ok",
		Service:      "petportrait",
		CheckedAt:    time.Now().UTC().Format(time.RFC3339),
		UptimeSec:    int64(time.Since(s.startedAt) / time.Second),
		Dependencies: make([]dependencyHealth, 0, len(s.healthCheckers)),
	}
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		start := time.Now()
		err := hc.Check(ctx)
		dep := dependencyHealth{
			Name:      hc.Name(),
			Healthy:   err == nil,
			LatencyMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			dep.Error = err.Error()
			report.Status = "degraded"
		}
		report.Dependencies = append(report.Dependencies, dep)
	}

	code := http.StatusOK
	if report.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(code, report)
}
