package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/petportrait/internal/core/domain/audit"
)

func (s *Server) listGenerations(c echo.Context) error {
	if s.auditSvc == nil || !s.auditSvc.Enabled() {
		return echo.NewHTTPError(http.StatusNotFound, "generation history is not enabled")
	}

	var (
		filter  audit.RecordFilter
		outcome string
		since   time.Time
	)
	err := echo.QueryParamsBinder(c).
		Int("limit", &filter.Limit).
		Int("offset", &filter.Offset).
		String("outcome", &outcome).
		Time("since", &since, time.RFC3339).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters").SetInternal(err)
	}
	if outcome != "" {
		filter.Outcome = &outcome
	}
	if !since.IsZero() {
		filter.Since = &since
	}

	records, total, err := s.auditSvc.ListGenerations(c.Request().Context(), &filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list generations").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"generations": records,
		"total":       total,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
	})
}
