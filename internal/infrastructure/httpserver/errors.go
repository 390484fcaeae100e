package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/petportrait/internal/core/domain/generation"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// toHTTPError maps pipeline errors onto status codes. Provider and internal
// diagnostics stay in the wrapped error and are never rendered.
func toHTTPError(err error) *echo.HTTPError {
	var ge *generation.Error
	if !errors.As(err, &ge) {
		return echo.NewHTTPError(http.StatusInternalServerError, errorBody{Error: "Server error. Please try again."}).SetInternal(err)
	}

	switch ge.Kind {
	case generation.KindCaller, generation.KindModeration:
		return echo.NewHTTPError(http.StatusBadRequest, errorBody{Error: ge.Message, Detail: ge.Detail}).SetInternal(err)
	case generation.KindProvider:
		return echo.NewHTTPError(http.StatusBadGateway, errorBody{Error: ge.Message}).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, errorBody{Error: ge.Message}).SetInternal(err)
	}
}

func (s *Server) imageTooLargeMessage() string {
	return fmt.Sprintf("Image too large (max %dMB)", s.upload.MaxImageBytes>>20)
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he, ok := err.(*echo.HTTPError)
	if !ok {
		he = toHTTPError(err)
	}

	code := he.Code
	var body errorBody
	switch msg := he.Message.(type) {
	case errorBody:
		body = msg
	case string:
		body = errorBody{Error: msg}
	case error:
		body = errorBody{Error: msg.Error()}
	default:
		body = errorBody{Error: http.StatusText(code)}
	}

	// BodyLimit rejects oversized uploads before the handler sees them.
	if code == http.StatusRequestEntityTooLarge {
		code = http.StatusBadRequest
		body = errorBody{Error: s.imageTooLargeMessage()}
	}

	if code >= http.StatusInternalServerError && s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"path":       c.Path(),
			"status":     code,
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		}).WithError(errorCause(he, err)).Error("request failed")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, body)
	}
	if writeErr != nil && s.logger != nil {
		s.logger.WithError(writeErr).Warn("failed to write error response")
	}
}

func errorCause(he *echo.HTTPError, err error) error {
	if he.Internal != nil {
		return he.Internal
	}
	return err
}
