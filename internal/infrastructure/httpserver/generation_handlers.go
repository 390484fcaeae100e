package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/petportrait/internal/core/domain/generation"
	"github.com/avatarctic/petportrait/internal/infrastructure/httpserver/helpers"
)

// uploadTypes are the formats both the moderation and the edit endpoints
// accept.
var uploadTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

func isUploadType(mt *mimetype.MIME) bool {
	for _, t := range uploadTypes {
		if mt.Is(t) {
			return true
		}
	}
	return false
}

func (s *Server) generateImage(c echo.Context) error {
	req, err := s.parseGenerationRequest(c)
	if err != nil {
		return err
	}

	res, err := s.generationSvc.Generate(c.Request().Context(), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// parseGenerationRequest applies the form rules. Unknown topic, quality and
// size values fall back to their defaults rather than failing.
func (s *Server) parseGenerationRequest(c echo.Context) (*generation.Request, error) {
	req := &generation.Request{
		Topic:          generation.ParseTopic(c.FormValue("topic")),
		Caption:        c.FormValue("caption"),
		Quality:        generation.ParseQuality(c.FormValue("quality"), generation.ParseQuality(s.upload.DefaultQuality, generation.QualityLow)),
		Size:           s.parseSize(c.FormValue("size")),
		TextOnly:       c.FormValue("no_image") == "1",
		ClassifierHint: generation.SanitizeClassifierHint(c.FormValue("classifier_label")),
		ClientIdentity: helpers.GetClientIdentity(c),
		RequestID:      helpers.GetRequestID(c),
	}

	image, contentType, err := s.readUpload(c)
	if err != nil {
		return nil, err
	}
	req.Image = image
	req.ImageContentType = contentType
	return req, nil
}

func (s *Server) parseSize(raw string) string {
	if _, ok := s.allowedSizes[raw]; ok {
		return raw
	}
	return s.upload.DefaultSize
}

// readUpload returns the "image" part, or nil when none was sent. The bytes
// must sniff as one of uploadTypes; the client supplied content type is
// ignored.
func (s *Server) readUpload(c echo.Context) ([]byte, string, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", nil
		}
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, errorBody{Error: "Invalid form data"}).SetInternal(err)
	}
	if fh.Size > s.upload.MaxImageBytes {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, errorBody{Error: s.imageTooLargeMessage()})
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, errorBody{Error: "Invalid form data"}).SetInternal(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.upload.MaxImageBytes+1))
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, errorBody{Error: "Invalid form data"}).SetInternal(err)
	}
	if int64(len(data)) > s.upload.MaxImageBytes {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, errorBody{Error: s.imageTooLargeMessage()})
	}
	if len(data) == 0 {
		return nil, "", nil
	}

	mt := mimetype.Detect(data)
	if !isUploadType(mt) {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"detected": mt.String(), "filename": fh.Filename}).Info("rejected non-image upload")
		}
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, errorBody{
			Error:  "Unsupported image type",
			Detail: "Upload a PNG, JPEG, WebP or GIF image.",
		})
	}
	return data, mt.String(), nil
}
