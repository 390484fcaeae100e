package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/avatarctic/petportrait/internal/application/services"
	"github.com/avatarctic/petportrait/internal/core/domain/audit"
	"github.com/avatarctic/petportrait/internal/core/domain/generation"
	"github.com/avatarctic/petportrait/internal/core/domain/ratelimit"
	"github.com/avatarctic/petportrait/internal/core/ports"
	"github.com/avatarctic/petportrait/internal/infrastructure/httpserver"
	"github.com/avatarctic/petportrait/internal/infrastructure/repositories"
	"github.com/avatarctic/petportrait/internal/testutil/mocks"
)

type ServerSuite struct {
	suite.Suite
	provider   *mocks.ImageProviderMock
	moderation *mocks.ModerationProviderMock
	audit      *mocks.AuditServiceMock
	server     *httpserver.Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (s *ServerSuite) SetupTest() {
	s.provider = &mocks.ImageProviderMock{}
	s.moderation = &mocks.ModerationProviderMock{}
	s.audit = &mocks.AuditServiceMock{}
	logger := quietLogger()

	limiter := services.NewRateLimiterService(repositories.NewRateLimitMemoryRepository(), &services.RateLimiterConfig{
		MaxRequests: 10,
		Window:      time.Minute,
	}, nil, logger)
	gen := services.NewGenerationService(
		services.NewModerationService(s.moderation, true, nil, logger),
		services.NewPromptComposer(),
		services.NewDispatcher(s.provider, "gpt-image-1", nil, logger),
		s.audit,
		&services.GenerationServiceConfig{MaxCaptionLength: 150},
		nil,
		logger,
	)
	s.server = s.newServer(httpserver.ServerDeps{
		GenerationService:  gen,
		RateLimiterService: limiter,
		AuditService:       s.audit,
		Upload:             httpserver.UploadConfig{MaxImageBytes: 1 << 20},
	})
}

func (s *ServerSuite) newServer(deps httpserver.ServerDeps) *httpserver.Server {
	return httpserver.NewServer(&httpserver.ServerConfig{Host: "127.0.0.1", Port: "0"}, quietLogger(), deps)
}

func (s *ServerSuite) pngBytes(w, h int) []byte {
	var buf bytes.Buffer
	s.Require().NoError(png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

type form struct {
	fields map[string]string
	image  []byte
	ip     string
}

func (s *ServerSuite) post(srv *httpserver.Server, f form) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range f.fields {
		s.Require().NoError(w.WriteField(k, v))
	}
	if f.image != nil {
		part, err := w.CreateFormFile("image", "pet.png")
		s.Require().NoError(err)
		_, err = part.Write(f.image)
		s.Require().NoError(err)
	}
	s.Require().NoError(w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/generate-image", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if f.ip != "" {
		req.Header.Set("X-Forwarded-For", f.ip)
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func (s *ServerSuite) get(srv *httpserver.Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (s *ServerSuite) decode(rec *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *ServerSuite) TestGenerate_Success() {
	rec := s.post(s.server, form{
		fields: map[string]string{"topic": "celebration", "quality": "low", "size": "1024x1024"},
		image:  s.pngBytes(4, 3),
		ip:     "203.0.113.9, 10.0.0.1",
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	body := s.decode(rec)
	s.Equal("https://images.example/edited.png", body["url"])
	s.Equal("gpt-image-1", body["model_used"])
	s.Equal("1024x1024", body["size_used"])
	s.Equal("4x3", body["image_dimensions"])
	s.Equal(0.02, body["cost_usd"])
	s.NotContains(body, "identical")

	s.Equal("10", rec.Header().Get("X-RateLimit-Limit"))
	s.Equal("9", rec.Header().Get("X-RateLimit-Remaining"))
	s.Require().Len(s.provider.EditCalls, 1)
	s.Equal("203.0.113.x", s.audit.Last().ClientIP)
}

func (s *ServerSuite) TestGenerate_UnknownSizeAndQualityFallBack() {
	rec := s.post(s.server, form{
		fields: map[string]string{"topic": "nonsense", "quality": "ultra", "size": "9999x9999"},
		image:  s.pngBytes(2, 2),
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	call := s.provider.EditCalls[0]
	s.Equal("1024x1024", call.Size)
	s.Equal(generation.QualityLow, call.Quality)
	s.Equal(services.NewPromptComposer().Compose(generation.TopicCelebration, "", true, ""), call.Prompt)
}

func (s *ServerSuite) TestGenerate_NoImage() {
	rec := s.post(s.server, form{fields: map[string]string{"topic": "fantasy"}})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("No image uploaded", s.decode(rec)["error"])
	s.Equal(0, s.provider.Calls())
	s.Equal(0, s.moderation.CallCount())
}

func (s *ServerSuite) TestGenerate_TextOnly() {
	rec := s.post(s.server, form{fields: map[string]string{
		"topic": "fantasy", "no_image": "1", "classifier_label": "tabby cat<script>",
	}})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	body := s.decode(rec)
	s.Equal(true, body["text_only"])
	s.Equal("https://images.example/generated.png", body["url"])
	s.Require().Len(s.provider.GenerateCalls, 1)
	s.Contains(s.provider.GenerateCalls[0].Prompt, "tabby catscript")
}

func (s *ServerSuite) TestGenerate_RejectsNonImage() {
	rec := s.post(s.server, form{image: []byte("just some text, definitely not a picture")})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Unsupported image type", s.decode(rec)["error"])
	s.Equal(0, s.provider.Calls())
}

func (s *ServerSuite) TestGenerate_RejectsUnsupportedImageFormats() {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`)
	ico := []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00}

	for _, upload := range [][]byte{svg, ico} {
		rec := s.post(s.server, form{image: upload, fields: map[string]string{"caption": "hi"}})
		s.Equal(http.StatusBadRequest, rec.Code, rec.Body.String())
		s.Equal("Unsupported image type", s.decode(rec)["error"])
	}
	s.Empty(s.provider.EditCalls)
	s.Equal(0, s.provider.Calls())
	s.Equal(0, s.moderation.CallCount())
}

func (s *ServerSuite) TestGenerate_KeywordsNeedCaption() {
	rec := s.post(s.server, form{fields: map[string]string{"topic": "keywords", "no_image": "1"}})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Keywords required", s.decode(rec)["error"])
	s.Equal(0, s.provider.Calls())

	rec = s.post(s.server, form{fields: map[string]string{"topic": "keywords", "no_image": "1", "caption": "a corgi astronaut"}})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("a corgi astronaut", s.decode(rec)["prompt_used"])
}

func (s *ServerSuite) TestGenerate_ImageTooLarge() {
	big := append(s.pngBytes(2, 2), make([]byte, 1<<20)...)
	rec := s.post(s.server, form{image: big})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Image too large (max 1MB)", s.decode(rec)["error"])

	huge := append(s.pngBytes(2, 2), make([]byte, 3<<20)...)
	rec = s.post(s.server, form{image: huge})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Image too large (max 1MB)", s.decode(rec)["error"])
	s.Equal(0, s.provider.Calls())
}

func (s *ServerSuite) TestGenerate_EleventhRequestIsRateLimited() {
	img := s.pngBytes(2, 2)
	for i := 1; i <= 10; i++ {
		rec := s.post(s.server, form{image: img, ip: "198.51.100.7"})
		s.Require().Equal(http.StatusOK, rec.Code, "request %d", i)
	}

	rec := s.post(s.server, form{image: img, ip: "198.51.100.7"})
	s.Require().Equal(http.StatusTooManyRequests, rec.Code)
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	s.Require().NoError(err)
	s.GreaterOrEqual(retry, 1)
	s.LessOrEqual(retry, 60)
	s.Equal("0", rec.Header().Get("X-RateLimit-Remaining"))
	s.Contains(s.decode(rec)["error"], "Too many requests. Please wait")
	s.Equal(10, s.provider.Calls())

	rec = s.post(s.server, form{image: img, ip: "198.51.100.8"})
	s.Equal(http.StatusOK, rec.Code)
}

func (s *ServerSuite) TestGenerate_IdenticalResult() {
	s.provider.EditFn = func(ctx context.Context, call *generation.ProviderCall) (generation.ProviderResult, error) {
		return &generation.InlineImage{Data: call.Image, Encoding: "image/png"}, nil
	}
	rec := s.post(s.server, form{image: s.pngBytes(2, 2)})
	s.Require().Equal(http.StatusOK, rec.Code)

	body := s.decode(rec)
	s.Equal(true, body["identical"])
	s.NotContains(body, "url")
	s.NotEmpty(body["message"])
}

func (s *ServerSuite) TestGenerate_ProviderFailureHidesDetails() {
	s.provider.EditFn = func(ctx context.Context, call *generation.ProviderCall) (generation.ProviderResult, error) {
		return &generation.ProviderError{Status: 500, Body: "secret upstream trace"}, nil
	}
	rec := s.post(s.server, form{image: s.pngBytes(2, 2)})
	s.Equal(http.StatusBadGateway, rec.Code)
	s.Equal("Image generation failed. Please try again.", s.decode(rec)["error"])
	s.NotContains(rec.Body.String(), "secret")
}

func (s *ServerSuite) TestGenerate_ModerationRejection() {
	s.moderation.ModerateFn = func(ctx context.Context, in *ports.ModerationInput) (*ports.ModerationVerdict, error) {
		return &ports.ModerationVerdict{Flagged: true, Categories: map[string]bool{"harassment": true}}, nil
	}
	rec := s.post(s.server, form{image: s.pngBytes(2, 2), fields: map[string]string{"caption": "hi"}})
	s.Equal(http.StatusBadRequest, rec.Code)
	body := s.decode(rec)
	s.Equal("Content policy violation", body["error"])
	s.NotEmpty(body["detail"])
	s.Equal(0, s.provider.Calls())
}

func (s *ServerSuite) TestGenerate_UnexpectedErrorIsGeneric() {
	srv := s.newServer(httpserver.ServerDeps{
		GenerationService: &mocks.GenerationServiceMock{GenerateFn: func(ctx context.Context, req *generation.Request) (*generation.Result, error) {
			return nil, errors.New("nil pointer somewhere")
		}},
		RateLimiterService: &mocks.RateLimiterServiceMock{},
	})
	rec := s.post(srv, form{image: s.pngBytes(2, 2)})
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("Server error. Please try again.", s.decode(rec)["error"])
}

func (s *ServerSuite) TestGenerate_LimiterFailureFailsOpen() {
	srv := s.newServer(httpserver.ServerDeps{
		GenerationService: &mocks.GenerationServiceMock{GenerateFn: func(ctx context.Context, req *generation.Request) (*generation.Result, error) {
			return &generation.Result{URL: "https://images.example/x.png"}, nil
		}},
		RateLimiterService: &mocks.RateLimiterServiceMock{CheckFn: func(ctx context.Context, identity string) (ratelimit.Decision, error) {
			return ratelimit.Decision{Allowed: true}, errors.New("redis down")
		}},
	})
	rec := s.post(srv, form{image: s.pngBytes(2, 2)})
	s.Equal(http.StatusOK, rec.Code)
	s.Empty(rec.Header().Get("X-RateLimit-Limit"))
}

func (s *ServerSuite) TestStats() {
	img := s.pngBytes(2, 2)
	s.post(s.server, form{image: img, ip: "192.0.2.44"})
	s.post(s.server, form{image: img, ip: "192.0.2.44"})
	s.post(s.server, form{image: img})

	for i := 0; i < 20; i++ {
		rec := s.get(s.server, "/api/stats")
		s.Require().Equal(http.StatusOK, rec.Code)
	}
	rec := s.get(s.server, "/api/stats")
	s.Equal("no-store", rec.Header().Get("Cache-Control"))

	body := s.decode(rec)
	s.Equal(float64(10), body["rateLimitMax"])
	s.Equal(float64(60), body["rateLimitWindowSec"])
	s.Equal(float64(2), body["activeIps"])
	s.Equal(float64(3), body["totalRequestsInWindow"])
	s.Equal(float64(0), body["blockedIps"])
	s.NotEmpty(body["serverTimeIso"])

	entries := body["entries"].([]interface{})
	s.Require().Len(entries, 2)
	first := entries[0].(map[string]interface{})
	s.Equal("192.0.2.x", first["ip"])
	s.Equal(float64(2), first["count"])
	s.NotContains(rec.Body.String(), "192.0.2.44")
}

func (s *ServerSuite) TestGenerations_DisabledIsNotFound() {
	rec := s.get(s.server, "/api/generations")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerSuite) TestGenerations_ListsWithFilter() {
	var got *audit.RecordFilter
	s.audit.EnabledValue = true
	s.audit.ListGenerationsFn = func(ctx context.Context, filter *audit.RecordFilter) ([]*audit.GenerationRecord, int, error) {
		got = filter
		return []*audit.GenerationRecord{{Outcome: "success", ClientIP: "10.0.0.x"}}, 7, nil
	}

	rec := s.get(s.server, "/api/generations?limit=5&offset=10&outcome=success&since=2024-05-01T00:00:00Z")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Require().NotNil(got)
	s.Equal(5, got.Limit)
	s.Equal(10, got.Offset)
	s.Require().NotNil(got.Outcome)
	s.Equal("success", *got.Outcome)
	s.Require().NotNil(got.Since)
	s.True(got.Since.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	body := s.decode(rec)
	s.Equal(float64(7), body["total"])
	s.Len(body["generations"], 1)

	rec = s.get(s.server, "/api/generations?since=yesterday")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerSuite) TestHealth() {
	rec := s.get(s.server, "/health")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("no-store", rec.Header().Get("Cache-Control"))
	body := s.decode(rec)
	s.Equal("ok", body["status"])
	s.Equal("petportrait", body["service"])
	s.Empty(body["dependencies"])

	srv := s.newServer(httpserver.ServerDeps{
		RateLimiterService: &mocks.RateLimiterServiceMock{},
		HealthCheckers: []ports.HealthChecker{
			&mocks.HealthCheckerMock{NameValue: "redis", CheckFn: func(ctx context.Context) error { return errors.New("down") }},
			&mocks.HealthCheckerMock{NameValue: "postgres"},
		},
	})
	rec = s.get(srv, "/health")
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	body = s.decode(rec)
	s.Equal("degraded", body["status"])

	deps := body["dependencies"].([]interface{})
	s.Require().Len(deps, 2)
	redisDep := deps[0].(map[string]interface{})
	s.Equal("redis", redisDep["name"])
	s.Equal(false, redisDep["healthy"])
	s.Equal("down", redisDep["error"])
	pgDep := deps[1].(map[string]interface{})
	s.Equal("postgres", pgDep["name"])
	s.Equal(true, pgDep["healthy"])
	_, hasError := pgDep["error"]
	s.False(hasError)
}

func (s *ServerSuite) TestStartReturnsNilAfterShutdown() {
	srv := s.newServer(httpserver.ServerDeps{RateLimiterService: &mocks.RateLimiterServiceMock{}})
	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Require().NoError(srv.Shutdown(ctx))

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.Fail("Start did not return after Shutdown")
	}
}

func (s *ServerSuite) TestMetricsEndpoint() {
	s.post(s.server, form{image: s.pngBytes(2, 2)})
	rec := s.get(s.server, "/metrics")
	s.Equal(http.StatusOK, rec.Code)
	s.True(strings.Contains(rec.Body.String(), "http_requests_total"))
}
