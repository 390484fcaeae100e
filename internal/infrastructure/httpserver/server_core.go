package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/petportrait/internal/core/ports"
	customMiddleware "github.com/avatarctic/petportrait/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
}

// UploadConfig holds the form rules applied by the generate handler.
type UploadConfig struct {
	MaxImageBytes  int64
	DefaultSize    string
	AllowedSizes   []string
	DefaultQuality string
}

type ServerDeps struct {
	GenerationService  ports.GenerationService
	RateLimiterService ports.RateLimiterService
	AuditService       ports.AuditService
	HealthCheckers     []ports.HealthChecker
	Upload             UploadConfig
}

type Server struct {
	echo           *echo.Echo
	httpServer     *http.Server
	config         *ServerConfig
	logger         *logrus.Logger
	generationSvc  ports.GenerationService
	rateLimiter    ports.RateLimiterService
	auditSvc       ports.AuditService
	upload         UploadConfig
	allowedSizes   map[string]struct{}
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
	startedAt      time.Time
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true

	upload := deps.Upload
	if upload.MaxImageBytes <= 0 {
		upload.MaxImageBytes = 5 << 20
	}
	if upload.DefaultSize == "" {
		upload.DefaultSize = "1024x1024"
	}
	if len(upload.AllowedSizes) == 0 {
		upload.AllowedSizes = []string{"1024x1024", "1024x1536", "1536x1024"}
	}
	allowedSizes := make(map[string]struct{}, len(upload.AllowedSizes))
	for _, size := range upload.AllowedSizes {
		allowedSizes[size] = struct{}{}
	}

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		generationSvc:  deps.GenerationService,
		rateLimiter:    deps.RateLimiterService,
		auditSvc:       deps.AuditService,
		upload:         upload,
		allowedSizes:   allowedSizes,
		healthCheckers: deps.HealthCheckers,
		startedAt:      time.Now(),
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.RateLimiterService,
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	e.HTTPErrorHandler = server.httpErrorHandler
	server.setupMiddleware()
	server.setupRoutes()
	server.httpServer = server.newHTTPServer()

	return server
}
