package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/petportrait/configs"
	"github.com/avatarctic/petportrait/internal/application/services"
	"github.com/avatarctic/petportrait/internal/core/ports"
	"github.com/avatarctic/petportrait/internal/infrastructure/cache"
	"github.com/avatarctic/petportrait/internal/infrastructure/db"
	"github.com/avatarctic/petportrait/internal/infrastructure/health"
	"github.com/avatarctic/petportrait/internal/infrastructure/httpserver"
	"github.com/avatarctic/petportrait/internal/infrastructure/openai"
	"github.com/avatarctic/petportrait/internal/infrastructure/redis"
	"github.com/avatarctic/petportrait/internal/infrastructure/repositories"
)

func main() {
	cfg, err := configs.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := newLogger(&cfg.Log)
	logger.Info("Starting pet portrait service...")

	var hcSlice []ports.HealthChecker

	// Redis is optional; it backs the shared limiter store and the moderation cache.
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()
		hcSlice = append(hcSlice, health.NewRedisHealthChecker(redisClient))
		logger.Info("Connected to Redis successfully")
	}

	// Postgres is optional; without it generation records are only logged.
	var auditRepo ports.GenerationAuditRepository
	if cfg.Database.Enabled {
		database, err := db.NewDatabase(&cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database:", err)
		}
		defer database.Close()
		if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
			logger.Warn("Failed to run migrations:", err)
		}
		auditRepo = repositories.NewGenerationAuditRepository(database, logger)
		hcSlice = append(hcSlice, health.NewDBHealthChecker(database))
		logger.Info("Connected to database successfully")
	}

	metrics := services.NewMetrics(prometheus.DefaultRegisterer)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	var rateLimitRepo ports.RateLimitRepository
	switch cfg.RateLimit.Store {
	case "redis":
		rateLimitRepo = repositories.NewRateLimitRedisRepository(redisClient, cfg.RateLimit.KeyPrefix, logger)
	default:
		memRepo := repositories.NewRateLimitMemoryRepository()
		go pruneRateLimitWindows(rootCtx, memRepo, cfg.RateLimit.Window, logger)
		rateLimitRepo = memRepo
	}
	rateLimiterService := services.NewRateLimiterService(rateLimitRepo, &services.RateLimiterConfig{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
	}, metrics, logger)
	logger.WithFields(logrus.Fields{
		"store":  cfg.RateLimit.Store,
		"max":    cfg.RateLimit.MaxRequests,
		"window": cfg.RateLimit.Window.String(),
	}).Info("Rate limiter configured")

	var verdictCache ports.Cache
	if redisClient != nil {
		verdictCache = redis.NewRedisCache(redisClient, cfg.Cache.KeyPrefix)
	} else {
		verdictCache = cache.NewMemoryCache(cfg.Cache.ModerationTTL)
	}
	moderationClient := openai.NewModerationClient(openai.ModerationConfig{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Moderation.BaseURL,
		Model:   cfg.Moderation.Model,
		Timeout: cfg.Moderation.Timeout,
	})
	moderationProvider := cache.NewCachingModerationProvider(moderationClient, verdictCache, cfg.Cache.ModerationTTL, logger)
	moderationService := services.NewModerationService(moderationProvider, cfg.Moderation.Enabled, metrics, logger)

	imageClient := openai.NewImageClient(openai.ImageConfig{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Provider.Model,
		Timeout: cfg.Provider.Timeout,
	})
	dispatcher := services.NewDispatcher(imageClient, cfg.Provider.Model, metrics, logger)

	auditService := services.NewAuditService(auditRepo, logger)
	generationService := services.NewGenerationService(
		moderationService,
		services.NewPromptComposer(),
		dispatcher,
		auditService,
		&services.GenerationServiceConfig{MaxCaptionLength: cfg.Upload.MaxCaptionLength},
		metrics,
		logger,
	)

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	deps := httpserver.ServerDeps{
		GenerationService:  generationService,
		RateLimiterService: rateLimiterService,
		AuditService:       auditService,
		HealthCheckers:     hcSlice,
		Upload: httpserver.UploadConfig{
			MaxImageBytes:  cfg.Upload.MaxImageBytes,
			DefaultSize:    cfg.Provider.DefaultSize,
			AllowedSizes:   cfg.Provider.AllowedSizes,
			DefaultQuality: cfg.Provider.DefaultQuality,
		},
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	// Provider calls can take a while; give in-flight generations time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}

func newLogger(cfg *configs.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}

// pruneRateLimitWindows keeps the in-memory store from growing with every
// identity ever seen.
func pruneRateLimitWindows(ctx context.Context, repo *repositories.RateLimitMemoryRepository, window time.Duration, logger *logrus.Logger) {
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := repo.Prune(now, window); n > 0 {
				logger.WithField("removed", n).Debug("pruned expired rate limit windows")
			}
		}
	}
}
