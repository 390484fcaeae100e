package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	RateLimit  RateLimitConfig
	Provider   ProviderConfig
	Moderation ModerationConfig
	Upload     UploadConfig
	Cache      CacheConfig
}

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

// DatabaseConfig is optional: the generation audit log is persisted only when
// a host or DSN is configured.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	// Store selects the counter backend: "memory" (single process) or "redis".
	Store     string
	KeyPrefix string
}

type ProviderConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Timeout        time.Duration
	DefaultSize    string
	AllowedSizes   []string
	DefaultQuality string
}

type ModerationConfig struct {
	Enabled bool
	BaseURL string
	Model   string
	Timeout time.Duration
}

type UploadConfig struct {
	MaxImageBytes    int64
	MaxCaptionLength int
}

type CacheConfig struct {
	ModerationTTL time.Duration
	KeyPrefix     string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 180*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", ""),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "petportrait"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			DSN:             getEnv("DB_DSN", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "./migrations"),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", ""),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: getIntEnv("RATE_LIMIT_MAX", 10),
			Window:      time.Duration(getIntEnv("RATE_LIMIT_WINDOW_SEC", 60)) * time.Second,
			Store:       strings.ToLower(getEnv("RATE_LIMIT_STORE", "memory")),
			KeyPrefix:   getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:generate"),
		},
		Provider: ProviderConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:          getEnv("OPENAI_IMAGE_MODEL", "gpt-image-1"),
			Timeout:        getDurationEnv("OPENAI_IMAGE_TIMEOUT", 120*time.Second),
			DefaultSize:    getEnv("IMAGE_DEFAULT_SIZE", "1024x1024"),
			AllowedSizes:   getListEnv("IMAGE_ALLOWED_SIZES", []string{"1024x1024", "1024x1536", "1536x1024"}),
			DefaultQuality: getEnv("IMAGE_DEFAULT_QUALITY", "low"),
		},
		Moderation: ModerationConfig{
			Enabled: getBoolEnv("MODERATION_ENABLED", true),
			BaseURL: getEnv("OPENAI_MODERATION_BASE_URL", getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1")),
			Model:   getEnv("OPENAI_MODERATION_MODEL", "omni-moderation-latest"),
			Timeout: getDurationEnv("OPENAI_MODERATION_TIMEOUT", 30*time.Second),
		},
		Upload: UploadConfig{
			MaxImageBytes:    int64(getIntEnv("UPLOAD_MAX_IMAGE_BYTES", 5*1024*1024)),
			MaxCaptionLength: getIntEnv("UPLOAD_MAX_CAPTION_LENGTH", 150),
		},
		Cache: CacheConfig{
			ModerationTTL: getDurationEnv("MODERATION_CACHE_TTL", 10*time.Minute),
			KeyPrefix:     getEnv("CACHE_KEY_PREFIX", "petportrait"),
		},
	}

	if cfg.Provider.APIKey == "" {
		return nil, fmt.Errorf("required environment variable OPENAI_API_KEY is not set")
	}
	if cfg.RateLimit.MaxRequests <= 0 || cfg.RateLimit.Window <= 0 {
		return nil, fmt.Errorf("rate limit must have positive RATE_LIMIT_MAX and RATE_LIMIT_WINDOW_SEC")
	}
	if cfg.RateLimit.Store != "memory" && cfg.RateLimit.Store != "redis" {
		return nil, fmt.Errorf("unsupported RATE_LIMIT_STORE: %s", cfg.RateLimit.Store)
	}

	cfg.Redis.Enabled = cfg.Redis.Host != ""
	if cfg.RateLimit.Store == "redis" && !cfg.Redis.Enabled {
		return nil, fmt.Errorf("RATE_LIMIT_STORE=redis requires REDIS_HOST")
	}

	// Build database DSN
	if cfg.Database.DSN == "" && cfg.Database.Host != "" {
		cfg.Database.DSN = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.DBName,
			cfg.Database.SSLMode,
		)
	}
	cfg.Database.Enabled = cfg.Database.DSN != ""

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping empty items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
