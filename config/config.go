package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort    string `mapstructure:"APP_PORT"`
	AppEnv     string `mapstructure:"APP_ENV"`
	JWTSecret  string `mapstructure:"JWT_SECRET"`
	TokenTTLHr int    `mapstructure:"TOKEN_TTL_HOURS"`
	// Database
	DBDriver    string `mapstructure:"DB_DRIVER"` // mysql, postgres or sqlite
	DatabaseURI string `mapstructure:"DATABASE_URI"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`
	// Gin framework configuration
	GinMode string `mapstructure:"GIN_MODE"`
	GinPath string `mapstructure:"GIN_PATH"`
	// HTTP surface
	RateLimitPerMinute int      `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	AllowedOrigins     []string `mapstructure:"-"`
	// Redis for caching and token stores
	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     int    `mapstructure:"REDIS_PORT"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// Logging configuration
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogPath       string `mapstructure:"LOG_PATH"`
	LogMaxSizeMB  int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `mapstructure:"LOG_MAX_AGE_DAYS"`
	LogCompress   bool   `mapstructure:"LOG_COMPRESS"`
	// Uploads and feed
	UploadDir          string `mapstructure:"UPLOAD_DIR"`
	UploadPublicPath   string `mapstructure:"UPLOAD_PUBLIC_PATH"`
	MaxImageBytes      int64  `mapstructure:"MAX_IMAGE_BYTES"`
	FeedCacheTTLSec    int    `mapstructure:"FEED_CACHE_TTL_SECONDS"`
	CSRFTTLMinutes     int    `mapstructure:"CSRF_TTL_MINUTES"`
	OrphanSweepMinutes int    `mapstructure:"ORPHAN_SWEEP_MINUTES"`
	// Tracing
	TracingEnabled bool `mapstructure:"TRACING_ENABLED"`
}

var (
	cfg     AppConfig
	loaded  bool
	cfgLock sync.Mutex
)

// Load loads the application configuration. It should be called once during boot.
// Precedence: defaults -> config/config.json -> environment variables.
func Load() AppConfig {
	cfgLock.Lock()
	defer cfgLock.Unlock()
	if loaded {
		return cfg
	}

	c, err := read(viper.New())
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	cfgLock.Lock()
	ok := loaded
	cfgLock.Unlock()
	if !ok {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Used by tools and tests that build
// their configuration in code.
func Set(c AppConfig) {
	cfgLock.Lock()
	cfg = c
	loaded = true
	cfgLock.Unlock()
}

func read(v *viper.Viper) (AppConfig, error) {
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath("config")
	v.AddConfigPath(".")
	applyDefaults(v)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return AppConfig{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var c AppConfig
	if err := v.Unmarshal(&c); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	c.AllowedOrigins = splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS"))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))

	if err := c.Validate(); err != nil {
		return AppConfig{}, err
	}
	return c, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL_HOURS", 72)
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DATABASE_URI", "")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "")
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "postwall")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("GIN_PATH", "logs/gin.log")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PATH", "logs/app.log")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 3)
	v.SetDefault("LOG_MAX_AGE_DAYS", 7)
	v.SetDefault("LOG_COMPRESS", false)
	v.SetDefault("UPLOAD_DIR", "storage/public")
	v.SetDefault("UPLOAD_PUBLIC_PATH", "/storage")
	v.SetDefault("MAX_IMAGE_BYTES", 2*1024*1024)
	v.SetDefault("FEED_CACHE_TTL_SECONDS", 60)
	v.SetDefault("CSRF_TTL_MINUTES", 120)
	v.SetDefault("ORPHAN_SWEEP_MINUTES", 30)
	v.SetDefault("TRACING_ENABLED", false)
}

// Validate checks required values and normalizes driver-specific defaults.
func (c *AppConfig) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.DBDriver {
	case "mysql":
		if c.DBPort == "" {
			c.DBPort = "3306"
		}
	case "postgres":
		if c.DBPort == "" {
			c.DBPort = "5432"
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.MaxImageBytes <= 0 {
		return errors.New("MAX_IMAGE_BYTES must be positive")
	}
	if c.AppEnv == "production" && len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters in production")
	}
	return nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
