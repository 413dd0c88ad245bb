// Package config loads service configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PRASANNAPATIL12/weddingcard/internal/qrrequest"
	"github.com/PRASANNAPATIL12/weddingcard/internal/qrserver"
)

// Config holds the application configuration.
type Config struct {
	// Server
	Host string
	Port string

	// PublicOrigin is the origin invitation links are built on.
	PublicOrigin string

	// QR image services
	PrimaryEndpoint string
	DotsEndpoint    string
	QRServerEnabled bool

	// Outbound fetch
	FetchTimeout        time.Duration
	FetchConnectTimeout time.Duration
	FetchMaxBytes       int64

	// Cache: "memory", "redis" or "none"
	CacheBackend    string
	CacheTTL        time.Duration
	CacheMaxEntries int
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int

	// WeddingsFile is a YAML registry of invitations.
	WeddingsFile string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	cfg := &Config{
		Host: getEnv("HOST", "0.0.0.0"),
		Port: getEnv("PORT", "8080"),

		PrimaryEndpoint: getEnv("QR_PRIMARY_ENDPOINT", qrrequest.DefaultPrimaryEndpoint),
		DotsEndpoint:    getEnv("QR_DOTS_ENDPOINT", ""),
		QRServerEnabled: getEnvBool("QRSERVER_ENABLED", true),

		FetchTimeout:        time.Duration(getEnvInt("FETCH_TIMEOUT", 15)) * time.Second,
		FetchConnectTimeout: time.Duration(getEnvInt("FETCH_CONNECT_TIMEOUT", 5)) * time.Second,
		FetchMaxBytes:       int64(getEnvInt("FETCH_MAX_BYTES", 8<<20)),

		CacheBackend:    strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		CacheTTL:        time.Duration(getEnvInt("QR_CACHE_TTL", 86400)) * time.Second,
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 512),
		RedisHost:       getEnv("REDIS_HOST", "localhost"),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),

		WeddingsFile: getEnv("WEDDINGS_FILE", "weddings.yaml"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
	cfg.PublicOrigin = strings.TrimRight(getEnv("PUBLIC_ORIGIN", "http://localhost:"+cfg.Port), "/")
	if cfg.DotsEndpoint == "" {
		cfg.DotsEndpoint = qrserver.Endpoints(cfg.PublicOrigin).Dots
	}
	return cfg
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Endpoints returns the QR image endpoints for the request builder.
func (c *Config) Endpoints() qrrequest.Endpoints {
	return qrrequest.Endpoints{Primary: c.PrimaryEndpoint, Dots: c.DotsEndpoint}
}

// RedisAddr returns the Redis address.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// SlogLevel maps LogLevel onto a slog.Level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
