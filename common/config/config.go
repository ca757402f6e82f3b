package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all flowd service configuration.
type Config struct {
	Service   ServiceConfig
	Execution ExecutionConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-level settings.
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
	APIKey      string
}

// ExecutionConfig bounds the scheduler's concurrency and default timeouts.
type ExecutionConfig struct {
	MaxConcurrency      int
	DefaultTimeout      time.Duration
	AsyncDefaultTimeout time.Duration
}

// DatabaseConfig holds Postgres connection settings for the optional
// registry snapshot store.
type DatabaseConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// CacheConfig holds Redis connection settings for the optional registry
// change notifier and distributed rate limiter.
type CacheConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

// RateLimitConfig configures the tiered request rate limiter.
type RateLimitConfig struct {
	Enabled              bool
	InternalServiceSecret string
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
	MetricsPort int
}

// Load loads configuration from environment variables, applying the
// defaults a local or development deployment needs.
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
			APIKey:      getEnv("API_KEY", ""),
		},
		Execution: ExecutionConfig{
			MaxConcurrency:      getEnvInt("MAX_CONCURRENCY", 8),
			DefaultTimeout:      getEnvDuration("DEFAULT_NODE_TIMEOUT", 30*time.Second),
			AsyncDefaultTimeout: getEnvDuration("ASYNC_DEFAULT_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:     getEnvBool("REGISTRY_DB_ENABLED", false),
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "diagflow"),
			User:        getEnv("POSTGRES_USER", "diagflow"),
			Password:    getEnv("POSTGRES_PASSWORD", "diagflow"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Cache: CacheConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:               getEnvBool("RATE_LIMIT_ENABLED", false),
			InternalServiceSecret: getEnv("INTERNAL_SERVICE_SECRET", ""),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", false),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
			MetricsPort: getEnvInt("METRICS_PORT", 9090),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks structural invariants that would otherwise surface as a
// confusing failure deep inside the engine.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}
	if c.Execution.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be >= 1")
	}
	if c.Database.Enabled && c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string for the registry
// snapshot store.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
