package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration, loaded from environment
// variables (with an optional .env file for local development).
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Cache       CacheConfig
	Aggregation AggregationConfig
	Enrichment  EnrichmentConfig
	App         AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MinIdleConns    int
	ConnMaxLifetime time.Duration
	RunMigrations   bool
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CacheConfig holds resolution-cache policy. SlidingWindow is the entry
// lifetime, reset on every hit. NegativeTTL > 0 enables short-lived caching
// of not-found codes to blunt code-guessing scans; 0 disables it.
type CacheConfig struct {
	SlidingWindow time.Duration
	NegativeTTL   time.Duration
}

// AggregationConfig holds the background rollup schedule. Interval is how
// often a pass runs; LookbackDays is how many complete days before today each
// pass recomputes (late-arriving events within that window are picked up);
// RetryBackoff is the delay before retrying a whole failed pass.
type AggregationConfig struct {
	Interval     time.Duration
	LookbackDays int
	RetryBackoff time.Duration
}

// EnrichmentConfig holds click-enrichment settings. GeoDBPath points at a
// MaxMind mmdb file; empty disables geolocation. GeoTimeout bounds a single
// lookup so a slow resolver cannot stall the recording pipeline.
type EnrichmentConfig struct {
	GeoDBPath  string
	GeoTimeout time.Duration
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Environment        string
	LogLevel           string
	CodeLength         int
	RateLimitEnabled   bool
	RateLimitPerMinute int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present (missing file is not an error).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			BaseURL:      getEnv("SERVER_BASE_URL", "http://localhost:8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "10s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "10s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "120s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "linkpulse"),
			Password:        getEnv("DB_PASSWORD", "dev_password_123"),
			DBName:          getEnv("DB_NAME", "linkpulse"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MinIdleConns:    parseInt("DB_MIN_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
			RunMigrations:   parseBool("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			SlidingWindow: parseDuration("CACHE_SLIDING_WINDOW", "5m"),
			NegativeTTL:   parseDuration("CACHE_NEGATIVE_TTL", "0s"),
		},
		Aggregation: AggregationConfig{
			Interval:     parseDuration("AGGREGATION_INTERVAL", "1h"),
			LookbackDays: parseInt("AGGREGATION_LOOKBACK_DAYS", 2),
			RetryBackoff: parseDuration("AGGREGATION_RETRY_BACKOFF", "5m"),
		},
		Enrichment: EnrichmentConfig{
			GeoDBPath:  getEnv("GEOIP_DB_PATH", ""),
			GeoTimeout: parseDuration("GEOIP_TIMEOUT", "500ms"),
		},
		App: AppConfig{
			Environment:        getEnv("APP_ENV", "development"),
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			CodeLength:         parseInt("SHORT_CODE_LENGTH", 7),
			RateLimitEnabled:   parseBool("RATE_LIMIT_ENABLED", true),
			RateLimitPerMinute: parseInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 100),
		},
	}

	if cfg.App.CodeLength < 4 || cfg.App.CodeLength > 20 {
		return nil, fmt.Errorf("SHORT_CODE_LENGTH must be between 4 and 20, got %d", cfg.App.CodeLength)
	}
	if cfg.Aggregation.LookbackDays < 1 {
		return nil, fmt.Errorf("AGGREGATION_LOOKBACK_DAYS must be at least 1, got %d", cfg.Aggregation.LookbackDays)
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address in host:port format.
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
