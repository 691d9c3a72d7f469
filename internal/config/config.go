package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Pipeline PipelineConfig
	Profiles ProfilesConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Stats    StatsConfig
	Sessions SessionConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	AllowedOrigins  []string
}

type PipelineConfig struct {
	RequestTimeout  time.Duration
	AnalyzerTimeout time.Duration
}

type ProfilesConfig struct {
	// File overrides the embedded profile set when non-empty.
	File string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type PostgresConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type StatsConfig struct {
	QueueSize      int
	ReportSchedule string
}

type SessionConfig struct {
	// TTL is how long an untouched session is kept.
	TTL           time.Duration
	MaxActive     int
	SweepSchedule string
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "127.0.0.1"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			MaxBodyBytes:    int64(getEnvInt("SERVER_MAX_BODY_BYTES", 1<<20)),
			AllowedOrigins:  parseCommaSeparated(getEnv("SERVER_ALLOWED_ORIGINS", "")),
		},
		Pipeline: PipelineConfig{
			RequestTimeout:  getEnvDuration("PIPELINE_REQUEST_TIMEOUT", 5*time.Second),
			AnalyzerTimeout: getEnvDuration("PIPELINE_ANALYZER_TIMEOUT", 500*time.Millisecond),
		},
		Profiles: ProfilesConfig{
			File: getEnv("PROFILES_FILE", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Postgres: PostgresConfig{
			Enabled:  getEnvBool("POSTGRES_ENABLED", false),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "rosetta"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "rosetta"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Stats: StatsConfig{
			QueueSize:      getEnvInt("STATS_QUEUE_SIZE", 256),
			ReportSchedule: getEnv("STATS_REPORT_SCHEDULE", "@every 5m"),
		},
		Sessions: SessionConfig{
			TTL:           getEnvDuration("SESSION_TTL", 30*time.Minute),
			MaxActive:     getEnvInt("SESSION_MAX_ACTIVE", 100),
			SweepSchedule: getEnv("SESSION_SWEEP_SCHEDULE", "@every 1m"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("SERVER_MAX_BODY_BYTES must be positive")
	}
	if c.Pipeline.RequestTimeout <= 0 {
		return fmt.Errorf("PIPELINE_REQUEST_TIMEOUT must be positive")
	}
	if c.Pipeline.AnalyzerTimeout <= 0 {
		return fmt.Errorf("PIPELINE_ANALYZER_TIMEOUT must be positive")
	}
	if c.Pipeline.AnalyzerTimeout > c.Pipeline.RequestTimeout {
		return fmt.Errorf("PIPELINE_ANALYZER_TIMEOUT (%s) exceeds PIPELINE_REQUEST_TIMEOUT (%s)",
			c.Pipeline.AnalyzerTimeout, c.Pipeline.RequestTimeout)
	}
	if c.Stats.QueueSize <= 0 {
		return fmt.Errorf("STATS_QUEUE_SIZE must be positive")
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Sessions.MaxActive < 0 {
		return fmt.Errorf("SESSION_MAX_ACTIVE must not be negative")
	}
	if c.Postgres.Enabled && c.Postgres.Database == "" {
		return fmt.Errorf("POSTGRES_DB is required when POSTGRES_ENABLED is set")
	}
	return nil
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DSN builds a lib/pq connection string.
func (p PostgresConfig) DSN() string {
	parts := []string{
		fmt.Sprintf("host=%s", p.Host),
		fmt.Sprintf("port=%d", p.Port),
		fmt.Sprintf("user=%s", p.User),
		fmt.Sprintf("dbname=%s", p.Database),
		fmt.Sprintf("sslmode=%s", p.SSLMode),
	}
	if p.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", p.Password))
	}
	return strings.Join(parts, " ")
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

// getEnvDuration accepts Go duration strings ("750ms") or plain milliseconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
