package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // fixed-zone bucketing must not depend on host zoneinfo

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Backend      BackendConfig
	Session      SessionConfig
	Polling      PollingConfig
	Notification NotificationConfig
	Analytics    AnalyticsConfig
	Server       ServerConfig
	Database     DatabaseConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	S3           S3Config
}

// BackendConfig holds the canteen backend connection settings.
type BackendConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Timezone string // zone of offset-less timestamps served by the backend
}

// SessionConfig holds the credentials of the signed-in user.
type SessionConfig struct {
	Token    string
	UserID   int64
	Username string
	Email    string
}

// PollingConfig holds the intervals of the repeating fetch cycles.
type PollingConfig struct {
	OrderInterval     time.Duration
	QueueInterval     time.Duration
	ETAInterval       time.Duration
	AnalyticsInterval time.Duration
	ETAConcurrency    int
	QueueHighWater    int
	QueueLowWater     int
}

// NotificationConfig holds notification slot settings.
type NotificationConfig struct {
	TTL time.Duration
}

// AnalyticsConfig holds analytics bucketing settings.
type AnalyticsConfig struct {
	Timezone   string
	WindowDays int
}

// ServerConfig holds the local API server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds the optional journal database configuration.
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds the local API key. An empty key disables the check.
type AuthConfig struct {
	APIKey string
}

// S3Config holds AWS S3 configuration for analytics report export.
type S3Config struct {
	Enabled   bool
	Bucket    string
	Region    string
	Prefix    string // Path prefix within bucket (e.g., "reports/")
	ExportDir string // Local directory used when S3 is disabled or unavailable
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{
		Backend: BackendConfig{
			BaseURL:  strings.TrimRight(getEnv("BACKEND_URL", ""), "/"),
			Timeout:  getEnvAsDuration("BACKEND_TIMEOUT", 10*time.Second),
			Timezone: getEnv("BACKEND_TIMEZONE", "Asia/Kolkata"),
		},
		Session: SessionConfig{
			Token:    getEnv("CANTEEN_TOKEN", ""),
			UserID:   getEnvAsInt64("CANTEEN_USER_ID", 0),
			Username: getEnv("CANTEEN_USERNAME", ""),
			Email:    getEnv("CANTEEN_EMAIL", ""),
		},
		Polling: PollingConfig{
			OrderInterval:     getEnvAsDuration("POLL_ORDERS_INTERVAL", 8*time.Second),
			QueueInterval:     getEnvAsDuration("POLL_QUEUE_INTERVAL", 10*time.Second),
			ETAInterval:       getEnvAsDuration("POLL_ETA_INTERVAL", 10*time.Second),
			AnalyticsInterval: getEnvAsDuration("POLL_ANALYTICS_INTERVAL", 15*time.Second),
			ETAConcurrency:    getEnvAsInt("ETA_CONCURRENCY", 4),
			QueueHighWater:    getEnvAsInt("QUEUE_HIGH_WATER", 10),
			QueueLowWater:     getEnvAsInt("QUEUE_LOW_WATER", 2),
		},
		Notification: NotificationConfig{
			TTL: getEnvAsDuration("NOTIFICATION_TTL", 3*time.Second),
		},
		Analytics: AnalyticsConfig{
			Timezone:   getEnv("ANALYTICS_TIMEZONE", "Asia/Kolkata"),
			WindowDays: getEnvAsInt("ANALYTICS_WINDOW_DAYS", 7),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "127.0.0.1"),
			Port: getEnvAsInt("SERVER_PORT", 8090),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvAsBool("JOURNAL_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "canteen_tracker"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 5),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 1),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		S3: S3Config{
			Enabled:   getEnvAsBool("S3_ENABLED", false),
			Bucket:    getEnv("S3_BUCKET", ""),
			Region:    getEnv("S3_REGION", "ap-south-1"),
			Prefix:    getEnv("S3_PREFIX", "reports/"),
			ExportDir: getEnv("EXPORT_DIR", "reports"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend URL is required")
	}

	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("invalid backend URL: %s (must start with http:// or https://)", c.Backend.BaseURL)
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}

	if _, err := time.LoadLocation(c.Backend.Timezone); err != nil {
		return fmt.Errorf("invalid backend timezone: %s", c.Backend.Timezone)
	}

	if c.Session.UserID <= 0 {
		return fmt.Errorf("user ID is required")
	}

	if c.Polling.OrderInterval <= 0 || c.Polling.QueueInterval <= 0 ||
		c.Polling.ETAInterval <= 0 || c.Polling.AnalyticsInterval <= 0 {
		return fmt.Errorf("polling intervals must be positive")
	}

	if c.Polling.ETAConcurrency < 1 {
		return fmt.Errorf("ETA concurrency must be at least 1")
	}

	if c.Polling.QueueLowWater >= c.Polling.QueueHighWater {
		return fmt.Errorf("queue low water must be below high water")
	}

	if c.Notification.TTL <= 0 {
		return fmt.Errorf("notification TTL must be positive")
	}

	if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
		return fmt.Errorf("invalid analytics timezone: %s", c.Analytics.Timezone)
	}

	if c.Analytics.WindowDays < 1 || c.Analytics.WindowDays > 366 {
		return fmt.Errorf("analytics window must be between 1 and 366 days")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Enabled {
		if err := c.Database.validate(); err != nil {
			return err
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.S3.ExportDir == "" {
		return fmt.Errorf("export directory is required")
	}

	return nil
}

func (c *DatabaseConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}

	if c.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.MinConnections > c.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BackendLocation returns the zone of offset-less backend timestamps.
func (c *Config) BackendLocation() *time.Location {
	return mustLoadLocation(c.Backend.Timezone)
}

// AnalyticsLocation returns the fixed zone used for calendar-date bucketing.
func (c *Config) AnalyticsLocation() *time.Location {
	return mustLoadLocation(c.Analytics.Timezone)
}

// mustLoadLocation is only called on validated zone names.
func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("config: unvalidated timezone %q: %v", name, err))
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsInt64 retrieves an environment variable as a 64-bit integer or returns a default value.
func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration ("8s", "1m") or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
