package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"skirental/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Backup        BackupConfig        `yaml:"backup"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Logging       LoggingConfig       `yaml:"logging"`
	API           APIConfig           `yaml:"api"`
	Listing       ListingConfig       `yaml:"listing"`
	Booking       BookingConfig       `yaml:"booking"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Exports       ExportConfig        `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	Path     string         `yaml:"path"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	DBName         string `yaml:"dbname"`
	SSLMode        string `yaml:"sslmode"`
	MaxConnections int    `yaml:"max_connections"`
}

// DSN renders a lib/pq connection string.
func (p PostgresConfig) DSN() string {
	parts := []string{
		fmt.Sprintf("host=%s", p.Host),
		fmt.Sprintf("port=%d", p.Port),
		fmt.Sprintf("user=%s", p.User),
		fmt.Sprintf("dbname=%s", p.DBName),
		fmt.Sprintf("sslmode=%s", p.SSLMode),
	}
	if p.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", p.Password))
	}
	return strings.Join(parts, " ")
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Interval      string `yaml:"interval"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port            int    `yaml:"port"`
	Mode            string `yaml:"mode"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type APIAuthConfig struct {
	Enabled         bool           `yaml:"enabled"`
	HeaderAPIKey    string         `yaml:"header_api_key"`
	HeaderExtra     string         `yaml:"header_extra"`
	HeaderSessionID string         `yaml:"header_session_id"`
	APIKeys         []APIClientKey `yaml:"api_keys"`
}

// APIClientKey binds an API key pair to the employer acting through it.
type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	EmployerID  int64    `yaml:"employer_id"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ListingConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

type BookingConfig struct {
	CartTTL        string `yaml:"cart_ttl"`
	LockTTL        string `yaml:"lock_ttl"`
	LockWait       string `yaml:"lock_wait"`
	DefaultTaxRate int    `yaml:"default_tax_rate"`
}

type NotificationsConfig struct {
	Enabled         bool        `yaml:"enabled"`
	AMQPURL         string      `yaml:"amqp_url"`
	Queue           string      `yaml:"queue"`
	ChannelPoolSize int         `yaml:"channel_pool_size"`
	QueueSize       int         `yaml:"queue_size"`
	PollInterval    string      `yaml:"poll_interval"`
	Retry           RetryConfig `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	BaseDelay   string `yaml:"base_delay"`
	MaxDelay    string `yaml:"max_delay"`
}

type ExportConfig struct {
	Path     string `yaml:"path"`
	RowLimit int    `yaml:"row_limit"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; variables may come from the environment directly
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" || c.Database.Postgres.DBName == "" {
			return errors.New("postgres host and dbname are required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Listing.DefaultPageSize < 1 || c.Listing.MaxPageSize < c.Listing.DefaultPageSize {
		return fmt.Errorf("listing page sizes invalid: default %d, max %d",
			c.Listing.DefaultPageSize, c.Listing.MaxPageSize)
	}

	if c.Booking.DefaultTaxRate < 0 || c.Booking.DefaultTaxRate > 100 {
		return fmt.Errorf("booking.default_tax_rate out of range: %d", c.Booking.DefaultTaxRate)
	}

	for name, raw := range map[string]string{
		"booking.cart_ttl":               c.Booking.CartTTL,
		"booking.lock_ttl":               c.Booking.LockTTL,
		"booking.lock_wait":              c.Booking.LockWait,
		"notifications.poll_interval":    c.Notifications.PollInterval,
		"notifications.retry.base_delay": c.Notifications.Retry.BaseDelay,
		"notifications.retry.max_delay":  c.Notifications.Retry.MaxDelay,
		"api.http.shutdown_timeout":      c.API.HTTP.ShutdownTimeout,
	} {
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.Notifications.Enabled && c.Notifications.AMQPURL == "" {
		return errors.New("notifications.amqp_url is required when notifications are enabled")
	}

	return ValidateAPIKeys(c.API.Auth)
}

// ValidateAPIKeys rejects empty or duplicated keys and keys without an employer.
func ValidateAPIKeys(auth APIAuthConfig) error {
	if !auth.Enabled {
		return nil
	}
	seen := make(map[string]bool)
	for _, k := range auth.APIKeys {
		if k.Key == "" {
			return fmt.Errorf("api key '%s' is empty", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for '%s'", k.Name)
		}
		if k.EmployerID <= 0 {
			return fmt.Errorf("api key '%s' has no employer_id", k.Name)
		}
		seen[k.Key] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "skirental"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}
	if c.Database.Postgres.Port == 0 {
		c.Database.Postgres.Port = 5432
	}
	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = "disable"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.HTTP.Mode == "" {
		c.API.HTTP.Mode = "release"
	}
	if c.API.HTTP.ShutdownTimeout == "" {
		c.API.HTTP.ShutdownTimeout = "10s"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.API.Auth.HeaderSessionID == "" {
		c.API.Auth.HeaderSessionID = "x-session-id"
	}

	if c.Listing.DefaultPageSize == 0 {
		c.Listing.DefaultPageSize = models.DefaultPageSize
	}
	if c.Listing.MaxPageSize == 0 {
		c.Listing.MaxPageSize = models.MaxPageSize
	}

	if c.Booking.CartTTL == "" {
		c.Booking.CartTTL = (time.Duration(models.DefaultCartTTL) * time.Second).String()
	}
	if c.Booking.LockTTL == "" {
		c.Booking.LockTTL = (time.Duration(models.DefaultCartLockTTL) * time.Second).String()
	}
	if c.Booking.LockWait == "" {
		c.Booking.LockWait = "2s"
	}
	if c.Booking.DefaultTaxRate == 0 {
		c.Booking.DefaultTaxRate = models.DefaultTaxRate
	}

	if c.Notifications.Queue == "" {
		c.Notifications.Queue = "skirental.notifications"
	}
	if c.Notifications.ChannelPoolSize == 0 {
		c.Notifications.ChannelPoolSize = 4
	}
	if c.Notifications.QueueSize == 0 {
		c.Notifications.QueueSize = models.WorkerQueueSize
	}
	if c.Notifications.PollInterval == "" {
		c.Notifications.PollInterval = "5s"
	}
	if c.Notifications.Retry.MaxAttempts == 0 {
		c.Notifications.Retry.MaxAttempts = 5
	}
	if c.Notifications.Retry.BaseDelay == "" {
		c.Notifications.Retry.BaseDelay = "2s"
	}
	if c.Notifications.Retry.MaxDelay == "" {
		c.Notifications.Retry.MaxDelay = "1m"
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Exports.RowLimit == 0 {
		c.Exports.RowLimit = models.DefaultExportRowLimit
	}
	if c.Backup.Interval == "" {
		c.Backup.Interval = "24h"
	}
}

// Duration parses a duration that Validate has already checked.
func Duration(raw string) time.Duration {
	d, _ := time.ParseDuration(raw)
	return d
}
