// Package config provides configuration loading and management for the directory server.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/campuslink/campuslink-server/internal/telemetry"
)

// EnvPrefix is the prefix of every environment override
const EnvPrefix = "CAMPUSLINK"

const (
	// StorageTypeDatabase stores records in PostgreSQL
	StorageTypeDatabase = "database"

	// StorageTypeSQLite stores records in a local SQLite file
	StorageTypeSQLite = "sqlite"

	// StorageTypeMemory keeps records in process memory
	StorageTypeMemory = "memory"
)

// Defaults applied by LoadConfig when a value is not set
const (
	DefaultAddress        = ":8080"
	DefaultRequestTimeout = 30 * time.Second
	DefaultFreshnessTTL   = 15 * time.Minute
	DefaultFetchTimeout   = 5 * time.Second
	DefaultPlacesTimeout  = 10 * time.Second
	DefaultEnrichInterval = 200 * time.Millisecond
	DefaultEnrichRadius   = 500
	DefaultKafkaTopic     = "campuslink.status-changes"
	DefaultSQLiteBusy     = 5 * time.Second
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
	env  *viper.Viper
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// EvalSymlinks also cleans the path
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}
		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// WithEnv sets the viper instance used for environment overrides
func WithEnv(v *viper.Viper) Option {
	return func(cfg *loaderConfig) error {
		if v == nil {
			return fmt.Errorf("viper instance cannot be nil")
		}
		cfg.env = v
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Server    ServerConfig      `yaml:"server"`
	Storage   StorageConfig     `yaml:"storage"`
	Database  *DatabaseConfig   `yaml:"database,omitempty"`
	Places    PlacesConfig      `yaml:"places"`
	Freshness FreshnessConfig   `yaml:"freshness"`
	Enrich    EnrichConfig      `yaml:"enrich"`
	Events    EventsConfig      `yaml:"events"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// ServerConfig defines the HTTP listener
type ServerConfig struct {
	Address        string          `yaml:"address,omitempty"`
	RequestTimeout time.Duration   `yaml:"requestTimeout,omitempty"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig limits /api requests per client IP. Zero requests disables it.
type RateLimitConfig struct {
	Requests int           `yaml:"requests,omitempty"`
	Window   time.Duration `yaml:"window,omitempty"`
}

// StorageConfig selects the directory backend
type StorageConfig struct {
	// Type is one of database, sqlite or memory. Defaults to memory.
	Type   string        `yaml:"type,omitempty"`
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
}

// SQLiteConfig defines the SQLite backend
type SQLiteConfig struct {
	Path         string        `yaml:"path"`
	BusyTimeout  time.Duration `yaml:"busyTimeout,omitempty"`
	MaxOpenConns int           `yaml:"maxOpenConns,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// The file should contain only the password with optional trailing whitespace.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the minimum number of idle connections kept in the pool
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`

	// ConnectTimeout bounds the startup connection retries
	ConnectTimeout time.Duration `yaml:"connectTimeout,omitempty"`

	// password comes from CAMPUSLINK_DATABASE_PASSWORD
	password string
}

// PlacesConfig defines the Google Places client
type PlacesConfig struct {
	// APIKey is normally supplied through CAMPUSLINK_PLACES_API_KEY,
	// GOOGLE_MAPS_API_KEY or VITE_GOOGLE_MAPS_API_KEY, in that order.
	// Empty disables status synchronization.
	APIKey   string        `yaml:"apiKey,omitempty"`
	Endpoint string        `yaml:"endpoint,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// FreshnessConfig defines the status synchronizer
type FreshnessConfig struct {
	TTL          time.Duration `yaml:"ttl,omitempty"`
	FetchTimeout time.Duration `yaml:"fetchTimeout,omitempty"`
}

// EnrichConfig defines the enrich command
type EnrichConfig struct {
	Interval     time.Duration `yaml:"interval,omitempty"`
	RadiusMeters int           `yaml:"radiusMeters,omitempty"`
	Concurrency  int           `yaml:"concurrency,omitempty"`
}

// EventsConfig defines where status change events go
type EventsConfig struct {
	Kafka *KafkaConfig `yaml:"kafka,omitempty"`
}

// KafkaConfig defines the Kafka publisher
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic,omitempty"`
	WriteTimeout time.Duration `yaml:"writeTimeout,omitempty"`
}

// Enabled reports whether any broker is configured
func (k *KafkaConfig) Enabled() bool {
	return k != nil && len(k.Brokers) > 0
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. CAMPUSLINK_DATABASE_PASSWORD captured by LoadConfig
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		data, err := os.ReadFile(filepath.Clean(d.PasswordFile))
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if d.password != "" {
		return d.password, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s_DATABASE_PASSWORD environment variable",
		EnvPrefix,
	)
}

// SetPassword sets the password used when no PasswordFile is configured
func (d *DatabaseConfig) SetPassword(password string) {
	d.password = password
}

// GetConnectionString builds a PostgreSQL connection string.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	), nil
}

// LoadConfig loads a YAML file, applies environment overrides and defaults,
// and validates the result
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	env := loaderCfg.env
	if env == nil {
		env = NewEnv()
	}
	config.applyEnv(env)
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// NewEnv returns a viper instance bound to the CAMPUSLINK_* overrides
func NewEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind errors only happen for an empty key
	_ = v.BindEnv("places.api_key", EnvPrefix+"_PLACES_API_KEY", "GOOGLE_MAPS_API_KEY", "VITE_GOOGLE_MAPS_API_KEY")
	_ = v.BindEnv("database.password", EnvPrefix+"_DATABASE_PASSWORD")
	_ = v.BindEnv("server.address")
	_ = v.BindEnv("storage.type")
	_ = v.BindEnv("events.kafka.brokers", EnvPrefix+"_KAFKA_BROKERS")
	return v
}

func (c *Config) applyEnv(v *viper.Viper) {
	if key := v.GetString("places.api_key"); key != "" {
		c.Places.APIKey = key
	}
	if addr := v.GetString("server.address"); addr != "" {
		c.Server.Address = addr
	}
	if st := v.GetString("storage.type"); st != "" {
		c.Storage.Type = st
	}
	if pw := v.GetString("database.password"); pw != "" && c.Database != nil {
		c.Database.SetPassword(pw)
	}
	if brokers := v.GetString("events.kafka.brokers"); brokers != "" {
		if c.Events.Kafka == nil {
			c.Events.Kafka = &KafkaConfig{}
		}
		c.Events.Kafka.Brokers = splitList(brokers)
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = DefaultRequestTimeout
	}
	if c.Server.RateLimit.Requests > 0 && c.Server.RateLimit.Window == 0 {
		c.Server.RateLimit.Window = time.Minute
	}
	if c.Storage.Type == "" {
		c.Storage.Type = StorageTypeMemory
	}
	if c.Storage.SQLite != nil && c.Storage.SQLite.BusyTimeout == 0 {
		c.Storage.SQLite.BusyTimeout = DefaultSQLiteBusy
	}
	if c.Places.Timeout == 0 {
		c.Places.Timeout = DefaultPlacesTimeout
	}
	if c.Freshness.TTL == 0 {
		c.Freshness.TTL = DefaultFreshnessTTL
	}
	if c.Freshness.FetchTimeout == 0 {
		c.Freshness.FetchTimeout = DefaultFetchTimeout
	}
	if c.Enrich.Interval == 0 {
		c.Enrich.Interval = DefaultEnrichInterval
	}
	if c.Enrich.RadiusMeters == 0 {
		c.Enrich.RadiusMeters = DefaultEnrichRadius
	}
	if c.Enrich.Concurrency == 0 {
		c.Enrich.Concurrency = 1
	}
	if c.Events.Kafka.Enabled() && c.Events.Kafka.Topic == "" {
		c.Events.Kafka.Topic = DefaultKafkaTopic
	}
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error

	switch c.Storage.Type {
	case StorageTypeDatabase:
		if c.Database == nil {
			errs = append(errs, fmt.Errorf("storage.type %s requires a database section", StorageTypeDatabase))
		} else if err := c.Database.validate(); err != nil {
			errs = append(errs, err)
		}
	case StorageTypeSQLite:
		if c.Storage.SQLite == nil || strings.TrimSpace(c.Storage.SQLite.Path) == "" {
			errs = append(errs, fmt.Errorf("storage.type %s requires storage.sqlite.path", StorageTypeSQLite))
		}
	case "", StorageTypeMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.type must be one of %s, %s or %s, got %q",
			StorageTypeDatabase, StorageTypeSQLite, StorageTypeMemory, c.Storage.Type))
	}

	if c.Server.RateLimit.Requests < 0 {
		errs = append(errs, fmt.Errorf("server.rateLimit.requests cannot be negative"))
	}
	if c.Freshness.TTL < 0 {
		errs = append(errs, fmt.Errorf("freshness.ttl cannot be negative"))
	}
	if c.Freshness.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("freshness.fetchTimeout cannot be negative"))
	}
	if c.Places.Endpoint != "" {
		if u, err := url.Parse(c.Places.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("places.endpoint must be an absolute URL, got %q", c.Places.Endpoint))
		}
	}
	if c.Enrich.RadiusMeters < 0 || c.Enrich.Concurrency < 0 || c.Enrich.Interval < 0 {
		errs = append(errs, fmt.Errorf("enrich settings cannot be negative"))
	}
	if k := c.Events.Kafka; k != nil && !k.Enabled() && k.Topic != "" {
		errs = append(errs, fmt.Errorf("events.kafka.topic is set but no brokers are configured"))
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	return errors.Join(errs...)
}

func (d *DatabaseConfig) validate() error {
	var errs []error
	if d.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if d.Port <= 0 || d.Port > 65535 {
		errs = append(errs, fmt.Errorf("database.port must be between 1 and 65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}
	if d.Database == "" {
		errs = append(errs, fmt.Errorf("database.database is required"))
	}
	if d.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(d.ConnMaxLifetime); err != nil {
			errs = append(errs, fmt.Errorf("database.connMaxLifetime must be a valid duration: %w", err))
		}
	}
	return errors.Join(errs...)
}

// SynchronizationEnabled reports whether a Places API key is configured
func (c *Config) SynchronizationEnabled() bool {
	return strings.TrimSpace(c.Places.APIKey) != ""
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
