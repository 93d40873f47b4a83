package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither the caller nor TECHSLOTS_CONFIG_PATH names a file.
const DefaultPath = "configs/config.yaml"

// DefaultTechniciansPath is the profile file used when profiles.path is empty.
const DefaultTechniciansPath = "configs/technicians.yaml"

type Config struct {
	HTTP struct {
		Address            string  `yaml:"address"`
		ReadTimeoutSeconds int     `yaml:"read_timeout_seconds"`
		RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
		RateLimitBurst     int     `yaml:"rate_limit_burst"`
	} `yaml:"http"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Store StoreConfig `yaml:"store"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Firebase struct {
		ProjectID       string `yaml:"project_id"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"firebase"`

	Profiles struct {
		Source              string `yaml:"source"`
		Path                string `yaml:"path"`
		ReloadSeconds       int    `yaml:"reload_seconds"`
		CacheTTLSeconds     int    `yaml:"cache_ttl_seconds"`
		FirestoreCollection string `yaml:"firestore_collection"`
	} `yaml:"profiles"`

	Booking struct {
		Timezone        string `yaml:"timezone"`
		GraceSeconds    int    `yaml:"grace_seconds"`
		CancelledSlots  string `yaml:"cancelled_slots"`
		GenericFrom     int    `yaml:"generic_from"`
		GenericTo       int    `yaml:"generic_to"`
		SoonCancelHours int    `yaml:"soon_cancel_hours"`
	} `yaml:"booking"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`
}

// StoreConfig selects the booking store driver and holds per-driver settings.
type StoreConfig struct {
	Driver string `yaml:"driver"`

	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`

	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`

	Mongo struct {
		URI        string `yaml:"uri"`
		Database   string `yaml:"database"`
		Collection string `yaml:"collection"`
	} `yaml:"mongo"`

	Firestore struct {
		Collection string `yaml:"collection"`
	} `yaml:"firestore"`

	Redis struct {
		Prefix string `yaml:"prefix"`
	} `yaml:"redis"`
}

var drivers = map[string]bool{
	"memory": true, "sqlite": true, "redis": true, "firestore": true, "postgres": true, "mongo": true,
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TECHSLOTS_CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if cfg.Store.Driver == "sqlite" {
		if err = os.MkdirAll(filepath.Dir(cfg.Store.SQLite.Path), 0o755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.SQLite.Path == "" {
		c.Store.SQLite.Path = "data/techslots.db"
	}
	if c.Store.Redis.Prefix == "" {
		c.Store.Redis.Prefix = "techslots"
	}
	if c.Profiles.Source == "" {
		c.Profiles.Source = "file"
	}
	if c.Profiles.Path == "" {
		c.Profiles.Path = DefaultTechniciansPath
	}
	if c.Booking.GenericFrom == 0 && c.Booking.GenericTo == 0 {
		c.Booking.GenericFrom, c.Booking.GenericTo = 8, 19
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !drivers[c.Store.Driver] {
		return fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver)
	}
	switch c.Store.Driver {
	case "postgres":
		if c.Store.Postgres.URL == "" {
			return fmt.Errorf("store.postgres.url is required")
		}
	case "mongo":
		if c.Store.Mongo.URI == "" {
			return fmt.Errorf("store.mongo.uri is required")
		}
	case "redis":
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address is required for the redis store")
		}
	case "firestore":
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("firebase.project_id is required for the firestore store")
		}
	}

	switch c.Profiles.Source {
	case "file":
	case "firestore":
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("firebase.project_id is required for firestore profiles")
		}
	default:
		return fmt.Errorf("profiles.source: unknown source %q", c.Profiles.Source)
	}

	switch c.Booking.CancelledSlots {
	case "", "release", "retain":
	default:
		return fmt.Errorf("booking.cancelled_slots: expected release or retain, got %q", c.Booking.CancelledSlots)
	}

	if c.Booking.GenericFrom < 0 || c.Booking.GenericTo > 23 || c.Booking.GenericFrom > c.Booking.GenericTo {
		return fmt.Errorf("booking: generic hours %d..%d out of range", c.Booking.GenericFrom, c.Booking.GenericTo)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("booking.timezone: %w", err)
	}

	return nil
}

// Location returns the booking time zone, time.Local when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Booking.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Booking.Timezone)
}

func (c *Config) BookingGrace() time.Duration {
	if c.Booking.GraceSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Booking.GraceSeconds) * time.Second
}

func (c *Config) SoonCancelWindow() time.Duration {
	if c.Booking.SoonCancelHours <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(c.Booking.SoonCancelHours) * time.Hour
}

func (c *Config) ReadTimeout() time.Duration {
	if c.HTTP.ReadTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HTTP.ReadTimeoutSeconds) * time.Second
}

func (c *Config) ProfilesReload() time.Duration {
	if c.Profiles.ReloadSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Profiles.ReloadSeconds) * time.Second
}

// ProfilesCacheTTL is zero when caching is disabled.
func (c *Config) ProfilesCacheTTL() time.Duration {
	if c.Profiles.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Profiles.CacheTTLSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) BackupRetention() time.Duration {
	if c.Backup.RetentionDays <= 0 {
		return 14 * 24 * time.Hour
	}
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}

// BackupDir defaults to "backups".
func (c *Config) BackupDir() string {
	if c.Backup.Path == "" {
		return "backups"
	}
	return c.Backup.Path
}
