package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// BackupConfig controls the periodic database file copies.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type Config struct {
	Server struct {
		Port                   int     `yaml:"port"`
		ReadTimeoutSeconds     int     `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds    int     `yaml:"write_timeout_seconds"`
		ShutdownTimeoutSeconds int     `yaml:"shutdown_timeout_seconds"`
		RateLimitRPS           float64 `yaml:"rate_limit_rps"`
		RateLimitBurst         int     `yaml:"rate_limit_burst"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address            string `yaml:"address"`
		Password           string `yaml:"password"`
		DB                 int    `yaml:"db"`
		SnapshotTTLSeconds int    `yaml:"snapshot_ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		MinDurationMinutes  int `yaml:"min_duration_minutes"`
		MaxDurationMinutes  int `yaml:"max_duration_minutes"`
		PickupWindowMinutes int `yaml:"pickup_window_minutes"`
	} `yaml:"booking"`

	Audit struct {
		Enabled         bool   `yaml:"enabled"`
		ExportPath      string `yaml:"export_path"`
		RetentionMonths int    `yaml:"retention_months"`
	} `yaml:"audit"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		CredentialsFile string `yaml:"credentials_file"`
		HorizonDays     int    `yaml:"horizon_days"`
	} `yaml:"sheets"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/gearbook.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ServerPort() int {
	if c.Server.Port <= 0 {
		return 8080
	}
	return c.Server.Port
}

func (c *Config) ServerReadTimeout() time.Duration {
	if c.Server.ReadTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) ServerWriteTimeout() time.Duration {
	if c.Server.WriteTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

func (c *Config) ServerShutdownTimeout() time.Duration {
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

func (c *Config) SnapshotTTL() time.Duration {
	if c.Redis.SnapshotTTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Redis.SnapshotTTLSeconds) * time.Second
}

func (c *Config) BookingPickupWindow() time.Duration {
	if c.Booking.PickupWindowMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(c.Booking.PickupWindowMinutes) * time.Minute
}
