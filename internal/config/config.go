package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"meetbrew/internal/model"
)

// Config is the service configuration, stored as YAML.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// DefaultTimezone is used when a viewer zone is missing and cannot be
	// resolved.
	DefaultTimezone string `yaml:"default_timezone" json:"default_timezone"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// ICSCacheDir holds fetched busy calendars. Empty disables the disk cache.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir"`

	// PurgeCron schedules removal of idle meetings (standard 5-field cron).
	PurgeCron string `yaml:"purge" json:"purge"`

	// RetentionDays is how long a meeting may sit untouched before purge.
	RetentionDays int `yaml:"retention_days" json:"retention_days"`

	MaxDates int `yaml:"max_dates" json:"max_dates"`

	// ReservedIDs cannot be used as meeting ids.
	ReservedIDs []string `yaml:"reserved_ids" json:"reserved_ids"`

	// GridCacheSeconds is the TTL of rendered grids per (meeting, zone).
	GridCacheSeconds int `yaml:"grid_cache_seconds" json:"grid_cache_seconds"`

	// AllowPrivateCalendarURLs lets calendar imports reach loopback, private
	// and link-local addresses. Off by default.
	AllowPrivateCalendarURLs bool `yaml:"allow_private_calendar_urls" json:"allow_private_calendar_urls"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:           "127.0.0.1:8080",
		DefaultTimezone:  "Etc/GMT",
		LogLevel:         "info",
		ICSCacheDir:      "./var/ics-cache",
		PurgeCron:        "0 4 * * *",
		RetentionDays:    90,
		MaxDates:         model.MaxDates,
		ReservedIDs:      []string{"about", "api", "health", "static", "new"},
		GridCacheSeconds: 30,
	}
}

// Normalize fills zero values with defaults so partial files still work.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.DefaultTimezone == "" {
		c.DefaultTimezone = def.DefaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.PurgeCron == "" {
		c.PurgeCron = def.PurgeCron
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = def.RetentionDays
	}
	if c.MaxDates <= 0 {
		c.MaxDates = def.MaxDates
	}
	if c.ReservedIDs == nil {
		c.ReservedIDs = def.ReservedIDs
	}
	if c.GridCacheSeconds < 0 {
		c.GridCacheSeconds = 0
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("config: default_timezone %q: %w", c.DefaultTimezone, err)
	}
	if _, err := cron.ParseStandard(c.PurgeCron); err != nil {
		return fmt.Errorf("config: purge %q: %w", c.PurgeCron, err)
	}
	return nil
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c *Config) GridCacheTTL() time.Duration {
	return time.Duration(c.GridCacheSeconds) * time.Second
}

// Load reads path. A missing file is created with defaults (0600) on first run.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			// The defaults are still usable when the file cannot be written.
			return cfg, Save(path, cfg)
		}
		return nil, err
	}

	// Keys missing from the file keep their defaults; an explicit
	// grid_cache_seconds: 0 still disables the grid cache.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg atomically through a temp file in the same directory.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".meetbrew-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
