package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"icsfix/internal/model"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultRefreshCron = "*/30 * * * *"
	defaultCacheDir    = "/var/lib/icsfix/cache"
	defaultLogLevel    = "info"
)

// JobConfig describes a feed the server republishes in reshaped form.
type JobConfig struct {
	// ID names the published feed: /calendars/<id>.ics.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown by /api/jobs.
	Name string `yaml:"name" json:"name"`
	// URL is an http(s) URL, a file:// URL or a local path.
	URL string `yaml:"url" json:"url"`

	// StartDate, Weekly and WeeklyCount mirror the generate options.
	StartDate   string `yaml:"start_date,omitempty" json:"start_date,omitempty"`
	Weekly      bool   `yaml:"weekly,omitempty" json:"weekly,omitempty"`
	WeeklyCount int    `yaml:"weekly_count,omitempty" json:"weekly_count,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used to resolve relative start dates such as
	// "next monday 9am". Empty means the host's local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron-style schedule for re-fetching jobs.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir stores the last good body of every fetched feed.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Jobs []JobConfig `yaml:"jobs" json:"jobs"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		LogLevel:    defaultLogLevel,
		RefreshCron: defaultRefreshCron,
		CacheDir:    defaultCacheDir,
		Jobs:        []JobConfig{},
	}
}

// Normalize fills in missing/zero values so partially-filled configs still
// behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Jobs == nil {
		c.Jobs = []JobConfig{}
	}
	for i := range c.Jobs {
		j := &c.Jobs[i]
		if j.ID == "" {
			j.ID = j.Name
		}
		if j.Weekly && j.WeeklyCount <= 0 {
			j.WeeklyCount = 1
		}
		j.WeeklyCount = min(j.WeeklyCount, model.MaxWeeklyCount)
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ApplyEnv overlays ICSFIX_* environment variables, after loading envFiles
// (a missing file is not an error). With no envFiles, ".env" is tried.
func (c *Config) ApplyEnv(envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	overlay := map[string]*string{
		"ICSFIX_LISTEN":    &c.Listen,
		"ICSFIX_TIMEZONE":  &c.Timezone,
		"ICSFIX_LOG_LEVEL": &c.LogLevel,
		"ICSFIX_CACHE_DIR": &c.CacheDir,
		"ICSFIX_REFRESH":   &c.RefreshCron,
	}
	for key, dst := range overlay {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	c.Normalize()
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is decoded and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
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

	tmp, err := os.CreateTemp(dir, ".icsfix-config-*.tmp")
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

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
