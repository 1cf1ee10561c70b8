package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ttcal/internal/ics"
	appLog "ttcal/internal/log"
)

// ZoneConfig describes the fixed output timezone.
type ZoneConfig struct {
	// Name is the TZID written on timestamps (e.g. "Asia/Tokyo").
	Name string `yaml:"name" json:"name"`
	// Abbreviation is the TZNAME of the standard-time definition (e.g. "JST").
	Abbreviation string `yaml:"abbreviation" json:"abbreviation"`
	// Offset is the fixed UTC offset, e.g. "+09:00".
	Offset string `yaml:"offset" json:"offset"`
}

// Defaults holds the scheduling values used when a request omits them.
type Defaults struct {
	Title    string `yaml:"title" json:"title"`
	Start    string `yaml:"start" json:"start"`
	End      string `yaml:"end" json:"end"`
	Duration int    `yaml:"duration" json:"duration"`
	// Periods maps period identifiers to "HH:MM".
	Periods map[string]string `yaml:"periods" json:"periods"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of "debug", "info", "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	// ProductID is the PRODID of generated calendars.
	ProductID string `yaml:"product_id" json:"product_id"`

	Zone     ZoneConfig `yaml:"zone" json:"zone"`
	Defaults Defaults   `yaml:"defaults" json:"defaults"`
}

const (
	defaultListen   = "127.0.0.1:8080"
	defaultTitle    = "weekly timetable"
	defaultStart    = "2025-04-07"
	defaultEnd      = "2025-07-31"
	defaultDuration = 90
)

func defaultPeriods() map[string]string {
	out := make(map[string]string)
	for k, v := range ics.DefaultPeriodTimes() {
		out[k] = v.String()
	}
	return out
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	z := ics.DefaultZone()
	return &Config{
		Listen:    defaultListen,
		LogLevel:  "info",
		ProductID: ics.DefaultProductID,
		Zone: ZoneConfig{
			Name:         z.Name,
			Abbreviation: z.Abbreviation,
			Offset:       "+09:00",
		},
		Defaults: Defaults{
			Title:    defaultTitle,
			Start:    defaultStart,
			End:      defaultEnd,
			Duration: defaultDuration,
			Periods:  defaultPeriods(),
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ProductID == "" {
		c.ProductID = ics.DefaultProductID
	}

	// The zone is all-or-nothing: a partial zone falls back entirely.
	if c.Zone.Name == "" || c.Zone.Abbreviation == "" {
		c.Zone = DefaultConfig().Zone
	}
	if _, err := ics.ParseOffset(c.Zone.Offset); err != nil {
		appLog.Error("invalid zone offset in config; using default zone", err, "offset", c.Zone.Offset)
		c.Zone = DefaultConfig().Zone
	}

	if c.Defaults.Title == "" {
		c.Defaults.Title = defaultTitle
	}
	if _, err := ics.ParseDate(c.Defaults.Start); err != nil {
		c.Defaults.Start = defaultStart
	}
	if _, err := ics.ParseDate(c.Defaults.End); err != nil {
		c.Defaults.End = defaultEnd
	}
	if c.Defaults.Duration <= 0 {
		c.Defaults.Duration = defaultDuration
	}
	c.Defaults.Periods = normalizePeriods(c.Defaults.Periods)
}

// normalizePeriods drops configured periods that are not "HH:MM", reporting
// each once, and falls back to the built-in table when none remain.
func normalizePeriods(raw map[string]string) map[string]string {
	parsed := ics.ParsePeriodTimes(raw, appLog.Default())
	if len(parsed) == 0 {
		return defaultPeriods()
	}
	out := make(map[string]string, len(parsed))
	for k, v := range parsed {
		out[k] = v.String()
	}
	return out
}

// OutputZone returns the configured zone for the calendar generator.
func (c *Config) OutputZone() ics.Zone {
	off, err := ics.ParseOffset(c.Zone.Offset)
	if err != nil {
		return ics.DefaultZone()
	}
	return ics.Zone{Name: c.Zone.Name, Abbreviation: c.Zone.Abbreviation, OffsetSeconds: off}
}

// Generator returns a calendar generator for this configuration.
func (c *Config) Generator() *ics.Generator {
	g := ics.NewGenerator(c.OutputZone())
	if c.ProductID != "" {
		g.ProductID = c.ProductID
	}
	return g
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
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

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	tmp, err := os.CreateTemp(dir, ".ttcal-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
