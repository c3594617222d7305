package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"

	defaultListen       = ":8080"
	defaultBaseURL      = "https://crossfit2-rzeszow.cms.efitness.com.pl"
	defaultAgendaPath   = "/kalendarz-zajec"
	defaultTimezone     = "Europe/Warsaw"
	defaultEventPrefix  = "CrossFit"
	defaultCalendarName = "CrossFit Timetable"
	defaultAuthToken    = "default-token-change-me"
	defaultProbeCron    = "*/10 * * * *"
	defaultRadius       = 49.91
)

// GeoConfig pins every exported event to one fixed facility.
type GeoConfig struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
	// Title is the display name calendar clients show on the map pin.
	Title   string `yaml:"title" json:"title"`
	Address string `yaml:"address" json:"address"`
	// Radius is the proximity radius in meters.
	Radius float64 `yaml:"radius" json:"radius"`
}

// FetchConfig controls how agenda pages are retrieved.
type FetchConfig struct {
	// Mode is "http" (plain GET) or "browser" (headless Chromium).
	Mode           string `yaml:"mode" json:"mode"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	// Concurrency bounds how many weeks are fetched in parallel per request.
	Concurrency int    `yaml:"concurrency" json:"concurrency"`
	UserAgent   string `yaml:"user_agent" json:"user_agent"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen   string `yaml:"listen" json:"listen"`
	LogLevel string `yaml:"log_level" json:"log_level"`
	// Debug forces DEBUG logging regardless of LogLevel.
	Debug bool `yaml:"debug" json:"debug"`

	// AuthToken guards the timetable endpoints (bearer header or ?token=).
	AuthToken string `yaml:"auth_token" json:"-"`

	// BaseURL is the gym site root; AgendaPath is appended for week pages.
	BaseURL    string `yaml:"scraper_base_url" json:"scraper_base_url"`
	AgendaPath string `yaml:"agenda_path" json:"agenda_path"`

	// Timezone is the IANA zone every class time is interpreted in.
	Timezone     string `yaml:"timezone" json:"timezone"`
	EventPrefix  string `yaml:"event_prefix" json:"event_prefix"`
	CalendarName string `yaml:"calendar_name" json:"calendar_name"`

	// Location, when set, overrides whatever the page advertises.
	Location        string   `yaml:"location" json:"location"`
	DefaultLocation string   `yaml:"default_location" json:"default_location"`
	LocationCountry string   `yaml:"location_country" json:"location_country"`
	LocationSkip    []string `yaml:"location_skip_lines" json:"location_skip_lines"`

	// Geo enables the structured-location extension when non-nil.
	Geo *GeoConfig `yaml:"geo,omitempty" json:"geo,omitempty"`

	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// ProbeCron schedules the readiness probe. Empty disables it.
	ProbeCron string `yaml:"probe_cron" json:"probe_cron"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          defaultListen,
		LogLevel:        "info",
		AuthToken:       defaultAuthToken,
		BaseURL:         defaultBaseURL,
		AgendaPath:      defaultAgendaPath,
		Timezone:        defaultTimezone,
		EventPrefix:     defaultEventPrefix,
		CalendarName:    defaultCalendarName,
		DefaultLocation: "Boya-Żeleńskiego 15, 35-105 Rzeszów, Poland",
		LocationCountry: "Poland",
		LocationSkip:    []string{"Kontakt", "CrossFit Rzeszów 2.0"},
		Geo: &GeoConfig{
			Latitude:  50.0386,
			Longitude: 22.0026,
			Title:     "CrossFit 2.0 Rzeszów",
			Address:   "Boya-Żeleńskiego 15, 35-105 Rzeszów, Poland",
			Radius:    defaultRadius,
		},
		Fetch: FetchConfig{
			Mode:           FetchModeHTTP,
			TimeoutSeconds: 15,
			Concurrency:    3,
			UserAgent:      "wodcal/1.0",
		},
		ProbeCron: defaultProbeCron,
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if strings.TrimSpace(c.AuthToken) == "" {
		c.AuthToken = defaultAuthToken
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.AgendaPath == "" {
		c.AgendaPath = defaultAgendaPath
	}
	if !strings.HasPrefix(c.AgendaPath, "/") {
		c.AgendaPath = "/" + c.AgendaPath
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.EventPrefix == "" {
		c.EventPrefix = defaultEventPrefix
	}
	if c.CalendarName == "" {
		c.CalendarName = defaultCalendarName
	}
	if c.Geo != nil && c.Geo.Radius <= 0 {
		c.Geo.Radius = defaultRadius
	}

	switch c.Fetch.Mode {
	case FetchModeHTTP, FetchModeBrowser:
	default:
		c.Fetch.Mode = FetchModeHTTP
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = 15
	}
	if c.Fetch.Concurrency <= 0 {
		c.Fetch.Concurrency = 1
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "wodcal/1.0"
	}
}

// Validate reports configuration that cannot work at runtime.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("scraper_base_url %q is not an absolute URL", c.BaseURL))
	}
	if strings.TrimSpace(c.AuthToken) == "" {
		errs = append(errs, errors.New("auth_token must not be empty"))
	}
	if c.ProbeCron != "" {
		if _, err := cron.ParseStandard(c.ProbeCron); err != nil {
			errs = append(errs, fmt.Errorf("probe_cron %q: %w", c.ProbeCron, err))
		}
	}
	if g := c.Geo; g != nil {
		if g.Latitude < -90 || g.Latitude > 90 || g.Longitude < -180 || g.Longitude > 180 {
			errs = append(errs, fmt.Errorf("geo coordinates out of range: %v,%v", g.Latitude, g.Longitude))
		}
	}
	return errors.Join(errs...)
}

// FetchTimeout returns the per-page fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// EffectiveLogLevel folds the debug flag into the configured level.
func (c *Config) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays APP_* environment variables on top of file values.
// Malformed numeric or boolean values are reported and leave the field as is.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) bool {
		v, ok := lookup(key)
		if !ok || v == "" {
			return false
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return false
		}
		*dst = f
		return true
	}

	str("APP_LISTEN", &c.Listen)
	if v, ok := lookup("APP_PORT"); ok && v != "" {
		c.Listen = ":" + v
	}
	str("APP_LOG_LEVEL", &c.LogLevel)
	if v, ok := lookup("APP_DEBUG"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("APP_DEBUG: %w", err))
		} else {
			c.Debug = b
		}
	}
	str("APP_AUTH_TOKEN", &c.AuthToken)
	str("APP_SCRAPER_BASE_URL", &c.BaseURL)
	str("APP_AGENDA_PATH", &c.AgendaPath)
	str("APP_TIMEZONE", &c.Timezone)
	str("APP_EVENT_PREFIX", &c.EventPrefix)
	str("APP_LOCATION", &c.Location)
	str("APP_DEFAULT_LOCATION", &c.DefaultLocation)
	str("APP_PROBE_CRON", &c.ProbeCron)
	str("APP_FETCH_MODE", &c.Fetch.Mode)
	num("APP_FETCH_TIMEOUT_SECONDS", &c.Fetch.TimeoutSeconds)
	num("APP_FETCH_CONCURRENCY", &c.Fetch.Concurrency)

	var geo GeoConfig
	if c.Geo != nil {
		geo = *c.Geo
	}
	touched := float("APP_GYM_LATITUDE", &geo.Latitude)
	touched = float("APP_GYM_LONGITUDE", &geo.Longitude) || touched
	if v, ok := lookup("APP_GYM_TITLE"); ok && v != "" {
		geo.Title = v
		touched = true
	}
	if v, ok := lookup("APP_GYM_LOCATION"); ok && v != "" {
		geo.Address = v
		touched = true
	}
	if touched {
		c.Geo = &geo
	}

	return errors.Join(errs...)
}

// Load loads configuration from the given YAML path and overlays the
// process environment.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and used.
//   - APP_* variables win over file values.
//   - The result is normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes c to path. See the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with final permissions 0600.
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

	tmp, err := os.CreateTemp(dir, ".wodcal-config-*.tmp")
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
