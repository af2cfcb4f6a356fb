// Package config is the configuration the engine is started with.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"feedwarden/internal/components/chrono"
	"feedwarden/internal/components/telemetry"
	"feedwarden/internal/counter"
	"feedwarden/internal/htmldom"
	"feedwarden/internal/kv/kvconfig"
	"feedwarden/internal/poller"
	"feedwarden/lib/configutil"
)

const (
	DefaultFile            = "feedwarden.json5"
	DefaultThreshold       = 3
	DefaultPollIntervalMs  = 250
	DefaultPollMaxAttempts = 40
	DefaultProfile         = "youtube"
	DefaultDatabase        = "feedwarden.db"
)

type Engine struct {
	// number of sightings after which an item is hidden, 0 disables counting.
	Threshold *int `json:"threshold" yaml:"threshold"`
	// clear the counts every day, the excluded set is always kept.
	DailyReset      *bool  `json:"daily_reset" yaml:"daily_reset"`
	PollIntervalMs  int    `json:"poll_interval_ms" yaml:"poll_interval_ms"`
	PollMaxAttempts int    `json:"poll_max_attempts" yaml:"poll_max_attempts"`
	Timezone        string `json:"timezone" yaml:"timezone"`
	StorageKey      string `json:"storage_key" yaml:"storage_key"`
}

type Site struct {
	// built-in profile the other fields override.
	Profile           string   `json:"profile" yaml:"profile"`
	MatchPaths        []string `json:"match_paths" yaml:"match_paths"`
	ContainerSelector string   `json:"container_selector" yaml:"container_selector"`
	ItemSelector      string   `json:"item_selector" yaml:"item_selector"`
	SeparatorSelector string   `json:"separator_selector" yaml:"separator_selector"`
	LinkSelector      string   `json:"link_selector" yaml:"link_selector"`
	IdParam           string   `json:"id_param" yaml:"id_param"`
	BlockedDomains    []string `json:"blocked_domains" yaml:"blocked_domains"`
	BlockedKeywords   []string `json:"blocked_keywords" yaml:"blocked_keywords"`
}

type Config struct {
	Engine    Engine           `json:"engine" yaml:"engine"`
	Site      Site             `json:"site" yaml:"site"`
	Storage   kvconfig.Struct  `json:"storage" yaml:"storage"`
	Telemetry telemetry.Config `json:"telemetry" yaml:"telemetry"`
}

// Read reads the configuration at path (with its .local override) and
// applies defaults. A bare file name missing from the working directory is
// looked up in the parent directories. A missing file yields the defaults.
func Read(path string) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) && filepath.Base(path) == path {
		config, err = configutil.ReadRecursively[Config](".", path)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	config.Normalize()
	return config, config.Validate()
}

// Normalize fills unset fields with their defaults.
func (c *Config) Normalize() {
	if c.Engine.Threshold == nil {
		threshold := DefaultThreshold
		c.Engine.Threshold = &threshold
	}
	if c.Engine.DailyReset == nil {
		daily := true
		c.Engine.DailyReset = &daily
	}
	if c.Engine.PollIntervalMs == 0 {
		c.Engine.PollIntervalMs = DefaultPollIntervalMs
	}
	if c.Engine.PollMaxAttempts == 0 {
		c.Engine.PollMaxAttempts = DefaultPollMaxAttempts
	}
	if c.Engine.StorageKey == "" {
		c.Engine.StorageKey = counter.DefaultKey
	}
	if c.Site.Profile == "" {
		c.Site.Profile = DefaultProfile
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = kvconfig.DriverSqlite
	}
	if c.Storage.Driver == kvconfig.DriverSqlite && c.Storage.File == "" {
		c.Storage.File = DefaultDatabase
	}
}

func (c Config) Validate() error {
	if c.Engine.Threshold != nil && *c.Engine.Threshold < 0 {
		return fmt.Errorf("engine.threshold must not be negative, got %d", *c.Engine.Threshold)
	}
	if c.Engine.PollIntervalMs < 0 {
		return fmt.Errorf("engine.poll_interval_ms must be positive, got %d", c.Engine.PollIntervalMs)
	}
	if c.Engine.PollMaxAttempts < 0 {
		return fmt.Errorf("engine.poll_max_attempts must be positive, got %d", c.Engine.PollMaxAttempts)
	}
	if _, err := chrono.LoadLocation(c.Engine.Timezone); err != nil {
		return fmt.Errorf("engine.timezone: %w", err)
	}
	site, err := c.SiteProfile()
	if err != nil {
		return err
	}
	if site.ContainerSelector == "" {
		return errors.New("site.container_selector is empty")
	}
	if len(site.MatchPaths) == 0 {
		return errors.New("site.match_paths is empty")
	}
	return nil
}

// SiteProfile resolves the built-in profile and applies the overrides.
func (c Config) SiteProfile() (htmldom.Site, error) {
	site, ok := htmldom.Profile(c.Site.Profile)
	if !ok {
		return htmldom.Site{}, fmt.Errorf("unknown site profile %q, expected one of %v", c.Site.Profile, htmldom.ProfileNames())
	}
	if len(c.Site.MatchPaths) > 0 {
		site.MatchPaths = c.Site.MatchPaths
	}
	if c.Site.ContainerSelector != "" {
		site.ContainerSelector = c.Site.ContainerSelector
	}
	if c.Site.ItemSelector != "" {
		site.ItemSelector = c.Site.ItemSelector
	}
	if c.Site.SeparatorSelector != "" {
		site.SeparatorSelector = c.Site.SeparatorSelector
	}
	if c.Site.LinkSelector != "" {
		site.LinkSelector = c.Site.LinkSelector
	}
	if c.Site.IdParam != "" {
		site.IDParam = c.Site.IdParam
	}
	if len(c.Site.BlockedDomains) > 0 {
		site.BlockedDomains = c.Site.BlockedDomains
	}
	if len(c.Site.BlockedKeywords) > 0 {
		site.BlockedKeywords = c.Site.BlockedKeywords
	}
	return site, nil
}

func (c Config) Threshold() int {
	if c.Engine.Threshold == nil {
		return DefaultThreshold
	}
	return *c.Engine.Threshold
}

func (c Config) Poll() poller.Options {
	return poller.Options{
		Interval:    time.Duration(c.Engine.PollIntervalMs) * time.Millisecond,
		MaxAttempts: c.Engine.PollMaxAttempts,
	}
}

// Counter returns the counter store options, the clock reports times in the
// configured timezone.
func (c Config) Counter(tel telemetry.API) (counter.Options, error) {
	location, err := chrono.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return counter.Options{}, err
	}
	return counter.Options{
		Key:        c.Engine.StorageKey,
		DailyReset: c.Engine.DailyReset == nil || *c.Engine.DailyReset,
		Time:       chrono.NewStandardTime(location),
		Tel:        tel,
	}, nil
}
