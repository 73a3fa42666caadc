// Package config loads screen manager settings from screens.yaml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// FileName is the optional configuration file read by Load.
const FileName = "screens.yaml"

// EnvPrefix prefixes every environment override (SCREENS_CACHE_SIZE, ...).
const EnvPrefix = "SCREENS"

const (
	defaultCacheSize  = 4
	defaultLayer      = "screens"
	defaultProfileLog = "profile_screen.txt"
)

// Config represents screens.yaml plus environment overrides.
type Config struct {
	// ScreenCacheSize bounds each screen's persistent cache bucket.
	ScreenCacheSize int `yaml:"screen_cache_size" envconfig:"CACHE_SIZE"`
	// Variants lists acceptable definition variants in priority order.
	// The empty string is the no-variant slot.
	Variants []string `yaml:"variants" envconfig:"VARIANTS"`
	// PredictScreens is the predictability of definitions that do not set it.
	PredictScreens bool `yaml:"predict_screens" envconfig:"PREDICT"`
	// DebugImageCache logs prediction failures.
	DebugImageCache bool `yaml:"debug_image_cache" envconfig:"DEBUG_IMAGE_CACHE"`
	// DefaultLayer is used when show/hide are not given a layer.
	DefaultLayer string `yaml:"default_layer" envconfig:"DEFAULT_LAYER"`
	// ProfileLog is the path the profiling sink writes to.
	ProfileLog string `yaml:"profile_log" envconfig:"PROFILE_LOG"`
	// Profiles maps a space-separated screen name to its profiling policy.
	Profiles map[string]ProfileConfig `yaml:"profiles" ignored:"true"`
}

// ProfileConfig is the yaml form of a profiling policy.
type ProfileConfig struct {
	Predict bool `yaml:"predict"`
	Show    bool `yaml:"show"`
	Update  bool `yaml:"update"`
	Request bool `yaml:"request"`
	Time    bool `yaml:"time"`
	Debug   bool `yaml:"debug"`
	Const   bool `yaml:"const"`
}

// Default returns the configuration used when nothing is specified.
func Default() *Config {
	return &Config{
		ScreenCacheSize: defaultCacheSize,
		Variants:        []string{""},
		PredictScreens:  true,
		DefaultLayer:    defaultLayer,
		ProfileLog:      defaultProfileLog,
	}
}

// LoadOptional reads screens.yaml from dir if present, layered over Default.
func LoadOptional(dir string) (*Config, error) {
	cfg := Default()
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return cfg, nil
}

// Load reads screens.yaml (if present), applies SCREENS_* environment
// overrides, and validates the result.
func Load(dir string) (*Config, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize clamps and defaults fields in place, rejecting values that
// cannot be repaired.
func (c *Config) Normalize() error {
	if c.ScreenCacheSize < 1 {
		c.ScreenCacheSize = 1
	}
	if len(c.Variants) == 0 {
		c.Variants = []string{""}
	}
	seen := make(map[string]bool, len(c.Variants))
	for i, v := range c.Variants {
		v = strings.TrimSpace(v)
		if v == "none" || v == "None" {
			v = ""
		}
		if seen[v] {
			return fmt.Errorf("variant %q listed twice", v)
		}
		seen[v] = true
		c.Variants[i] = v
	}
	c.DefaultLayer = strings.TrimSpace(c.DefaultLayer)
	if c.DefaultLayer == "" {
		c.DefaultLayer = defaultLayer
	}
	if strings.TrimSpace(c.ProfileLog) == "" {
		c.ProfileLog = defaultProfileLog
	}
	for name := range c.Profiles {
		if len(strings.Fields(name)) == 0 {
			return fmt.Errorf("profile entry has an empty screen name")
		}
	}
	return nil
}
