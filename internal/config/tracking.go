// Package config loads the track initiation parameters from JSON or YAML
// files. Every field is optional; Get* accessors fall back to the defaults
// below so partial files are safe.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/trackinit/internal/initiation"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/tracking.defaults.json"

// Defaults used when a field is not set.
const (
	DefaultDopplerThreshold = 5.0
	DefaultRangeThreshold   = 50.0
	DefaultTimeThreshold    = 2.0
	DefaultMode             = "3-state"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// TrackingConfig holds the four recognised initiation parameters. The same
// schema is accepted by the HTTP API when a run is submitted.
type TrackingConfig struct {
	DopplerThreshold *float64 `json:"doppler_threshold,omitempty" yaml:"doppler_threshold,omitempty"`
	RangeThreshold   *float64 `json:"range_threshold,omitempty" yaml:"range_threshold,omitempty"`
	TimeThreshold    *float64 `json:"time_threshold,omitempty" yaml:"time_threshold,omitempty"`
	Mode             *string  `json:"mode,omitempty" yaml:"mode,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTrackingConfig returns a TrackingConfig with all fields unset.
func EmptyTrackingConfig() *TrackingConfig {
	return &TrackingConfig{}
}

// DefaultTrackingConfig returns a TrackingConfig with every field set to its
// default.
func DefaultTrackingConfig() *TrackingConfig {
	return &TrackingConfig{
		DopplerThreshold: ptrFloat64(DefaultDopplerThreshold),
		RangeThreshold:   ptrFloat64(DefaultRangeThreshold),
		TimeThreshold:    ptrFloat64(DefaultTimeThreshold),
		Mode:             ptrString(DefaultMode),
	}
}

// LoadTrackingConfig loads a TrackingConfig from a .json, .yaml or .yml file
// of at most 1MB and validates it.
func LoadTrackingConfig(path string) (*TrackingConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTrackingConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", strings.TrimPrefix(ext, "."), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TrackingConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTrackingConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Merge returns a copy of c with every field set in override replacing the
// corresponding field of c.
func (c *TrackingConfig) Merge(override *TrackingConfig) *TrackingConfig {
	out := *c
	if override == nil {
		return &out
	}
	if override.DopplerThreshold != nil {
		out.DopplerThreshold = ptrFloat64(*override.DopplerThreshold)
	}
	if override.RangeThreshold != nil {
		out.RangeThreshold = ptrFloat64(*override.RangeThreshold)
	}
	if override.TimeThreshold != nil {
		out.TimeThreshold = ptrFloat64(*override.TimeThreshold)
	}
	if override.Mode != nil {
		out.Mode = ptrString(*override.Mode)
	}
	return &out
}

// Validate checks the fields that are set.
func (c *TrackingConfig) Validate() error {
	if c.DopplerThreshold != nil && !positiveFinite(*c.DopplerThreshold) {
		return fmt.Errorf("doppler_threshold must be a finite value > 0, got %v", *c.DopplerThreshold)
	}
	if c.RangeThreshold != nil && !positiveFinite(*c.RangeThreshold) {
		return fmt.Errorf("range_threshold must be a finite value > 0, got %v", *c.RangeThreshold)
	}
	if c.TimeThreshold != nil && (*c.TimeThreshold < 0 || math.IsNaN(*c.TimeThreshold) || math.IsInf(*c.TimeThreshold, 0)) {
		return fmt.Errorf("time_threshold must be a finite value >= 0, got %v", *c.TimeThreshold)
	}
	if c.Mode != nil {
		if _, err := initiation.ParseMode(*c.Mode); err != nil {
			return err
		}
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// GetDopplerThreshold returns the doppler_threshold value or the default.
func (c *TrackingConfig) GetDopplerThreshold() float64 {
	if c.DopplerThreshold == nil {
		return DefaultDopplerThreshold
	}
	return *c.DopplerThreshold
}

// GetRangeThreshold returns the range_threshold value or the default.
func (c *TrackingConfig) GetRangeThreshold() float64 {
	if c.RangeThreshold == nil {
		return DefaultRangeThreshold
	}
	return *c.RangeThreshold
}

// GetTimeThreshold returns the time_threshold value or the default.
func (c *TrackingConfig) GetTimeThreshold() float64 {
	if c.TimeThreshold == nil {
		return DefaultTimeThreshold
	}
	return *c.TimeThreshold
}

// GetModeName returns the configured mode name or the default.
func (c *TrackingConfig) GetModeName() string {
	if c.Mode == nil || strings.TrimSpace(*c.Mode) == "" {
		return DefaultMode
	}
	return *c.Mode
}

// GetMode parses the configured mode. Unlike the other accessors it reports
// an unrecognised name instead of falling back, so that a bad mode stops a
// run before any measurement is processed.
func (c *TrackingConfig) GetMode() (initiation.Mode, error) {
	return initiation.ParseMode(c.GetModeName())
}
