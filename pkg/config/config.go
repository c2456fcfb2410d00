// Package config loads run settings from an optional YAML file, with
// defaults matching the original analysis tool.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"mzmatch/pkg/core"
)

// Settings holds every run-level knob. Flags override file values, file
// values override defaults.
type Settings struct {
	MassTolerance float64 `mapstructure:"mass_tolerance"` // mass window half-width
	ToleranceUnit string  `mapstructure:"tolerance_unit"` // "da" or "ppm"
	TimeTolerance float64 `mapstructure:"time_tolerance"` // default rt half-width
	Port          int     `mapstructure:"port"`
	Output        string  `mapstructure:"output"`     // result database path
	StateFile     string  `mapstructure:"state_file"` // last-run pointer path
	SkipBadRows   bool    `mapstructure:"skip_bad_rows"`
	Workers       int     `mapstructure:"workers"` // 0 = GOMAXPROCS
}

// Default settings, matching the original tool's argument defaults.
const (
	DefaultMassTolerance = 0.002
	DefaultToleranceUnit = "da"
	DefaultTimeTolerance = 0.5
	DefaultPort          = 8080
	DefaultOutput        = "results.db"
	DefaultStateFile     = ".mzmatch-state.json"
)

// Load reads settings from a config file. With an empty path it looks for an
// optional mzmatch.yaml in the working directory; a missing file is not an
// error, an explicit path that cannot be read is.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("mass_tolerance", DefaultMassTolerance)
	v.SetDefault("tolerance_unit", DefaultToleranceUnit)
	v.SetDefault("time_tolerance", DefaultTimeTolerance)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("state_file", DefaultStateFile)
	v.SetDefault("skip_bad_rows", false)
	v.SetDefault("workers", 0)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("mzmatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the settings for values the run cannot proceed with.
func (s *Settings) Validate() error {
	if _, err := core.ParseToleranceUnit(s.ToleranceUnit); err != nil {
		return err
	}
	if s.MassTolerance < 0 {
		return fmt.Errorf("mass tolerance must be non-negative, got %v", s.MassTolerance)
	}
	if s.TimeTolerance < 0 {
		return fmt.Errorf("time tolerance must be non-negative, got %v", s.TimeTolerance)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", s.Port)
	}
	return nil
}

// Tolerance converts the settings into the engine's tolerance policy.
func (s *Settings) Tolerance() core.Tolerance {
	unit, _ := core.ParseToleranceUnit(s.ToleranceUnit)
	return core.Tolerance{
		Mass:     s.MassTolerance,
		Unit:     unit,
		RTWindow: s.TimeTolerance,
	}
}

// BadRowPolicy converts the skip flag into the loader policy.
func (s *Settings) BadRowPolicy() core.BadRowPolicy {
	if s.SkipBadRows {
		return core.SkipBadRows
	}
	return core.AbortOnBadRow
}
