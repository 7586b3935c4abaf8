package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins).
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a configuration loader rooted at the given directory.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (GESTIMA_*)
// 2. Config file (.gestima/config.yml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".gestima")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("GESTIMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("tolerances.axis_deviation_rad")
	v.BindEnv("tolerances.lateral_offset_mm")
	v.BindEnv("tolerances.nested_radius_ratio")
	v.BindEnv("tolerances.fillet_touch_mm")
	v.BindEnv("tolerances.dedupe_mm")
	v.BindEnv("tolerances.bore_ratio")
	v.BindEnv("batch.workers")
	v.BindEnv("batch.cache_size")
	v.BindEnv("batch.debounce_ms")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is acceptable; defaults + env apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("tolerances.axis_deviation_rad", d.Tolerances.AxisDeviationRad)
	v.SetDefault("tolerances.lateral_offset_mm", d.Tolerances.LateralOffsetMM)
	v.SetDefault("tolerances.nested_radius_ratio", d.Tolerances.NestedRadiusRatio)
	v.SetDefault("tolerances.fillet_touch_mm", d.Tolerances.FilletTouchMM)
	v.SetDefault("tolerances.dedupe_mm", d.Tolerances.DedupeMM)
	v.SetDefault("tolerances.bore_ratio", d.Tolerances.BoreRatio)
	v.SetDefault("batch.workers", d.Batch.Workers)
	v.SetDefault("batch.patterns", d.Batch.Patterns)
	v.SetDefault("batch.ignore", d.Batch.Ignore)
	v.SetDefault("batch.cache_size", d.Batch.CacheSize)
	v.SetDefault("batch.debounce_ms", d.Batch.DebounceMS)
}
