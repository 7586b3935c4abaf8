package config

// Config is the complete extraction configuration. It can be loaded from
// .gestima/config.yml with environment variable overrides.
type Config struct {
	Tolerances Tolerances  `yaml:"tolerances" mapstructure:"tolerances"`
	Batch      BatchConfig `yaml:"batch" mapstructure:"batch"`
}

// Tolerances holds the numeric thresholds of the classification and
// synthesis heuristics. The defaults encode reverse-engineered exporter
// behavior observed on real manufacturing files; they are heuristics, not
// physical law, and can be tuned per deployment.
type Tolerances struct {
	// AxisDeviationRad is the maximum angle (radians) between a surface
	// axis and the part's rotation axis before the surface is treated as an
	// off-axis hole.
	AxisDeviationRad float64 `yaml:"axis_deviation_rad" mapstructure:"axis_deviation_rad"`

	// LateralOffsetMM is the maximum distance (mm) between a surface axis
	// and the rotation axis before the surface is treated as off-axis.
	LateralOffsetMM float64 `yaml:"lateral_offset_mm" mapstructure:"lateral_offset_mm"`

	// NestedRadiusRatio is how much larger an enclosing outer surface must
	// be before a fully nested outer-flagged surface is reclassified inner.
	NestedRadiusRatio float64 `yaml:"nested_radius_ratio" mapstructure:"nested_radius_ratio"`

	// FilletTouchMM is the maximum axial gap (mm) between a toroidal fillet
	// and an outer span for the fillet to count as touching it.
	FilletTouchMM float64 `yaml:"fillet_touch_mm" mapstructure:"fillet_touch_mm"`

	// DedupeMM is the contour point deduplication distance (mm), applied to
	// radius and axial position independently.
	DedupeMM float64 `yaml:"dedupe_mm" mapstructure:"dedupe_mm"`

	// BoreRatio is the minimum max/min distinct radius ratio for an exact
	// section to be split into outer and inner sets at all.
	BoreRatio float64 `yaml:"bore_ratio" mapstructure:"bore_ratio"`
}

// BatchConfig configures the data-parallel batch runner.
type BatchConfig struct {
	Workers    int      `yaml:"workers" mapstructure:"workers"`         // 0 means GOMAXPROCS
	Patterns   []string `yaml:"patterns" mapstructure:"patterns"`       // glob patterns for exchange files
	Ignore     []string `yaml:"ignore" mapstructure:"ignore"`           // glob patterns to skip
	CacheSize  int      `yaml:"cache_size" mapstructure:"cache_size"`   // max cached profiles
	DebounceMS int      `yaml:"debounce_ms" mapstructure:"debounce_ms"` // watch-mode quiet period
}

// Default returns a configuration with the tolerances the heuristics were
// calibrated against.
func Default() *Config {
	return &Config{
		Tolerances: Tolerances{
			AxisDeviationRad:  0.1,
			LateralOffsetMM:   1.0,
			NestedRadiusRatio: 1.5,
			FilletTouchMM:     0.01,
			DedupeMM:          0.005,
			BoreRatio:         1.10,
		},
		Batch: BatchConfig{
			Workers:    0,
			Patterns:   []string{"**/*.step", "**/*.stp", "**/*.STEP", "**/*.STP"},
			Ignore:     []string{".git/**", "node_modules/**"},
			CacheSize:  1024,
			DebounceMS: 500,
		},
	}
}
