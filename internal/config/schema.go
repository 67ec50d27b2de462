package config

// Config is the top-level YAML structure.
type Config struct {
	Version   string        `yaml:"version"`
	Engine    EngineConf    `yaml:"engine"`
	Detectors DetectorsConf `yaml:"detectors"`
}

// EngineConf holds dispatcher tunables. BatchSize bounds how many pending
// events one run may pick up, keeping each run's footprint predictable.
type EngineConf struct {
	BatchSize int `yaml:"batch_size"`
}

// DetectorsConf holds per-detector switches and thresholds.
type DetectorsConf struct {
	ContactLeak    ContactLeakConf    `yaml:"contact_leak"`
	PriceOutlier   PriceOutlierConf   `yaml:"price_outlier"`
	SanctionsMatch SanctionsMatchConf `yaml:"sanctions_match"`
	EmptyLeg       EmptyLegConf       `yaml:"empty_leg"`
	SlowResponse   SlowResponseConf   `yaml:"slow_response"`
}

type ContactLeakConf struct {
	Enabled    bool `yaml:"enabled"`
	ExcerptLen int  `yaml:"excerpt_len"`
}

type PriceOutlierConf struct {
	Enabled           bool    `yaml:"enabled"`
	WindowDays        int     `yaml:"window_days"`
	MinSamples        int     `yaml:"min_samples"`
	MaxSamples        int     `yaml:"max_samples"`
	FlagDeviation     float64 `yaml:"flag_deviation"`
	CriticalDeviation float64 `yaml:"critical_deviation"`
}

type SanctionsMatchConf struct {
	Enabled        bool `yaml:"enabled"`
	DueWithinHours int  `yaml:"due_within_hours"`
}

type EmptyLegConf struct {
	Enabled     bool    `yaml:"enabled"`
	WindowHours int     `yaml:"window_hours"`
	MaxRadiusNm float64 `yaml:"max_radius_nm"`
}

type SlowResponseConf struct {
	Enabled  bool    `yaml:"enabled"`
	SLAHours float64 `yaml:"sla_hours"`
}
