package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for required fields and threshold sanity.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Version == "" {
		errs = append(errs, "version is required")
	}
	if cfg.Engine.BatchSize < 1 {
		errs = append(errs, "engine.batch_size must be at least 1")
	}

	d := cfg.Detectors
	if d.PriceOutlier.MinSamples < 2 {
		errs = append(errs, "detectors.price_outlier.min_samples must be at least 2")
	}
	if d.PriceOutlier.MaxSamples < d.PriceOutlier.MinSamples {
		errs = append(errs, "detectors.price_outlier.max_samples must be >= min_samples")
	}
	if d.PriceOutlier.FlagDeviation <= 0 {
		errs = append(errs, "detectors.price_outlier.flag_deviation must be positive")
	}
	if d.PriceOutlier.CriticalDeviation < d.PriceOutlier.FlagDeviation {
		errs = append(errs, "detectors.price_outlier.critical_deviation must be >= flag_deviation")
	}
	if d.SanctionsMatch.DueWithinHours < 1 {
		errs = append(errs, "detectors.sanctions_match.due_within_hours must be at least 1")
	}
	if d.EmptyLeg.MaxRadiusNm <= 0 {
		errs = append(errs, "detectors.empty_leg.max_radius_nm must be positive")
	}
	if d.SlowResponse.SLAHours <= 0 {
		errs = append(errs, "detectors.slow_response.sla_hours must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
