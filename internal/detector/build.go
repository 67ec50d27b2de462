package detector

import (
	"time"

	"github.com/skylane/sentinel/internal/config"
	"github.com/skylane/sentinel/internal/storage"
)

// FromConfig builds a registry containing every enabled detector with its
// configured thresholds. Called at startup and again on config hot-reload;
// the engine swaps the returned registry in atomically.
func FromConfig(cfg config.DetectorsConf, history storage.History) *Registry {
	reg := NewRegistry()
	if cfg.ContactLeak.Enabled {
		reg.Register(NewContactLeak(cfg.ContactLeak.ExcerptLen))
	}
	if cfg.PriceOutlier.Enabled {
		reg.Register(NewPriceOutlier(PriceOutlierConfig{
			WindowDays:        cfg.PriceOutlier.WindowDays,
			MinSamples:        cfg.PriceOutlier.MinSamples,
			MaxSamples:        cfg.PriceOutlier.MaxSamples,
			FlagDeviation:     cfg.PriceOutlier.FlagDeviation,
			CriticalDeviation: cfg.PriceOutlier.CriticalDeviation,
		}, history))
	}
	if cfg.SanctionsMatch.Enabled {
		reg.Register(NewSanctionsMatch(time.Duration(cfg.SanctionsMatch.DueWithinHours) * time.Hour))
	}
	if cfg.EmptyLeg.Enabled {
		reg.Register(NewEmptyLeg(EmptyLegConfig{
			WindowHours: cfg.EmptyLeg.WindowHours,
			MaxRadiusNm: cfg.EmptyLeg.MaxRadiusNm,
		}, history))
	}
	if cfg.SlowResponse.Enabled {
		reg.Register(NewSlowResponse(cfg.SlowResponse.SLAHours, history))
	}
	return reg
}
