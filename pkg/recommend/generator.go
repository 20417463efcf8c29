// Package recommend turns forecast slots and installation profiles into
// advisory recommendations.
package recommend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raterudder/solaradvisor/pkg/advice"
	"github.com/raterudder/solaradvisor/pkg/log"
	"github.com/raterudder/solaradvisor/pkg/solar"
	"github.com/raterudder/solaradvisor/pkg/types"
)

// Generator computes one Recommendation per forecast slot.
type Generator struct {
	cfg    types.ModelConfig
	picker advice.Picker
}

// NewGenerator creates a Generator using cfg for the model constants and
// picker for the advisory text.
func NewGenerator(cfg types.ModelConfig, picker advice.Picker) *Generator {
	return &Generator{
		cfg:    cfg,
		picker: picker,
	}
}

// Config returns the model constants of the generator.
func (g *Generator) Config() types.ModelConfig {
	return g.cfg
}

// WithModel returns a copy of the generator with override merged over its
// model constants.
func (g *Generator) WithModel(override types.ModelConfig) *Generator {
	return &Generator{
		cfg:    g.cfg.Merge(override),
		picker: g.picker,
	}
}

// Generate returns a recommendation for each slot in the same order. The
// battery level of profile is used for every night slot; it is not drained
// from one slot to the next.
func (g *Generator) Generate(ctx context.Context, slots []types.ForecastSlot, profile types.InstallationProfile) ([]types.Recommendation, error) {
	if len(slots) == 0 {
		return nil, types.ErrNoForecast
	}
	if err := g.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	// night current only depends on the profile so compute it on the first
	// night slot and reuse it
	var (
		nightAmps  float64
		nightKnown bool
	)

	recs := make([]types.Recommendation, 0, len(slots))
	for _, slot := range slots {
		rec := types.Recommendation{
			Time:         slot.Time,
			TemperatureC: slot.TemperatureC,
			CloudCover:   slot.CloudCover,
			Regime:       solar.Regime(g.cfg, slot.Hour()),
		}

		switch rec.Regime {
		case types.RegimeNight:
			if !nightKnown {
				nightAmps = solar.Night(g.cfg, profile)
				nightKnown = true
			}
			rec.MaxACCurrent = nightAmps
			rec.Category = types.CategoryNight
		default:
			irradiance := solar.EstimateIrradiance(slot.CloudCover)
			rec.Irradiance = &irradiance
			rec.MaxACCurrent, rec.Category = solar.Day(g.cfg, profile, irradiance)
		}
		rec.Message = advice.Render(g.picker.Pick(rec.Category), rec.MaxACCurrent)
		recs = append(recs, rec)
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"generated recommendations",
		slog.Int("count", len(recs)),
		slog.Bool("hasNight", nightKnown),
		slog.Float64("nightAmps", nightAmps),
	)
	return recs, nil
}
