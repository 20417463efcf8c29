package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solaradvisor/pkg/advice"
	"github.com/raterudder/solaradvisor/pkg/log"
	"github.com/raterudder/solaradvisor/pkg/types"
)

// Forecaster fetches the forecast for a location. Implementations must return
// an error wrapping types.ErrFetchFailed when the source cannot be reached.
type Forecaster interface {
	Forecast(ctx context.Context, location string) ([]types.ForecastSlot, error)
}

// Service answers homeowner and installer queries by fetching forecasts and
// running a Generator over them.
type Service struct {
	forecasts Forecaster
	homeowner *Generator
	installer *Generator
	now       func() time.Time
}

// NewService creates a Service. Homeowner queries use homeownerPicker and
// fleet queries use installerPicker.
func NewService(forecasts Forecaster, cfg types.ModelConfig, homeownerPicker, installerPicker advice.Picker) *Service {
	return &Service{
		forecasts: forecasts,
		homeowner: NewGenerator(cfg, homeownerPicker),
		installer: NewGenerator(cfg, installerPicker),
		now:       time.Now,
	}
}

// Configured registers the model and message flags and returns a Service
// that picks messages at random. The server-wide model override is merged
// over the defaults and validated at startup.
func Configured(forecasts Forecaster) *Service {
	model := types.ModelConfig{}
	lflag.JSON(&model, "model-config", model, "JSON object overriding the model constants (e.g. {\"acVoltage\":110})")
	pools := advice.Configured()

	s := &Service{forecasts: forecasts, now: time.Now}
	lflag.Do(func() {
		cfg := types.DefaultModelConfig().Merge(model)
		if err := cfg.Validate(); err != nil {
			panic(fmt.Sprintf("invalid model-config: %v", err))
		}
		s.homeowner = NewGenerator(cfg, advice.NewRandomPicker(pools.For(advice.AudienceHomeowner)))
		s.installer = NewGenerator(cfg, advice.NewRandomPicker(pools.For(advice.AudienceInstaller)))
	})
	return s
}

// Model returns the model constants requests are merged over.
func (s *Service) Model() types.ModelConfig {
	return s.homeowner.Config()
}

// Recommend returns the recommendations for a single home over window. The
// model override is merged over the service's model constants.
func (s *Service) Recommend(ctx context.Context, home types.Home, window Window, override types.ModelConfig) ([]types.Recommendation, error) {
	if err := home.Validate(); err != nil {
		return nil, err
	}
	ctx = log.WithAttrs(ctx, slog.String("location", home.Location))

	forecast, err := s.forecasts.Forecast(ctx, home.Location)
	if err != nil {
		return nil, err
	}
	slots := window.Select(forecast, s.now())
	if len(slots) == 0 {
		log.Ctx(ctx).WarnContext(ctx, "no forecast slots in window", slog.String("window", string(window)), slog.Int("forecast", len(forecast)))
		return nil, types.ErrNoForecast
	}
	return s.homeowner.WithModel(override).Generate(ctx, slots, home.InstallationProfile)
}

// Fleet returns one day-ahead recommendation per home, sorted by location.
// The whole batch fails on the first home that can't be served.
func (s *Service) Fleet(ctx context.Context, homes []types.Home, override types.ModelConfig) ([]types.FleetRecommendation, error) {
	if len(homes) == 0 {
		return nil, fmt.Errorf("%w: fleet has no homeowners", types.ErrMalformedProfile)
	}
	// validate everything before fetching anything
	for _, h := range homes {
		if err := h.Validate(); err != nil {
			return nil, err
		}
	}

	gen := s.installer.WithModel(override)
	now := s.now()
	out := make([]types.FleetRecommendation, 0, len(homes))
	for _, h := range homes {
		hctx := log.WithAttrs(ctx, slog.String("location", h.Location))
		forecast, err := s.forecasts.Forecast(hctx, h.Location)
		if err != nil {
			log.Ctx(hctx).WarnContext(hctx, "aborting fleet, forecast failed", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", h.Location, err)
		}
		slots := WindowDayAhead.Select(forecast, now)
		if len(slots) == 0 {
			log.Ctx(hctx).WarnContext(hctx, "aborting fleet, no day-ahead forecast", slog.Int("forecast", len(forecast)))
			return nil, fmt.Errorf("%s: %w", h.Location, types.ErrNoForecast)
		}
		recs, err := gen.Generate(hctx, slots, h.InstallationProfile)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", h.Location, err)
		}
		out = append(out, types.FleetRecommendation{
			Location:       h.Location,
			Recommendation: recs[0],
		})
	}

	SortByLocation(out)
	log.Ctx(ctx).DebugContext(ctx, "generated fleet recommendations", slog.Int("count", len(out)))
	return out, nil
}

// SortByLocation orders fleet recommendations by location using byte-wise
// string comparison. Equal locations keep their input order.
func SortByLocation(recs []types.FleetRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Location < recs[j].Location
	})
}

