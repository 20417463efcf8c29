// Package weather fetches forecasts from external weather services.
package weather

import (
	"context"
	"fmt"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solaradvisor/pkg/types"
)

// Provider fetches the forecast for a location. Errors reaching the service
// wrap types.ErrFetchFailed. An empty forecast is not an error.
type Provider interface {
	Forecast(ctx context.Context, location string) ([]types.ForecastSlot, error)
}

// Configured sets up the weather provider based on flags.
func Configured() Provider {
	provider := lflag.String("weather-provider", "openweathermap", "Weather forecast provider to use (available: openweathermap, static)")
	staticFile := lflag.String("weather-static-file", "", "JSON file mapping location to forecast slots, for the static provider")

	var p struct{ Provider }

	owm := configuredOpenWeatherMap()

	lflag.Do(func() {
		switch *provider {
		case "openweathermap":
			if err := owm.Validate(); err != nil {
				panic(fmt.Sprintf("openweathermap validation failed: %v", err))
			}
			p.Provider = owm
		case "static":
			s, err := LoadStaticFile(*staticFile)
			if err != nil {
				panic(fmt.Sprintf("static weather provider failed: %v", err))
			}
			p.Provider = s
		default:
			panic(fmt.Sprintf("unknown weather provider: %s", *provider))
		}
	})

	return &p
}
