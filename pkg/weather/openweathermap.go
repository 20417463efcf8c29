package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solaradvisor/pkg/common"
	"github.com/raterudder/solaradvisor/pkg/log"
	"github.com/raterudder/solaradvisor/pkg/types"
)

// OpenWeatherMap implements Provider using the OpenWeatherMap 5 day / 3 hour
// forecast API.
type OpenWeatherMap struct {
	apiURL string
	apiKey string
	client *resty.Client
}

// configuredOpenWeatherMap sets up flags for OpenWeatherMap and returns the
// instance.
func configuredOpenWeatherMap() *OpenWeatherMap {
	o := &OpenWeatherMap{}
	apiURL := lflag.String("openweathermap-api-url", "https://api.openweathermap.org/data/2.5/forecast", "URL for the OpenWeatherMap forecast API")
	apiKey := lflag.String("openweathermap-api-key", "", "API key for OpenWeatherMap")
	timeout := lflag.Duration("weather-timeout", 10*time.Second, "Timeout for a single forecast request")

	lflag.Do(func() {
		o.apiURL = *apiURL
		o.apiKey = *apiKey
		o.client = resty.NewWithClient(common.HTTPClient(*timeout))
	})

	return o
}

// NewOpenWeatherMap creates a provider for the given API URL and key.
func NewOpenWeatherMap(apiURL, apiKey string, timeout time.Duration) *OpenWeatherMap {
	return &OpenWeatherMap{
		apiURL: apiURL,
		apiKey: apiKey,
		client: resty.NewWithClient(common.HTTPClient(timeout)),
	}
}

// Validate ensures the configuration is valid.
func (o *OpenWeatherMap) Validate() error {
	if o.apiURL == "" {
		return fmt.Errorf("openweathermap-api-url is required")
	}
	if _, err := url.Parse(o.apiURL); err != nil {
		return fmt.Errorf("failed to parse openweathermap url (%s): %w", o.apiURL, err)
	}
	if o.apiKey == "" {
		return fmt.Errorf("openweathermap-api-key is required")
	}
	return nil
}

type owmResponse struct {
	List []owmEntry `json:"list"`
	City struct {
		Name string `json:"name"`
		// Offset from UTC in seconds
		Timezone int `json:"timezone"`
	} `json:"city"`
}

type owmEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	DtTxt string `json:"dt_txt"`
}

type owmError struct {
	Message string `json:"message"`
}

// Forecast returns the forecast slots for location in the location's own
// time zone.
func (o *OpenWeatherMap) Forecast(ctx context.Context, location string) ([]types.ForecastSlot, error) {
	log.Ctx(ctx).DebugContext(ctx, "fetching forecast from openweathermap", slog.String("location", location))

	resp, err := o.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"q":     location,
			"units": "metric",
			"appid": o.apiKey,
		}).
		Get(o.apiURL)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch forecast", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", types.ErrFetchFailed, err)
	}

	if !resp.IsSuccess() {
		var e owmError
		// the body is usually {"cod":"404","message":"city not found"}
		_ = json.Unmarshal(resp.Body(), &e)
		log.Ctx(ctx).WarnContext(
			ctx,
			"openweathermap returned an error",
			slog.Int("status", resp.StatusCode()),
			slog.String("message", e.Message),
		)
		if e.Message != "" {
			return nil, fmt.Errorf("%w: openweathermap returned status %d: %s", types.ErrFetchFailed, resp.StatusCode(), e.Message)
		}
		return nil, fmt.Errorf("%w: openweathermap returned status %d", types.ErrFetchFailed, resp.StatusCode())
	}

	var data owmResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode openweathermap response", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to decode response: %w", types.ErrFetchFailed, err)
	}

	loc := time.FixedZone(data.City.Name, data.City.Timezone)
	slots := make([]types.ForecastSlot, 0, len(data.List))
	for _, item := range data.List {
		ts, err := entryTime(item, loc)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse forecast time", slog.String("dtTxt", item.DtTxt), slog.Any("error", err))
			continue
		}
		slots = append(slots, types.ForecastSlot{
			Time:         ts,
			TemperatureC: item.Main.Temp,
			CloudCover:   item.Clouds.All,
		})
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched forecast",
		slog.String("location", location),
		slog.String("city", data.City.Name),
		slog.Int("count", len(slots)),
	)
	return slots, nil
}

// entryTime prefers the unix timestamp and falls back to dt_txt, which is
// always UTC.
func entryTime(item owmEntry, loc *time.Location) (time.Time, error) {
	if item.Dt > 0 {
		return time.Unix(item.Dt, 0).In(loc), nil
	}
	ts, err := time.ParseInLocation(time.DateTime, item.DtTxt, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return ts.In(loc), nil
}
