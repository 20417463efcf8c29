package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/raterudder/solaradvisor/pkg/types"
)

// Static serves fixed forecasts keyed by location. It backs offline runs
// and tests.
type Static map[string][]types.ForecastSlot

// LoadStaticFile reads a JSON object mapping location to forecast slots.
func LoadStaticFile(path string) (Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read static forecast file: %w", err)
	}
	var s Static
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("failed to parse static forecast file %s: %w", path, err)
	}
	return s, nil
}

// Forecast returns a copy of the slots stored for location. Unknown
// locations fail like an unreachable service would.
func (s Static) Forecast(ctx context.Context, location string) ([]types.ForecastSlot, error) {
	slots, ok := s[location]
	if !ok {
		return nil, fmt.Errorf("%w: no static forecast for %s", types.ErrFetchFailed, location)
	}
	return slices.Clone(slots), nil
}
