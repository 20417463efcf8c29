package types

import "time"

// ForecastSlot is one entry of a weather forecast. Only the date and hour of
// Time are significant.
type ForecastSlot struct {
	Time         time.Time `json:"timestamp"`
	TemperatureC float64   `json:"temperature"`
	// CloudCover is a percentage and is expected to be within [0, 100].
	CloudCover float64 `json:"cloudCover"`
}

// Hour returns the hour of day of the slot in its own location.
func (s ForecastSlot) Hour() int {
	return s.Time.Hour()
}
