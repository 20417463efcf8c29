package types

import "time"

// Regime is whether a forecast slot is powered by the panels or the battery.
type Regime string

const (
	RegimeDay   Regime = "day"
	RegimeNight Regime = "night"
)

// Category is the bucket used to pick an advisory message.
type Category string

const (
	CategoryHighSolar     Category = "high_solar"
	CategoryModerateSolar Category = "moderate_solar"
	CategoryLowSolar      Category = "low_solar"
	CategoryNight         Category = "night"
)

// Categories lists every category in a stable order.
var Categories = []Category{
	CategoryHighSolar,
	CategoryModerateSolar,
	CategoryLowSolar,
	CategoryNight,
}

// Recommendation is the advisory result for one forecast slot.
type Recommendation struct {
	Time         time.Time `json:"timestamp"`
	TemperatureC float64   `json:"temperature"`
	CloudCover   float64   `json:"cloudCover"`
	// Irradiance (in W/m²) is only set for day slots.
	Irradiance *float64 `json:"irradiance,omitempty"`
	// MaxACCurrent is the maximum AC current (in A) the home can draw.
	MaxACCurrent float64  `json:"maxACCurrent"`
	Regime       Regime   `json:"regime"`
	Category     Category `json:"category"`
	Message      string   `json:"recommendation"`
}

// FleetRecommendation is the representative recommendation for one home of a
// fleet.
type FleetRecommendation struct {
	Location       string         `json:"location"`
	Recommendation Recommendation `json:"recommendation"`
}
