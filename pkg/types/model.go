package types

import (
	"errors"
	"fmt"
)

// ModelConfig holds the constants used by the power models and classifiers.
// A zero field means "use the default" when merged with Merge.
type ModelConfig struct {
	// Fraction of rated panel power actually produced at full irradiance
	PanelEfficiency float64 `json:"panelEfficiency"`
	// Nominal AC voltage of the home (in V)
	ACVoltage float64 `json:"acVoltage"`
	// Number of hours the battery has to last overnight
	NightHours float64 `json:"nightHours"`

	// Regime Settings
	// Night starts at NightStartHour and lasts through NightEndHour (inclusive),
	// wrapping around midnight.
	NightStartHour *int `json:"nightStartHour,omitempty"`
	NightEndHour   *int `json:"nightEndHour,omitempty"`

	// Category Settings (in W/m²)
	// Irradiance strictly above this is high solar.
	HighIrradiance float64 `json:"highIrradiance"`
	// Irradiance strictly below this is low solar.
	LowIrradiance float64 `json:"lowIrradiance"`
}

// Default model constants.
const (
	DefaultPanelEfficiency = 0.8
	DefaultACVoltage       = 220
	DefaultNightHours      = 7
	DefaultNightStartHour  = 20
	DefaultNightEndHour    = 6
	DefaultHighIrradiance  = 800
	DefaultLowIrradiance   = 400
)

// DefaultModelConfig returns the model constants every installation uses
// unless overridden.
func DefaultModelConfig() ModelConfig {
	start, end := DefaultNightStartHour, DefaultNightEndHour
	return ModelConfig{
		PanelEfficiency: DefaultPanelEfficiency,
		ACVoltage:       DefaultACVoltage,
		NightHours:      DefaultNightHours,
		NightStartHour:  &start,
		NightEndHour:    &end,
		HighIrradiance:  DefaultHighIrradiance,
		LowIrradiance:   DefaultLowIrradiance,
	}
}

// Merge returns c with every non-zero field of override applied on top.
func (c ModelConfig) Merge(override ModelConfig) ModelConfig {
	if override.PanelEfficiency != 0 {
		c.PanelEfficiency = override.PanelEfficiency
	}
	if override.ACVoltage != 0 {
		c.ACVoltage = override.ACVoltage
	}
	if override.NightHours != 0 {
		c.NightHours = override.NightHours
	}
	if override.NightStartHour != nil {
		h := *override.NightStartHour
		c.NightStartHour = &h
	}
	if override.NightEndHour != nil {
		h := *override.NightEndHour
		c.NightEndHour = &h
	}
	if override.HighIrradiance != 0 {
		c.HighIrradiance = override.HighIrradiance
	}
	if override.LowIrradiance != 0 {
		c.LowIrradiance = override.LowIrradiance
	}
	return c
}

// NightHoursRange returns the night start and end hours, falling back to the
// defaults when unset.
func (c ModelConfig) NightHoursRange() (int, int) {
	start, end := DefaultNightStartHour, DefaultNightEndHour
	if c.NightStartHour != nil {
		start = *c.NightStartHour
	}
	if c.NightEndHour != nil {
		end = *c.NightEndHour
	}
	return start, end
}

// Validate checks that the config can be used by the power models.
func (c ModelConfig) Validate() error {
	var errs []error
	if !isFraction(c.PanelEfficiency) {
		errs = append(errs, fmt.Errorf("panelEfficiency must be within (0, 1], got %g", c.PanelEfficiency))
	}
	if c.ACVoltage <= 0 {
		errs = append(errs, fmt.Errorf("acVoltage must be positive, got %g", c.ACVoltage))
	}
	if c.NightHours <= 0 {
		errs = append(errs, fmt.Errorf("nightHours must be positive, got %g", c.NightHours))
	}
	start, end := c.NightHoursRange()
	if start < 0 || start > 23 {
		errs = append(errs, fmt.Errorf("nightStartHour must be within [0, 23], got %d", start))
	}
	if end < 0 || end > 23 {
		errs = append(errs, fmt.Errorf("nightEndHour must be within [0, 23], got %d", end))
	}
	if c.LowIrradiance < 0 || c.HighIrradiance < c.LowIrradiance {
		errs = append(errs, fmt.Errorf(
			"irradiance thresholds must satisfy 0 <= low <= high, got low=%g high=%g",
			c.LowIrradiance,
			c.HighIrradiance,
		))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrMalformedProfile, errors.Join(errs...))
}
