package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// InstallationProfile describes one home's solar and battery installation.
// It is supplied per request and is not modified while recommendations are
// computed.
type InstallationProfile struct {
	// Solar Settings
	NumPanels   int     `json:"numPanels"`
	PanelPowerW float64 `json:"panelPowerW"`

	// Battery Settings
	// Capacity of a single battery unit (in kWh)
	BatteryCapacityKWH float64 `json:"batteryCapacityKWH"`
	NumBatteries       int     `json:"numBatteries"`
	// Round-trip efficiency as a fraction in (0, 1]
	BatteryEfficiency float64 `json:"batteryEfficiency"`
	// Current state of charge of the whole bank (in kWh). This is read once
	// per run and used for every night slot.
	BatteryLevelKWH float64 `json:"batteryLevelKWH"`

	// Inverter Settings
	InverterEfficiency float64 `json:"inverterEfficiency"`
}

// TotalBatteryCapacityKWH returns the usable capacity of the whole bank.
func (p InstallationProfile) TotalBatteryCapacityKWH() float64 {
	return p.BatteryCapacityKWH * float64(p.NumBatteries)
}

// Validate checks that every field is within range and returns all problems
// joined together, wrapped in ErrMalformedProfile.
func (p InstallationProfile) Validate() error {
	var errs []error
	if p.NumPanels <= 0 {
		errs = append(errs, fmt.Errorf("numPanels must be positive, got %d", p.NumPanels))
	}
	if p.PanelPowerW <= 0 {
		errs = append(errs, fmt.Errorf("panelPowerW must be positive, got %g", p.PanelPowerW))
	}
	if p.BatteryCapacityKWH <= 0 {
		errs = append(errs, fmt.Errorf("batteryCapacityKWH must be positive, got %g", p.BatteryCapacityKWH))
	}
	if p.NumBatteries <= 0 {
		errs = append(errs, fmt.Errorf("numBatteries must be positive, got %d", p.NumBatteries))
	}
	if !isFraction(p.BatteryEfficiency) {
		errs = append(errs, fmt.Errorf("batteryEfficiency must be within (0, 1], got %g", p.BatteryEfficiency))
	}
	if !isFraction(p.InverterEfficiency) {
		errs = append(errs, fmt.Errorf("inverterEfficiency must be within (0, 1], got %g", p.InverterEfficiency))
	}
	if p.BatteryLevelKWH < 0 {
		errs = append(errs, fmt.Errorf("batteryLevelKWH cannot be negative, got %g", p.BatteryLevelKWH))
	} else if p.NumBatteries > 0 && p.BatteryCapacityKWH > 0 && p.BatteryLevelKWH > p.TotalBatteryCapacityKWH() {
		errs = append(errs, fmt.Errorf(
			"batteryLevelKWH %g exceeds total battery capacity %g",
			p.BatteryLevelKWH,
			p.TotalBatteryCapacityKWH(),
		))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrMalformedProfile, errors.Join(errs...))
}

func isFraction(v float64) bool {
	return v > 0 && v <= 1
}

// Home is an installation at a location.
type Home struct {
	Location string `json:"location"`
	InstallationProfile
}

// Validate checks the location and the profile.
func (h Home) Validate() error {
	if strings.TrimSpace(h.Location) == "" {
		return fmt.Errorf("%w: location is required", ErrMalformedProfile)
	}
	if err := h.InstallationProfile.Validate(); err != nil {
		return fmt.Errorf("%s: %w", h.Location, err)
	}
	return nil
}

// Fleet is the roster of homes an installer looks after.
type Fleet struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Homes   []Home    `json:"homeowners"`
	Updated time.Time `json:"updated"`
	// UpdatedBy is the email of the installer that last saved the fleet.
	UpdatedBy string `json:"updatedBy,omitempty"`
}

// Validate checks that the fleet has at least one valid home.
func (f Fleet) Validate() error {
	if len(f.Homes) == 0 {
		return fmt.Errorf("%w: fleet has no homeowners", ErrMalformedProfile)
	}
	for _, h := range f.Homes {
		if err := h.Validate(); err != nil {
			return err
		}
	}
	return nil
}
