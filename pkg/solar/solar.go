// Package solar holds the pure power models that turn a forecast slot and an
// installation profile into an available AC current.
package solar

import (
	"math"

	"github.com/raterudder/solaradvisor/pkg/types"
)

// MaxIrradiance is the irradiance (in W/m²) of a clear sky.
const MaxIrradiance = 1000

// EstimateIrradiance maps cloud cover (in percent) to an estimated irradiance
// (in W/m²). Cover above 200% saturates to 0.
func EstimateIrradiance(cloudCover float64) float64 {
	return math.Max(MaxIrradiance-5*cloudCover, 0)
}

// ClassifyRegime returns whether hour falls in the night window
// [nightStart, nightEnd], which wraps around midnight when nightStart > nightEnd.
func ClassifyRegime(hour, nightStart, nightEnd int) types.Regime {
	var night bool
	if nightStart <= nightEnd {
		night = hour >= nightStart && hour <= nightEnd
	} else {
		night = hour >= nightStart || hour <= nightEnd
	}
	if night {
		return types.RegimeNight
	}
	return types.RegimeDay
}

// Regime classifies hour with the night window of cfg.
func Regime(cfg types.ModelConfig, hour int) types.Regime {
	start, end := cfg.NightHoursRange()
	return ClassifyRegime(hour, start, end)
}

// DayACCurrent returns the maximum AC current (in A) the panels can deliver
// directly at the given irradiance.
func DayACCurrent(irradiance float64, numPanels int, panelPowerW, panelEfficiency, inverterEfficiency, acVoltage float64) float64 {
	dcPower := irradiance * float64(numPanels) * panelPowerW * panelEfficiency / 1000
	return math.Max(dcPower*inverterEfficiency/acVoltage, 0)
}

// NightACCurrent returns the average AC current (in A) the battery can sustain
// when its usable energy is spread over nightHours.
func NightACCurrent(batteryLevelKWH, batteryEfficiency, inverterEfficiency, acVoltage, nightHours float64) float64 {
	usableKWH := batteryLevelKWH * batteryEfficiency
	acKWH := usableKWH * inverterEfficiency
	return math.Max(acKWH*1000/(acVoltage*nightHours), 0)
}

// Categorize buckets a day-time irradiance. Values equal to either threshold
// are moderate.
func Categorize(irradiance, low, high float64) types.Category {
	switch {
	case irradiance > high:
		return types.CategoryHighSolar
	case irradiance < low:
		return types.CategoryLowSolar
	default:
		return types.CategoryModerateSolar
	}
}

// Day returns the day current and category for the profile with cfg applied.
func Day(cfg types.ModelConfig, profile types.InstallationProfile, irradiance float64) (float64, types.Category) {
	amps := DayACCurrent(
		irradiance,
		profile.NumPanels,
		profile.PanelPowerW,
		cfg.PanelEfficiency,
		profile.InverterEfficiency,
		cfg.ACVoltage,
	)
	return amps, Categorize(irradiance, cfg.LowIrradiance, cfg.HighIrradiance)
}

// Night returns the night current for the profile with cfg applied.
func Night(cfg types.ModelConfig, profile types.InstallationProfile) float64 {
	return NightACCurrent(
		profile.BatteryLevelKWH,
		profile.BatteryEfficiency,
		profile.InverterEfficiency,
		cfg.ACVoltage,
		cfg.NightHours,
	)
}
