package solar

import (
	"testing"

	"github.com/raterudder/solaradvisor/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestEstimateIrradiance(t *testing.T) {
	assert.Equal(t, 1000.0, EstimateIrradiance(0))
	assert.Equal(t, 750.0, EstimateIrradiance(50))
	assert.Equal(t, 500.0, EstimateIrradiance(100))
	assert.Equal(t, 0.0, EstimateIrradiance(200))
	assert.Equal(t, 0.0, EstimateIrradiance(350), "large cover saturates without error")

	prev := EstimateIrradiance(0)
	for cc := 0.0; cc <= 250; cc += 0.5 {
		irr := EstimateIrradiance(cc)
		assert.LessOrEqual(t, irr, prev, "irradiance must not increase with cloud cover (cc=%v)", cc)
		assert.Equal(t, max(1000-5*cc, 0), irr)
		prev = irr
	}
}

func TestClassifyRegime(t *testing.T) {
	cfg := types.DefaultModelConfig()
	tests := map[int]types.Regime{
		0:  types.RegimeNight,
		3:  types.RegimeNight,
		6:  types.RegimeNight,
		7:  types.RegimeDay,
		12: types.RegimeDay,
		19: types.RegimeDay,
		20: types.RegimeNight,
		23: types.RegimeNight,
	}
	for hour, want := range tests {
		assert.Equal(t, want, Regime(cfg, hour), "hour %d", hour)
	}

	var night int
	for hour := 0; hour < 24; hour++ {
		if Regime(cfg, hour) == types.RegimeNight {
			night++
		}
	}
	assert.Equal(t, 11, night)

	t.Run("non-wrapping window", func(t *testing.T) {
		assert.Equal(t, types.RegimeNight, ClassifyRegime(2, 0, 5))
		assert.Equal(t, types.RegimeDay, ClassifyRegime(6, 0, 5))
		assert.Equal(t, types.RegimeDay, ClassifyRegime(23, 0, 5))
	})
}

func TestDayACCurrent(t *testing.T) {
	t.Run("clear noon", func(t *testing.T) {
		irr := EstimateIrradiance(0)
		amps := DayACCurrent(irr, 6, 400, 0.8, 0.95, 220)
		// 1920 W * 0.95 / 220 V
		assert.InDelta(t, 8.2909, amps, 0.0001)
	})

	t.Run("zero irradiance", func(t *testing.T) {
		assert.Equal(t, 0.0, DayACCurrent(0, 6, 400, 0.8, 0.95, 220))
		assert.Equal(t, 0.0, DayACCurrent(0, 100, 600, 1, 1, 110))
	})

	t.Run("floored at zero", func(t *testing.T) {
		assert.Equal(t, 0.0, DayACCurrent(-10, 6, 400, 0.8, 0.95, 220))
	})

	t.Run("monotonic", func(t *testing.T) {
		base := DayACCurrent(500, 6, 400, 0.8, 0.95, 220)
		assert.Greater(t, DayACCurrent(600, 6, 400, 0.8, 0.95, 220), base)
		assert.Greater(t, DayACCurrent(500, 7, 400, 0.8, 0.95, 220), base)
		assert.Greater(t, DayACCurrent(500, 6, 450, 0.8, 0.95, 220), base)

		prev := 0.0
		for irr := 0.0; irr <= 1000; irr += 50 {
			amps := DayACCurrent(irr, 6, 400, 0.8, 0.95, 220)
			assert.GreaterOrEqual(t, amps, prev)
			prev = amps
		}
	})
}

func TestNightACCurrent(t *testing.T) {
	t.Run("homeowner bank", func(t *testing.T) {
		// 6 kWh * 0.6 * 0.85 = 3.06 kWh over 7h at 220V
		assert.InDelta(t, 1.987, NightACCurrent(6, 0.6, 0.85, 220, 7), 0.001)
	})

	t.Run("empty battery", func(t *testing.T) {
		assert.Equal(t, 0.0, NightACCurrent(0, 0.6, 0.85, 220, 7))
		assert.Equal(t, 0.0, NightACCurrent(0, 1, 1, 110, 3))
	})

	t.Run("monotonic", func(t *testing.T) {
		base := NightACCurrent(6, 0.6, 0.85, 220, 7)
		assert.Greater(t, NightACCurrent(7, 0.6, 0.85, 220, 7), base)
		assert.Greater(t, NightACCurrent(6, 0.7, 0.85, 220, 7), base)
		assert.Greater(t, NightACCurrent(6, 0.6, 0.95, 220, 7), base)
		assert.Less(t, NightACCurrent(6, 0.6, 0.85, 220, 8), base, "longer nights spread the energy thinner")
	})
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		irradiance float64
		want       types.Category
	}{
		{1000, types.CategoryHighSolar},
		{800.0001, types.CategoryHighSolar},
		{800, types.CategoryModerateSolar},
		{600, types.CategoryModerateSolar},
		{400.0001, types.CategoryModerateSolar},
		{400, types.CategoryModerateSolar},
		{399.9999, types.CategoryLowSolar},
		{0, types.CategoryLowSolar},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Categorize(tt.irradiance, 400, 800), "irradiance %v", tt.irradiance)
	}
}

func TestDayAndNightWithConfig(t *testing.T) {
	cfg := types.DefaultModelConfig()
	profile := types.InstallationProfile{
		NumPanels:          6,
		PanelPowerW:        400,
		InverterEfficiency: 0.95,
		BatteryEfficiency:  0.6,
		BatteryLevelKWH:    6,
	}

	amps, cat := Day(cfg, profile, 1000)
	assert.InDelta(t, 8.2909, amps, 0.0001)
	assert.Equal(t, types.CategoryHighSolar, cat)

	cfg.ACVoltage = 110
	amps, _ = Day(cfg, profile, 1000)
	assert.InDelta(t, 16.5818, amps, 0.0001)

	profile.InverterEfficiency = 0.85
	assert.InDelta(t, 3.974, Night(cfg, profile), 0.001)
}
