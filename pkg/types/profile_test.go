package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() InstallationProfile {
	return InstallationProfile{
		NumPanels:          6,
		PanelPowerW:        550,
		BatteryCapacityKWH: 10,
		NumBatteries:       4,
		BatteryEfficiency:  0.6,
		BatteryLevelKWH:    6,
		InverterEfficiency: 0.85,
	}
}

func TestInstallationProfileValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validProfile().Validate())
	})

	t.Run("total capacity", func(t *testing.T) {
		assert.Equal(t, 40.0, validProfile().TotalBatteryCapacityKWH())
	})

	t.Run("efficiency of exactly one is allowed", func(t *testing.T) {
		p := validProfile()
		p.BatteryEfficiency = 1
		p.InverterEfficiency = 1
		require.NoError(t, p.Validate())
	})

	t.Run("empty battery is allowed", func(t *testing.T) {
		p := validProfile()
		p.BatteryLevelKWH = 0
		require.NoError(t, p.Validate())
	})

	tests := []struct {
		name   string
		mutate func(p *InstallationProfile)
		want   string
	}{
		{"no panels", func(p *InstallationProfile) { p.NumPanels = 0 }, "numPanels"},
		{"negative panel power", func(p *InstallationProfile) { p.PanelPowerW = -1 }, "panelPowerW"},
		{"zero capacity", func(p *InstallationProfile) { p.BatteryCapacityKWH = 0 }, "batteryCapacityKWH"},
		{"no batteries", func(p *InstallationProfile) { p.NumBatteries = 0 }, "numBatteries"},
		{"battery efficiency zero", func(p *InstallationProfile) { p.BatteryEfficiency = 0 }, "batteryEfficiency"},
		{"inverter efficiency above one", func(p *InstallationProfile) { p.InverterEfficiency = 1.2 }, "inverterEfficiency"},
		{"negative level", func(p *InstallationProfile) { p.BatteryLevelKWH = -2 }, "cannot be negative"},
		{"level above capacity", func(p *InstallationProfile) { p.BatteryLevelKWH = 41 }, "exceeds total battery capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedProfile)
			assert.ErrorContains(t, err, tt.want)
		})
	}

	t.Run("all problems reported", func(t *testing.T) {
		err := InstallationProfile{}.Validate()
		require.Error(t, err)
		for _, field := range []string{"numPanels", "panelPowerW", "batteryCapacityKWH", "numBatteries", "batteryEfficiency", "inverterEfficiency"} {
			assert.ErrorContains(t, err, field)
		}
	})
}

func TestHomeValidate(t *testing.T) {
	t.Run("missing location", func(t *testing.T) {
		err := Home{Location: "  ", InstallationProfile: validProfile()}.Validate()
		assert.ErrorIs(t, err, ErrMalformedProfile)
		assert.ErrorContains(t, err, "location is required")
	})

	t.Run("bad profile names location", func(t *testing.T) {
		p := validProfile()
		p.NumPanels = 0
		err := Home{Location: "Beirut, LB", InstallationProfile: p}.Validate()
		assert.ErrorIs(t, err, ErrMalformedProfile)
		assert.ErrorContains(t, err, "Beirut, LB")
	})
}

func TestFleetValidate(t *testing.T) {
	assert.ErrorIs(t, Fleet{}.Validate(), ErrMalformedProfile)
	require.NoError(t, Fleet{Homes: []Home{{Location: "Tripoli, LB", InstallationProfile: validProfile()}}}.Validate())
}
