package main

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/gookit/ini/v2"
	"github.com/raterudder/solaradvisor/pkg/types"
)

// rosterKeys lists the keys of a roster section. location is optional and
// defaults to the section name.
var rosterKeys = []string{
	"num_panels",
	"panel_power_w",
	"battery_capacity_kwh",
	"num_batteries",
	"battery_efficiency",
	"battery_level_kwh",
	"inverter_efficiency",
}

// loadRoster reads an INI file with one section per home.
func loadRoster(path string) ([]types.Home, error) {
	cfg := ini.New()
	if err := cfg.LoadFiles(path); err != nil {
		return nil, fmt.Errorf("failed to load roster %s: %w", path, err)
	}
	return parseRoster(cfg)
}

// parseRoster returns the homes of every section ordered by section name.
// All problems are reported together.
func parseRoster(cfg *ini.Ini) ([]types.Home, error) {
	names := cfg.SectionKeys(false)
	sort.Strings(names)

	var (
		homes []types.Home
		errs  []error
	)
	for _, name := range names {
		h, err := parseHome(name, cfg.Section(name))
		if err != nil {
			errs = append(errs, fmt.Errorf("[%s]: %w", name, err))
			continue
		}
		homes = append(homes, h)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(homes) == 0 {
		return nil, fmt.Errorf("%w: roster has no homes", types.ErrMalformedProfile)
	}
	return homes, nil
}

func parseHome(name string, sec map[string]string) (types.Home, error) {
	for k := range sec {
		if k != "location" && !slices.Contains(rosterKeys, k) {
			return types.Home{}, fmt.Errorf("%w: unknown key %q", types.ErrMalformedProfile, k)
		}
	}
	for _, k := range rosterKeys {
		if _, ok := sec[k]; !ok {
			return types.Home{}, fmt.Errorf("%w: missing key %q", types.ErrMalformedProfile, k)
		}
	}

	h := types.Home{Location: sec["location"]}
	if h.Location == "" {
		h.Location = name
	}

	var err error
	p := &h.InstallationProfile
	if p.NumPanels, err = strconv.Atoi(sec["num_panels"]); err != nil {
		return types.Home{}, fmt.Errorf("%w: num_panels: %w", types.ErrMalformedProfile, err)
	}
	if p.NumBatteries, err = strconv.Atoi(sec["num_batteries"]); err != nil {
		return types.Home{}, fmt.Errorf("%w: num_batteries: %w", types.ErrMalformedProfile, err)
	}
	floats := []struct {
		key string
		dst *float64
	}{
		{"panel_power_w", &p.PanelPowerW},
		{"battery_capacity_kwh", &p.BatteryCapacityKWH},
		{"battery_efficiency", &p.BatteryEfficiency},
		{"battery_level_kwh", &p.BatteryLevelKWH},
		{"inverter_efficiency", &p.InverterEfficiency},
	}
	for _, f := range floats {
		if *f.dst, err = strconv.ParseFloat(sec[f.key], 64); err != nil {
			return types.Home{}, fmt.Errorf("%w: %s: %w", types.ErrMalformedProfile, f.key, err)
		}
	}

	if err := h.Validate(); err != nil {
		return types.Home{}, err
	}
	return h, nil
}
