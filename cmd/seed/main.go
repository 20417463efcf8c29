package main

import (
	"context"
	"fmt"
	"os"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solaradvisor/pkg/log"
	"github.com/raterudder/solaradvisor/pkg/storage"
	"github.com/raterudder/solaradvisor/pkg/types"
)

// demoFleets are loaded into the local emulator so the installer routes have
// something to serve.
var demoFleets = []types.Fleet{
	{
		ID:   "north-lebanon",
		Name: "North Lebanon",
		Homes: []types.Home{
			{
				Location: "Tripoli, LB",
				InstallationProfile: types.InstallationProfile{
					NumPanels:          8,
					PanelPowerW:        600,
					BatteryCapacityKWH: 12,
					NumBatteries:       2,
					BatteryEfficiency:  0.8,
					BatteryLevelKWH:    10,
					InverterEfficiency: 0.9,
				},
			},
			{
				Location: "Byblos, LB",
				InstallationProfile: types.InstallationProfile{
					NumPanels:          4,
					PanelPowerW:        450,
					BatteryCapacityKWH: 5,
					NumBatteries:       1,
					BatteryEfficiency:  0.9,
					BatteryLevelKWH:    4,
					InverterEfficiency: 0.95,
				},
			},
		},
	},
	{
		ID:   "beirut",
		Name: "Beirut",
		Homes: []types.Home{
			{
				Location: "Beirut, LB",
				InstallationProfile: types.InstallationProfile{
					NumPanels:          6,
					PanelPowerW:        550,
					BatteryCapacityKWH: 10,
					NumBatteries:       3,
					BatteryEfficiency:  0.75,
					BatteryLevelKWH:    6,
					InverterEfficiency: 0.85,
				},
			},
		},
	},
}

func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	s := storage.Configured()
	lflag.Configure()
	defer s.Close()

	ctx := context.Background()

	log.Ctx(ctx).InfoContext(ctx, "seeding demo fleets")

	for _, fleet := range demoFleets {
		if err := fleet.Validate(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "invalid demo fleet", "fleetID", fleet.ID, "error", err)
			os.Exit(1)
		}
		fleet.UpdatedBy = "seed"
		if err := s.SetFleet(ctx, fleet); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed fleet", "fleetID", fleet.ID, "error", err)
			os.Exit(1)
		}
		fmt.Printf("Seeded fleet %s (%s) with %d homes\n", fleet.ID, fleet.Name, len(fleet.Homes))
	}

	log.Ctx(ctx).InfoContext(ctx, "seeded demo fleets successfully")
}
