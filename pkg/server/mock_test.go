package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/raterudder/solaradvisor/pkg/advice"
	"github.com/raterudder/solaradvisor/pkg/log"
	"github.com/raterudder/solaradvisor/pkg/recommend"
	"github.com/raterudder/solaradvisor/pkg/storage/storagemock"
	"github.com/raterudder/solaradvisor/pkg/types"
	"github.com/stretchr/testify/mock"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

type mockForecaster struct {
	mock.Mock
}

func (m *mockForecaster) Forecast(ctx context.Context, location string) ([]types.ForecastSlot, error) {
	args := m.Called(ctx, location)
	if len(args) > 0 {
		return args.Get(0).([]types.ForecastSlot), args.Error(1)
	}
	return nil, nil
}

type mockStorage = storagemock.MockDatabase

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, location string, rec types.Recommendation) error {
	args := m.Called(ctx, location, rec)
	return args.Error(0)
}

// newTestServer returns a server with auth bypassed and deterministic
// message pickers.
func newTestServer(f *mockForecaster, s *mockStorage, p *mockPublisher) *Server {
	pools, err := advice.DefaultPools()
	if err != nil {
		panic(err)
	}
	srv := &Server{
		service: recommend.NewService(
			f,
			types.DefaultModelConfig(),
			advice.NewFirstPicker(pools.Homeowner),
			advice.NewFirstPicker(pools.Installer),
		),
		storage:    s,
		bypassAuth: true,
		serverName: "solaradvisor-test",
	}
	if p != nil {
		srv.publisher = p
	}
	return srv
}

// forecastAround returns three-hourly UTC slots covering today and the next
// two days with a light cloud cover.
func forecastAround(now time.Time) []types.ForecastSlot {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var slots []types.ForecastSlot
	for i := 0; i < 24; i++ {
		slots = append(slots, types.ForecastSlot{
			Time:         start.Add(time.Duration(i*3) * time.Hour),
			TemperatureC: 21.5,
			CloudCover:   10,
		})
	}
	return slots
}

func testHome(location string) types.Home {
	return types.Home{
		Location: location,
		InstallationProfile: types.InstallationProfile{
			NumPanels:          6,
			PanelPowerW:        400,
			BatteryCapacityKWH: 10,
			NumBatteries:       4,
			BatteryEfficiency:  0.6,
			BatteryLevelKWH:    6,
			InverterEfficiency: 0.95,
		},
	}
}
