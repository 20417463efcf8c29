package recommend

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/raterudder/solaradvisor/pkg/advice"
	"github.com/raterudder/solaradvisor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockForecaster struct {
	mock.Mock
}

func (m *mockForecaster) Forecast(ctx context.Context, location string) ([]types.ForecastSlot, error) {
	args := m.Called(ctx, location)
	if slots, ok := args.Get(0).([]types.ForecastSlot); ok {
		return slots, args.Error(1)
	}
	return nil, args.Error(1)
}

// threeHourly returns a forecast starting at start with one slot every three
// hours, like the OpenWeatherMap 5 day forecast.
func threeHourly(start time.Time, n int, cloudCover float64) []types.ForecastSlot {
	slots := make([]types.ForecastSlot, 0, n)
	for i := 0; i < n; i++ {
		slots = append(slots, slotAt(start.Add(time.Duration(i*3)*time.Hour), cloudCover))
	}
	return slots
}

func testService(f Forecaster, now time.Time) *Service {
	installer := advice.PickerFunc(func(c types.Category) string { return "installer " + string(c) })
	s := NewService(f, types.DefaultModelConfig(), categoryPicker, installer)
	s.now = func() time.Time { return now }
	return s
}

func testHome(location string) types.Home {
	return types.Home{Location: location, InstallationProfile: testProfile()}
}

func TestWindowSelect(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 20, 0, 0, time.UTC)
	slots := threeHourly(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), 16, 0)

	t.Run("next picks closest to an hour from now", func(t *testing.T) {
		got := WindowNext.Select(slots, now)
		require.Len(t, got, 1)
		// 11:20 is 2h20 from 09:00 and 40m from 12:00
		assert.Equal(t, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), got[0].Time)
	})

	t.Run("next ties go to the earlier slot", func(t *testing.T) {
		got := WindowNext.Select(slots, time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC))
		require.Len(t, got, 1)
		assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), got[0].Time)
	})

	t.Run("next compares whole timestamps", func(t *testing.T) {
		// same hour of day but tomorrow must not win over today
		got := WindowNext.Select(slots, time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC))
		assert.Equal(t, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC), got[0].Time)
	})

	t.Run("tomorrow", func(t *testing.T) {
		got := WindowTomorrow.Select(slots, now)
		require.Len(t, got, 8)
		assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), got[0].Time)
		assert.Equal(t, time.Date(2025, 3, 11, 21, 0, 0, 0, time.UTC), got[7].Time)
	})

	t.Run("day ahead", func(t *testing.T) {
		got := WindowDayAhead.Select(slots, now)
		require.Len(t, got, 1)
		assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), got[0].Time)
	})

	t.Run("day ahead uses the forecast zone", func(t *testing.T) {
		beirut := time.FixedZone("EET", 2*60*60)
		local := threeHourly(time.Date(2025, 3, 11, 0, 0, 0, 0, beirut), 8, 0)
		// 23:00 UTC on the 10th is already the 11th in Beirut
		got := WindowDayAhead.Select(local, time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC))
		assert.Empty(t, got)
	})

	t.Run("all", func(t *testing.T) {
		assert.Equal(t, slots, WindowAll.Select(slots, now))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, WindowNext.Select(nil, now))
		assert.Empty(t, WindowDayAhead.Select(slots, now.AddDate(0, 0, 5)))
	})
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("")
	require.NoError(t, err)
	assert.Equal(t, WindowNext, w)

	for _, name := range []string{"next", "tomorrow", "dayahead", "all"} {
		w, err := ParseWindow(name)
		require.NoError(t, err)
		assert.Equal(t, Window(name), w)
	}

	_, err = ParseWindow("yesterday")
	assert.ErrorIs(t, err, types.ErrMalformedProfile)
}

func TestFilterDay(t *testing.T) {
	slots := threeHourly(time.Date(2025, 3, 10, 21, 0, 0, 0, time.UTC), 4, 0)
	got := FilterDay(slots, time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC))
	require.Len(t, got, 3)
	assert.Equal(t, 0, got[0].Hour())

	beirut := time.FixedZone("EET", 2*60*60)
	got = FilterDay(slots, time.Date(2025, 3, 11, 8, 0, 0, 0, beirut))
	// 21:00 UTC is 23:00 in Beirut on the 10th, the other three are the 11th
	assert.Len(t, got, 3)
}

func TestServiceRecommend(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	forecast := threeHourly(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), 16, 0)

	t.Run("next", func(t *testing.T) {
		f := &mockForecaster{}
		f.On("Forecast", mock.Anything, "Tripoli, LB").Return(forecast, nil)

		recs, err := testService(f, now).Recommend(ctx, testHome("Tripoli, LB"), WindowNext, types.ModelConfig{})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, forecast[0].Time, recs[0].Time)
		assert.Equal(t, "high_solar 8.29", recs[0].Message, "homeowner picker is used")
		f.AssertExpectations(t)
	})

	t.Run("all with override", func(t *testing.T) {
		f := &mockForecaster{}
		f.On("Forecast", mock.Anything, "Tripoli, LB").Return(forecast, nil)

		recs, err := testService(f, now).Recommend(ctx, testHome("Tripoli, LB"), WindowAll, types.ModelConfig{ACVoltage: 110})
		require.NoError(t, err)
		require.Len(t, recs, 16)
		assert.InDelta(t, 16.5818, recs[0].MaxACCurrent, 0.0001)
	})

	t.Run("fetch failure", func(t *testing.T) {
		f := &mockForecaster{}
		f.On("Forecast", mock.Anything, "Nowhere").Return(nil, fmt.Errorf("%w: status 404", types.ErrFetchFailed))

		_, err := testService(f, now).Recommend(ctx, testHome("Nowhere"), WindowNext, types.ModelConfig{})
		assert.ErrorIs(t, err, types.ErrFetchFailed)
	})

	t.Run("empty forecast", func(t *testing.T) {
		f := &mockForecaster{}
		f.On("Forecast", mock.Anything, "Tripoli, LB").Return([]types.ForecastSlot{}, nil)

		_, err := testService(f, now).Recommend(ctx, testHome("Tripoli, LB"), WindowNext, types.ModelConfig{})
		assert.ErrorIs(t, err, types.ErrNoForecast)
	})

	t.Run("empty window", func(t *testing.T) {
		f := &mockForecaster{}
		f.On("Forecast", mock.Anything, "Tripoli, LB").Return(forecast, nil)

		_, err := testService(f, now.AddDate(0, 0, 10)).Recommend(ctx, testHome("Tripoli, LB"), WindowTomorrow, types.ModelConfig{})
		assert.ErrorIs(t, err, types.ErrNoForecast)
	})

	t.Run("malformed home is rejected before fetching", func(t *testing.T) {
		f := &mockForecaster{}
		home := testHome("Tripoli, LB")
		home.NumBatteries = 0

		_, err := testService(f, now).Recommend(ctx, home, WindowNext, types.ModelConfig{})
		assert.ErrorIs(t, err, types.ErrMalformedProfile)
		f.AssertNotCalled(t, "Forecast", mock.Anything, mock.Anything)
	})
}

func TestServiceFleet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	forecast := threeHourly(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), 16, 50)

	t.Run("sorted by location with day-ahead slot", func(t *testing.T) {
		f := &mockForecaster{}
		f.On("Forecast", mock.Anything, mock.Anything).Return(forecast, nil)

		homes := []types.Home{testHome("Tripoli, LB"), testHome("Beirut, LB"), testHome("Byblos, LB")}
		recs, err := testService(f, now).Fleet(ctx, homes, types.ModelConfig{})
		require.NoError(t, err)
		require.Len(t, recs, 3)

		assert.Equal(t, "Beirut, LB", recs[0].Location)
		assert.Equal(t, "Byblos, LB", recs[1].Location)
		assert.Equal(t, "Tripoli, LB", recs[2].Location)
		for _, r := range recs {
			// first slot of tomorrow is midnight
			assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), r.Recommendation.Time)
			assert.Equal(t, types.CategoryNight, r.Recommendation.Category)
			assert.Equal(t, "installer night", r.Recommendation.Message)
		}
		f.AssertNumberOfCalls(t, "Forecast", 3)
	})

	t.Run("sorting is byte-wise", func(t *testing.T) {
		f := &mockForecaster{}
		f.On("Forecast", mock.Anything, mock.Anything).Return(forecast, nil)

		locations := []string{"beirut", "Zahle", "Aley", "tyre", "Baalbek"}
		var homes []types.Home
		for _, l := range locations {
			homes = append(homes, testHome(l))
		}
		recs, err := testService(f, now).Fleet(ctx, homes, types.ModelConfig{})
		require.NoError(t, err)

		var got []string
		for _, r := range recs {
			got = append(got, r.Location)
		}
		assert.True(t, sort.StringsAreSorted(got))
		assert.Equal(t, []string{"Aley", "Baalbek", "Zahle", "beirut", "tyre"}, got)
	})

	t.Run("one failure fails the batch", func(t *testing.T) {
		f := &mockForecaster{}
		f.On("Forecast", mock.Anything, "Beirut, LB").Return(forecast, nil)
		f.On("Forecast", mock.Anything, "Atlantis").Return(nil, fmt.Errorf("%w: status 404", types.ErrFetchFailed))

		recs, err := testService(f, now).Fleet(ctx, []types.Home{testHome("Beirut, LB"), testHome("Atlantis")}, types.ModelConfig{})
		assert.ErrorIs(t, err, types.ErrFetchFailed)
		assert.ErrorContains(t, err, "Atlantis")
		assert.Nil(t, recs, "no partial results")
	})

	t.Run("fails fast", func(t *testing.T) {
		f := &mockForecaster{}
		f.On("Forecast", mock.Anything, "Atlantis").Return(nil, fmt.Errorf("%w: timeout", types.ErrFetchFailed))

		_, err := testService(f, now).Fleet(ctx, []types.Home{testHome("Atlantis"), testHome("Beirut, LB")}, types.ModelConfig{})
		assert.ErrorIs(t, err, types.ErrFetchFailed)
		f.AssertNotCalled(t, "Forecast", mock.Anything, "Beirut, LB")
	})

	t.Run("no day-ahead slot fails the batch", func(t *testing.T) {
		f := &mockForecaster{}
		f.On("Forecast", mock.Anything, mock.Anything).Return(forecast[:2], nil)

		_, err := testService(f, now).Fleet(ctx, []types.Home{testHome("Beirut, LB")}, types.ModelConfig{})
		assert.ErrorIs(t, err, types.ErrNoForecast)
	})

	t.Run("empty and malformed fleets", func(t *testing.T) {
		f := &mockForecaster{}
		_, err := testService(f, now).Fleet(ctx, nil, types.ModelConfig{})
		assert.ErrorIs(t, err, types.ErrMalformedProfile)

		bad := testHome("Beirut, LB")
		bad.BatteryEfficiency = 2
		_, err = testService(f, now).Fleet(ctx, []types.Home{testHome("Tripoli, LB"), bad}, types.ModelConfig{})
		assert.ErrorIs(t, err, types.ErrMalformedProfile)
		f.AssertNotCalled(t, "Forecast", mock.Anything, mock.Anything)
	})
}

func TestSortByLocation(t *testing.T) {
	recs := []types.FleetRecommendation{
		{Location: "b", Recommendation: types.Recommendation{Message: "first b"}},
		{Location: "a"},
		{Location: "b", Recommendation: types.Recommendation{Message: "second b"}},
	}
	SortByLocation(recs)
	assert.Equal(t, "a", recs[0].Location)
	assert.Equal(t, "first b", recs[1].Recommendation.Message)
	assert.Equal(t, "second b", recs[2].Recommendation.Message)
}
