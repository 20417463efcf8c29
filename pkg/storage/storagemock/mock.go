package storagemock

import (
	"context"

	"github.com/raterudder/solaradvisor/pkg/storage"
	"github.com/raterudder/solaradvisor/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetFleet(ctx context.Context, fleetID string) (types.Fleet, error) {
	args := m.Called(ctx, fleetID)
	return args.Get(0).(types.Fleet), args.Error(1)
}

func (m *MockDatabase) SetFleet(ctx context.Context, fleet types.Fleet) error {
	args := m.Called(ctx, fleet)
	return args.Error(0)
}

func (m *MockDatabase) ListFleets(ctx context.Context) ([]types.Fleet, error) {
	args := m.Called(ctx)
	// return empty if not specified
	if len(args) > 0 {
		return args.Get(0).([]types.Fleet), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) DeleteFleet(ctx context.Context, fleetID string) error {
	args := m.Called(ctx, fleetID)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
