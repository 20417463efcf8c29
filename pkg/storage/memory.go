package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/raterudder/solaradvisor/pkg/types"
)

// Memory implements Database in process memory. Fleets are lost on restart.
type Memory struct {
	mu     sync.RWMutex
	fleets map[string]types.Fleet
	now    func() time.Time
}

// NewMemory returns an empty in-memory database.
func NewMemory() *Memory {
	return &Memory{
		fleets: make(map[string]types.Fleet),
		now:    time.Now,
	}
}

// GetFleet returns a copy of the stored fleet.
func (m *Memory) GetFleet(ctx context.Context, fleetID string) (types.Fleet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fleet, ok := m.fleets[fleetID]
	if !ok {
		return types.Fleet{}, fmt.Errorf("%w: %s", types.ErrFleetNotFound, fleetID)
	}
	return cloneFleet(fleet), nil
}

// SetFleet stores a copy of fleet.
func (m *Memory) SetFleet(ctx context.Context, fleet types.Fleet) error {
	if fleet.ID == "" {
		return fmt.Errorf("fleetID cannot be empty")
	}
	fleet = cloneFleet(fleet)
	fleet.Updated = m.now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fleets[fleet.ID] = fleet
	return nil
}

// ListFleets returns copies of every fleet ordered by id.
func (m *Memory) ListFleets(ctx context.Context) ([]types.Fleet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fleets := make([]types.Fleet, 0, len(m.fleets))
	for _, f := range m.fleets {
		fleets = append(fleets, cloneFleet(f))
	}
	slices.SortFunc(fleets, func(a, b types.Fleet) int {
		return strings.Compare(a.ID, b.ID)
	})
	return fleets, nil
}

// DeleteFleet removes a fleet. Deleting a missing fleet is not an error.
func (m *Memory) DeleteFleet(ctx context.Context, fleetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fleets, fleetID)
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

func cloneFleet(f types.Fleet) types.Fleet {
	f.Homes = slices.Clone(f.Homes)
	return f
}
