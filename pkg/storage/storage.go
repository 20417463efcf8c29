// Package storage persists installer fleet rosters.
package storage

import (
	"context"
	"fmt"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solaradvisor/pkg/types"
)

// Database defines the interface for persisting fleets.
type Database interface {
	// GetFleet returns types.ErrFleetNotFound when no fleet has the id.
	GetFleet(ctx context.Context, fleetID string) (types.Fleet, error)
	// SetFleet creates or replaces the fleet stored under fleet.ID.
	SetFleet(ctx context.Context, fleet types.Fleet) error
	// ListFleets returns every fleet ordered by id.
	ListFleets(ctx context.Context) ([]types.Fleet, error)
	DeleteFleet(ctx context.Context, fleetID string) error

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore, memory)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "memory":
			p.Database = NewMemory()
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
