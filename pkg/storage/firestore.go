package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solaradvisor/pkg/log"
	"github.com/raterudder/solaradvisor/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const fleetsCollection = "fleets"

// FirestoreProvider implements Database using Google Cloud Firestore. Each
// fleet is a document in the "fleets" collection holding the fleet as a JSON
// string.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// empty project id is detected from the environment
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) fleetDoc(fleetID string) (*firestore.DocumentRef, error) {
	if fleetID == "" {
		return nil, fmt.Errorf("fleetID cannot be empty")
	}
	return f.client.Collection(fleetsCollection).Doc(fleetID), nil
}

// GetFleet retrieves a fleet from the "fleets" collection.
func (f *FirestoreProvider) GetFleet(ctx context.Context, fleetID string) (types.Fleet, error) {
	ref, err := f.fleetDoc(fleetID)
	if err != nil {
		return types.Fleet{}, err
	}
	doc, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Fleet{}, fmt.Errorf("%w: %s", types.ErrFleetNotFound, fleetID)
		}
		return types.Fleet{}, fmt.Errorf("failed to get fleet %s: %w", fleetID, err)
	}
	fleet, err := decodeFleet(doc)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode fleet", slog.String("fleetID", fleetID), slog.Any("err", err))
		return types.Fleet{}, err
	}
	return fleet, nil
}

// SetFleet saves the fleet as a JSON string. Updated is set to the current
// time.
func (f *FirestoreProvider) SetFleet(ctx context.Context, fleet types.Fleet) error {
	ref, err := f.fleetDoc(fleet.ID)
	if err != nil {
		return err
	}
	fleet.Updated = time.Now().UTC().Truncate(time.Millisecond)
	jsonBytes, err := json.Marshal(fleet)
	if err != nil {
		return fmt.Errorf("failed to marshal fleet: %w", err)
	}
	_, err = ref.Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"updated": fleet.Updated,
	})
	if err != nil {
		return fmt.Errorf("failed to save fleet %s: %w", fleet.ID, err)
	}
	return nil
}

// ListFleets retrieves all fleets ordered by document id.
func (f *FirestoreProvider) ListFleets(ctx context.Context) ([]types.Fleet, error) {
	iter := f.client.Collection(fleetsCollection).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var fleets []types.Fleet
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating fleets: %w", err)
		}
		fleet, err := decodeFleet(doc)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping malformed fleet", slog.String("fleetID", doc.Ref.ID), slog.Any("err", err))
			continue
		}
		fleets = append(fleets, fleet)
	}
	return fleets, nil
}

// DeleteFleet removes a fleet. Deleting a missing fleet is not an error.
func (f *FirestoreProvider) DeleteFleet(ctx context.Context, fleetID string) error {
	ref, err := f.fleetDoc(fleetID)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete fleet %s: %w", fleetID, err)
	}
	return nil
}

func decodeFleet(doc *firestore.DocumentSnapshot) (types.Fleet, error) {
	val, err := doc.DataAt("json")
	if err != nil {
		return types.Fleet{}, fmt.Errorf("fleet %s missing json: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		return types.Fleet{}, fmt.Errorf("fleet %s json not string", doc.Ref.ID)
	}
	var fleet types.Fleet
	if err := json.Unmarshal([]byte(jsonStr), &fleet); err != nil {
		return types.Fleet{}, fmt.Errorf("failed to unmarshal fleet %s: %w", doc.Ref.ID, err)
	}
	fleet.ID = doc.Ref.ID
	return fleet, nil
}
