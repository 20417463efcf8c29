package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/raterudder/solaradvisor/pkg/log"
	"github.com/raterudder/solaradvisor/pkg/types"
)

var fleetIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func fleetID(r *http.Request) (string, error) {
	id := r.PathValue("id")
	if !fleetIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: fleet id must be 1-64 letters, digits, '-' or '_'", types.ErrMalformedProfile)
	}
	return id, nil
}

func (s *Server) handleListFleets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fleets, err := s.storage.ListFleets(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	// Always return an array, even if empty
	if fleets == nil {
		fleets = []types.Fleet{}
	}
	writeJSON(w, fleets)
}

func (s *Server) handleGetFleet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := fleetID(r)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	fleet, err := s.storage.GetFleet(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, fleet)
}

func (s *Server) handlePutFleet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := fleetID(r)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	var req struct {
		Name       string       `json:"name"`
		Homeowners []types.Home `json:"homeowners"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	fleet := types.Fleet{
		ID:    id,
		Name:  req.Name,
		Homes: req.Homeowners,
	}
	if len(fleet.Homes) > maxFleetSize {
		writeServiceError(ctx, w, fmt.Errorf("%w: fleet has %d homeowners, at most %d are allowed", types.ErrMalformedProfile, len(fleet.Homes), maxFleetSize))
		return
	}
	if err := fleet.Validate(); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if caller, ok := ctx.Value(identityContextKey).(identity); ok {
		fleet.UpdatedBy = caller.Email
	}
	if err := s.storage.SetFleet(ctx, fleet); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "saved fleet", slog.String("fleetID", id), slog.Int("homes", len(fleet.Homes)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteFleet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := fleetID(r)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if err := s.storage.DeleteFleet(ctx, id); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "deleted fleet", slog.String("fleetID", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFleetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := fleetID(r)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	fleet, err := s.storage.GetFleet(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	recs, err := s.fleet(ctx, fleet.Homes, types.ModelConfig{})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, installerResponse{InstallerRecommendations: recs})
}
