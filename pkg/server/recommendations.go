package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/raterudder/solaradvisor/pkg/log"
	"github.com/raterudder/solaradvisor/pkg/recommend"
	"github.com/raterudder/solaradvisor/pkg/types"
)

type homeRequest struct {
	types.Home
	// Window is one of next (default), tomorrow or all.
	Window string `json:"window,omitempty"`
	// Model overrides the server's model constants for this request.
	Model types.ModelConfig `json:"model"`
}

type installerRequest struct {
	Homeowners []types.Home      `json:"homeowners"`
	Model      types.ModelConfig `json:"model"`
}

type recommendationsResponse struct {
	Recommendations []types.Recommendation `json:"recommendations"`
}

type installerResponse struct {
	InstallerRecommendations []types.FleetRecommendation `json:"installerRecommendations"`
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req homeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	window, err := recommend.ParseWindow(req.Window)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	recs, err := s.service.Recommend(ctx, req.Home, window, req.Model)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	s.publish(ctx, req.Location, recs[0])

	writeJSON(w, recommendationsResponse{Recommendations: recs})
}

func (s *Server) handleInstallerRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req installerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	recs, err := s.fleet(ctx, req.Homeowners, req.Model)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, installerResponse{InstallerRecommendations: recs})
}

// fleet runs the fleet aggregator and publishes every result.
func (s *Server) fleet(ctx context.Context, homes []types.Home, model types.ModelConfig) ([]types.FleetRecommendation, error) {
	if len(homes) > maxFleetSize {
		return nil, fmt.Errorf("%w: fleet has %d homeowners, at most %d are allowed", types.ErrMalformedProfile, len(homes), maxFleetSize)
	}
	recs, err := s.service.Fleet(ctx, homes, model)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		s.publish(ctx, rec.Location, rec.Recommendation)
	}
	log.Ctx(ctx).InfoContext(ctx, "served fleet recommendations", slog.Int("homes", len(recs)))
	return recs, nil
}

// legacyHome is the snake_case profile accepted by the /get-* routes.
type legacyHome struct {
	Location            string  `json:"location"`
	NumPanels           int     `json:"num_panels"`
	PanelPower          float64 `json:"panel_power"`
	BatteryCapacity     float64 `json:"battery_capacity"`
	BatteryEfficiency   float64 `json:"battery_efficiency"`
	NumBatteries        int     `json:"num_batteries"`
	InverterEfficiency  float64 `json:"inverter_efficiency"`
	InitialBatteryLevel float64 `json:"initial_battery_level"`
}

func (l legacyHome) home() types.Home {
	return types.Home{
		Location: l.Location,
		InstallationProfile: types.InstallationProfile{
			NumPanels:          l.NumPanels,
			PanelPowerW:        l.PanelPower,
			BatteryCapacityKWH: l.BatteryCapacity,
			NumBatteries:       l.NumBatteries,
			BatteryEfficiency:  l.BatteryEfficiency,
			BatteryLevelKWH:    l.InitialBatteryLevel,
			InverterEfficiency: l.InverterEfficiency,
		},
	}
}

type legacyRecommendation struct {
	// Timestamp is formatted like the forecast's dt_txt in the slot's zone.
	Timestamp      string   `json:"timestamp"`
	CloudCover     float64  `json:"cloud_cover"`
	Irradiance     *float64 `json:"irradiance"`
	MaxACCurrent   float64  `json:"max_ac_current"`
	Recommendation string   `json:"recommendation"`
}

func toLegacy(rec types.Recommendation) legacyRecommendation {
	return legacyRecommendation{
		Timestamp:      rec.Time.Format(time.DateTime),
		CloudCover:     rec.CloudCover,
		Irradiance:     rec.Irradiance,
		MaxACCurrent:   rec.MaxACCurrent,
		Recommendation: rec.Message,
	}
}

type legacyFleetRecommendation struct {
	Location       string               `json:"location"`
	Recommendation legacyRecommendation `json:"recommendation"`
}

func (s *Server) handleLegacyRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req legacyHome
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	recs, err := s.service.Recommend(ctx, req.home(), recommend.WindowNext, types.ModelConfig{})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	s.publish(ctx, req.Location, recs[0])

	out := make([]legacyRecommendation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toLegacy(rec))
	}
	writeJSON(w, struct {
		Recommendations []legacyRecommendation `json:"recommendations"`
	}{Recommendations: out})
}

func (s *Server) handleLegacyInstallerRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Homeowners []legacyHome `json:"homeowners"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	homes := make([]types.Home, 0, len(req.Homeowners))
	for _, h := range req.Homeowners {
		homes = append(homes, h.home())
	}
	recs, err := s.fleet(ctx, homes, types.ModelConfig{})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	out := make([]legacyFleetRecommendation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, legacyFleetRecommendation{
			Location:       rec.Location,
			Recommendation: toLegacy(rec.Recommendation),
		})
	}
	writeJSON(w, struct {
		InstallerRecommendations []legacyFleetRecommendation `json:"installer_recommendations"`
	}{InstallerRecommendations: out})
}
