package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/raterudder/solaradvisor/pkg/recommend"
	"github.com/raterudder/solaradvisor/pkg/types"
)

// advisor is implemented by *recommend.Service.
type advisor interface {
	Recommend(ctx context.Context, home types.Home, window recommend.Window, override types.ModelConfig) ([]types.Recommendation, error)
	Fleet(ctx context.Context, homes []types.Home, override types.ModelConfig) ([]types.FleetRecommendation, error)
}

// advise returns the rows to print. Installer mode returns the fleet's
// day-ahead recommendations and fails on the first home that can't be
// served. Homeowner mode keeps going past failed homes and returns their
// errors joined.
func advise(ctx context.Context, a advisor, homes []types.Home, window recommend.Window, installer bool) ([]types.FleetRecommendation, error) {
	if installer {
		return a.Fleet(ctx, homes, types.ModelConfig{})
	}

	var (
		rows []types.FleetRecommendation
		errs []error
	)
	for _, h := range homes {
		recs, err := a.Recommend(ctx, h, window, types.ModelConfig{})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.Location, err))
			continue
		}
		for _, rec := range recs {
			rows = append(rows, types.FleetRecommendation{Location: h.Location, Recommendation: rec})
		}
	}
	return rows, errors.Join(errs...)
}

func render(w io.Writer, rows []types.FleetRecommendation) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Location", "Time", "Temp °C", "Cloud %", "Irradiance W/m²", "Max AC A", "Condition", "Recommendation"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	for _, row := range rows {
		rec := row.Recommendation
		irradiance := "-"
		if rec.Irradiance != nil {
			irradiance = strconv.FormatFloat(*rec.Irradiance, 'f', 0, 64)
		}
		table.Append([]string{
			row.Location,
			rec.Time.Format("2006-01-02 15:04 MST"),
			strconv.FormatFloat(rec.TemperatureC, 'f', 1, 64),
			strconv.FormatFloat(rec.CloudCover, 'f', 0, 64),
			irradiance,
			strconv.FormatFloat(rec.MaxACCurrent, 'f', 2, 64),
			string(rec.Category),
			rec.Message,
		})
	}
	table.Render()
}
