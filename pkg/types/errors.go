package types

import "errors"

var (
	// ErrFetchFailed is returned when the forecast source could not be reached
	// or answered with a non-success status.
	ErrFetchFailed = errors.New("could not fetch weather data")

	// ErrNoForecast is returned when a forecast is empty or has no slot in the
	// requested time window.
	ErrNoForecast = errors.New("no forecast data for requested time window")

	// ErrMalformedProfile is returned when an installation profile or model
	// config has out-of-range values.
	ErrMalformedProfile = errors.New("malformed profile")

	// ErrFleetNotFound is returned by storage when a fleet roster doesn't exist.
	ErrFleetNotFound = errors.New("fleet not found")
)
