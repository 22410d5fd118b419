package weather

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a provider does not know the requested place.
	ErrNotFound = errors.New("location not found")

	// ErrNoProviders is returned when the service has nothing to ask.
	ErrNoProviders = errors.New("no weather providers configured")

	// ErrNoForecast is returned when no provider produced forecast data.
	ErrNoForecast = errors.New("no forecast data available")

	// ErrMalformed is returned when a success response lacks the fields a
	// snapshot is built from.
	ErrMalformed = errors.New("malformed weather data")
)

// Provider abstracts a weather data source (e.g. WeatherAPI, OpenWeatherMap, Open-Meteo).
// The provider is responsible for URL-encoding name.
type Provider interface {
	Name() string
	Current(ctx context.Context, name string) (Snapshot, error)
}

// ForecastProvider is implemented by providers that can also return daily forecasts.
type ForecastProvider interface {
	Provider
	Forecast(ctx context.Context, name string, days int) (Forecast, error)
}

// Reason returns the human-readable reason carried by err. Errors produced by
// upstream APIs expose it through a Reason method; everything else falls back
// to err.Error().
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var r interface{ Reason() string }
	if errors.As(err, &r) && r.Reason() != "" {
		return r.Reason()
	}
	return err.Error()
}
