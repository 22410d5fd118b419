package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
	"go.uber.org/zap"

	"github.com/i474232898/weatherornot/internal/common"
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Geocoder resolves a city name or ZIP code to coordinates.
type Geocoder interface {
	Locate(ctx context.Context, name string) (Coordinates, error)
}

// GoogleGeocoder resolves places with the Google Geocoding API.
type GoogleGeocoder struct {
	mu sync.Mutex
}

// geocoder keeps its key in a package variable, so there is one per process.
var (
	geocoderKeyOnce sync.Once
	geocoderKey     string
)

// NewGoogleGeocoder returns a geocoder using apiKey. The first key given in a
// process wins; a later, different key is ignored with a warning.
func NewGoogleGeocoder(apiKey string, logger *zap.Logger) *GoogleGeocoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	geocoderKeyOnce.Do(func() {
		geocoderKey = apiKey
		geocoder.ApiKey = apiKey
	})
	if apiKey != geocoderKey {
		logger.Warn("geocoder api key already set for this process, ignoring the new one")
	}
	return &GoogleGeocoder{}
}

func (g *GoogleGeocoder) Locate(ctx context.Context, name string) (Coordinates, error) {
	addr := geocoder.Address{City: name}
	if common.IsZip(name) {
		addr = geocoder.Address{PostalCode: name[:5], Country: "United States"}
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)

	// The library has no context support; abandon the call when ctx ends.
	go func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		loc, err := geocoder.Geocoding(addr)
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return Coordinates{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return Coordinates{}, fmt.Errorf("geocode %q: %w", name, r.err)
		}
		return Coordinates{Lat: r.loc.Latitude, Lon: r.loc.Longitude}, nil
	}
}
