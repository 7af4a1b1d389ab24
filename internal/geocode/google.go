// Package geocode resolves place names to coordinates for the Stormglass
// by-name forecast path.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"
)

var (
	ErrEmptyQuery   = errors.New("geocode query cannot be empty")
	ErrNotAvailable = errors.New("google geocoder api key is not configured")
)

// Google geocodes through the Google Maps API. The underlying client keeps
// its key in a package variable, so calls are serialized.
type Google struct {
	mu     sync.Mutex
	apiKey string
	lookup func(geocoder.Address) (geocoder.Location, error)
}

func NewGoogle(apiKey string) *Google {
	return &Google{
		apiKey: apiKey,
		lookup: geocoder.Geocoding,
	}
}

// Geocode returns the coordinates Google reports for name.
func (g *Google) Geocode(ctx context.Context, name string) (float64, float64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, 0, ErrEmptyQuery
	}
	if g.apiKey == "" {
		return 0, 0, ErrNotAvailable
	}
	// ctx is only checked up front. The geocoder library takes no context,
	// so a lookup already in flight cannot be cancelled.
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	geocoder.ApiKey = g.apiKey
	loc, err := g.lookup(geocoder.Address{City: name})
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding %q: %w", name, err)
	}
	return loc.Latitude, loc.Longitude, nil
}
