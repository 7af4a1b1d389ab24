package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/kelvins/geocoder"
)

func TestGoogleGeocode(t *testing.T) {
	g := NewGoogle("key")
	var asked geocoder.Address
	g.lookup = func(a geocoder.Address) (geocoder.Location, error) {
		asked = a
		return geocoder.Location{Latitude: 21.66, Longitude: -158.05}, nil
	}

	lat, lng, err := g.Geocode(context.Background(), "  Pipeline ")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if lat != 21.66 || lng != -158.05 {
		t.Errorf("coords = %v,%v", lat, lng)
	}
	if asked.City != "Pipeline" {
		t.Errorf("address city = %q", asked.City)
	}
	if geocoder.ApiKey != "key" {
		t.Errorf("api key not propagated")
	}
}

func TestGoogleGeocodeErrors(t *testing.T) {
	if _, _, err := NewGoogle("").Geocode(context.Background(), "Pipeline"); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("missing key err = %v", err)
	}
	if _, _, err := NewGoogle("key").Geocode(context.Background(), " "); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("empty query err = %v", err)
	}

	g := NewGoogle("key")
	boom := errors.New("zero results")
	g.lookup = func(geocoder.Address) (geocoder.Location, error) { return geocoder.Location{}, boom }
	if _, _, err := g.Geocode(context.Background(), "Nowhere"); !errors.Is(err, boom) {
		t.Errorf("lookup err = %v", err)
	}
}

func TestGoogleGeocodeCancelledBeforeLookup(t *testing.T) {
	g := NewGoogle("key")
	called := false
	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		called = true
		return geocoder.Location{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := g.Geocode(ctx, "Pipeline"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Error("lookup ran for a cancelled context")
	}
}
