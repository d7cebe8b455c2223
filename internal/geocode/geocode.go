// Package geocode resolves a coordinate into a short human-readable place name.
package geocode

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/relabs-tech/qibla_compass/internal/geo"
)

// ErrNoName is returned when no address component is suitable as a label.
var ErrNoName = errors.New("no place name for location")

// Namer looks up a label for a position.
type Namer interface {
	PlaceName(ctx context.Context, p geo.GeoPoint) (string, error)
}

// componentPriority lists address component types from most to least specific.
var componentPriority = []string{
	"locality",
	"postal_town",
	"sublocality",
	"administrative_area_level_2",
	"administrative_area_level_1",
}

// reverseGeocoder is the subset of *maps.Client used here.
type reverseGeocoder interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// GoogleNamer uses the Google Geocoding API.
type GoogleNamer struct {
	client   reverseGeocoder
	language string
}

// NewGoogleNamer creates a namer with the given API key.
func NewGoogleNamer(apiKey, language string) (*GoogleNamer, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleNamer{client: client, language: language}, nil
}

func (g *GoogleNamer) PlaceName(ctx context.Context, p geo.GeoPoint) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: p.Latitude, Lng: p.Longitude},
		Language: g.language,
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	return PickName(results)
}

// PickName chooses the most specific named component across results.
func PickName(results []maps.GeocodingResult) (string, error) {
	for _, want := range componentPriority {
		for _, r := range results {
			for _, c := range r.AddressComponents {
				if c.LongName != "" && hasType(c.Types, want) {
					return c.LongName, nil
				}
			}
		}
	}
	return "", ErrNoName
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
