// README: Google Maps Directions client used for trip route estimates.
package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"github.com/mimoreirac/pi-tercero/internal/apperr"
)

const (
	defaultLanguage = "es"
	defaultRegion   = "ec"
)

// ErrNoRoute is a NotFound so the access layer answers 404.
var ErrNoRoute = apperr.NotFound("no route found")

// RouteService handles interactions with Google Maps API.
type RouteService struct {
	client   *maps.Client
	language string
	region   string
}

// NewRouteService creates a RouteService with the given API key. Extra client
// options (e.g. maps.WithBaseURL in tests) are passed through.
func NewRouteService(apiKey string, opts ...maps.ClientOption) (*RouteService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client, language: defaultLanguage, region: defaultRegion}, nil
}

// GetTravelEstimate returns the driving duration and the human-readable distance
// of the first route from origin to destination.
func (s *RouteService) GetTravelEstimate(ctx context.Context, origin, destination string) (time.Duration, string, error) {
	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
		Language:    s.language,
		Region:      s.region,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return 0, "", fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, "", ErrNoRoute
	}

	leg := routes[0].Legs[0]
	return leg.Duration, leg.Distance.HumanReadable, nil
}
