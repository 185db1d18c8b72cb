// README: Resolves a free-text destination to a place via the Google Places text search.
package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"wander/internal/modules/tripgen"
)

// ErrNoMatch is returned when the Places API has no result for the query.
var ErrNoMatch = errors.New("maps: no place matches destination")

// DestinationResolver fills in tripgen.Location for requests that only carry a name.
type DestinationResolver struct {
	client   *maps.Client
	language string
}

// NewDestinationResolver creates a resolver with the given API key. Extra
// options (e.g. maps.WithBaseURL in tests) are passed to the maps client.
func NewDestinationResolver(apiKey, language string, opts ...maps.ClientOption) (*DestinationResolver, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	if language == "" {
		language = "en"
	}
	return &DestinationResolver{client: client, language: language}, nil
}

// Resolve returns the best text-search match for query.
func (r *DestinationResolver) Resolve(ctx context.Context, query string) (*tripgen.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrNoMatch
	}

	resp, err := r.client.TextSearch(ctx, &maps.TextSearchRequest{
		Query:    query,
		Language: r.language,
	})
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, ErrNoMatch
	}
	loc := locationFromResult(resp.Results[0])
	return &loc, nil
}

func locationFromResult(res maps.PlacesSearchResult) tripgen.Location {
	return tripgen.Location{
		Name:             res.Name,
		FormattedAddress: res.FormattedAddress,
		Lat:              res.Geometry.Location.Lat,
		Lng:              res.Geometry.Location.Lng,
		PlaceID:          res.PlaceID,
	}
}
