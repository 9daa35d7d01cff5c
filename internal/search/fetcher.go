package search

import (
	"context"
	"log/slog"

	"github.com/openfuelmap/fuelfinder/internal/geo"
	"github.com/openfuelmap/fuelfinder/pkg/prezzi"
)

// Radius and result-count bounds enforced before every provider call,
// regardless of caller input.
const (
	MinRadiusKm = 1.0
	MaxRadiusKm = 200.0
	MinResults  = 1
	MaxResults  = 20
)

// ClampRadius bounds a search radius to [MinRadiusKm, MaxRadiusKm].
func ClampRadius(km float64) float64 {
	if km < MinRadiusKm {
		return MinRadiusKm
	}
	if km > MaxRadiusKm {
		return MaxRadiusKm
	}
	return km
}

// ClampResults bounds a result count to [MinResults, MaxResults].
func ClampResults(n int) int {
	if n < MinResults {
		return MinResults
	}
	if n > MaxResults {
		return MaxResults
	}
	return n
}

// PriceSource is the seam to the price provider client.
type PriceSource interface {
	Nearby(ctx context.Context, lat, lon, radiusKm float64, fuel prezzi.FuelType, maxResults int) ([]prezzi.StationRecord, error)
}

// Fetcher wraps the price provider with input clamping. Price data is
// volatile, so no caching happens here.
type Fetcher struct {
	source PriceSource
	log    *slog.Logger
}

func NewFetcher(source PriceSource, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{source: source, log: logger}
}

// Fetch returns raw station records around the origin.
func (f *Fetcher) Fetch(ctx context.Context, origin geo.Point, radiusKm float64, fuel prezzi.FuelType, maxResults int) ([]prezzi.StationRecord, error) {
	radiusKm = ClampRadius(radiusKm)
	maxResults = ClampResults(maxResults)

	f.log.Debug("fetching station records",
		"latitude", origin.Latitude,
		"longitude", origin.Longitude,
		"radius_km", radiusKm,
		"fuel", fuel,
		"max_results", maxResults,
	)

	return f.source.Nearby(ctx, origin.Latitude, origin.Longitude, radiusKm, fuel, maxResults)
}
