package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openfuelmap/fuelfinder/internal/geo"
	"github.com/openfuelmap/fuelfinder/pkg/prezzi"
)

// User-facing warning messages. All provider failures are mapped into these;
// no raw transport error crosses the orchestrator boundary.
const (
	warnGeocodeUnavailable = "City geocoding is temporarily unavailable. Please try again later."
	warnFetchUnavailable   = "Fuel price data is temporarily unavailable. Please try again later."
)

// CityResolver is the seam to the geo resolver.
type CityResolver interface {
	Resolve(ctx context.Context, city string) (geo.Point, error)
}

// StationSource is the seam to the clamped station fetcher.
type StationSource interface {
	Fetch(ctx context.Context, origin geo.Point, radiusKm float64, fuel prezzi.FuelType, maxResults int) ([]prezzi.StationRecord, error)
}

// Orchestrator runs one search: resolve city, fetch records, normalize.
type Orchestrator struct {
	resolver CityResolver
	fetcher  StationSource
	log      *slog.Logger
}

func NewOrchestrator(resolver CityResolver, fetcher StationSource, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{resolver: resolver, fetcher: fetcher, log: logger}
}

// Search never returns an error: every failure mode is mapped into the
// Outcome warning. An empty result with an empty warning means the search
// succeeded and genuinely matched nothing.
func (o *Orchestrator) Search(ctx context.Context, city string, radiusKm float64, fuel prezzi.FuelType, maxResults int) Outcome {
	origin, err := o.resolver.Resolve(ctx, city)
	if err != nil {
		var resErr *geo.ResolutionError
		if errors.As(err, &resErr) && resErr.Reason == geo.ReasonNotFound {
			o.log.Info("city not found", "city", city)
			return Outcome{
				Stations: []Station{},
				Warning:  fmt.Sprintf("City %q not found. Please check the city name and try again.", city),
			}
		}
		o.log.Warn("geocoding failed", "city", city, "error", err)
		return Outcome{Stations: []Station{}, Warning: warnGeocodeUnavailable}
	}

	records, err := o.fetcher.Fetch(ctx, origin, radiusKm, fuel, maxResults)
	if err != nil {
		o.log.Warn("station fetch failed", "city", city, "error", err)
		return Outcome{Stations: []Station{}, Warning: warnFetchUnavailable}
	}

	stations, skipped := Normalize(records, fuel, origin, maxResults)
	o.log.Debug("search completed",
		"city", city,
		"stations", len(stations),
		"skipped", skipped,
	)

	out := Outcome{Stations: stations, Origin: origin, Resolved: true}
	if skipped > 0 {
		out.Warning = fmt.Sprintf("%d stations excluded due to incomplete data", skipped)
	}
	return out
}
