// Package search composes geocoding, price fetching and normalization into
// one request/response cycle producing a ranked, distance-annotated result.
package search

import (
	"github.com/openfuelmap/fuelfinder/internal/geo"
	"github.com/openfuelmap/fuelfinder/pkg/prezzi"
)

// FuelPrice is one fuel/price pair on a canonical station.
type FuelPrice struct {
	Type  prezzi.FuelType `json:"type"`
	Price float64         `json:"price"`
}

// Station is the canonical representation of one fuel station. ID is the
// provider identifier verbatim and stays stable across requests for the same
// physical station. FuelPrices is ordered ascending by price and always
// contains the requested fuel.
type Station struct {
	ID         string      `json:"id"`
	Operator   string      `json:"operator,omitempty"`
	Address    string      `json:"address"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	DistanceKm float64     `json:"distanceKm"`
	FuelPrices []FuelPrice `json:"fuelPrices"`
}

// PriceFor returns the station's price for a fuel type, or 0 if absent.
func (s Station) PriceFor(fuel prezzi.FuelType) float64 {
	for _, fp := range s.FuelPrices {
		if fp.Type == fuel {
			return fp.Price
		}
	}
	return 0
}

// Outcome is the result of one orchestrated search. It replaces, never
// merges with, the previous outcome. Empty Stations with an empty Warning is
// a legitimate "no matches" result, distinct from a service failure.
type Outcome struct {
	Stations []Station `json:"stations"`
	Warning  string    `json:"warning,omitempty"`

	// Origin is the geocoded search center, valid only when Resolved is set.
	Origin   geo.Point `json:"origin"`
	Resolved bool      `json:"resolved"`
}
