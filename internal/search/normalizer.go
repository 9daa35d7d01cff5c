package search

import (
	"math"
	"sort"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/openfuelmap/fuelfinder/internal/geo"
	"github.com/openfuelmap/fuelfinder/pkg/prezzi"
)

const metersPerKm = 1000.0

// Normalize converts raw provider records into canonical stations: records
// lacking an identifier, coordinates or a parseable price for the requested
// fuel are skipped and counted. Stations are sorted ascending by the
// requested fuel's price with distance as tie-break, then truncated to
// maxResults. Truncation happens only after sorting so a cheap but distant
// station is never disqualified before comparison. The second return value
// is the skip count.
func Normalize(records []prezzi.StationRecord, fuel prezzi.FuelType, origin geo.Point, maxResults int) ([]Station, int) {
	maxResults = ClampResults(maxResults)

	stations := make([]Station, 0, len(records))
	skipped := 0
	for _, rec := range records {
		st, ok := normalizeRecord(rec, fuel, origin)
		if !ok {
			skipped++
			continue
		}
		stations = append(stations, st)
	}

	// Stable sort: equal price and distance resolve to first-encountered.
	sort.SliceStable(stations, func(i, j int) bool {
		pi, pj := stations[i].PriceFor(fuel), stations[j].PriceFor(fuel)
		if pi != pj {
			return pi < pj
		}
		return stations[i].DistanceKm < stations[j].DistanceKm
	})

	if len(stations) > maxResults {
		stations = stations[:maxResults]
	}

	return stations, skipped
}

func normalizeRecord(rec prezzi.StationRecord, fuel prezzi.FuelType, origin geo.Point) (Station, bool) {
	if rec.ID == "" {
		return Station{}, false
	}

	lat, err := prezzi.ParseDecimal(rec.Latitudine)
	if err != nil {
		return Station{}, false
	}
	lon, err := prezzi.ParseDecimal(rec.Longitudine)
	if err != nil {
		return Station{}, false
	}
	if lat == 0 && lon == 0 {
		return Station{}, false
	}

	raw, ok := rec.QuoteFor(fuel.APIName())
	if !ok {
		return Station{}, false
	}
	requested, err := prezzi.ParseDecimal(raw)
	if err != nil || requested <= 0 {
		return Station{}, false
	}

	prices := make([]FuelPrice, 0, len(rec.Carburanti))
	for _, ft := range prezzi.FuelTypes() {
		quote, ok := rec.QuoteFor(ft.APIName())
		if !ok {
			continue
		}
		price, err := prezzi.ParseDecimal(quote)
		if err != nil || price <= 0 {
			continue
		}
		prices = append(prices, FuelPrice{Type: ft, Price: price})
	}
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Price < prices[j].Price
	})

	distance := gpx.Distance2D(origin.Latitude, origin.Longitude, lat, lon, true) / metersPerKm

	return Station{
		ID:         rec.ID,
		Operator:   rec.Gestore,
		Address:    rec.Indirizzo,
		Latitude:   lat,
		Longitude:  lon,
		DistanceKm: roundKm(distance),
		FuelPrices: prices,
	}, true
}

// roundKm rounds a distance to 2 decimals for display stability.
func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
