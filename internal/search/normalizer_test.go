package search

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfuelmap/fuelfinder/internal/geo"
	"github.com/openfuelmap/fuelfinder/pkg/prezzi"
)

var testOrigin = geo.Point{Latitude: 41.9028, Longitude: 12.4964}

func record(id, lat, lon, price string) prezzi.StationRecord {
	return prezzi.StationRecord{
		ID:          id,
		Indirizzo:   "Via Roma " + id,
		Latitudine:  lat,
		Longitudine: lon,
		Carburanti:  []prezzi.FuelQuote{{Tipo: "benzina", Prezzo: price}},
	}
}

func TestNormalizeSortsByPriceThenDistance(t *testing.T) {
	records := []prezzi.StationRecord{
		record("far-cheap", "42.1", "12.6", "1.750"),
		record("near-expensive", "41.903", "12.497", "1.950"),
		record("near-cheap", "41.904", "12.498", "1.750"),
		record("mid", "41.95", "12.52", "1.800"),
	}

	stations, skipped := Normalize(records, prezzi.FuelBenzina, testOrigin, 10)
	require.Len(t, stations, 4)
	assert.Zero(t, skipped)

	// Price ascending, equal prices resolved by ascending distance.
	for i := 1; i < len(stations); i++ {
		a, b := stations[i-1], stations[i]
		pa, pb := a.PriceFor(prezzi.FuelBenzina), b.PriceFor(prezzi.FuelBenzina)
		assert.LessOrEqual(t, pa, pb)
		if pa == pb {
			assert.LessOrEqual(t, a.DistanceKm, b.DistanceKm)
		}
	}
	assert.Equal(t, "near-cheap", stations[0].ID)
	assert.Equal(t, "far-cheap", stations[1].ID)
}

func TestNormalizeTruncatesAfterSorting(t *testing.T) {
	// The cheapest station arrives last; pre-sort truncation would lose it.
	records := []prezzi.StationRecord{
		record("a", "41.91", "12.50", "1.900"),
		record("b", "41.92", "12.51", "1.880"),
		record("c", "41.93", "12.52", "1.870"),
		record("cheapest", "42.05", "12.60", "1.700"),
	}

	stations, _ := Normalize(records, prezzi.FuelBenzina, testOrigin, 2)
	require.Len(t, stations, 2)
	assert.Equal(t, "cheapest", stations[0].ID)
	assert.Equal(t, "c", stations[1].ID)
}

func TestNormalizeSkipsIncompleteRecords(t *testing.T) {
	records := []prezzi.StationRecord{
		record("ok", "41.91", "12.50", "1.850"),
		record("bad-price", "41.92", "12.51", "n/a"),
		record("zero-coords", "0", "0", "1.800"),
		record("bad-lat", "not-a-number", "12.51", "1.800"),
		record("", "41.93", "12.52", "1.800"),
		{
			ID:          "no-benzina",
			Indirizzo:   "Via Napoli 9",
			Latitudine:  "41.94",
			Longitudine: "12.53",
			Carburanti:  []prezzi.FuelQuote{{Tipo: "gasolio", Prezzo: "1.700"}},
		},
	}

	stations, skipped := Normalize(records, prezzi.FuelBenzina, testOrigin, 10)
	require.Len(t, stations, 1)
	assert.Equal(t, "ok", stations[0].ID)
	assert.Equal(t, 5, skipped)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	records := []prezzi.StationRecord{
		record("a", "41.91", "12.50", "1.900"),
		record("b", "41.92", "12.51", "1.880"),
		record("bad", "x", "12.51", "1.880"),
	}

	first, firstSkipped := Normalize(records, prezzi.FuelBenzina, testOrigin, 10)
	second, secondSkipped := Normalize(records, prezzi.FuelBenzina, testOrigin, 10)

	assert.Equal(t, first, second)
	assert.Equal(t, firstSkipped, secondSkipped)
}

func TestNormalizeDistanceRounding(t *testing.T) {
	stations, _ := Normalize([]prezzi.StationRecord{
		record("a", "41.95", "12.55", "1.850"),
	}, prezzi.FuelBenzina, testOrigin, 10)
	require.Len(t, stations, 1)

	d := stations[0].DistanceKm
	assert.Positive(t, d)
	assert.Equal(t, math.Round(d*100)/100, d, "distance must carry at most 2 decimals")
}

func TestNormalizeFuelPricesOrderedAscending(t *testing.T) {
	rec := prezzi.StationRecord{
		ID:          "multi",
		Indirizzo:   "Via Torino 4",
		Latitudine:  "41.91",
		Longitudine: "12.50",
		Carburanti: []prezzi.FuelQuote{
			{Tipo: "benzina", Prezzo: "1.899"},
			{Tipo: "gasolio", Prezzo: "1.799"},
			{Tipo: "GPL", Prezzo: "0.749"},
			{Tipo: "metano", Prezzo: "broken"},
		},
	}

	stations, skipped := Normalize([]prezzi.StationRecord{rec}, prezzi.FuelBenzina, testOrigin, 10)
	require.Len(t, stations, 1)
	assert.Zero(t, skipped, "an unparseable price for another fuel is dropped, not a skip")

	prices := stations[0].FuelPrices
	require.Len(t, prices, 3)
	for i := 1; i < len(prices); i++ {
		assert.LessOrEqual(t, prices[i-1].Price, prices[i].Price)
	}
	assert.Equal(t, prezzi.FuelGPL, prices[0].Type)
}

func TestNormalizeTieBreakIsFirstEncountered(t *testing.T) {
	// Same price, same coordinates: stable sort keeps input order.
	records := []prezzi.StationRecord{
		record("first", "41.91", "12.50", "1.850"),
		record("second", "41.91", "12.50", "1.850"),
	}

	for range 5 {
		stations, _ := Normalize(records, prezzi.FuelBenzina, testOrigin, 10)
		require.Len(t, stations, 2)
		assert.Equal(t, "first", stations[0].ID)
	}
}

func TestNormalizeManyRecords(t *testing.T) {
	var records []prezzi.StationRecord
	for i := range 30 {
		records = append(records, record(
			fmt.Sprintf("s%02d", i),
			fmt.Sprintf("41.9%02d", i),
			"12.50",
			fmt.Sprintf("1.%03d", 999-i),
		))
	}

	stations, skipped := Normalize(records, prezzi.FuelBenzina, testOrigin, 50)
	assert.Zero(t, skipped)
	// maxResults is clamped to the policy bound even above it.
	assert.Len(t, stations, MaxResults)
}
