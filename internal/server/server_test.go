package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfuelmap/fuelfinder/internal/controller"
	"github.com/openfuelmap/fuelfinder/internal/geo"
	"github.com/openfuelmap/fuelfinder/internal/history"
	"github.com/openfuelmap/fuelfinder/internal/markers"
	"github.com/openfuelmap/fuelfinder/internal/search"
	"github.com/openfuelmap/fuelfinder/pkg/prezzi"
)

type stubSearcher struct {
	outcome search.Outcome
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ float64, _ prezzi.FuelType, _ int) search.Outcome {
	return s.outcome
}

type stubHistory struct {
	entries   []history.Params
	locations []history.Location
}

func (s *stubHistory) Recent(_ context.Context, _ int) ([]history.Params, error) {
	return s.entries, nil
}

func (s *stubHistory) PopularLocations(_ context.Context, _ int) ([]history.Location, error) {
	return s.locations, nil
}

func newTestServer(t *testing.T, outcome search.Outcome, store HistoryReader) (*Server, http.Handler) {
	t.Helper()

	surface := markers.NewStateSurface()
	registry := markers.NewRegistry(surface, nil, nil)
	ctrl := controller.New(controller.Options{
		Searcher: &stubSearcher{outcome: outcome},
		Registry: registry,
	})

	srv := New(Options{
		Controller: ctrl,
		Registry:   registry,
		Surface:    surface,
		History:    store,
	})
	return srv, srv.Router()
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSearchFlow(t *testing.T) {
	outcome := search.Outcome{
		Stations: []search.Station{{
			ID:         "st-1",
			Operator:   "Q8",
			Address:    "Via Roma 1",
			Latitude:   41.91,
			Longitude:  12.50,
			DistanceKm: 1.5,
			FuelPrices: []search.FuelPrice{{Type: prezzi.FuelBenzina, Price: 1.755}},
		}},
		Origin:   geo.Point{Latitude: 41.9028, Longitude: 12.4964},
		Resolved: true,
	}
	_, handler := newTestServer(t, outcome, nil)

	rec := doJSON(t, handler, http.MethodPost, "/api/search", `{"city":"roma","fuel":"benzina"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		rec := doJSON(t, handler, http.MethodGet, "/api/state", "")
		var state controller.State
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
		return !state.Loading && len(state.Stations) == 1
	}, time.Second, 5*time.Millisecond)

	rec = doJSON(t, handler, http.MethodGet, "/api/map", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap markers.SurfaceState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Markers, 1)
	assert.True(t, snap.Viewport.Valid)
	assert.Contains(t, snap.Markers[0].Popup, "Q8")
}

func TestSearchValidation(t *testing.T) {
	_, handler := newTestServer(t, search.Outcome{}, nil)

	rec := doJSON(t, handler, http.MethodPost, "/api/search", `{"city":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "city is required")

	rec = doJSON(t, handler, http.MethodPost, "/api/search", `{"city":"roma","fuel":"kerosene"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/search", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFuelChangeValidation(t *testing.T) {
	_, handler := newTestServer(t, search.Outcome{}, nil)

	rec := doJSON(t, handler, http.MethodPost, "/api/fuel", `{"fuel":"diesel"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/fuel", `{"fuel":"jetfuel"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLanguageChange(t *testing.T) {
	_, handler := newTestServer(t, search.Outcome{}, nil)

	rec := doJSON(t, handler, http.MethodPost, "/api/language", `{"language":"english"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"language":"en"}`, rec.Body.String())

	// Unsupported languages fall back to the default.
	rec = doJSON(t, handler, http.MethodPost, "/api/language", `{"language":"de"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"language":"it"}`, rec.Body.String())
}

func TestFocusUnknownStationIsNoOp(t *testing.T) {
	_, handler := newTestServer(t, search.Outcome{}, nil)

	rec := doJSON(t, handler, http.MethodPost, "/api/focus/nope", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	store := &stubHistory{
		entries: []history.Params{
			{City: "roma", RadiusKm: 10, Fuel: prezzi.FuelBenzina, MaxResults: 5},
		},
		locations: []history.Location{
			{Latitude: 41.90, Longitude: 12.50, RadiusKm: 10, SearchCount: 3},
		},
	}
	_, handler := newTestServer(t, search.Outcome{}, store)

	rec := doJSON(t, handler, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []history.Params
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "roma", entries[0].City)

	rec = doJSON(t, handler, http.MethodGet, "/api/popular", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var locations []history.Location
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &locations))
	require.Len(t, locations, 1)
	assert.Equal(t, int64(3), locations[0].SearchCount)
}

func TestHistoryWithoutStoreReturnsEmptyList(t *testing.T) {
	_, handler := newTestServer(t, search.Outcome{}, nil)

	rec := doJSON(t, handler, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	_, handler := newTestServer(t, search.Outcome{}, nil)

	rec := doJSON(t, handler, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
