package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfuelmap/fuelfinder/pkg/prezzi"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendKeepsOnlyMostRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := range 7 {
		err := store.Append(ctx, Params{
			City:       fmt.Sprintf("city-%d", i),
			RadiusKm:   10,
			Fuel:       prezzi.FuelBenzina,
			MaxResults: 5,
		})
		require.NoError(t, err)
	}

	entries, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, MaxEntries)
	assert.Equal(t, "city-6", entries[0].City)
	assert.Equal(t, "city-2", entries[len(entries)-1].City)
}

func TestAppendDeduplicatesRepeatedSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	roma := Params{City: "roma", RadiusKm: 10, Fuel: prezzi.FuelDiesel, MaxResults: 5}
	milano := Params{City: "milano", RadiusKm: 5, Fuel: prezzi.FuelBenzina, MaxResults: 5}

	require.NoError(t, store.Append(ctx, roma))
	require.NoError(t, store.Append(ctx, milano))
	require.NoError(t, store.Append(ctx, roma))

	entries, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "roma", entries[0].City)
	assert.Equal(t, "milano", entries[1].City)
}

func TestLogSearchLocationAggregates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Same area at 2-decimal precision.
	require.NoError(t, store.LogSearchLocation(ctx, 41.9021, 12.4963, 10))
	require.NoError(t, store.LogSearchLocation(ctx, 41.9038, 12.4958, 15))
	// A different area.
	require.NoError(t, store.LogSearchLocation(ctx, 45.4641, 9.1896, 5))

	locations, err := store.PopularLocations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, int64(2), locations[0].SearchCount)
	assert.InDelta(t, 41.90, locations[0].Latitude, 1e-9)
	assert.Equal(t, float64(15), locations[0].RadiusKm)
}
