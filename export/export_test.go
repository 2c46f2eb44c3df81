package export_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmetro/transit/export"
	"github.com/openmetro/transit/model"
	"github.com/openmetro/transit/storage"
	"github.com/openmetro/transit/testutil"
)

func exportFixture() map[string][]string {
	return map[string][]string{
		"stops.txt": {
			"stop_id,stop_code,stop_name,stop_lat,stop_lon",
			"ST1,MS1,Main St Station,40.7128,-74.0060",
			"ST2,,Elm & 2nd,40.7138,-74.0060",
		},
		"routes.txt": {
			"route_id,route_short_name,route_long_name,route_type",
			"R1,10,Crosstown,3",
			"R2,,Night Owl,3",
		},
		"trips.txt": {
			"trip_id,route_id,service_id",
			"T1,R1,S1",
			"T2,R2,S1",
		},
		"stop_times.txt": {
			"trip_id,stop_id,arrival_time,departure_time,stop_sequence",
			"T1,ST1,08:00:00,08:00:00,1",
			"T1,ST2,08:05:00,08:05:00,2",
			"T2,ST1,09:00:00,09:00:00,1",
		},
	}
}

func buildFlat(t *testing.T) (*storage.RelationalStore, *storage.FlatFileStore) {
	t.Helper()

	store := testutil.BuildStore(t, exportFixture())

	flatDir := t.TempDir()
	require.NoError(t, export.Run(store, flatDir, testutil.Logger()))

	flat := storage.NewFlatFileStore(flatDir)
	require.True(t, flat.Probe())
	return store, flat
}

func TestProbeFailsWithoutArtifacts(t *testing.T) {
	flat := storage.NewFlatFileStore(t.TempDir())
	assert.False(t, flat.Probe())
}

// The flat-file engine must agree with the relational one on the
// queries both can answer.
func TestFlatMatchesRelational(t *testing.T) {
	store, flat := buildFlat(t)

	relRoutes, err := store.Routes()
	require.NoError(t, err)
	flatRoutes, err := flat.Routes()
	require.NoError(t, err)
	require.Len(t, flatRoutes, len(relRoutes))
	for i := range relRoutes {
		assert.Equal(t, relRoutes[i].ID, flatRoutes[i].ID)
		assert.Equal(t, relRoutes[i].DisplayName(), flatRoutes[i].DisplayName())
	}

	for _, stopID := range []string{"ST1", "ST2", "NOPE"} {
		relFor, err := store.RoutesForStop(stopID)
		require.NoError(t, err)
		flatFor, err := flat.RoutesForStop(stopID)
		require.NoError(t, err)

		relIDs := routeIDs(relFor)
		assert.ElementsMatch(t, relIDs, routeIDs(flatFor), "stop %s", stopID)
	}

	for _, routeID := range []string{"R1", "R2", "NOPE"} {
		relStops, err := store.StopsForRoute(routeID)
		require.NoError(t, err)
		flatStops, err := flat.StopsForRoute(routeID)
		require.NoError(t, err)

		assert.Len(t, flatStops, len(relStops), "route %s", routeID)
	}

	for _, query := range []string{"main st", "ms1", "2nd", "station", "nope"} {
		relHits, err := store.SearchStops(query, 10)
		require.NoError(t, err)
		flatHits, err := flat.SearchStops(query, 10)
		require.NoError(t, err)

		assert.ElementsMatch(t, stopIDs(relHits), stopIDs(flatHits), "query %q", query)
	}

	for _, radius := range []float64{50, 500, 5000} {
		candidates, err := store.StopsWithin(storage.BoxAround(40.7128, -74.0060, radius))
		require.NoError(t, err)
		relNearby := storage.RefineNearby(candidates, 40.7128, -74.0060, radius, 50)

		flatNearby, err := flat.NearbyStops(40.7128, -74.0060, radius, 50)
		require.NoError(t, err)

		require.Len(t, flatNearby, len(relNearby), "radius %v", radius)
		for i := range relNearby {
			assert.Equal(t, relNearby[i].ID, flatNearby[i].ID)
			assert.InDelta(t, relNearby[i].DistanceMeters, flatNearby[i].DistanceMeters, 0.01)
		}
	}
}

func TestFlatNearbyStops(t *testing.T) {
	_, flat := buildFlat(t)

	nearby, err := flat.NearbyStops(40.7128, -74.0060, 500, 50)
	require.NoError(t, err)
	require.Len(t, nearby, 2)
	assert.Equal(t, "ST1", nearby[0].ID)
	assert.Zero(t, nearby[0].DistanceMeters)
	assert.Greater(t, nearby[1].DistanceMeters, 0.0)
}

func TestFlatSearchStops(t *testing.T) {
	_, flat := buildFlat(t)

	// Prefix of the full name.
	stops, err := flat.SearchStops("main st", 10)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "ST1", stops[0].ID)

	// Code lookup.
	stops, err = flat.SearchStops("ms1", 10)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "ST1", stops[0].ID)

	// Substring fallback.
	stops, err = flat.SearchStops("2nd", 10)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "ST2", stops[0].ID)

	// A non-positive limit returns every match.
	stops, err = flat.SearchStops("st", 0)
	require.NoError(t, err)
	assert.Len(t, stops, 2)

	stops, err = flat.SearchStops("", 10)
	require.NoError(t, err)
	assert.Empty(t, stops)
}

// Re-running export over the same store leaves a usable artifact set.
func TestExportIdempotent(t *testing.T) {
	store := testutil.BuildStore(t, exportFixture())
	flatDir := t.TempDir()

	require.NoError(t, export.Run(store, flatDir, testutil.Logger()))
	require.NoError(t, export.Run(store, flatDir, testutil.Logger()))

	flat := storage.NewFlatFileStore(flatDir)
	require.True(t, flat.Probe())

	routes, err := flat.Routes()
	require.NoError(t, err)
	assert.Len(t, routes, 2)
}

func routeIDs(routes []model.Route) []string {
	ids := make([]string, 0, len(routes))
	for _, r := range routes {
		ids = append(ids, r.ID)
	}
	return ids
}

func stopIDs(stops []model.Stop) []string {
	ids := make([]string, 0, len(stops))
	for _, st := range stops {
		ids = append(ids, st.ID)
	}
	return ids
}
