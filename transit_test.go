package transit_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	transit "github.com/openmetro/transit"
	"github.com/openmetro/transit/config"
	"github.com/openmetro/transit/export"
	"github.com/openmetro/transit/load"
	"github.com/openmetro/transit/storage"
	"github.com/openmetro/transit/testutil"
)

func engineFixture() map[string][]string {
	return map[string][]string{
		"stops.txt": {
			"stop_id,stop_code,stop_name,stop_lat,stop_lon",
			"ST1,MS1,Main St Station,40.7128,-74.0060",
			"ST2,,Elm & 2nd,40.7138,-74.0060",
		},
		"routes.txt": {
			"route_id,route_short_name,route_long_name,route_type",
			"R1,10,Crosstown,3",
		},
		"trips.txt": {
			"trip_id,route_id,service_id,trip_headsign,direction_id",
			"T1,R1,S_WD,Downtown,0",
			"T2,R1,S_WD,Downtown,0",
		},
		"stop_times.txt": {
			"trip_id,stop_id,arrival_time,departure_time,stop_sequence",
			"T1,ST1,08:00:00,08:00:00,1",
			"T2,ST1,25:15:00,25:15:00,1",
		},
		"calendar.txt": {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"S_WD,1,1,1,1,1,0,0,20260101,20261231",
		},
	}
}

// buildDataDir lays out a data directory the way the pipeline would:
// store file at the root, flat artifacts under flat/.
func buildDataDir(t *testing.T, withStore, withFlat bool) *config.Config {
	t.Helper()

	dataDir := t.TempDir()
	cfg := &config.Config{DataDir: dataDir, RefreshDays: 7, Port: 8080}

	if !withStore && !withFlat {
		return cfg
	}

	feedDir := testutil.BuildFeedDir(t, engineFixture())
	require.NoError(t, load.ImportSQLite(feedDir, cfg.StorePath(), testutil.Logger()))

	if withFlat {
		store, err := storage.OpenSQLite(cfg.StorePath())
		require.NoError(t, err)
		require.NoError(t, export.Run(store, cfg.FlatDir(), testutil.Logger()))
		require.NoError(t, store.Close())
	}

	if !withStore {
		require.NoError(t, os.Remove(cfg.StorePath()))
	}

	return cfg
}

func TestOpenPrefersRelational(t *testing.T) {
	cfg := buildDataDir(t, true, true)

	engine, err := transit.Open(cfg)
	require.NoError(t, err)
	defer engine.Close()

	// Schedule queries work, so this is not the flat-file engine.
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	entries, err := engine.Schedule("ST1", monday, "")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Post-midnight trip sorts last.
	assert.Equal(t, "T1", entries[0].TripID)
	assert.Equal(t, "T2", entries[1].TripID)
}

func TestOpenFallsBackToFlatFiles(t *testing.T) {
	cfg := buildDataDir(t, false, true)

	engine, err := transit.Open(cfg)
	require.NoError(t, err)
	defer engine.Close()

	routes, err := engine.Routes()
	require.NoError(t, err)
	assert.Len(t, routes, 1)

	// The flat-file engine cannot answer schedule queries.
	_, err = engine.Schedule("ST1", time.Now(), "")
	assert.True(t, errors.Is(err, transit.ErrScheduleUnavailable))
}

func TestOpenNothingAvailable(t *testing.T) {
	cfg := buildDataDir(t, false, false)

	_, err := transit.Open(cfg)
	assert.True(t, errors.Is(err, transit.ErrStoreUnavailable))
}

func TestScheduleResolvesCalendar(t *testing.T) {
	cfg := buildDataDir(t, true, false)

	engine, err := transit.Open(cfg)
	require.NoError(t, err)
	defer engine.Close()

	// Saturday has no weekday service.
	saturday := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	entries, err := engine.Schedule("ST1", saturday, "")
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Unknown stop is empty, not an error.
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	entries, err = engine.Schedule("NOPE", monday, "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNearbyAndSearch(t *testing.T) {
	cfg := buildDataDir(t, true, false)

	engine, err := transit.Open(cfg)
	require.NoError(t, err)
	defer engine.Close()

	nearby, err := engine.NearbyStops(40.7128, -74.0060, 500)
	require.NoError(t, err)
	require.Len(t, nearby, 2)
	assert.Equal(t, "ST1", nearby[0].ID)

	stops, err := engine.SearchStops("main", 10)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "ST1", stops[0].ID)
}

// A store that shows up after the engine was constructed is picked up
// on the next call; a failed open is not cached.
func TestServiceLazyReopen(t *testing.T) {
	dataDir := t.TempDir()
	storePath := filepath.Join(dataDir, "transit.db")

	svc := transit.NewService(func() (storage.Reader, error) {
		return storage.OpenSQLite(storePath)
	})
	defer svc.Close()

	_, err := svc.Routes()
	require.Error(t, err)

	feedDir := testutil.BuildFeedDir(t, engineFixture())
	require.NoError(t, load.ImportSQLite(feedDir, storePath, testutil.Logger()))

	routes, err := svc.Routes()
	require.NoError(t, err)
	assert.Len(t, routes, 1)
}
