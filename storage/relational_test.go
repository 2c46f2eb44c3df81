package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmetro/transit/model"
	"github.com/openmetro/transit/storage"
	"github.com/openmetro/transit/testutil"
)

// fixtureFiles is a small network: two routes serving a downtown
// stop, a weekday and a weekend service, one holiday exception each
// way, and a night trip past midnight. 2026-01-05 is a Monday.
func fixtureFiles() map[string][]string {
	return map[string][]string{
		"stops.txt": {
			"stop_id,stop_code,stop_name,stop_lat,stop_lon",
			"ST1,MS1,Main St Station,40.7128,-74.0060",
			"ST2,,Elm & 2nd,40.7138,-74.0060",
			"ST3,,Remote Depot,41.5000,-74.0060",
		},
		"routes.txt": {
			"route_id,route_short_name,route_long_name,route_type",
			"R1,10,Crosstown,3",
			"R2,,Night Owl,3",
		},
		"trips.txt": {
			"trip_id,route_id,service_id,trip_headsign,direction_id",
			"T1,R1,S_WD,Downtown,0",
			"T2,R1,S_WE,Downtown,0",
			"T3,R2,S_WD,Depot,1",
			"T4,R1,S_HOL,Downtown,0",
			"T5,R1,S_WD,Uptown,1",
		},
		"stop_times.txt": {
			"trip_id,stop_id,arrival_time,departure_time,stop_sequence",
			"T1,ST1,08:00:00,08:00:30,1",
			"T1,ST2,08:05:00,08:05:00,2",
			"T2,ST1,09:00:00,09:00:00,1",
			"T3,ST1,25:15:00,25:15:00,1",
			"T4,ST1,10:00:00,10:00:00,1",
			"T5,ST1,23:30:00,23:30:00,1",
		},
		"calendar.txt": {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"S_WD,1,1,1,1,1,0,0,20260101,20261231",
			"S_WE,0,0,0,0,0,1,1,20260101,20261231",
		},
		"calendar_dates.txt": {
			"service_id,date,exception_type",
			"S_WD,20260119,2",
			"S_HOL,20260104,1",
		},
	}
}

func TestActiveServices(t *testing.T) {
	store := testutil.BuildStore(t, fixtureFiles())

	// A plain Monday runs the weekday service only.
	active, err := store.ActiveServices("20260105")
	require.NoError(t, err)
	assert.Equal(t, []string{"S_WD"}, active)

	// Saturday runs the weekend service.
	active, err = store.ActiveServices("20260110")
	require.NoError(t, err)
	assert.Equal(t, []string{"S_WE"}, active)

	// A removed exception knocks out the weekday service on a
	// Monday.
	active, err = store.ActiveServices("20260119")
	require.NoError(t, err)
	assert.NotContains(t, active, "S_WD")

	// An added exception activates a service the weekly pattern
	// never mentions, alongside the regular Sunday service.
	active, err = store.ActiveServices("20260104")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"S_WE", "S_HOL"}, active)

	// Outside every calendar window nothing runs.
	active, err = store.ActiveServices("20250601")
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = store.ActiveServices("2026-01-05")
	assert.Error(t, err)
}

func TestScheduleAtStop(t *testing.T) {
	store := testutil.BuildStore(t, fixtureFiles())

	entries, err := store.ScheduleAtStop(storage.ScheduleFilter{
		StopID:     "ST1",
		ServiceIDs: []string{"S_WD"},
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Ordered by arrival within the service day. The 25:15:00 night
	// trip stays after 23:30:00 instead of wrapping to the morning.
	assert.Equal(t, "T1", entries[0].TripID)
	assert.Equal(t, "T5", entries[1].TripID)
	assert.Equal(t, "T3", entries[2].TripID)
	assert.Equal(t, model.ServiceTime("25:15:00"), entries[2].Arrival)

	// Route name composes short and long names; long-only routes
	// use the long name alone.
	assert.Equal(t, "10 Crosstown", entries[0].RouteName)
	assert.Equal(t, "Night Owl", entries[2].RouteName)

	assert.Equal(t, "Downtown", entries[0].Headsign)
	assert.Equal(t, uint32(1), entries[0].StopSequence)
}

func TestScheduleAtStopRouteFilter(t *testing.T) {
	store := testutil.BuildStore(t, fixtureFiles())

	entries, err := store.ScheduleAtStop(storage.ScheduleFilter{
		StopID:     "ST1",
		ServiceIDs: []string{"S_WD"},
		RouteID:    "R2",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "T3", entries[0].TripID)
}

func TestScheduleAtStopEmptyCases(t *testing.T) {
	store := testutil.BuildStore(t, fixtureFiles())

	// No active services means an empty day, not an error.
	entries, err := store.ScheduleAtStop(storage.ScheduleFilter{StopID: "ST1"})
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Unknown stop likewise.
	entries, err = store.ScheduleAtStop(storage.ScheduleFilter{
		StopID:     "NOPE",
		ServiceIDs: []string{"S_WD"},
	})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAgencies(t *testing.T) {
	store := testutil.BuildStore(t, fixtureFiles())

	agencies, err := store.Agencies()
	require.NoError(t, err)
	require.Len(t, agencies, 1)
	assert.Equal(t, "Foo Agency", agencies[0].Name)
}

func TestRoutesAndStops(t *testing.T) {
	store := testutil.BuildStore(t, fixtureFiles())

	routes, err := store.Routes()
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "R1", routes[0].ID)
	assert.Equal(t, "10 Crosstown", routes[0].DisplayName())
	assert.Equal(t, "Night Owl", routes[1].DisplayName())

	// ST1 sees both routes, ST2 only the crosstown.
	forStop, err := store.RoutesForStop("ST1")
	require.NoError(t, err)
	require.Len(t, forStop, 2)

	forStop, err = store.RoutesForStop("ST2")
	require.NoError(t, err)
	require.Len(t, forStop, 1)
	assert.Equal(t, "R1", forStop[0].ID)

	stops, err := store.StopsForRoute("R1")
	require.NoError(t, err)
	require.Len(t, stops, 2)

	// Unknown IDs come back empty.
	forStop, err = store.RoutesForStop("NOPE")
	require.NoError(t, err)
	assert.Empty(t, forStop)
}

func TestSearchStops(t *testing.T) {
	store := testutil.BuildStore(t, fixtureFiles())

	// Case-insensitive substring on the name.
	stops, err := store.SearchStops("main st", 10)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "ST1", stops[0].ID)

	// Matches on code too.
	stops, err = store.SearchStops("MS1", 10)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "ST1", stops[0].ID)

	// Substring anywhere in the name.
	stops, err = store.SearchStops("2nd", 10)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "ST2", stops[0].ID)

	// Limit is honored.
	stops, err = store.SearchStops("st", 1)
	require.NoError(t, err)
	assert.Len(t, stops, 1)

	// A non-positive limit returns every match.
	stops, err = store.SearchStops("st", 0)
	require.NoError(t, err)
	assert.Len(t, stops, 3)

	stops, err = store.SearchStops("st", -1)
	require.NoError(t, err)
	assert.Len(t, stops, 3)

	// Blank query matches nothing.
	stops, err = store.SearchStops("   ", 10)
	require.NoError(t, err)
	assert.Empty(t, stops)
}

func TestStopsWithin(t *testing.T) {
	store := testutil.BuildStore(t, fixtureFiles())

	// A 500m box around downtown catches ST1 and ST2 but not the
	// remote depot.
	box := storage.BoxAround(40.7128, -74.0060, 500)
	stops, err := store.StopsWithin(box)
	require.NoError(t, err)
	require.Len(t, stops, 2)
}

func TestStopRouteIndex(t *testing.T) {
	store := testutil.BuildStore(t, fixtureFiles())

	index, err := store.StopRouteIndex()
	require.NoError(t, err)

	assert.Equal(t, []string{"R1", "R2"}, index["ST1"])
	assert.Equal(t, []string{"R1"}, index["ST2"])
	assert.NotContains(t, index, "ST3")
}

func TestHasCalendarAndMetadata(t *testing.T) {
	store := testutil.BuildStore(t, fixtureFiles())

	has, err := store.HasCalendar()
	require.NoError(t, err)
	assert.True(t, has)

	imported, err := store.Metadata(storage.MetaImportedAt)
	require.NoError(t, err)
	assert.NotEmpty(t, imported)

	// Unknown keys read as empty, not as an error.
	missing, err := store.Metadata("no_such_key")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestHasCalendarWithoutCalendarFiles(t *testing.T) {
	files := fixtureFiles()
	delete(files, "calendar.txt")
	delete(files, "calendar_dates.txt")
	store := testutil.BuildStore(t, files)

	has, err := store.HasCalendar()
	require.NoError(t, err)
	assert.False(t, has)

	// Without calendar data every date resolves to an empty day.
	active, err := store.ActiveServices("20260105")
	require.NoError(t, err)
	assert.Empty(t, active)
}

// Close without Commit discards rows from a file still open, so a
// writer abandoned mid-run never leaves partial data behind.
func TestWriterCloseDiscardsOpenFile(t *testing.T) {
	store, err := storage.CreateSQLite(filepath.Join(t.TempDir(), "transit.db"))
	require.NoError(t, err)
	defer store.Close()

	w, err := store.NewWriter()
	require.NoError(t, err)

	require.NoError(t, w.BeginFile("stops"))
	require.NoError(t, w.WriteStop(&model.Stop{ID: "ST1", Name: "First", Lat: 40, Lon: -74}))
	require.NoError(t, w.Close())

	n, err := store.RowCount("stops")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
