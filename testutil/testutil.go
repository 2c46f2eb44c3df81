package testutil

// Helpers for building feed fixtures and loaded stores in tests.

import (
	"archive/zip"
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openmetro/transit/load"
	"github.com/openmetro/transit/storage"
)

// Logger discards everything. Pipeline functions take it so tests
// stay quiet.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fillDefaults adds minimal versions of the required files so a test
// only has to spell out the files it cares about.
func fillDefaults(files map[string][]string) {
	if files["agency.txt"] == nil {
		files["agency.txt"] = []string{
			"agency_id,agency_name,agency_url,agency_timezone",
			"FA,Foo Agency,http://example.com,UTC",
		}
	}
	if files["routes.txt"] == nil {
		files["routes.txt"] = []string{"route_id,route_type", "R1,3"}
	}
	if files["trips.txt"] == nil {
		files["trips.txt"] = []string{"trip_id,route_id,service_id", "T1,R1,S1"}
	}
	if files["stops.txt"] == nil {
		files["stops.txt"] = []string{"stop_id,stop_name,stop_lat,stop_lon", "ST1,First,40.0,-74.0"}
	}
	if files["stop_times.txt"] == nil {
		files["stop_times.txt"] = []string{
			"trip_id,stop_id,arrival_time,departure_time,stop_sequence",
			"T1,ST1,08:00:00,08:00:30,1",
		}
	}
}

// BuildFeedDir writes the given tabular files into a temp directory
// laid out like an extracted feed, filling in required files the test
// did not provide.
func BuildFeedDir(t testing.TB, files map[string][]string) string {
	t.Helper()

	fillDefaults(files)

	dir := t.TempDir()
	for name, lines := range files {
		err := os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")), 0o644)
		require.NoError(t, err)
	}
	return dir
}

// BuildZip packs the given files into an in-memory feed archive.
func BuildZip(t testing.TB, files map[string][]string) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for name, lines := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(strings.Join(lines, "\n")))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

// BuildStore loads the given feed files into a fresh on-disk store
// and returns it open for reading.
func BuildStore(t testing.TB, files map[string][]string) *storage.RelationalStore {
	t.Helper()

	feedDir := BuildFeedDir(t, files)
	storePath := filepath.Join(t.TempDir(), "transit.db")

	require.NoError(t, load.ImportSQLite(feedDir, storePath, Logger()))

	store, err := storage.OpenSQLite(storePath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}
