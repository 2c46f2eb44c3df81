package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmetro/transit/testutil"
)

func TestFetchDownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("archive bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "gtfs.zip")
	f := NewFetcher(time.Hour, testutil.Logger())

	require.NoError(t, f.Fetch(context.Background(), srv.URL, dest))

	buf, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(buf))
}

func TestFetchFollowsRedirects(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("redirected"))
	}))
	defer target.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "gtfs.zip")
	f := NewFetcher(time.Hour, testutil.Logger())

	require.NoError(t, f.Fetch(context.Background(), srv.URL, dest))

	buf, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "redirected", string(buf))
}

func TestFetchSkipsFreshArchive(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("new bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "gtfs.zip")
	require.NoError(t, os.WriteFile(dest, []byte("old bytes"), 0o644))

	f := NewFetcher(time.Hour, testutil.Logger())
	require.NoError(t, f.Fetch(context.Background(), srv.URL, dest))

	assert.Zero(t, hits)
	buf, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "old bytes", string(buf))
}

func TestFetchRedownloadsStaleArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("new bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "gtfs.zip")
	require.NoError(t, os.WriteFile(dest, []byte("old bytes"), 0o644))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(dest, old, old))

	f := NewFetcher(24*time.Hour, testutil.Logger())
	require.NoError(t, f.Fetch(context.Background(), srv.URL, dest))

	buf, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "new bytes", string(buf))
}

func TestFetchErrorStatusKeepsOldArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "gtfs.zip")
	require.NoError(t, os.WriteFile(dest, []byte("old bytes"), 0o644))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(dest, old, old))

	f := NewFetcher(24*time.Hour, testutil.Logger())
	err := f.Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	// The stale archive survives, and no temp files linger.
	buf, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "old bytes", string(buf))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
