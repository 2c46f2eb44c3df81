// Package export derives the flat-file JSON artifacts from a loaded
// relational store, for runtimes that cannot open the embedded
// database engine.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/openmetro/transit/storage"
)

// Run projects the store into the four artifacts under flatDir: the
// full stop list, the lowercase token index over stop name/code/id,
// the route list, and the stop to route-ids map. Artifacts share the
// store's lifecycle: rebuilt wholesale, never updated in place.
func Run(store storage.Reader, flatDir string, logger *slog.Logger) error {
	if err := os.MkdirAll(flatDir, 0o755); err != nil {
		return fmt.Errorf("creating flat dir: %w", err)
	}

	stops, err := store.Stops()
	if err != nil {
		return fmt.Errorf("reading stops: %w", err)
	}

	flatStops := make([]storage.FlatStop, 0, len(stops))
	index := map[string][]string{}
	addKey := func(key, stopID string) {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return
		}
		index[key] = append(index[key], stopID)
	}

	for _, st := range stops {
		flatStops = append(flatStops, storage.FlatStop{
			ID:   st.ID,
			Code: st.Code,
			Name: st.Name,
			Lat:  st.Lat,
			Lon:  st.Lon,
		})
		addKey(st.Name, st.ID)
		addKey(st.ID, st.ID)
		addKey(st.Code, st.ID)
	}

	routes, err := store.Routes()
	if err != nil {
		return fmt.Errorf("reading routes: %w", err)
	}

	flatRoutes := make([]storage.FlatRoute, 0, len(routes))
	for _, r := range routes {
		flatRoutes = append(flatRoutes, storage.FlatRoute{
			ID:        r.ID,
			ShortName: r.ShortName,
			LongName:  r.LongName,
			Type:      int(r.Type),
			Color:     r.Color,
		})
	}

	stopRoutes, err := store.StopRouteIndex()
	if err != nil {
		return fmt.Errorf("reading stop route index: %w", err)
	}

	artifacts := map[string]interface{}{
		storage.FlatStopsFile:      flatStops,
		storage.FlatStopIndexFile:  index,
		storage.FlatRoutesFile:     flatRoutes,
		storage.FlatStopRoutesFile: stopRoutes,
	}

	for name, v := range artifacts {
		if err := writeArtifact(flatDir, name, v); err != nil {
			return err
		}
	}

	logger.Info("flat-file artifacts written",
		"dir", flatDir,
		"stops", len(flatStops),
		"routes", len(flatRoutes),
		"index_keys", len(index),
	)
	return nil
}

// writeArtifact writes through a temp file and renames, so a crashed
// export never leaves a torn artifact behind.
func writeArtifact(dir, name string, v interface{}) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(dir, name+".*")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}

	_, err = tmp.Write(buf)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", name, err)
	}

	return nil
}
