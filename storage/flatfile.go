package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/openmetro/transit/model"
)

// File names of the flat-file artifacts, relative to the flat
// directory under the data root. They are rebuilt wholesale from the
// relational store and never modified in place.
const (
	FlatStopsFile      = "stops.json"
	FlatStopIndexFile  = "stop_index.json"
	FlatRoutesFile     = "routes.json"
	FlatStopRoutesFile = "stop_routes.json"
)

// FlatStop is the projection of a stop carried in stops.json.
type FlatStop struct {
	ID   string  `json:"id"`
	Code string  `json:"code,omitempty"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// FlatRoute is the projection of a route carried in routes.json.
type FlatRoute struct {
	ID        string `json:"id"`
	ShortName string `json:"short_name,omitempty"`
	LongName  string `json:"long_name,omitempty"`
	Type      int    `json:"type"`
	Color     string `json:"color,omitempty"`
}

// FlatFileStore answers a subset of the query surface straight from
// the precomputed JSON artifacts, with no relational engine. Each
// artifact is loaded at most once per process and treated as
// immutable afterwards; artifacts only change via a full rebuild
// between process restarts, so no invalidation is needed.
type FlatFileStore struct {
	dir string

	stopsOnce      sync.Once
	stops          []FlatStop
	stopsErr       error
	indexOnce      sync.Once
	index          map[string][]string
	indexErr       error
	routesOnce     sync.Once
	routes         []FlatRoute
	routesErr      error
	stopRoutesOnce sync.Once
	stopRoutes     map[string][]string
	stopRoutesErr  error
}

// NewFlatFileStore points at a directory of artifacts. Loading is
// lazy; Probe reports whether the artifacts are actually usable.
func NewFlatFileStore(dir string) *FlatFileStore {
	return &FlatFileStore{dir: dir}
}

// Probe reports whether the artifact set exists on disk.
func (s *FlatFileStore) Probe() bool {
	for _, name := range []string{FlatStopsFile, FlatStopIndexFile, FlatRoutesFile, FlatStopRoutesFile} {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
			return false
		}
	}
	return true
}

func loadArtifact(dir, name string, v interface{}) error {
	buf, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("%w: reading %s: %s", ErrUnavailable, name, err)
	}
	if err := json.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("%w: decoding %s: %s", ErrUnavailable, name, err)
	}
	return nil
}

func (s *FlatFileStore) loadStops() ([]FlatStop, error) {
	s.stopsOnce.Do(func() {
		s.stopsErr = loadArtifact(s.dir, FlatStopsFile, &s.stops)
	})
	return s.stops, s.stopsErr
}

func (s *FlatFileStore) loadIndex() (map[string][]string, error) {
	s.indexOnce.Do(func() {
		s.indexErr = loadArtifact(s.dir, FlatStopIndexFile, &s.index)
	})
	return s.index, s.indexErr
}

func (s *FlatFileStore) loadRoutes() ([]FlatRoute, error) {
	s.routesOnce.Do(func() {
		s.routesErr = loadArtifact(s.dir, FlatRoutesFile, &s.routes)
	})
	return s.routes, s.routesErr
}

func (s *FlatFileStore) loadStopRoutes() (map[string][]string, error) {
	s.stopRoutesOnce.Do(func() {
		s.stopRoutesErr = loadArtifact(s.dir, FlatStopRoutesFile, &s.stopRoutes)
	})
	return s.stopRoutes, s.stopRoutesErr
}

func (f FlatStop) asModel() model.Stop {
	return model.Stop{
		ID:   f.ID,
		Code: f.Code,
		Name: f.Name,
		Lat:  f.Lat,
		Lon:  f.Lon,
	}
}

func (f FlatRoute) asModel() model.Route {
	return model.Route{
		ID:        f.ID,
		ShortName: f.ShortName,
		LongName:  f.LongName,
		Type:      model.RouteType(f.Type),
		Color:     f.Color,
	}
}

func (s *FlatFileStore) Routes() ([]model.Route, error) {
	flat, err := s.loadRoutes()
	if err != nil {
		return nil, err
	}

	routes := make([]model.Route, 0, len(flat))
	for _, r := range flat {
		routes = append(routes, r.asModel())
	}
	return routes, nil
}

func (s *FlatFileStore) RoutesForStop(stopID string) ([]model.Route, error) {
	stopRoutes, err := s.loadStopRoutes()
	if err != nil {
		return nil, err
	}
	flat, err := s.loadRoutes()
	if err != nil {
		return nil, err
	}

	byID := map[string]FlatRoute{}
	for _, r := range flat {
		byID[r.ID] = r
	}

	routes := []model.Route{}
	for _, routeID := range stopRoutes[stopID] {
		if r, ok := byID[routeID]; ok {
			routes = append(routes, r.asModel())
		}
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].ID < routes[j].ID })

	return routes, nil
}

func (s *FlatFileStore) StopsForRoute(routeID string) ([]model.Stop, error) {
	stopRoutes, err := s.loadStopRoutes()
	if err != nil {
		return nil, err
	}
	flat, err := s.loadStops()
	if err != nil {
		return nil, err
	}

	serving := map[string]bool{}
	for stopID, routeIDs := range stopRoutes {
		for _, id := range routeIDs {
			if id == routeID {
				serving[stopID] = true
				break
			}
		}
	}

	stops := []model.Stop{}
	for _, st := range flat {
		if serving[st.ID] {
			stops = append(stops, st.asModel())
		}
	}
	sort.Slice(stops, func(i, j int) bool { return stops[i].Name < stops[j].Name })

	return stops, nil
}

// NearbyStops runs the same two-stage filter as the relational
// engine, in memory over the full stop list.
func (s *FlatFileStore) NearbyStops(lat, lon, radiusMeters float64, max int) ([]model.NearbyStop, error) {
	flat, err := s.loadStops()
	if err != nil {
		return nil, err
	}

	box := BoxAround(lat, lon, radiusMeters)
	candidates := []model.Stop{}
	for _, st := range flat {
		if st.Lat >= box.MinLat && st.Lat <= box.MaxLat &&
			st.Lon >= box.MinLon && st.Lon <= box.MaxLon {
			candidates = append(candidates, st.asModel())
		}
	}

	return RefineNearby(candidates, lat, lon, radiusMeters, max), nil
}

// SearchStops serves name search from the token index: exact and
// prefix key matches surface first, then a substring scan over the
// index keys as fallback.
func (s *FlatFileStore) SearchStops(query string, limit int) ([]model.Stop, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []model.Stop{}, nil
	}

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	flat, err := s.loadStops()
	if err != nil {
		return nil, err
	}

	byID := map[string]FlatStop{}
	for _, st := range flat {
		byID[st.ID] = st
	}

	keys := make([]string, 0, len(index))
	for key := range index {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	seen := map[string]bool{}
	stops := []model.Stop{}
	add := func(ids []string) {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			if st, ok := byID[id]; ok {
				stops = append(stops, st.asModel())
			}
		}
	}

	add(index[q])
	for _, key := range keys {
		if key != q && strings.HasPrefix(key, q) {
			add(index[key])
		}
	}
	for _, key := range keys {
		if strings.Contains(key, q) && !strings.HasPrefix(key, q) {
			add(index[key])
		}
	}

	if limit > 0 && len(stops) > limit {
		stops = stops[:limit]
	}

	return stops, nil
}
