// Package transit is the query surface over an imported transit
// schedule feed. Two engines implement it: one over the relational
// store, one over precomputed flat-file artifacts for runtimes where
// the embedded database engine cannot be loaded. Open picks the
// engine once at startup by probing what is available.
package transit

import (
	"errors"
	"sync"
	"time"

	"github.com/openmetro/transit/config"
	"github.com/openmetro/transit/model"
	"github.com/openmetro/transit/storage"
)

// NearbyResultCap bounds radius searches. Callers needing more
// results shrink the radius or paginate externally.
const NearbyResultCap = 50

var (
	// ErrStoreUnavailable means no usable store backs any engine.
	// Callers treat this as a degraded-feature state, not a crash.
	ErrStoreUnavailable = storage.ErrUnavailable

	// ErrScheduleUnavailable is returned by the flat-file engine,
	// whose artifacts carry no calendar or stop-time data.
	ErrScheduleUnavailable = errors.New("schedule queries need the relational store")
)

// Engine answers the read-only transit queries. All engines are safe
// for unbounded concurrent callers. "Not found" is an empty result,
// never an error; errors mean the backing store itself failed.
type Engine interface {
	Routes() ([]model.Route, error)
	RoutesForStop(stopID string) ([]model.Route, error)
	StopsForRoute(routeID string) ([]model.Stop, error)

	// Schedule lists the stop's visits on a calendar date,
	// optionally limited to one route, ordered by arrival time
	// within the service day.
	Schedule(stopID string, date time.Time, routeID string) ([]model.ScheduleEntry, error)

	// NearbyStops returns stops within radiusMeters of a point,
	// ascending by distance, capped at NearbyResultCap.
	NearbyStops(lat, lon, radiusMeters float64) ([]model.NearbyStop, error)

	// SearchStops matches query against stop names, codes and ids.
	// A limit of zero or less means no cap.
	SearchStops(query string, limit int) ([]model.Stop, error)

	Close() error
}

// Open selects an engine for this process: the relational store when
// it is present and loadable, else the flat-file artifacts. The
// choice is made once; availability checks do not leak into call
// sites.
func Open(cfg *config.Config) (Engine, error) {
	if cfg.PostgresDSN != "" {
		dsn := cfg.PostgresDSN
		store, err := storage.OpenPostgres(dsn)
		if err != nil {
			return nil, err
		}
		return newService(store, func() (storage.Reader, error) {
			return storage.OpenPostgres(dsn)
		}), nil
	}

	path := cfg.StorePath()
	store, err := storage.OpenSQLite(path)
	if err == nil {
		return newService(store, func() (storage.Reader, error) {
			return storage.OpenSQLite(path)
		}), nil
	}

	flat := storage.NewFlatFileStore(cfg.FlatDir())
	if flat.Probe() {
		return &FlatService{store: flat}, nil
	}

	return nil, ErrStoreUnavailable
}

// Service is the relational engine. It holds at most one open store
// handle, lazily (re)opened on use: a failed open is never cached, so
// a store that appears later is picked up by the next query.
type Service struct {
	open func() (storage.Reader, error)

	mu     sync.Mutex
	reader storage.Reader
}

func newService(seed storage.Reader, open func() (storage.Reader, error)) *Service {
	return &Service{open: open, reader: seed}
}

// NewService returns a relational engine that opens its store with
// the given function on first use.
func NewService(open func() (storage.Reader, error)) *Service {
	return &Service{open: open}
}

func (s *Service) store() (storage.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reader != nil {
		return s.reader, nil
	}

	r, err := s.open()
	if err != nil {
		return nil, err
	}
	s.reader = r
	return r, nil
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reader == nil {
		return nil
	}
	err := s.reader.Close()
	s.reader = nil
	return err
}

func (s *Service) Routes() ([]model.Route, error) {
	r, err := s.store()
	if err != nil {
		return nil, err
	}
	return r.Routes()
}

func (s *Service) RoutesForStop(stopID string) ([]model.Route, error) {
	r, err := s.store()
	if err != nil {
		return nil, err
	}
	return r.RoutesForStop(stopID)
}

func (s *Service) StopsForRoute(routeID string) ([]model.Stop, error) {
	r, err := s.store()
	if err != nil {
		return nil, err
	}
	return r.StopsForRoute(routeID)
}

// Schedule resolves the active service set for the date, then joins
// the stop's stop_times against trips in that set. An empty active
// set, an unknown stop and a date outside every calendar window all
// yield an empty result.
func (s *Service) Schedule(stopID string, date time.Time, routeID string) ([]model.ScheduleEntry, error) {
	r, err := s.store()
	if err != nil {
		return nil, err
	}

	active, err := r.ActiveServices(date.Format("20060102"))
	if err != nil {
		return nil, err
	}

	return r.ScheduleAtStop(storage.ScheduleFilter{
		StopID:     stopID,
		ServiceIDs: active,
		RouteID:    routeID,
	})
}

func (s *Service) NearbyStops(lat, lon, radiusMeters float64) ([]model.NearbyStop, error) {
	r, err := s.store()
	if err != nil {
		return nil, err
	}

	candidates, err := r.StopsWithin(storage.BoxAround(lat, lon, radiusMeters))
	if err != nil {
		return nil, err
	}

	return storage.RefineNearby(candidates, lat, lon, radiusMeters, NearbyResultCap), nil
}

func (s *Service) SearchStops(query string, limit int) ([]model.Stop, error) {
	r, err := s.store()
	if err != nil {
		return nil, err
	}
	return r.SearchStops(query, limit)
}

// FlatService mirrors the query surface over the flat-file artifacts.
// Schedule data is not part of the projections, so schedule queries
// report the feature unavailable rather than an empty result.
type FlatService struct {
	store *storage.FlatFileStore
}

// NewFlatService returns a flat-file engine over a directory of
// artifacts.
func NewFlatService(dir string) *FlatService {
	return &FlatService{store: storage.NewFlatFileStore(dir)}
}

func (s *FlatService) Routes() ([]model.Route, error) {
	return s.store.Routes()
}

func (s *FlatService) RoutesForStop(stopID string) ([]model.Route, error) {
	return s.store.RoutesForStop(stopID)
}

func (s *FlatService) StopsForRoute(routeID string) ([]model.Stop, error) {
	return s.store.StopsForRoute(routeID)
}

func (s *FlatService) Schedule(string, time.Time, string) ([]model.ScheduleEntry, error) {
	return nil, ErrScheduleUnavailable
}

func (s *FlatService) NearbyStops(lat, lon, radiusMeters float64) ([]model.NearbyStop, error) {
	return s.store.NearbyStops(lat, lon, radiusMeters, NearbyResultCap)
}

func (s *FlatService) SearchStops(query string, limit int) ([]model.Stop, error) {
	return s.store.SearchStops(query, limit)
}

func (s *FlatService) Close() error {
	return nil
}
