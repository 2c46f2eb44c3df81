package storage

import (
	"errors"

	"github.com/openmetro/transit/model"
)

// ErrUnavailable is returned when no usable store backs a reader.
var ErrUnavailable = errors.New("transit store unavailable")

// Metadata keys written by the bulk loader.
const (
	MetaImportedAt  = "imported_at"
	MetaHasCalendar = "has_calendar"
)

// Writer builds a complete store during one import run. The loader
// drops and fully repopulates every table; there is no incremental
// upsert. Rows for a single tabular file are written between
// BeginFile and EndFile, inside one transaction.
type Writer interface {
	BeginFile(table string) error
	EndFile() error

	WriteAgency(*model.Agency) error
	WriteStop(*model.Stop) error
	WriteRoute(*model.Route) error
	WriteTrip(*model.Trip) error
	WriteStopTime(*model.StopTime) error
	WriteCalendar(*model.Calendar) error
	WriteCalendarDate(*model.CalendarDate) error
	WriteShapePoint(*model.ShapePoint) error
	WriteFrequency(*model.Frequency) error

	// BuildIndexes creates the secondary indexes needed by the
	// query surface. Called once, after all files are loaded.
	BuildIndexes() error

	SetMetadata(key, value string) error

	// Commit finalizes a completed run. Close discards whatever is
	// not committed; it is a no-op after a successful Commit, so
	// both may be called from the same import path.
	Commit() error
	Close() error
}

// ScheduleFilter limits a schedule query to one stop, a resolved set
// of active services, and optionally a single route.
type ScheduleFilter struct {
	StopID     string
	ServiceIDs []string
	RouteID    string
}

// Reader is the read-only query surface over a loaded store. Safe for
// unbounded concurrent callers; no write transactions occur outside
// the bulk loader.
type Reader interface {
	Agencies() ([]model.Agency, error)
	Routes() ([]model.Route, error)
	RoutesForStop(stopID string) ([]model.Route, error)
	StopsForRoute(routeID string) ([]model.Stop, error)
	Stops() ([]model.Stop, error)

	// ActiveServices resolves which service_ids operate on a
	// YYYYMMDD date: base weekly pattern within the calendar
	// window, minus removed exceptions, plus added exceptions.
	ActiveServices(date string) ([]string, error)

	// ScheduleAtStop joins stop_times against trips in the active
	// service set and their routes. Results are ordered by
	// arrival time as plain string comparison.
	ScheduleAtStop(filter ScheduleFilter) ([]model.ScheduleEntry, error)

	// StopsWithin returns stops inside a rectangular pre-filter
	// window. Callers refine with exact distances.
	StopsWithin(box BoundingBox) ([]model.Stop, error)

	// SearchStops matches query case-insensitively against stop
	// name, code and id. Exact and prefix name matches rank ahead
	// of substring matches. A limit of zero or less means no cap.
	SearchStops(query string, limit int) ([]model.Stop, error)

	// StopRouteIndex maps each stop_id to the distinct route_ids
	// with trips serving it.
	StopRouteIndex() (map[string][]string, error)

	HasCalendar() (bool, error)
	RowCount(table string) (int, error)
	Metadata(key string) (string, error)
	Close() error
}
