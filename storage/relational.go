package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/openmetro/transit/model"
)

type flavor int

const (
	flavorSQLite flavor = iota
	flavorPostgres
)

// Tables owned by the bulk loader, in load order. The schema is
// authoritative: every import run drops and recreates all of them.
var Tables = []string{
	"agency",
	"routes",
	"calendar",
	"calendar_dates",
	"stops",
	"trips",
	"stop_times",
	"shapes",
	"frequencies",
	"feed_metadata",
}

var tableDDL = map[string]string{
	"agency": `
CREATE TABLE agency (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    url TEXT,
    timezone TEXT NOT NULL
)`,
	"stops": `
CREATE TABLE stops (
    id TEXT PRIMARY KEY,
    code TEXT,
    name TEXT NOT NULL,
    description TEXT,
    lat DOUBLE PRECISION NOT NULL,
    lon DOUBLE PRECISION NOT NULL,
    location_type INTEGER NOT NULL,
    parent_station TEXT
)`,
	"routes": `
CREATE TABLE routes (
    id TEXT PRIMARY KEY,
    agency_id TEXT,
    short_name TEXT,
    long_name TEXT,
    description TEXT,
    type INTEGER NOT NULL,
    color TEXT,
    text_color TEXT
)`,
	"trips": `
CREATE TABLE trips (
    id TEXT PRIMARY KEY,
    route_id TEXT NOT NULL,
    service_id TEXT NOT NULL,
    headsign TEXT,
    direction_id INTEGER,
    shape_id TEXT
)`,
	"stop_times": `
CREATE TABLE stop_times (
    trip_id TEXT NOT NULL,
    stop_id TEXT NOT NULL,
    stop_sequence INTEGER NOT NULL,
    arrival_time TEXT NOT NULL,
    departure_time TEXT NOT NULL
)`,
	"calendar": `
CREATE TABLE calendar (
    service_id TEXT PRIMARY KEY,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    monday INTEGER NOT NULL,
    tuesday INTEGER NOT NULL,
    wednesday INTEGER NOT NULL,
    thursday INTEGER NOT NULL,
    friday INTEGER NOT NULL,
    saturday INTEGER NOT NULL,
    sunday INTEGER NOT NULL
)`,
	"calendar_dates": `
CREATE TABLE calendar_dates (
    service_id TEXT NOT NULL,
    date TEXT NOT NULL,
    exception_type INTEGER NOT NULL
)`,
	"shapes": `
CREATE TABLE shapes (
    shape_id TEXT NOT NULL,
    lat DOUBLE PRECISION NOT NULL,
    lon DOUBLE PRECISION NOT NULL,
    sequence INTEGER NOT NULL
)`,
	"frequencies": `
CREATE TABLE frequencies (
    trip_id TEXT NOT NULL,
    start_time TEXT NOT NULL,
    end_time TEXT NOT NULL,
    headway_secs INTEGER NOT NULL
)`,
	"feed_metadata": `
CREATE TABLE feed_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`,
}

// Secondary indexes for the query patterns of the read surface.
// Built after all files are loaded, so inserts run against bare
// tables.
var indexDDL = []string{
	"CREATE INDEX trips_route_id ON trips (route_id)",
	"CREATE INDEX trips_service_id ON trips (service_id)",
	"CREATE INDEX stop_times_trip_id ON stop_times (trip_id)",
	"CREATE INDEX stop_times_stop_id ON stop_times (stop_id)",
	"CREATE INDEX stop_times_arrival_time ON stop_times (arrival_time)",
	"CREATE INDEX stops_lat_lon ON stops (lat, lon)",
	"CREATE INDEX calendar_dates_date ON calendar_dates (date)",
	"CREATE INDEX shapes_shape_id ON shapes (shape_id)",
}

var insertSQL = map[string]string{
	"agency":         "INSERT INTO agency (id, name, url, timezone) VALUES (?, ?, ?, ?)",
	"stops":          "INSERT INTO stops (id, code, name, description, lat, lon, location_type, parent_station) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
	"routes":         "INSERT INTO routes (id, agency_id, short_name, long_name, description, type, color, text_color) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
	"trips":          "INSERT INTO trips (id, route_id, service_id, headsign, direction_id, shape_id) VALUES (?, ?, ?, ?, ?, ?)",
	"stop_times":     "INSERT INTO stop_times (trip_id, stop_id, stop_sequence, arrival_time, departure_time) VALUES (?, ?, ?, ?, ?)",
	"calendar":       "INSERT INTO calendar (service_id, start_date, end_date, monday, tuesday, wednesday, thursday, friday, saturday, sunday) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	"calendar_dates": "INSERT INTO calendar_dates (service_id, date, exception_type) VALUES (?, ?, ?)",
	"shapes":         "INSERT INTO shapes (shape_id, lat, lon, sequence) VALUES (?, ?, ?, ?)",
	"frequencies":    "INSERT INTO frequencies (trip_id, start_time, end_time, headway_secs) VALUES (?, ?, ?, ?)",
}

// RelationalStore implements Reader over a SQL database. The same
// query text serves both flavors; bind rewrites placeholders for
// postgres.
type RelationalStore struct {
	db     *sql.DB
	flavor flavor
}

func (s *RelationalStore) bind(query string) string {
	if s.flavor != flavorPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *RelationalStore) Close() error {
	return s.db.Close()
}

// RelationalWriter implements Writer. Rows for the current file are
// inserted through a prepared statement. On sqlite each file gets its
// own transaction: importers there build at a temporary path, so a
// failed run never touches the served store. On postgres, where the
// store is rebuilt in place, DDL is transactional too, so the whole
// run from schema recreate through index build happens inside one
// transaction (run); Commit makes it visible only when every file
// landed, and Close rolls back to the prior store.
type RelationalWriter struct {
	store *RelationalStore
	run   *sql.Tx

	tx   *sql.Tx
	stmt *sql.Stmt
}

// NewWriter recreates the full schema (no indexes yet) and returns a
// writer for one import run.
func (s *RelationalStore) NewWriter() (*RelationalWriter, error) {
	w := &RelationalWriter{store: s}

	if s.flavor == flavorPostgres {
		tx, err := s.db.Begin()
		if err != nil {
			return nil, fmt.Errorf("beginning import transaction: %w", err)
		}
		w.run = tx
	}

	for _, table := range Tables {
		if err := w.execSQL("DROP TABLE IF EXISTS " + table); err != nil {
			w.abort()
			return nil, fmt.Errorf("dropping %s: %w", table, err)
		}
		if err := w.execSQL(tableDDL[table]); err != nil {
			w.abort()
			return nil, fmt.Errorf("creating %s: %w", table, err)
		}
	}

	return w, nil
}

// execSQL routes statements through the run transaction when one is
// open, else straight to the database.
func (w *RelationalWriter) execSQL(query string, args ...interface{}) error {
	var err error
	if w.run != nil {
		_, err = w.run.Exec(query, args...)
	} else {
		_, err = w.store.db.Exec(query, args...)
	}
	return err
}

func (w *RelationalWriter) abort() {
	if w.stmt != nil {
		w.stmt.Close()
		w.stmt = nil
	}
	if w.tx != nil {
		w.tx.Rollback()
		w.tx = nil
	}
	if w.run != nil {
		w.run.Rollback()
		w.run = nil
	}
}

func (w *RelationalWriter) BeginFile(table string) error {
	insert, ok := insertSQL[table]
	if !ok {
		return fmt.Errorf("no insert statement for table %q", table)
	}

	if w.run != nil {
		stmt, err := w.run.Prepare(w.store.bind(insert))
		if err != nil {
			return fmt.Errorf("preparing %s insert: %w", table, err)
		}
		w.stmt = stmt
		return nil
	}

	tx, err := w.store.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning %s transaction: %w", table, err)
	}

	stmt, err := tx.Prepare(w.store.bind(insert))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing %s insert: %w", table, err)
	}

	w.tx = tx
	w.stmt = stmt
	return nil
}

func (w *RelationalWriter) EndFile() error {
	w.stmt.Close()
	w.stmt = nil

	if w.tx == nil {
		return nil
	}

	err := w.tx.Commit()
	w.tx = nil
	if err != nil {
		return fmt.Errorf("committing file transaction: %w", err)
	}
	return nil
}

func (w *RelationalWriter) exec(args ...interface{}) error {
	_, err := w.stmt.Exec(args...)
	return err
}

func (w *RelationalWriter) WriteAgency(a *model.Agency) error {
	return w.exec(a.ID, a.Name, a.URL, a.Timezone)
}

func (w *RelationalWriter) WriteStop(s *model.Stop) error {
	return w.exec(s.ID, s.Code, s.Name, s.Desc, s.Lat, s.Lon, int(s.LocationType), s.ParentStation)
}

func (w *RelationalWriter) WriteRoute(r *model.Route) error {
	return w.exec(r.ID, r.AgencyID, r.ShortName, r.LongName, r.Desc, int(r.Type), r.Color, r.TextColor)
}

func (w *RelationalWriter) WriteTrip(t *model.Trip) error {
	return w.exec(t.ID, t.RouteID, t.ServiceID, t.Headsign, t.DirectionID, t.ShapeID)
}

func (w *RelationalWriter) WriteStopTime(st *model.StopTime) error {
	return w.exec(st.TripID, st.StopID, st.StopSequence, string(st.Arrival), string(st.Departure))
}

func (w *RelationalWriter) WriteCalendar(c *model.Calendar) error {
	return w.exec(
		c.ServiceID,
		c.StartDate,
		c.EndDate,
		boolInt(c.Monday),
		boolInt(c.Tuesday),
		boolInt(c.Wednesday),
		boolInt(c.Thursday),
		boolInt(c.Friday),
		boolInt(c.Saturday),
		boolInt(c.Sunday),
	)
}

func (w *RelationalWriter) WriteCalendarDate(cd *model.CalendarDate) error {
	return w.exec(cd.ServiceID, cd.Date, int(cd.ExceptionType))
}

func (w *RelationalWriter) WriteShapePoint(sp *model.ShapePoint) error {
	return w.exec(sp.ShapeID, sp.Lat, sp.Lon, sp.Sequence)
}

func (w *RelationalWriter) WriteFrequency(f *model.Frequency) error {
	return w.exec(f.TripID, string(f.StartTime), string(f.EndTime), f.HeadwaySecs)
}

func (w *RelationalWriter) BuildIndexes() error {
	for _, ddl := range indexDDL {
		if err := w.execSQL(ddl); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

func (w *RelationalWriter) SetMetadata(key, value string) error {
	err := w.execSQL(
		w.store.bind("INSERT INTO feed_metadata (key, value) VALUES (?, ?)"),
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing metadata %s: %w", key, err)
	}
	return nil
}

// Commit finalizes a successful run. On postgres this commits the
// import transaction, making the rebuilt store visible atomically.
func (w *RelationalWriter) Commit() error {
	if w.stmt != nil || w.tx != nil {
		return fmt.Errorf("commit with file still open")
	}

	if w.run != nil {
		err := w.run.Commit()
		w.run = nil
		if err != nil {
			return fmt.Errorf("committing import: %w", err)
		}
	}
	return nil
}

// Close discards anything not committed. Safe to defer alongside
// Commit; after a successful Commit it is a no-op.
func (w *RelationalWriter) Close() error {
	w.abort()
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *RelationalStore) Agencies() ([]model.Agency, error) {
	rows, err := s.db.Query("SELECT id, name, url, timezone FROM agency")
	if err != nil {
		return nil, fmt.Errorf("querying agencies: %w", err)
	}
	defer rows.Close()

	agencies := []model.Agency{}
	for rows.Next() {
		var a model.Agency
		if err := rows.Scan(&a.ID, &a.Name, &a.URL, &a.Timezone); err != nil {
			return nil, fmt.Errorf("scanning agency: %w", err)
		}
		agencies = append(agencies, a)
	}

	return agencies, rows.Err()
}

const routeColumns = "id, agency_id, short_name, long_name, description, type, color, text_color"

func scanRoute(rows *sql.Rows) (model.Route, error) {
	var r model.Route
	var routeType int
	err := rows.Scan(&r.ID, &r.AgencyID, &r.ShortName, &r.LongName, &r.Desc, &routeType, &r.Color, &r.TextColor)
	r.Type = model.RouteType(routeType)
	return r, err
}

func (s *RelationalStore) Routes() ([]model.Route, error) {
	rows, err := s.db.Query("SELECT " + routeColumns + " FROM routes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying routes: %w", err)
	}
	defer rows.Close()

	routes := []model.Route{}
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning route: %w", err)
		}
		routes = append(routes, r)
	}

	return routes, rows.Err()
}

func (s *RelationalStore) RoutesForStop(stopID string) ([]model.Route, error) {
	rows, err := s.db.Query(s.bind(`
SELECT DISTINCT routes.id, routes.agency_id, routes.short_name, routes.long_name,
    routes.description, routes.type, routes.color, routes.text_color
FROM stop_times
INNER JOIN trips ON trips.id = stop_times.trip_id
INNER JOIN routes ON routes.id = trips.route_id
WHERE stop_times.stop_id = ?
ORDER BY routes.id`), stopID)
	if err != nil {
		return nil, fmt.Errorf("querying routes for stop: %w", err)
	}
	defer rows.Close()

	routes := []model.Route{}
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning route: %w", err)
		}
		routes = append(routes, r)
	}

	return routes, rows.Err()
}

const stopColumns = "id, code, name, description, lat, lon, location_type, parent_station"

func scanStop(rows *sql.Rows) (model.Stop, error) {
	var st model.Stop
	var locationType int
	err := rows.Scan(&st.ID, &st.Code, &st.Name, &st.Desc, &st.Lat, &st.Lon, &locationType, &st.ParentStation)
	st.LocationType = model.LocationType(locationType)
	return st, err
}

func (s *RelationalStore) Stops() ([]model.Stop, error) {
	return s.queryStops("SELECT " + stopColumns + " FROM stops ORDER BY id")
}

func (s *RelationalStore) StopsForRoute(routeID string) ([]model.Stop, error) {
	return s.queryStops(s.bind(`
SELECT DISTINCT stops.id, stops.code, stops.name, stops.description,
    stops.lat, stops.lon, stops.location_type, stops.parent_station
FROM stop_times
INNER JOIN trips ON trips.id = stop_times.trip_id
INNER JOIN stops ON stops.id = stop_times.stop_id
WHERE trips.route_id = ?
ORDER BY stops.name`), routeID)
}

func (s *RelationalStore) StopsWithin(box BoundingBox) ([]model.Stop, error) {
	return s.queryStops(s.bind(`
SELECT `+stopColumns+`
FROM stops
WHERE lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?`),
		box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
}

func (s *RelationalStore) SearchStops(query string, limit int) ([]model.Stop, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []model.Stop{}, nil
	}
	sub := "%" + q + "%"

	search := `
SELECT ` + stopColumns + `
FROM stops
WHERE LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(id) LIKE ?
ORDER BY CASE
    WHEN LOWER(name) = ? THEN 0
    WHEN LOWER(name) LIKE ? THEN 1
    ELSE 2
END, name`
	args := []interface{}{sub, sub, sub, q, q + "%"}

	// Non-positive limits mean no cap.
	if limit > 0 {
		search += " LIMIT ?"
		args = append(args, limit)
	}

	return s.queryStops(s.bind(search), args...)
}

func (s *RelationalStore) queryStops(query string, args ...interface{}) ([]model.Stop, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying stops: %w", err)
	}
	defer rows.Close()

	stops := []model.Stop{}
	for rows.Next() {
		st, err := scanStop(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning stop: %w", err)
		}
		stops = append(stops, st)
	}

	return stops, rows.Err()
}

func (s *RelationalStore) ActiveServices(date string) ([]string, error) {
	weekday, err := weekdayColumn(date)
	if err != nil {
		return nil, err
	}

	// Base weekly pattern within the calendar window, minus
	// removed exceptions, plus added exceptions. Exceptions always
	// win over the base set.
	rows, err := s.db.Query(s.bind(`
WITH
Exceptions AS (
    SELECT service_id, exception_type
    FROM calendar_dates
    WHERE date = ?
),
Regular AS (
    SELECT service_id
    FROM calendar
    WHERE `+weekday+` = 1 AND
          start_date <= ? AND
          end_date >= ?
)
SELECT service_id
FROM Regular
WHERE service_id NOT IN (
    SELECT service_id FROM Exceptions WHERE exception_type = 2
)
UNION
SELECT service_id
FROM Exceptions
WHERE exception_type = 1`), date, date, date)
	if err != nil {
		return nil, fmt.Errorf("querying active services: %w", err)
	}
	defer rows.Close()

	active := []string{}
	for rows.Next() {
		var serviceID string
		if err := rows.Scan(&serviceID); err != nil {
			return nil, fmt.Errorf("scanning active service: %w", err)
		}
		active = append(active, serviceID)
	}

	return active, rows.Err()
}

func (s *RelationalStore) ScheduleAtStop(filter ScheduleFilter) ([]model.ScheduleEntry, error) {
	// An empty active set is a valid "no service operates" result,
	// not an error.
	if len(filter.ServiceIDs) == 0 {
		return []model.ScheduleEntry{}, nil
	}

	placeholders := make([]string, len(filter.ServiceIDs))
	args := []interface{}{filter.StopID}
	for i, id := range filter.ServiceIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := `
SELECT
    trips.id,
    trips.route_id,
    routes.short_name,
    routes.long_name,
    trips.headsign,
    stop_times.arrival_time,
    stop_times.departure_time,
    stop_times.stop_sequence,
    trips.direction_id
FROM stop_times
INNER JOIN trips ON trips.id = stop_times.trip_id
INNER JOIN routes ON routes.id = trips.route_id
WHERE stop_times.stop_id = ? AND
      trips.service_id IN (` + strings.Join(placeholders, ", ") + `)`

	if filter.RouteID != "" {
		query += " AND trips.route_id = ?"
		args = append(args, filter.RouteID)
	}

	// Lexicographic order on the zero-padded time strings. This is
	// deliberate: post-midnight times above 24:00:00 sort after the
	// same day's evening trips instead of wrapping to the morning.
	query += " ORDER BY stop_times.arrival_time, stop_times.stop_sequence"

	rows, err := s.db.Query(s.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying schedule: %w", err)
	}
	defer rows.Close()

	entries := []model.ScheduleEntry{}
	for rows.Next() {
		var e model.ScheduleEntry
		var shortName, longName, arrival, departure string
		err := rows.Scan(
			&e.TripID,
			&e.RouteID,
			&shortName,
			&longName,
			&e.Headsign,
			&arrival,
			&departure,
			&e.StopSequence,
			&e.DirectionID,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning schedule entry: %w", err)
		}

		e.RouteName = model.Route{ShortName: shortName, LongName: longName}.DisplayName()
		e.Arrival = model.ServiceTime(arrival)
		e.Departure = model.ServiceTime(departure)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *RelationalStore) StopRouteIndex() (map[string][]string, error) {
	rows, err := s.db.Query(`
SELECT DISTINCT stop_times.stop_id, trips.route_id
FROM stop_times
INNER JOIN trips ON trips.id = stop_times.trip_id
ORDER BY stop_times.stop_id, trips.route_id`)
	if err != nil {
		return nil, fmt.Errorf("querying stop route index: %w", err)
	}
	defer rows.Close()

	index := map[string][]string{}
	for rows.Next() {
		var stopID, routeID string
		if err := rows.Scan(&stopID, &routeID); err != nil {
			return nil, fmt.Errorf("scanning stop route pair: %w", err)
		}
		index[stopID] = append(index[stopID], routeID)
	}

	return index, rows.Err()
}

func (s *RelationalStore) HasCalendar() (bool, error) {
	calendars, err := s.RowCount("calendar")
	if err != nil {
		return false, err
	}
	dates, err := s.RowCount("calendar_dates")
	if err != nil {
		return false, err
	}
	return calendars > 0 || dates > 0, nil
}

func (s *RelationalStore) RowCount(table string) (int, error) {
	if _, ok := tableDDL[table]; !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting %s rows: %w", table, err)
	}
	return count, nil
}

func (s *RelationalStore) Metadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(s.bind("SELECT value FROM feed_metadata WHERE key = ?"), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading metadata %s: %w", key, err)
	}
	return value, nil
}

func weekdayColumn(date string) (string, error) {
	t, err := time.Parse("20060102", date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q", date)
	}

	switch t.Weekday() {
	case time.Monday:
		return "monday", nil
	case time.Tuesday:
		return "tuesday", nil
	case time.Wednesday:
		return "wednesday", nil
	case time.Thursday:
		return "thursday", nil
	case time.Friday:
		return "friday", nil
	case time.Saturday:
		return "saturday", nil
	default:
		return "sunday", nil
	}
}
