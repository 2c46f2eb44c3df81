package load

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/openmetro/transit/model"
	"github.com/openmetro/transit/storage"
)

// CSV row shapes for each tabular file. gocsv matches by header name,
// so column order never matters and absent optional columns arrive as
// zero values. Normalization to proper types happens here, at the
// load boundary, never at query time.

type agencyCSV struct {
	ID       string `csv:"agency_id"`
	Name     string `csv:"agency_name"`
	URL      string `csv:"agency_url"`
	Timezone string `csv:"agency_timezone"`
}

type stopCSV struct {
	ID            string  `csv:"stop_id"`
	Code          string  `csv:"stop_code"`
	Name          string  `csv:"stop_name"`
	Desc          string  `csv:"stop_desc"`
	Lat           float64 `csv:"stop_lat"`
	Lon           float64 `csv:"stop_lon"`
	LocationType  int     `csv:"location_type"`
	ParentStation string  `csv:"parent_station"`
}

type routeCSV struct {
	ID        string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Desc      string `csv:"route_desc"`
	Type      int    `csv:"route_type"`
	Color     string `csv:"route_color"`
	TextColor string `csv:"route_text_color"`
}

type tripCSV struct {
	ID          string `csv:"trip_id"`
	RouteID     string `csv:"route_id"`
	ServiceID   string `csv:"service_id"`
	Headsign    string `csv:"trip_headsign"`
	DirectionID int8   `csv:"direction_id"`
	ShapeID     string `csv:"shape_id"`
}

type stopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  uint32 `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
}

type calendarCSV struct {
	ServiceID string `csv:"service_id"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	Monday    int8   `csv:"monday"`
	Tuesday   int8   `csv:"tuesday"`
	Wednesday int8   `csv:"wednesday"`
	Thursday  int8   `csv:"thursday"`
	Friday    int8   `csv:"friday"`
	Saturday  int8   `csv:"saturday"`
	Sunday    int8   `csv:"sunday"`
}

type calendarDateCSV struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int8   `csv:"exception_type"`
}

type shapeCSV struct {
	ShapeID  string  `csv:"shape_id"`
	Lat      float64 `csv:"shape_pt_lat"`
	Lon      float64 `csv:"shape_pt_lon"`
	Sequence uint32  `csv:"shape_pt_sequence"`
}

type frequencyCSV struct {
	TripID      string `csv:"trip_id"`
	StartTime   string `csv:"start_time"`
	EndTime     string `csv:"end_time"`
	HeadwaySecs int    `csv:"headway_secs"`
}

func loadAgency(w storage.Writer, data io.Reader) (int, error) {
	n := 0
	err := gocsv.UnmarshalToCallbackWithError(data, func(a *agencyCSV) error {
		n++
		if a.Name == "" {
			return fmt.Errorf("missing agency_name (row %d)", n)
		}
		return w.WriteAgency(&model.Agency{
			ID:       a.ID,
			Name:     a.Name,
			URL:      a.URL,
			Timezone: a.Timezone,
		})
	})
	return n, err
}

func loadStops(w storage.Writer, data io.Reader) (int, error) {
	n := 0
	err := gocsv.UnmarshalToCallbackWithError(data, func(s *stopCSV) error {
		n++
		if s.ID == "" {
			return fmt.Errorf("empty stop_id (row %d)", n)
		}
		return w.WriteStop(&model.Stop{
			ID:            s.ID,
			Code:          s.Code,
			Name:          s.Name,
			Desc:          s.Desc,
			Lat:           s.Lat,
			Lon:           s.Lon,
			LocationType:  model.LocationType(s.LocationType),
			ParentStation: s.ParentStation,
		})
	})
	return n, err
}

func loadRoutes(w storage.Writer, data io.Reader) (int, error) {
	n := 0
	err := gocsv.UnmarshalToCallbackWithError(data, func(r *routeCSV) error {
		n++
		if r.ID == "" {
			return fmt.Errorf("empty route_id (row %d)", n)
		}
		return w.WriteRoute(&model.Route{
			ID:        r.ID,
			AgencyID:  r.AgencyID,
			ShortName: r.ShortName,
			LongName:  r.LongName,
			Desc:      r.Desc,
			Type:      model.RouteType(r.Type),
			Color:     r.Color,
			TextColor: r.TextColor,
		})
	})
	return n, err
}

func loadTrips(w storage.Writer, data io.Reader) (int, error) {
	n := 0
	err := gocsv.UnmarshalToCallbackWithError(data, func(t *tripCSV) error {
		n++
		if t.ID == "" {
			return fmt.Errorf("empty trip_id (row %d)", n)
		}
		if t.DirectionID != 0 && t.DirectionID != 1 {
			return fmt.Errorf("invalid direction_id %d (row %d)", t.DirectionID, n)
		}
		return w.WriteTrip(&model.Trip{
			ID:          t.ID,
			RouteID:     t.RouteID,
			ServiceID:   t.ServiceID,
			Headsign:    t.Headsign,
			DirectionID: t.DirectionID,
			ShapeID:     t.ShapeID,
		})
	})
	return n, err
}

func loadStopTimes(w storage.Writer, data io.Reader) (int, error) {
	n := 0
	err := gocsv.UnmarshalToCallbackWithError(data, func(st *stopTimeCSV) error {
		n++
		arrival, err := model.ParseServiceTime(st.ArrivalTime)
		if err != nil {
			return errors.Wrapf(err, "parsing arrival_time (row %d)", n)
		}
		departure, err := model.ParseServiceTime(st.DepartureTime)
		if err != nil {
			return errors.Wrapf(err, "parsing departure_time (row %d)", n)
		}

		return w.WriteStopTime(&model.StopTime{
			TripID:       st.TripID,
			StopID:       st.StopID,
			StopSequence: st.StopSequence,
			Arrival:      arrival,
			Departure:    departure,
		})
	})
	return n, err
}

func loadCalendar(w storage.Writer, data io.Reader) (int, error) {
	n := 0
	err := gocsv.UnmarshalToCallbackWithError(data, func(c *calendarCSV) error {
		n++
		if c.ServiceID == "" {
			return fmt.Errorf("empty service_id (row %d)", n)
		}
		return w.WriteCalendar(&model.Calendar{
			ServiceID: c.ServiceID,
			StartDate: c.StartDate,
			EndDate:   c.EndDate,
			Monday:    c.Monday == 1,
			Tuesday:   c.Tuesday == 1,
			Wednesday: c.Wednesday == 1,
			Thursday:  c.Thursday == 1,
			Friday:    c.Friday == 1,
			Saturday:  c.Saturday == 1,
			Sunday:    c.Sunday == 1,
		})
	})
	return n, err
}

func loadCalendarDates(w storage.Writer, data io.Reader) (int, error) {
	n := 0
	err := gocsv.UnmarshalToCallbackWithError(data, func(cd *calendarDateCSV) error {
		n++
		if cd.ExceptionType < 1 || cd.ExceptionType > 2 {
			return fmt.Errorf("illegal exception_type %d (row %d)", cd.ExceptionType, n)
		}
		return w.WriteCalendarDate(&model.CalendarDate{
			ServiceID:     cd.ServiceID,
			Date:          cd.Date,
			ExceptionType: model.ExceptionType(cd.ExceptionType),
		})
	})
	return n, err
}

func loadShapes(w storage.Writer, data io.Reader) (int, error) {
	n := 0
	err := gocsv.UnmarshalToCallbackWithError(data, func(s *shapeCSV) error {
		n++
		return w.WriteShapePoint(&model.ShapePoint{
			ShapeID:  s.ShapeID,
			Lat:      s.Lat,
			Lon:      s.Lon,
			Sequence: s.Sequence,
		})
	})
	return n, err
}

func loadFrequencies(w storage.Writer, data io.Reader) (int, error) {
	n := 0
	err := gocsv.UnmarshalToCallbackWithError(data, func(f *frequencyCSV) error {
		n++
		start, err := model.ParseServiceTime(f.StartTime)
		if err != nil {
			return errors.Wrapf(err, "parsing start_time (row %d)", n)
		}
		end, err := model.ParseServiceTime(f.EndTime)
		if err != nil {
			return errors.Wrapf(err, "parsing end_time (row %d)", n)
		}

		return w.WriteFrequency(&model.Frequency{
			TripID:      f.TripID,
			StartTime:   start,
			EndTime:     end,
			HeadwaySecs: f.HeadwaySecs,
		})
	})
	return n, err
}
