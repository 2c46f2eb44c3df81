package model

// Holds all external facing types and constants.

type LocationType int

const (
	LocationTypeStop LocationType = iota
	LocationTypeStation
	LocationTypeEntranceExit
	LocationTypeGenericNode
	LocationTypeBoardingArea
)

type RouteType int

const (
	RouteTypeTram       RouteType = 0
	RouteTypeSubway     RouteType = 1
	RouteTypeRail       RouteType = 2
	RouteTypeBus        RouteType = 3
	RouteTypeFerry      RouteType = 4
	RouteTypeCable      RouteType = 5
	RouteTypeAerial     RouteType = 6
	RouteTypeFunicular  RouteType = 7
	RouteTypeTrolleybus RouteType = 11
	RouteTypeMonorail   RouteType = 12
)

// Calendar exception types. A service can be added or removed on a
// single date, overriding its weekly pattern.
type ExceptionType int

const (
	ExceptionAdded   ExceptionType = 1
	ExceptionRemoved ExceptionType = 2
)

type Agency struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Timezone string `json:"timezone"`
}

type Stop struct {
	ID            string       `json:"id"`
	Code          string       `json:"code,omitempty"`
	Name          string       `json:"name"`
	Desc          string       `json:"desc,omitempty"`
	Lat           float64      `json:"lat"`
	Lon           float64      `json:"lon"`
	LocationType  LocationType `json:"locationType"`
	ParentStation string       `json:"parentStation,omitempty"`
}

type Route struct {
	ID        string    `json:"id"`
	AgencyID  string    `json:"agencyId,omitempty"`
	ShortName string    `json:"shortName,omitempty"`
	LongName  string    `json:"longName,omitempty"`
	Desc      string    `json:"desc,omitempty"`
	Type      RouteType `json:"type"`
	Color     string    `json:"color,omitempty"`
	TextColor string    `json:"textColor,omitempty"`
}

// DisplayName composes the rider-facing name of a route from its
// short and long names.
func (r Route) DisplayName() string {
	switch {
	case r.ShortName == "":
		return r.LongName
	case r.LongName == "":
		return r.ShortName
	default:
		return r.ShortName + " " + r.LongName
	}
}

type Trip struct {
	ID          string
	RouteID     string
	ServiceID   string
	Headsign    string
	DirectionID int8
	ShapeID     string
}

type StopTime struct {
	TripID       string
	StopID       string
	StopSequence uint32
	Arrival      ServiceTime
	Departure    ServiceTime
}

// Calendar defines the base weekly recurrence of a service pattern.
// Dates are inclusive, formatted YYYYMMDD so they sort as strings.
type Calendar struct {
	ServiceID string
	StartDate string
	EndDate   string
	Monday    bool
	Tuesday   bool
	Wednesday bool
	Thursday  bool
	Friday    bool
	Saturday  bool
	Sunday    bool
}

// CalendarDate is a single-date override layered on top of Calendar.
type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType ExceptionType
}

type ShapePoint struct {
	ShapeID  string
	Lat      float64
	Lon      float64
	Sequence uint32
}

type Frequency struct {
	TripID      string
	StartTime   ServiceTime
	EndTime     ServiceTime
	HeadwaySecs int
}

// NearbyStop is a stop annotated with its great-circle distance from
// a query point, in meters.
type NearbyStop struct {
	Stop
	DistanceMeters float64 `json:"distanceMeters"`
}

// ScheduleEntry is one scheduled visit of a trip at a stop on a
// resolved service date.
type ScheduleEntry struct {
	TripID       string      `json:"tripId"`
	RouteID      string      `json:"routeId"`
	RouteName    string      `json:"routeName"`
	Headsign     string      `json:"headsign,omitempty"`
	Arrival      ServiceTime `json:"arrival"`
	Departure    ServiceTime `json:"departure"`
	StopSequence uint32      `json:"stopSequence"`
	DirectionID  int8        `json:"directionId"`
}
