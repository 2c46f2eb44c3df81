package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	transit "github.com/openmetro/transit"
	"github.com/openmetro/transit/model"
)

const defaultSearchLimit = 25

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := s.Engine.Routes()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if routes == nil {
		routes = []model.Route{}
	}
	s.send(w, routes)
}

func (s *Server) stopsForRoute(w http.ResponseWriter, r *http.Request) {
	stops, err := s.Engine.StopsForRoute(param(r, "id"))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if stops == nil {
		stops = []model.Stop{}
	}
	s.send(w, stops)
}

func (s *Server) routesForStop(w http.ResponseWriter, r *http.Request) {
	routes, err := s.Engine.RoutesForStop(param(r, "id"))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if routes == nil {
		routes = []model.Route{}
	}
	s.send(w, routes)
}

// scheduleForStop serves GET /stops/:id/schedule?date=YYYYMMDD&route=.
// The date defaults to today. An unknown stop or an out-of-service
// date is an empty list, not an error.
func (s *Server) scheduleForStop(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("20060102", raw)
		if err != nil {
			s.sendError(w, http.StatusBadRequest, "date must be YYYYMMDD")
			return
		}
		date = parsed
	}

	entries, err := s.Engine.Schedule(param(r, "id"), date, r.URL.Query().Get("route"))
	if err != nil {
		if errors.Is(err, transit.ErrScheduleUnavailable) {
			s.sendError(w, http.StatusNotImplemented, "schedule queries are not available on this backend")
			return
		}
		s.serverError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.ScheduleEntry{}
	}
	s.send(w, entries)
}

// nearbyStops serves GET /nearby?lat=&lon=&radius=. Radius is
// in meters.
func (s *Server) nearbyStops(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	radius, radErr := strconv.ParseFloat(q.Get("radius"), 64)
	if latErr != nil || lonErr != nil || radErr != nil || radius <= 0 {
		s.sendError(w, http.StatusBadRequest, "lat, lon and a positive radius are required")
		return
	}

	stops, err := s.Engine.NearbyStops(lat, lon, radius)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if stops == nil {
		stops = []model.NearbyStop{}
	}
	s.send(w, stops)
}

func (s *Server) searchStops(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := q.Get("q")
	if query == "" {
		s.sendError(w, http.StatusBadRequest, "q is required")
		return
	}

	limit := defaultSearchLimit
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.sendError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	stops, err := s.Engine.SearchStops(query, limit)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if stops == nil {
		stops = []model.Stop{}
	}
	s.send(w, stops)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	if s.Status == nil {
		s.send(w, transit.Status{Available: true})
		return
	}
	s.send(w, s.Status())
}
