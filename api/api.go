// Package api exposes the transit query engine over HTTP with JSON
// responses.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"

	transit "github.com/openmetro/transit"
)

// Server holds the handlers' dependencies. Status is optional; when
// nil the status endpoint reports only that the engine is serving.
type Server struct {
	Engine transit.Engine
	Status func() transit.Status
	Logger *slog.Logger
}

func NewServer(engine transit.Engine, status func() transit.Status, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Engine: engine, Status: status, Logger: logger}
}

// Router binds the query endpoints. All endpoints are read-only GETs.
func (s *Server) Router() http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/routes", s.listRoutes)
	router.HandlerFunc(http.MethodGet, "/routes/:id/stops", s.stopsForRoute)
	router.HandlerFunc(http.MethodGet, "/stops/:id/routes", s.routesForStop)
	router.HandlerFunc(http.MethodGet, "/stops/:id/schedule", s.scheduleForStop)
	router.HandlerFunc(http.MethodGet, "/nearby", s.nearbyStops)
	router.HandlerFunc(http.MethodGet, "/search", s.searchStops)
	router.HandlerFunc(http.MethodGet, "/status", s.status)

	return router
}

func (s *Server) send(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("encoding response", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	body := struct {
		Code int    `json:"code"`
		Text string `json:"text"`
	}{Code: code, Text: msg}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.Logger.Error("encoding error response", "error", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.Error("request failed", "path", r.URL.Path, "error", err)
	s.sendError(w, http.StatusInternalServerError, "internal server error")
}

func param(r *http.Request, name string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(name)
}
