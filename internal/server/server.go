// Package server exposes the search controller, map surface and history
// store over HTTP. The API is consumed by the bundled web client, which
// mirrors map state from GET /api/map.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"

	"github.com/openfuelmap/fuelfinder/internal/controller"
	"github.com/openfuelmap/fuelfinder/internal/history"
	"github.com/openfuelmap/fuelfinder/internal/markers"
	"github.com/openfuelmap/fuelfinder/internal/translations"
	"github.com/openfuelmap/fuelfinder/pkg/prezzi"
)

const (
	DefaultRadiusKm   = 10.0
	DefaultMaxResults = 10
	defaultRateLimit  = 120 // requests per IP per minute
)

// HistoryReader is the read side of the history store. May be nil.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Params, error)
	PopularLocations(ctx context.Context, limit int) ([]history.Location, error)
}

// Server wires the HTTP API together.
type Server struct {
	controller *controller.Controller
	registry   *markers.Registry
	surface    *markers.StateSurface
	store      HistoryReader
	logger     *httplog.Logger
	rateLimit  int

	mu       sync.Mutex
	language string
}

type Options struct {
	Controller *controller.Controller
	Registry   *markers.Registry
	Surface    *markers.StateSurface
	History    HistoryReader
	Logger     *httplog.Logger
	RateLimit  int
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = &httplog.Logger{Logger: slog.New(slog.DiscardHandler)}
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	return &Server{
		controller: opts.Controller,
		registry:   opts.Registry,
		surface:    opts.Surface,
		store:      opts.History,
		logger:     opts.Logger,
		rateLimit:  opts.RateLimit,
		language:   "it",
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/fuel", s.handleFuel)
		r.Get("/state", s.handleState)
		r.Get("/map", s.handleMap)
		r.Post("/focus/{stationID}", s.handleFocus)
		r.Post("/language", s.handleLanguage)
		r.Get("/history", s.handleHistory)
		r.Get("/popular", s.handlePopular)
	})

	return r
}

type searchRequest struct {
	City       string  `json:"city"`
	RadiusKm   float64 `json:"radiusKm"`
	Fuel       string  `json:"fuel"`
	MaxResults int     `json:"maxResults"`
}

// handleSearch accepts a search and returns immediately; clients follow up on
// GET /api/state for the result.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	city := strings.TrimSpace(req.City)
	if city == "" {
		writeError(w, http.StatusBadRequest, "city is required")
		return
	}

	fuel := prezzi.FuelBenzina
	if req.Fuel != "" {
		parsed, err := prezzi.ParseFuelType(req.Fuel)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		fuel = parsed
	}

	if req.RadiusKm == 0 {
		req.RadiusKm = DefaultRadiusKm
	}
	if req.MaxResults == 0 {
		req.MaxResults = DefaultMaxResults
	}

	s.controller.Submit(controller.Form{
		City:       city,
		RadiusKm:   req.RadiusKm,
		Fuel:       fuel,
		MaxResults: req.MaxResults,
	})

	writeJSON(w, http.StatusAccepted, s.controller.State())
}

type fuelRequest struct {
	Fuel string `json:"fuel"`
}

func (s *Server) handleFuel(w http.ResponseWriter, r *http.Request) {
	var req fuelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fuel, err := prezzi.ParseFuelType(req.Fuel)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.controller.ChangeFuel(fuel)
	writeJSON(w, http.StatusAccepted, s.controller.State())
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.State())
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.surface.Snapshot())
}

// handleFocus centers the map on one station. Unknown ids still return 204:
// the marker may simply have been superseded by a newer search.
func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	s.registry.Focus(chi.URLParam(r, "stationID"))
	w.WriteHeader(http.StatusNoContent)
}

type languageRequest struct {
	Language string `json:"language"`
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lang := translations.NormalizeLanguage(req.Language)

	s.mu.Lock()
	s.language = lang
	s.mu.Unlock()

	s.registry.RebuildLabels(markers.TranslateFunc(translations.Translator(lang)))
	writeJSON(w, http.StatusOK, map[string]string{"language": lang})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []history.Params{})
		return
	}

	entries, err := s.store.Recent(r.Context(), history.MaxEntries)
	if err != nil {
		s.logger.Error("Error reading search history", "error", err)
		writeError(w, http.StatusInternalServerError, "error reading search history")
		return
	}
	if entries == nil {
		entries = []history.Params{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []history.Location{})
		return
	}

	locations, err := s.store.PopularLocations(r.Context(), 10)
	if err != nil {
		s.logger.Error("Error reading popular locations", "error", err)
		writeError(w, http.StatusInternalServerError, "error reading popular locations")
		return
	}
	if locations == nil {
		locations = []history.Location{}
	}
	writeJSON(w, http.StatusOK, locations)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
