package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"meetbrew/internal/config"
	"meetbrew/internal/grid"
	"meetbrew/internal/ics"
	appLog "meetbrew/internal/log"
	"meetbrew/internal/model"
	"meetbrew/internal/store"
	"meetbrew/internal/tz"
)

// maxBodyBytes bounds JSON request bodies. Calendar uploads use ics.DefaultMaxBytes.
const maxBodyBytes = 1 << 20

// Server serves the JSON API.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	resolver tz.Resolver
	fetcher  *ics.Fetcher
	mux      *http.ServeMux
	grids    *gridCache
	now      func() time.Time
}

type Options struct {
	Config   *config.Config
	Store    *store.Store
	Resolver tz.Resolver
	// Fetcher loads busy calendars by URL. Nil disables URL imports.
	Fetcher *ics.Fetcher
	Now     func() time.Time
}

func NewServer(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if opts.Resolver.Default == "" {
		opts.Resolver.Default = cfg.DefaultTimezone
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		cfg:      cfg,
		store:    opts.Store,
		resolver: opts.Resolver,
		fetcher:  opts.Fetcher,
		mux:      http.NewServeMux(),
		grids:    newGridCache(cfg.GridCacheTTL(), opts.Now),
		now:      opts.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the API with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/timezones", s.handleTimezones)
	s.mux.HandleFunc("GET /api/timezones/resolve", s.handleResolve)
	s.mux.HandleFunc("POST /api/meetings", s.handleCreateMeeting)
	s.mux.HandleFunc("GET /api/meetings/{id}", s.handleGetMeeting)
	s.mux.HandleFunc("GET /api/meetings/{id}/grid", s.handleGrid)
	s.mux.HandleFunc("POST /api/meetings/{id}/respondents", s.handleSignIn)
	s.mux.HandleFunc("PUT /api/meetings/{id}/respondents/{rid}/availability", s.handleSetAvailability)
	s.mux.HandleFunc("POST /api/meetings/{id}/respondents/{rid}/drag", s.handleDrag)
	s.mux.HandleFunc("POST /api/meetings/{id}/respondents/{rid}/import", s.handleImport)
	s.mux.HandleFunc("/api/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   s.now().UTC().Format(time.RFC3339),
		"stats":  s.store.Stats(),
	})
}

type timezonesResponse struct {
	Device string     `json:"device"`
	Zones  []tz.Entry `json:"zones"`
}

func (s *Server) handleTimezones(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, timezonesResponse{
		Device: s.resolver.Device(),
		Zones:  s.resolver.Entries(),
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	reported := r.URL.Query().Get("tz")
	resolved := s.resolver.Resolve(reported)
	resp := map[string]any{"tz": reported, "resolved": resolved}
	if off, ok := s.resolver.OffsetMinutes(resolved); ok {
		resp["offset"] = off
	}
	writeJSON(w, http.StatusOK, resp)
}

// viewerLocation honors any loadable zone and resolves everything else onto
// the catalog.
func (s *Server) viewerLocation(name string, m model.Meeting) *time.Location {
	if name == "" {
		name = m.Timezone
	}
	return s.resolver.Load(name)
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrIDTaken):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalid),
		errors.Is(err, model.ErrInvalidMeeting),
		errors.Is(err, grid.ErrInvalidTemplate),
		errors.Is(err, ics.ErrBadURL),
		errors.Is(err, ics.ErrBlocked),
		errors.Is(err, ics.ErrEmptyCalendar),
		errors.Is(err, ics.ErrMalformed),
		errors.Is(err, ics.ErrTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, grid.ErrEmptyTemplate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ics.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		appLog.Error("request failed", err)
		writeError(w, status, "internal error")
		return
	}
	msg := err.Error()
	for _, prefix := range []string{"store: ", "invalid meeting: "} {
		msg = strings.ReplaceAll(msg, prefix, "")
	}
	writeError(w, status, msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalid, err)
	}
	return nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
