// Package api exposes the manager's query contract over HTTP together with
// health and metrics endpoints. This is the sole surface consumed by a
// player or guide UI; it does no streaming and no session handling.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mraffaele/guida/internal/guide"
	"github.com/mraffaele/guida/internal/log"
)

// Server wraps the HTTP surface around a guide manager.
type Server struct {
	manager *guide.Manager
	router  chi.Router
}

func New(manager *guide.Manager, rateLimitPerMin int) *Server {
	s := &Server{manager: manager}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if rateLimitPerMin > 0 {
		r.Use(httprate.LimitByIP(rateLimitPerMin, time.Minute))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/now", s.handleNow)
	r.Get("/api/next", s.handleNext)
	r.Get("/api/stats", s.handleStats)

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once the first guide index is installed.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.manager.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleNow(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	name := r.URL.Query().Get("name")
	if channel == "" && name == "" {
		http.Error(w, "channel or name parameter required", http.StatusBadRequest)
		return
	}

	normName := ""
	if name != "" {
		if id, ok := s.manager.ResolveName(name); ok {
			// resolved id takes precedence over a possibly stale channel param
			channel = id
		} else {
			normName = name
		}
	}

	info, known := s.manager.CurrentProgram(channel, normName)
	if !known {
		http.Error(w, "unknown channel", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		http.Error(w, "channel parameter required", http.StatusBadRequest)
		return
	}
	count := 5
	if v := r.URL.Query().Get("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = n
		}
	}

	progs := s.manager.Upcoming(channel, count)
	out := make([]upcomingEntry, 0, len(progs))
	for _, p := range progs {
		out = append(out, upcomingEntry{
			Title: p.Title,
			Desc:  p.Desc,
			Start: p.Start,
			Stop:  p.Stop,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Stats())
}

type upcomingEntry struct {
	Title string    `json:"title"`
	Desc  string    `json:"desc,omitempty"`
	Start time.Time `json:"start"`
	Stop  time.Time `json:"stop"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponent("api")
		logger.Error().Err(err).Msg("encode response")
	}
}
