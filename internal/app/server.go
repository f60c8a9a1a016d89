// Package app wires the campus catalog into the HTTP surface served by
// campusd.
package app

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tutorkit/campus-gateway/pkg/campus"
)

// Server exposes the catalog accessors as a JSON API. Accessors degrade
// instead of failing, so every data endpoint answers 200 with a source tag;
// only malformed requests produce error statuses.
type Server struct {
	catalog *campus.Catalog
	logger  *slog.Logger
	metrics *campus.Metrics
}

func NewServer(catalog *campus.Catalog, logger *slog.Logger, metrics *campus.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		catalog: catalog,
		logger:  logger,
		metrics: metrics,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /v1/programs", s.handlePrograms)
	mux.HandleFunc("GET /v1/news", s.handleNews)
	mux.HandleFunc("GET /v1/subjects", s.handleSubjects)
	mux.HandleFunc("GET /v1/books", s.handleBooks)
	mux.HandleFunc("GET /v1/books/search", s.handleBookSearch)

	return s.logRequests(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	mode := "live"
	if s.catalog.Demo() {
		mode = "demo"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"mode":   mode,
	})
}

func (s *Server) handlePrograms(w http.ResponseWriter, r *http.Request) {
	university, ok := requiredParam(w, r, "university")
	if !ok {
		return
	}
	programs, source := s.catalog.Programs(r.Context(), university)
	writeJSON(w, http.StatusOK, map[string]any{
		"source":   source,
		"programs": programs,
	})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	university, ok := requiredParam(w, r, "university")
	if !ok {
		return
	}
	news, source := s.catalog.News(r.Context(), university)
	writeJSON(w, http.StatusOK, map[string]any{
		"source": source,
		"news":   news,
	})
}

func (s *Server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	program, ok := requiredParam(w, r, "program")
	if !ok {
		return
	}
	level, ok := requiredParam(w, r, "level")
	if !ok {
		return
	}
	university, ok := requiredParam(w, r, "university")
	if !ok {
		return
	}
	subjects, source := s.catalog.Subjects(r.Context(), program, level, university)
	writeJSON(w, http.StatusOK, map[string]any{
		"source":   source,
		"subjects": subjects,
	})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	program, ok := requiredParam(w, r, "program")
	if !ok {
		return
	}
	level, ok := requiredParam(w, r, "level")
	if !ok {
		return
	}
	books, source := s.catalog.Books(r.Context(), program, level)
	writeJSON(w, http.StatusOK, map[string]any{
		"source": source,
		"books":  books,
	})
}

func (s *Server) handleBookSearch(w http.ResponseWriter, r *http.Request) {
	query, ok := requiredParam(w, r, "q")
	if !ok {
		return
	}
	books, source := s.catalog.SearchBooks(r.Context(), query)
	writeJSON(w, http.StatusOK, map[string]any{
		"source": source,
		"books":  books,
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}

func requiredParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "missing required query parameter: " + name,
		})
		return "", false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
