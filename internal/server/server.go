// Package server exposes the catalog over a JSON HTTP API. Reads go straight
// to the store; fetch-triggering endpoints delegate to the orchestrator.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/compass-ml/compkb/internal/ingest"
	"github.com/compass-ml/compkb/internal/store"
)

// Server holds the API dependencies.
type Server struct {
	store *store.Store
	orch  *ingest.Orchestrator
}

// New builds a Server.
func New(st *store.Store, orch *ingest.Orchestrator) *Server {
	return &Server{store: st, orch: orch}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/competitions", func(r chi.Router) {
		r.Get("/", s.handleListCompetitions)
		r.Get("/new", s.handleNewCompetitions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetCompetition)
			r.Patch("/favorite", s.handleToggleFavorite)
			r.Get("/discussions", s.handleListDiscussions)
			r.Get("/solutions", s.handleListSolutions)
			r.Get("/notebooks", s.handleListNotebooks)
			r.Post("/discussions/fetch", s.handleFetchDiscussions)
			r.Post("/solutions/fetch", s.handleFetchSolutions)
			r.Post("/notebooks/fetch", s.handleFetchNotebooks)
			r.Post("/data/fetch", s.handleFetchData)
			r.Post("/summary/generate", s.handleGenerateSummary)
		})
	})

	r.Route("/discussions/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetDiscussion)
		r.Get("/content", s.handleDiscussionContent)
		r.Post("/fetch", s.handleFetchDiscussionDetail)
	})

	r.Route("/solutions/{id}", func(r chi.Router) {
		r.Get("/content", s.handleSolutionContent)
		r.Post("/fetch", s.handleFetchSolutionDetail)
		r.Post("/summarize", s.handleSummarizeSolution)
	})

	r.Post("/notebooks/{id}/summarize", s.handleSummarizeNotebook)
	r.Get("/tags", s.handleListTags)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// queryList reads repeated values for key, accepting both "key" and "key[]"
// and comma-separated values within one parameter.
func queryList(r *http.Request, key string) []string {
	var out []string
	q := r.URL.Query()
	for _, raw := range append(q[key], q[key+"[]"]...) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// pathID parses the numeric {id} route parameter.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
