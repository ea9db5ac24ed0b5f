// Package control implements the localhost-only HTTP status/control
// surface the desktop shell drives the sync daemon through, grounded on
// the teacher's internal/httpapi router and internal/mcpserver/server SSE
// stream.
package control

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/flashnote/syncd/internal/metrics"
	"github.com/flashnote/syncd/internal/orchestrator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Server holds the control API's dependencies, mirroring the shape of the
// teacher's httpapi.Server.
type Server struct {
	Orchestrator *orchestrator.Orchestrator
	JWTSecret    string
	DevMode      bool

	mu         sync.Mutex
	lastReport *orchestrator.Report
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("control: failed to encode json response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, _ *http.Request, code int, message string) {
	writeJSON(w, code, errorResponse{Error: message})
}

// Routes builds the control API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.JWTSecret, s.DevMode))

		r.Get("/status", s.handleStatus)
		r.Get("/events", s.handleEvents)
		r.Post("/sync", s.handleSync)
		r.Post("/stop", s.handleStop)
		r.Post("/force-full-sync", s.handleForceFullSync)
		r.Post("/conflicts/{fileId}/resolve", s.handleResolveConflict)
		r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	})

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	report := s.lastReport
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"lastReport": report})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	report, err := s.Orchestrator.PerformSync(r.Context())
	if err == orchestrator.ErrSyncInProgress {
		writeError(w, r, http.StatusConflict, "ConcurrentSyncInProgress")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.mu.Lock()
	s.lastReport = &report
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleForceFullSync(w http.ResponseWriter, r *http.Request) {
	report, err := s.Orchestrator.ForceFullSync(r.Context())
	if err == orchestrator.ErrSyncInProgress {
		writeError(w, r, http.StatusConflict, "ConcurrentSyncInProgress")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.mu.Lock()
	s.lastReport = &report
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.Orchestrator.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

type resolveReq struct {
	Resolution string `json:"resolution"`
}

func (s *Server) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileId")
	var req resolveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Resolution != "local" && req.Resolution != "remote" {
		writeError(w, r, http.StatusBadRequest, `resolution must be "local" or "remote"`)
		return
	}
	if !s.Orchestrator.ResolveConflict(fileID, req.Resolution) {
		writeError(w, r, http.StatusNotFound, "no pending conflict for that file id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// handleEvents streams orchestrator events as Server-Sent Events, adapted
// from the teacher's SSEStream (internal/mcpserver/server/sse.go) from
// JSON-RPC messages to orchestrator.Event values.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, unsubscribe := s.Orchestrator.Subscribe()
	defer unsubscribe()

	ctx := r.Context()
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("event: " + string(e.Kind) + "\ndata: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
