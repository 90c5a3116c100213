// Package server exposes the daemon's HTTP surface: health, metrics,
// checkpoint inspection and on-demand runs.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"gw-audit/internal/groupaudit"
	"gw-audit/internal/middleware"
	"gw-audit/internal/scheduler"
)

// Jobs is the scheduler view the server needs.
type Jobs interface {
	Status() []scheduler.EntryStatus
	RunNow(name string) error
}

// CheckpointLoader reads the persisted progress of a batched audit.
type CheckpointLoader interface {
	Load(ctx context.Context) groupaudit.State
}

// Options configures the router.
type Options struct {
	Jobs        Jobs
	Checkpoints map[string]CheckpointLoader
	Metrics     http.Handler
	// Token enables POST /v1/runs/{audit}. Empty leaves the route unmounted.
	Token     string
	RunLimit  middleware.RateLimitConfig
	Logger    *slog.Logger
	StartedAt time.Time
}

// Server serves the daemon routes.
type Server struct {
	opts   Options
	router chi.Router
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.RunLimit.Burst <= 0 {
		opts.RunLimit = middleware.RateLimitConfig{RequestsPerSecond: 1.0 / 60, Burst: 2}
	}
	s := &Server{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(opts.Logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/jobs", s.handleJobs)
		r.Get("/checkpoints/{audit}", s.handleCheckpoint)
		if opts.Token != "" {
			r.With(
				middleware.RequireToken(opts.Token),
				middleware.RateLimiter(opts.RunLimit),
			).Post("/runs/{audit}", s.handleRun)
		}
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type healthResponse struct {
	Status    string                  `json:"status"`
	StartedAt time.Time               `json:"started_at,omitzero"`
	Jobs      []scheduler.EntryStatus `json:"jobs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		StartedAt: s.opts.StartedAt,
		Jobs:      s.jobs(),
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs())
}

func (s *Server) jobs() []scheduler.EntryStatus {
	if s.opts.Jobs == nil {
		return []scheduler.EntryStatus{}
	}
	return s.opts.Jobs.Status()
}

// CheckpointResponse summarizes a stored checkpoint.
type CheckpointResponse struct {
	Audit     string `json:"audit"`
	InCycle   bool   `json:"in_cycle"`
	NextIndex int    `json:"next_index"`
	Total     int    `json:"total_groups"`
	Findings  int    `json:"findings"`
}

func (s *Server) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	audit := chi.URLParam(r, "audit")
	loader, ok := s.opts.Checkpoints[audit]
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "no checkpoint for audit "+audit)
		return
	}
	st := loader.Load(r.Context())
	writeJSON(w, http.StatusOK, CheckpointResponse{
		Audit:     audit,
		InCycle:   st.InCycle(),
		NextIndex: st.NextIndex,
		Total:     len(st.Groups),
		Findings:  len(st.Results),
	})
}

// handleRun starts the named job in the background and answers 202. The job
// outlives the request; Scheduler.Stop waits for it.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	audit := chi.URLParam(r, "audit")
	status := s.jobs()
	i := slices.IndexFunc(status, func(e scheduler.EntryStatus) bool { return e.Name == audit })
	if i < 0 {
		middleware.WriteError(w, http.StatusNotFound, "no scheduled audit named "+audit)
		return
	}
	if status[i].Running {
		middleware.WriteError(w, http.StatusConflict, "audit "+audit+" is already running")
		return
	}
	logger := s.opts.Logger.With("audit", audit, "request_id", middleware.RequestIDFromContext(r.Context()))
	go func() {
		if err := s.opts.Jobs.RunNow(audit); err != nil {
			logger.Error("triggered run failed", "error", err)
		}
	}()
	logger.Info("run triggered over http")
	writeJSON(w, http.StatusAccepted, map[string]string{"audit": audit, "status": "started"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
