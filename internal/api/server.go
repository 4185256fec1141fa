// Package api serves the operator HTTP surface: health, metrics, status,
// pipeline triggers, token listing and exports.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/governor"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/jobs"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/orchestrator"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/reporting"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Server holds the collaborators behind the HTTP handlers.
type Server struct {
	svc        *orchestrator.Service
	queue      *jobs.Queue
	store      storage.TokenStore
	exporter   *reporting.Generator
	cronSecret string
	log        logrus.FieldLogger

	started time.Time
	now     func() time.Time
}

// Options for creating Server.
type Options struct {
	Service    *orchestrator.Service
	Queue      *jobs.Queue
	Store      storage.TokenStore
	CronSecret string // empty rejects every cron call
	Logger     logrus.FieldLogger
}

// NewServer creates a new Server.
func NewServer(opts Options) *Server {
	return &Server{
		svc:        opts.Service,
		queue:      opts.Queue,
		store:      opts.Store,
		exporter:   reporting.NewGenerator(opts.Store),
		cronSecret: opts.CronSecret,
		log:        observability.OrNop(opts.Logger),
		started:    time.Now(),
		now:        time.Now,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("GET /status", s.handleStatus)

	// Pipeline triggers
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/cron", s.handleCron)
	mux.HandleFunc("POST /api/auto-analyze", s.handleAutoAnalyze)
	mux.HandleFunc("GET /api/auto-analyze", s.requireCronSecret(s.handleAutoAnalyze))
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/refresh-stats", s.handleRefreshStats)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleJob)

	// Tokens
	mux.HandleFunc("GET /api/tokens", s.handleListTokens)
	mux.HandleFunc("PATCH /api/tokens", s.handlePatchToken)
	mux.HandleFunc("GET /api/export", s.handleExport)

	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status            string                   `json:"status"`
	Uptime            string                   `json:"uptime"`
	StartedAt         time.Time                `json:"started_at"`
	CooldownRemaining int                      `json:"cooldown_remaining_seconds"`
	QueueDepth        int                      `json:"queue_depth"`
	LastRun           *orchestrator.RunSummary `json:"last_run,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:     "running",
		Uptime:     s.now().Sub(s.started).Round(time.Second).String(),
		StartedAt:  s.started,
		QueueDepth: s.queue.Depth(),
		LastRun:    s.svc.LastRun(),
	}
	var cdErr *governor.CooldownError
	if errors.As(s.svc.CheckCooldown(), &cdErr) {
		resp.CooldownRemaining = cdErr.RetryAfterSeconds()
	}
	writeJSON(w, http.StatusOK, resp)
}
