package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/classifier"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/governor"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/jobs"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/orchestrator"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage"
)

// JobKindRun labels queued pipeline runs.
const JobKindRun = "run"

type jobAccepted struct {
	JobID  string      `json:"jobId"`
	Status jobs.Status `json:"status"`
}

// handleRefresh claims the cooldown and queues a manual run.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.enqueueRun(w, orchestrator.EntryManual)
}

// handleCron is the scheduler hook; it requires the bearer secret.
func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	s.enqueueRun(w, orchestrator.EntryCron)
}

func (s *Server) enqueueRun(w http.ResponseWriter, entry string) {
	run, err := s.svc.Claim(entry)
	if err != nil {
		var cdErr *governor.CooldownError
		if errors.As(err, &cdErr) {
			writeCooldown(w, cdErr)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job, err := s.queue.Enqueue(JobKindRun, func(ctx context.Context) (interface{}, error) {
		return run(ctx)
	})
	if err != nil {
		s.log.WithError(err).WithField("entry", entry).Warn("run not queued")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, jobAccepted{JobID: job.ID, Status: job.Status})
}

func (s *Server) requireCronSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.cronSecret == "" {
		return false
	}
	want := "Bearer " + s.cronSecret
	got := r.Header.Get("Authorization")
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

type autoAnalyzeRequest struct {
	Limit      int  `json:"limit"`
	Sequential bool `json:"sequential"`
}

type autoAnalyzeResponse struct {
	Message string `json:"message"`
	domain.DispositionSummary
}

func (s *Server) handleAutoAnalyze(w http.ResponseWriter, r *http.Request) {
	var req autoAnalyzeRequest
	if r.Method == http.MethodPost {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	summary, err := s.svc.AnalyzePending(r.Context(), req.Limit, req.Sequential)
	if errors.Is(err, orchestrator.ErrNoOracle) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	msg := "Analysis complete"
	if summary.Processed == 0 {
		msg = "No new tokens to analyze"
	}
	writeJSON(w, http.StatusOK, autoAnalyzeResponse{Message: msg, DispositionSummary: summary})
}

type analyzeRequest struct {
	CA string `json:"ca"`
}

// handleAnalyze classifies one stored token. Oracle auth and rate-limit
// failures are surfaced with their own status codes.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CA == "" {
		writeError(w, http.StatusBadRequest, "Contract address (ca) is required")
		return
	}

	res, err := s.svc.ClassifyOne(r.Context(), req.CA)
	if err != nil {
		var rlErr *classifier.RateLimitError
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, "Token not found")
		case errors.Is(err, orchestrator.ErrNoOracle):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, classifier.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "Invalid API key")
		case errors.As(err, &rlErr):
			if rlErr.RetryAfter > 0 {
				w.Header().Set("Retry-After", formatSeconds(rlErr.RetryAfter.Seconds()))
			}
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		default:
			s.log.WithError(err).WithField("ca", req.CA).Error("analyze failed")
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type refreshStatsRequest struct {
	CA     string `json:"ca"`
	Status string `json:"status"`
	Limit  int    `json:"limit"`
}

func (s *Server) handleRefreshStats(w http.ResponseWriter, r *http.Request) {
	var req refreshStatsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	refresh := orchestrator.RefreshRequest{Limit: req.Limit}
	if req.CA != "" {
		refresh.CAs = []string{req.CA}
	}
	if req.Status != "" && req.Status != "all" {
		st := domain.Status(req.Status)
		if !st.IsValid() {
			writeError(w, http.StatusBadRequest, "Invalid status. Must be one of: new, kept, deleted, all")
			return
		}
		refresh.Status = &st
	}

	summary, err := s.svc.RefreshStats(r.Context(), refresh)
	if err != nil {
		var cdErr *governor.CooldownError
		if errors.As(err, &cdErr) {
			writeCooldown(w, cdErr)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.queue.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}
