package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/reporting"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage"
)

type listTokensResponse struct {
	Tokens  []tokenResponse `json:"tokens"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
	HasMore bool            `json:"hasMore"`
}

// handleListTokens pages through tokens.
// status defaults to new ("all" lifts the filter); an unknown sort column falls back to created_at.
func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := storage.ListFilter{
		Limit:     atoiOr(q.Get("limit"), storage.DefaultListLimit),
		Offset:    atoiOr(q.Get("offset"), 0),
		SortBy:    q.Get("sortBy"),
		Ascending: q.Get("sortOrder") == "asc",
	}
	switch filter.SortBy {
	case storage.SortCreatedAt, storage.SortPairCreatedAt, storage.SortName, storage.SortTicker:
	default:
		filter.SortBy = storage.SortCreatedAt
	}

	status := q.Get("status")
	if status == "" {
		status = string(domain.StatusNew)
	}
	if status != "all" {
		st := domain.Status(status)
		if !st.IsValid() {
			writeError(w, http.StatusBadRequest, "Invalid status. Must be one of: new, kept, deleted, all")
			return
		}
		filter.Status = &st
	}
	if err := filter.Normalize(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, total, err := s.store.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}

	resp := listTokensResponse{
		Tokens:  make([]tokenResponse, len(tokens)),
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasMore: filter.Offset+filter.Limit < total,
	}
	for i, t := range tokens {
		resp.Tokens[i] = toTokenResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

type patchTokenRequest struct {
	CA     string `json:"ca"`
	Status string `json:"status"`
}

type patchTokenResponse struct {
	Message string        `json:"message"`
	Token   tokenResponse `json:"token"`
}

// handlePatchToken applies an operator status change. Moving a token back to new is refused.
func (s *Server) handlePatchToken(w http.ResponseWriter, r *http.Request) {
	var req patchTokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CA == "" {
		writeError(w, http.StatusBadRequest, "Contract address (ca) is required")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "Status is required")
		return
	}
	status := domain.Status(req.Status)
	if !status.IsValid() {
		writeError(w, http.StatusBadRequest, "Invalid status. Must be one of: new, kept, deleted")
		return
	}

	ctx := r.Context()
	if err := s.store.UpdateStatus(ctx, req.CA, status); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, "Token not found")
		case errors.Is(err, storage.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "Token has already been reviewed and cannot return to new")
		default:
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		}
		return
	}

	t, err := s.store.Get(ctx, req.CA)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, patchTokenResponse{Message: "Token updated successfully", Token: toTokenResponse(t)})
}

// handleExport downloads every token of a status, kept by default, as text or CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := domain.StatusKept
	if v := q.Get("status"); v != "" {
		status = domain.Status(v)
	}
	if !status.IsValid() {
		writeError(w, http.StatusBadRequest, "Invalid status. Must be one of: new, kept, deleted")
		return
	}

	export, err := s.exporter.Generate(r.Context(), status, q.Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(export.Tokens) == 0 {
		writeError(w, http.StatusNotFound, "No tokens to export")
		return
	}

	filename := reporting.Filename(status, export.GeneratedAt)
	var body, contentType string
	switch strings.ToLower(q.Get("format")) {
	case "csv":
		body, err = reporting.RenderCSV(export)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		contentType = "text/csv; charset=utf-8"
		filename = strings.TrimSuffix(filename, ".txt") + ".csv"
	default:
		body = reporting.RenderText(export)
		contentType = "text/plain; charset=utf-8"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func atoiOr(v string, fallback int) int {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return fallback
}
