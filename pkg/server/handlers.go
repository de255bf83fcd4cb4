package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"legalis-hq/themis/pkg/quota"
	"legalis-hq/themis/pkg/quota/store"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleSnapshot serves GET /v1/quota: the combined view of both governors
// with recommendations.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.manager.Snapshot(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleRateStats serves GET /v1/quota/rate.
func (s *Server) handleRateStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.manager.Rate().UsageStats(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleSpendBreakdown serves GET /v1/quota/spend.
func (s *Server) handleSpendBreakdown(w http.ResponseWriter, r *http.Request) {
	breakdown, err := s.manager.Spend().CostBreakdown(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

// handleHistory serves GET /v1/quota/history?governor=rate&days=7 from the
// archive. Returns 404 when no archive is configured.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, "archive not configured")
		return
	}

	governor := r.URL.Query().Get("governor")
	switch governor {
	case quota.GovernorRate, quota.GovernorSpend:
	case "":
		writeError(w, http.StatusBadRequest, "governor query parameter is required")
		return
	default:
		writeError(w, http.StatusBadRequest, "governor must be rate or spend")
		return
	}

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	summaries, err := s.archive.Summaries(r.Context(), governor, since, 500)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"governor":  governor,
		"since":     since,
		"summaries": summaries,
	})
}

// handleRateReset serves POST /v1/admin/rate/reset.
func (s *Server) handleRateReset(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("admin rate window reset requested",
		"request_id", GetRequestID(r.Context()),
		"remote_addr", r.RemoteAddr,
	)

	if err := s.manager.ResetRateWindow(r.Context()); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleSpendResetDaily serves POST /v1/admin/spend/reset-daily. The
// monthly total is untouched.
func (s *Server) handleSpendResetDaily(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("admin daily spend reset requested",
		"request_id", GetRequestID(r.Context()),
		"remote_addr", r.RemoteAddr,
	)

	if err := s.manager.ResetDailySpend(r.Context()); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// providerRejectionRequest is the body for POST
// /v1/admin/rate/provider-rejection.
type providerRejectionRequest struct {
	// ResetAt is when the provider said the limit lifts, RFC 3339.
	ResetAt time.Time `json:"reset_at"`
}

// handleProviderRejection records an authoritative provider rate-limit
// rejection observed by an API client.
func (s *Server) handleProviderRejection(w http.ResponseWriter, r *http.Request) {
	var req providerRejectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ResetAt.IsZero() {
		writeError(w, http.StatusBadRequest, "reset_at is required")
		return
	}

	if err := s.manager.ReportProviderRejection(r.Context(), req.ResetAt); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "blocked",
		"reset_at": req.ResetAt.UTC(),
	})
}

// handleHealth serves GET /health. The probe reports degraded rather than
// failing when the store is down: the process is alive, the rate governor
// is failing closed.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := s.manager.Snapshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"reason": "counter store unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"quota":  snap.Status,
	})
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "counter store unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
