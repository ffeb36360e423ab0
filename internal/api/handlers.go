package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vietddude/pointboard/internal/core/apperr"
	"github.com/vietddude/pointboard/internal/core/domain"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

type reorderRequest struct {
	Lists []domain.ListPosition `json:"lists"`
}

type adjustPointsRequest struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

type balanceResponse struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	taskID := chi.URLParam(r, "taskID")

	task, err := s.deps.Completion.Complete(r.Context(), taskID, caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleReorderLists(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	boardID := chi.URLParam(r, "boardID")

	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.deps.Reorder.Reorder(r.Context(), boardID, req.Lists, caller.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	points, err := s.deps.Points.BalanceOf(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{UserID: userID, Points: points})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, apperr.Validation("api.history", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := s.deps.Points.HistoryFor(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleAdjustPoints grants a positive amount or deducts a negative one.
func (s *Server) handleAdjustPoints(w http.ResponseWriter, r *http.Request) {
	const op = "api.adjust_points"
	caller, _ := CallerFrom(r.Context())
	if !caller.Role.CanManage() {
		s.writeError(w, r, apperr.Forbidden(op, "only managers and admins may adjust points"))
		return
	}

	var req adjustPointsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	userID := chi.URLParam(r, "userID")
	var (
		entry *domain.LedgerEntry
		err   error
	)
	switch {
	case req.Amount > 0:
		entry, err = s.deps.Points.GrantManual(r.Context(), userID, req.Amount, caller.ID, req.Note)
	case req.Amount < 0:
		entry, err = s.deps.Points.DeductManual(r.Context(), userID, -req.Amount, caller.ID, req.Note)
	default:
		err = apperr.Validation(op, "amount must not be zero")
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("api.decode", "request body is required")
		}
		return apperr.Validation("api.decode", "invalid request body: %v", err)
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)

	msg := "internal error"
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg = ae.Message
		if msg == "" {
			msg = ae.Error()
		}
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
