package httpserver

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mailledger/backend/internal/model"
	"github.com/mailledger/backend/internal/service"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	cs, err := s.svc.GetConnectionStatus(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cs)
}

func (s *Server) handleBeginConsent(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	url, err := s.svc.BeginConsent(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"authorization_url": url})
}

func (s *Server) handleCompleteConsent(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req struct {
		State string `json:"state"`
		Code  string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if req.State == "" || req.Code == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "state and code are required"})
		return
	}
	if err := s.svc.CompleteConsent(r.Context(), userID, req.State, req.Code); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"connected": true})
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Revoke(r.Context(), userID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req struct {
		MaxResults int `json:"max_results"`
		WindowDays int `json:"window_days"`
	}
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	stats, err := s.svc.Fetch(r.Context(), userID, service.FetchOptions{
		MaxResults: req.MaxResults,
		WindowDays: req.WindowDays,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	pending, err := s.svc.ListPending(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if pending == nil {
		pending = []*model.PendingTransaction{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"transactions": pending})
}

// updatePendingRequest mirrors the correctable fields. Pointers distinguish
// "leave unchanged" from an explicit value.
type updatePendingRequest struct {
	Vendor      *string `json:"vendor"`
	Category    *string `json:"category"`
	Amount      *string `json:"amount"`
	OccurredAt  *string `json:"occurred_at"`
	Description *string `json:"description"`
}

func (s *Server) handleUpdatePending(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req updatePendingRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	fields := service.UpdatePendingFields{
		Vendor:      req.Vendor,
		Description: req.Description,
	}
	if req.Category != nil {
		c := model.Category(*req.Category)
		fields.Category = &c
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid amount"})
			return
		}
		fields.Amount = &amount
	}
	if req.OccurredAt != nil {
		t, err := time.Parse(time.RFC3339, *req.OccurredAt)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "occurred_at must be RFC 3339"})
			return
		}
		fields.OccurredAt = &t
	}

	updated, err := s.svc.UpdatePending(r.Context(), userID, r.PathValue("id"), fields)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePending(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeletePending(r.Context(), userID, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfirmPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if len(req.IDs) == 0 {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "ids is required"})
		return
	}
	result, err := s.svc.ConfirmPending(r.Context(), userID, req.IDs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if result.Confirmed == nil {
		result.Confirmed = []string{}
	}
	s.writeJSON(w, http.StatusOK, result)
}
