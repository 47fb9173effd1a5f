// Package httpserver exposes the pipeline over a JSON HTTP API.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mailledger/backend/internal/auth"
	"github.com/mailledger/backend/internal/mailbox"
	"github.com/mailledger/backend/internal/service"
	"github.com/mailledger/backend/internal/store"
)

// Server routes HTTP requests to the sync service.
type Server struct {
	svc *service.SyncService
	log zerolog.Logger
}

// New creates a Server.
func New(svc *service.SyncService, log zerolog.Logger) *Server {
	return &Server{svc: svc, log: log}
}

// Routes builds the request mux. Authentication middleware is applied by the
// caller so local development can swap in the debug variant.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /v1/connection", s.handleGetConnection)
	mux.HandleFunc("POST /v1/connection/consent", s.handleBeginConsent)
	mux.HandleFunc("POST /v1/connection/consent/complete", s.handleCompleteConsent)
	mux.HandleFunc("POST /v1/connection/revoke", s.handleRevoke)

	mux.HandleFunc("POST /v1/sync", s.handleSync)

	mux.HandleFunc("GET /v1/pending", s.handleListPending)
	mux.HandleFunc("PATCH /v1/pending/{id}", s.handleUpdatePending)
	mux.HandleFunc("DELETE /v1/pending/{id}", s.handleDeletePending)
	mux.HandleFunc("POST /v1/pending/confirm", s.handleConfirmPending)

	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps domain errors onto HTTP statuses. Expired mailbox grants
// get a distinct code so clients can prompt for reconsent instead of
// re-login.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		s.writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, mailbox.ErrAuthExpired):
		s.writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error(), Code: "mail_auth_expired"})
	case errors.Is(err, service.ErrPermissionDenied):
		s.writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, store.ErrNotPending):
		s.writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrNotConnected):
		s.writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "not_connected"})
	case errors.Is(err, service.ErrInvalidConsent), errors.Is(err, service.ErrInvalidAmount):
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		s.log.Error().Err(err).Msg("internal error")
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, err := auth.RequireAuth(r.Context())
	if err != nil {
		s.writeError(w, err)
		return "", false
	}
	return claims.UID, true
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
