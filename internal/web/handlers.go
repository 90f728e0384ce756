// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flickbox/flickbox/internal/auth"
	"github.com/flickbox/flickbox/internal/logging"
	"github.com/flickbox/flickbox/internal/store"
)

const (
	msgRegistered   = "Registration successful! You can now sign in."
	msgLoggedIn     = "Login successful. Welcome back!"
	msgInternal     = "An unexpected server error occurred. Please try again later."
	msgMalformed    = "Request body must be a valid JSON object."
	msgBodyTooLarge = "Request body is too large."
)

// Authenticator is the part of *auth.Service the handlers call.
type Authenticator interface {
	Register(ctx context.Context, in auth.RegisterInput) (auth.Identity, error)
	Login(ctx context.Context, accountID, password string) (auth.Identity, error)
}

// registerRequest accepts the current field names and the legacy
// UserId/name spellings sent by older frontends.
type registerRequest struct {
	AccountID       string `json:"accountId"`
	LegacyAccountID string `json:"UserId"`
	DisplayName     string `json:"displayName"`
	LegacyName      string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
}

func (r registerRequest) input() auth.RegisterInput {
	return auth.RegisterInput{
		AccountID:   firstNonEmpty(r.AccountID, r.LegacyAccountID),
		DisplayName: firstNonEmpty(r.DisplayName, r.LegacyName),
		Email:       r.Email,
		Phone:       r.Phone,
		Password:    r.Password,
	}
}

type loginRequest struct {
	AccountID       string `json:"accountId"`
	LegacyAccountID string `json:"UserId"`
	Password        string `json:"password"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// decodeBody reads a JSON object into dst. It writes the failure response
// and returns false when the body is malformed or over the size limit.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return false
		}
		writeFailure(w, http.StatusBadRequest, msgMalformed)
		return false
	}
	return true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if _, err := s.auth.Register(r.Context(), req.input()); err != nil {
		s.writeAuthError(w, err, http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusCreated, successBody{Success: true, Message: msgRegistered})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	identity, err := s.auth.Login(r.Context(), firstNonEmpty(req.AccountID, req.LegacyAccountID), req.Password)
	if err != nil {
		s.writeAuthError(w, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, successBody{Success: true, Message: msgLoggedIn, Account: &identity})
}

type healthBody struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Schema   string `json:"schema,omitempty"`
}

// handleHealth reports 200 only when the database answers a ping and the
// schema has been created.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthBody{Status: "degraded", Database: "disconnected"})
		return
	}

	if err := store.Ping(r.Context(), s.db, s.pingTimeout); err != nil {
		s.logger.WarnContext(r.Context(), "health check ping failed",
			"error", err,
			"request_id", logging.RequestID(r.Context()),
		)
		writeJSON(w, http.StatusServiceUnavailable, healthBody{Status: "degraded", Database: "disconnected"})
		return
	}

	if s.schemaReady != nil && !s.schemaReady() {
		writeJSON(w, http.StatusServiceUnavailable, healthBody{Status: "degraded", Database: "connected", Schema: "pending"})
		return
	}

	writeJSON(w, http.StatusOK, healthBody{Status: "ok", Database: "connected", Schema: "ready"})
}

type endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

type indexBody struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	Endpoints []endpoint `json:"endpoints"`
}

var endpoints = []endpoint{
	{http.MethodPost, "/api/register", "Create an account"},
	{http.MethodPost, "/api/login", "Sign in with User ID and password"},
	{http.MethodGet, "/api/health", "Database connectivity check"},
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, indexBody{Success: true, Message: "Flickbox auth API", Endpoints: endpoints})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, http.StatusNotFound, "Route "+r.Method+" "+r.URL.Path+" not found.")
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, http.StatusMethodNotAllowed, "Method "+r.Method+" is not allowed on "+r.URL.Path+".")
}
