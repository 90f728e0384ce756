// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/flickbox/flickbox/internal/auth"
)

// successBody is the envelope for 2xx auth responses.
type successBody struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Account *auth.Identity `json:"account,omitempty"`
}

// failureBody is the envelope for every error response.
type failureBody struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  []auth.FieldError `json:"errors,omitempty"`
	Detail  string            `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("failed to write response body", "error", err)
	}
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failureBody{Message: message})
}

// writeAuthError maps a Register or Login outcome to its status and body.
// validationStatus differs between register (422) and login (400).
func (s *Server) writeAuthError(w http.ResponseWriter, err error, validationStatus int) {
	body := failureBody{Message: msgInternal}
	status := http.StatusInternalServerError

	var authErr *auth.Error
	if errors.As(err, &authErr) {
		body.Message = authErr.Message
		body.Errors = authErr.Fields
		status = statusFor(authErr.Kind, validationStatus)
	}

	if !s.production {
		body.Detail = detailOf(err, authErr)
	}

	writeJSON(w, status, body)
}

// detailOf returns the underlying cause shown to clients outside production.
func detailOf(err error, authErr *auth.Error) string {
	if authErr == nil {
		return err.Error()
	}
	if cause := authErr.Unwrap(); cause != nil {
		return cause.Error()
	}
	return ""
}

func statusFor(kind auth.Kind, validationStatus int) int {
	switch kind {
	case auth.KindValidation:
		return validationStatus
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindUnauthorized:
		return http.StatusUnauthorized
	case auth.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
