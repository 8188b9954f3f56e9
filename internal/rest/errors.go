// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sessionsign.
//
// go-sessionsign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jeremyhahn/go-sessionsign/pkg/auth"
	"github.com/jeremyhahn/go-sessionsign/pkg/backend"
	"github.com/jeremyhahn/go-sessionsign/pkg/backend/pki"
	"github.com/jeremyhahn/go-sessionsign/pkg/encoding"
	"github.com/jeremyhahn/go-sessionsign/pkg/logging"
	"github.com/jeremyhahn/go-sessionsign/pkg/method"
	"github.com/jeremyhahn/go-sessionsign/pkg/ratelimit"
)

// Common errors
var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrMissingUsername = errors.New("missing username")
	ErrInternalError   = errors.New("internal server error")
)

// writeError writes an error response to the client.
func writeError(logger *logging.Logger, w http.ResponseWriter, err error, statusCode int) {
	writeErrorWithMessage(logger, w, err, "", statusCode)
}

// writeErrorWithMessage writes an error response with a custom message.
func writeErrorWithMessage(logger *logging.Logger, w http.ResponseWriter, err error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:   err.Error(),
		Message: message,
		Code:    statusCode,
	}

	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		logger.Errorf("Failed to encode error response: %v", encErr)
	}
}

// mapErrorToStatusCode maps errors to HTTP status codes.
func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrMissingUsername),
		errors.Is(err, encoding.ErrInvalidData),
		errors.Is(err, backend.ErrInvalidUsername),
		errors.Is(err, backend.ErrInvalidToken),
		errors.Is(err, method.ErrUnsupportedMethod):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, pki.ErrSelfCheckFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, method.ErrNoActiveMethod),
		errors.Is(err, backend.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleError maps the error to a status code and writes the error
// response. Internal errors are logged but not echoed to the client.
func handleError(logger *logging.Logger, w http.ResponseWriter, err error) {
	statusCode := mapErrorToStatusCode(err)
	if statusCode == http.StatusInternalServerError {
		logger.Errorf("rest: internal error: %v", err)
		writeError(logger, w, ErrInternalError, statusCode)
		return
	}
	writeError(logger, w, err, statusCode)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(logger *logging.Logger, w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("Failed to encode JSON response: %v", err)
	}
}
