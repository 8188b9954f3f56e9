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
	"github.com/jeremyhahn/go-sessionsign/pkg/health"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Method  string `json:"method,omitempty"`
}

// HealthCheckResponse represents the response for the probe endpoints.
type HealthCheckResponse struct {
	Status  health.Status        `json:"status"`
	Message string               `json:"message,omitempty"`
	Checks  []health.CheckResult `json:"checks,omitempty"`
}

// MethodResponse describes the active signing method.
type MethodResponse struct {
	Method      string   `json:"method"`
	Methods     []string `json:"methods"`
	TokenLength int      `json:"token_length"`
	SigLength   int      `json:"sig_length"`
}

// SetMethodRequest switches the active signing method.
type SetMethodRequest struct {
	Method string `json:"method"`
}

// TokenRequest requests a new session token.
type TokenRequest struct {
	Username string `json:"username"`
	Secret   string `json:"secret,omitempty"`
	// SessionLength is a Go duration string such as "8h". It is advisory.
	SessionLength string `json:"session_length,omitempty"`
}

// TokenResponse carries a newly issued session token.
type TokenResponse struct {
	Username string `json:"username"`
	Method   string `json:"method"`
	Token    string `json:"token"`
}

// SignRequest signs Message with Token on behalf of Username.
type SignRequest struct {
	Username string `json:"username"`
	Token    string `json:"token"`
	Message  string `json:"message"`
}

// SignResponse carries a signature.
type SignResponse struct {
	Signature string `json:"signature"`
}

// VerifyRequest checks Signature over Message for Username.
type VerifyRequest struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// VerifyResponse reports the verification outcome.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
