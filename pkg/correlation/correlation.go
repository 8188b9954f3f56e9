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

// Package correlation carries a per-request ID through contexts and HTTP
// headers so log lines for one token, sign or verify request can be joined.
package correlation

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-sessionsign/pkg/logging"
)

type contextKey string

const (
	// CorrelationIDKey is the context key for storing correlation IDs
	CorrelationIDKey contextKey = "correlation-id"

	// RequestIDHeader is the HTTP header for request IDs
	RequestIDHeader = "X-Request-ID"

	// CorrelationIDHeader is the HTTP header for correlation IDs
	CorrelationIDHeader = "X-Correlation-ID"

	// LogKey is the attribute name used in log lines.
	LogKey = "correlation_id"
)

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// GetCorrelationID retrieves the correlation ID from context, or "".
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// NewID generates a new UUID v4 correlation ID.
func NewID() string {
	return uuid.New().String()
}

// GetOrGenerate returns the context's correlation ID or a new one.
func GetOrGenerate(ctx context.Context) string {
	if id := GetCorrelationID(ctx); id != "" {
		return id
	}
	return NewID()
}

// Logger returns logger annotated with the context's correlation ID, or
// logger itself when the context has none.
func Logger(ctx context.Context, logger *logging.Logger) *logging.Logger {
	if id := GetCorrelationID(ctx); id != "" {
		return logger.With(LogKey, id)
	}
	return logger
}

// Middleware takes the correlation ID from X-Correlation-ID, then
// X-Request-ID, generating one when neither is set. The ID is stored in
// the request context and echoed in the X-Correlation-ID response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationIDHeader)
		if id == "" {
			id = r.Header.Get(RequestIDHeader)
		}
		if id == "" {
			id = NewID()
		}

		w.Header().Set(CorrelationIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithCorrelationID(r.Context(), id)))
	})
}
