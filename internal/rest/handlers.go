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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jeremyhahn/go-sessionsign/internal/password"
	"github.com/jeremyhahn/go-sessionsign/pkg/correlation"
	"github.com/jeremyhahn/go-sessionsign/pkg/encoding"
	"github.com/jeremyhahn/go-sessionsign/pkg/health"
	"github.com/jeremyhahn/go-sessionsign/pkg/logging"
	"github.com/jeremyhahn/go-sessionsign/pkg/ratelimit"
	"github.com/jeremyhahn/go-sessionsign/pkg/types"
	"github.com/jeremyhahn/go-sessionsign/pkg/validation"
)

// maxBodyBytes bounds request bodies. A base64 token for the largest key
// size is well under this.
const maxBodyBytes = 1 << 20

// Signer is the signing surface served by the handlers. *method.Selector
// implements it.
type Signer interface {
	Method() types.Method
	Methods() []types.Method
	SetMethod(m types.Method) error
	SigLength() int
	TokenLength() int
	GenerateSessionToken(username string, secret types.Password, sessionLength time.Duration) ([]byte, error)
	Sign(msg []byte, username string, token []byte) ([]byte, error)
	Verify(msg []byte, username string, sig []byte) (bool, error)
}

// HealthChecker defines the interface for health checking.
type HealthChecker interface {
	Live(ctx context.Context) health.CheckResult
	Ready(ctx context.Context) []health.CheckResult
	Startup(ctx context.Context) health.CheckResult
}

// HandlerContext holds dependencies for REST handlers.
type HandlerContext struct {
	// Version is the API version
	Version string
	// HealthChecker manages health check probes
	HealthChecker HealthChecker

	signer        Signer
	limiter       *ratelimit.Limiter
	sessionLength time.Duration
	logger        *logging.Logger
}

// NewHandlerContext creates a new handler context. A nil limiter disables
// token issuance rate limiting.
func NewHandlerContext(signer Signer, limiter *ratelimit.Limiter, sessionLength time.Duration, version string, logger *logging.Logger) *HandlerContext {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &HandlerContext{
		Version:       version,
		signer:        signer,
		limiter:       limiter,
		sessionLength: sessionLength,
		logger:        logger,
	}
}

// SetHealthChecker sets the health checker for the handler context.
func (h *HandlerContext) SetHealthChecker(checker HealthChecker) {
	h.HealthChecker = checker
}

// HealthHandler handles GET /health requests.
func (h *HandlerContext) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Version: h.Version,
		Method:  h.signer.Method().String(),
	}
	writeJSON(h.logger, w, resp, http.StatusOK)
}

// GetMethodHandler handles GET /api/v1/method requests.
func (h *HandlerContext) GetMethodHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.logger, w, h.methodResponse(), http.StatusOK)
}

// SetMethodHandler handles PUT /api/v1/method requests.
func (h *HandlerContext) SetMethodHandler(w http.ResponseWriter, r *http.Request) {
	var req SetMethodRequest
	if err := decodeBody(w, r, &req); err != nil {
		handleError(h.logger, w, err)
		return
	}

	m, err := types.ParseMethod(req.Method)
	if err != nil {
		handleError(h.logger, w, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	log := correlation.Logger(r.Context(), h.logger)
	if err := h.signer.SetMethod(m); err != nil {
		log.Errorf("rest: set method %s: %v", m, err)
		handleError(h.logger, w, err)
		return
	}
	log.Info("rest: signing method switched", "method", m.String())

	writeJSON(h.logger, w, h.methodResponse(), http.StatusOK)
}

func (h *HandlerContext) methodResponse() MethodResponse {
	methods := h.signer.Methods()
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.String()
	}
	return MethodResponse{
		Method:      h.signer.Method().String(),
		Methods:     names,
		TokenLength: h.signer.TokenLength(),
		SigLength:   h.signer.SigLength(),
	}
}

// TokenHandler handles POST /api/v1/tokens requests.
func (h *HandlerContext) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeBody(w, r, &req); err != nil {
		handleError(h.logger, w, err)
		return
	}
	if err := checkUsername(req.Username); err != nil {
		handleError(h.logger, w, err)
		return
	}

	sessionLength := h.sessionLength
	if req.SessionLength != "" {
		d, err := time.ParseDuration(req.SessionLength)
		if err != nil || d < 0 {
			handleError(h.logger, w, fmt.Errorf("%w: session_length %q", ErrInvalidRequest, req.SessionLength))
			return
		}
		sessionLength = d
	}

	log := correlation.Logger(r.Context(), h.logger)
	if h.limiter != nil {
		if err := h.limiter.Check(ratelimit.IssuanceKey(r, req.Username)); err != nil {
			log.Warn("rest: token issuance rate limited", "username", validation.SanitizeForLog(req.Username))
			handleError(h.logger, w, err)
			return
		}
	}

	secret := password.Optional(req.Secret)
	if secret != nil {
		defer secret.Clear()
	}

	token, err := h.signer.GenerateSessionToken(req.Username, secret, sessionLength)
	if err != nil {
		log.Warnf("rest: token for %s: %v", validation.SanitizeForLog(req.Username), err)
		handleError(h.logger, w, err)
		return
	}

	writeJSON(h.logger, w, TokenResponse{
		Username: req.Username,
		Method:   h.signer.Method().String(),
		Token:    encoding.EncodeText(token),
	}, http.StatusCreated)
}

// SignHandler handles POST /api/v1/sign requests.
func (h *HandlerContext) SignHandler(w http.ResponseWriter, r *http.Request) {
	var req SignRequest
	if err := decodeBody(w, r, &req); err != nil {
		handleError(h.logger, w, err)
		return
	}
	if err := checkUsername(req.Username); err != nil {
		handleError(h.logger, w, err)
		return
	}

	token, err := encoding.DecodeText(req.Token, h.signer.TokenLength())
	if err != nil {
		handleError(h.logger, w, fmt.Errorf("token: %w", err))
		return
	}
	msg, err := encoding.DecodeText(req.Message, 0)
	if err != nil {
		handleError(h.logger, w, fmt.Errorf("message: %w", err))
		return
	}

	sig, err := h.signer.Sign(msg, req.Username, token)
	if err != nil {
		correlation.Logger(r.Context(), h.logger).Warnf("rest: sign for %s: %v", validation.SanitizeForLog(req.Username), err)
		handleError(h.logger, w, err)
		return
	}

	writeJSON(h.logger, w, SignResponse{Signature: encoding.EncodeText(sig)}, http.StatusOK)
}

// VerifyHandler handles POST /api/v1/verify requests. A signature that does
// not verify is not an error.
func (h *HandlerContext) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		handleError(h.logger, w, err)
		return
	}
	if err := checkUsername(req.Username); err != nil {
		handleError(h.logger, w, err)
		return
	}

	msg, err := encoding.DecodeText(req.Message, 0)
	if err != nil {
		handleError(h.logger, w, fmt.Errorf("message: %w", err))
		return
	}
	sig, err := encoding.DecodeText(req.Signature, 0)
	if err != nil {
		handleError(h.logger, w, fmt.Errorf("signature: %w", err))
		return
	}

	ok, err := h.signer.Verify(msg, req.Username, sig)
	if err != nil {
		handleError(h.logger, w, err)
		return
	}

	writeJSON(h.logger, w, VerifyResponse{Valid: ok}, http.StatusOK)
}

// decodeBody decodes a bounded JSON body into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func checkUsername(username string) error {
	if username == "" {
		return ErrMissingUsername
	}
	if err := validation.ValidateUsername(username); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
