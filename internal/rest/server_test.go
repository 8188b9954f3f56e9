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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jeremyhahn/go-sessionsign/pkg/auth"
	"github.com/jeremyhahn/go-sessionsign/pkg/backend/pki"
	"github.com/jeremyhahn/go-sessionsign/pkg/correlation"
	"github.com/jeremyhahn/go-sessionsign/pkg/encoding"
	"github.com/jeremyhahn/go-sessionsign/pkg/health"
	"github.com/jeremyhahn/go-sessionsign/pkg/logging"
	"github.com/jeremyhahn/go-sessionsign/pkg/method"
	"github.com/jeremyhahn/go-sessionsign/pkg/ratelimit"
	"github.com/jeremyhahn/go-sessionsign/pkg/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	selector *method.Selector
	server   *Server
}

func newTestEnv(t *testing.T, mutate func(*Config, *pki.Config)) *testEnv {
	t.Helper()

	logger := logging.Discard()
	pkiCfg := &pki.Config{
		RootDir: "/keys",
		Fs:      afero.NewMemMapFs(),
		Logger:  logger,
	}
	cfg := &Config{
		Logger:        logger,
		SessionLength: time.Hour,
		Version:       "test",
	}
	if mutate != nil {
		mutate(cfg, pkiCfg)
	}

	selector, err := method.NewDefaultSelector(logger, pkiCfg)
	require.NoError(t, err)
	t.Cleanup(func() { selector.Close() })

	cfg.Signer = selector
	server, err := NewServer(cfg)
	require.NoError(t, err)

	return &testEnv{selector: selector, server: server}
}

func (e *testEnv) do(t *testing.T, httpMethod, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(httpMethod, path, &buf)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func (e *testEnv) usePKI(t *testing.T) {
	t.Helper()
	rec := e.do(t, http.MethodPut, "/api/v1/method", SetMethodRequest{Method: "pki"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (e *testEnv) issueToken(t *testing.T, username string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/tokens", TokenRequest{Username: username, Secret: "pw"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[TokenResponse](t, rec).Token
}

func TestNewServer_NilConfig(t *testing.T) {
	server, err := NewServer(nil)
	assert.Nil(t, server)
	assert.Error(t, err)
}

func TestNewServer_NoSigner(t *testing.T) {
	server, err := NewServer(&Config{})
	assert.Nil(t, server)
	assert.Error(t, err)
}

func TestNewServer_Defaults(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Equal(t, ":8443", env.server.Address())
	assert.Equal(t, 15*time.Second, env.server.server.ReadTimeout)
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "none", resp.Method)
}

func TestMethodSwitch(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/method", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[MethodResponse](t, rec)
	assert.Equal(t, "none", resp.Method)
	assert.Equal(t, []string{"none", "pki"}, resp.Methods)
	assert.Equal(t, 8, resp.TokenLength)
	assert.Equal(t, 8, resp.SigLength)

	rec = env.do(t, http.MethodPut, "/api/v1/method", SetMethodRequest{Method: "PKI"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[MethodResponse](t, rec)
	assert.Equal(t, "pki", resp.Method)
	assert.Equal(t, 1000, resp.TokenLength)
	assert.Equal(t, 128, resp.SigLength)
	assert.Equal(t, types.MethodPKI, env.selector.Method())
}

func TestMethodSwitch_Invalid(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPut, "/api/v1/method", SetMethodRequest{Method: "hmac"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, types.MethodNone, env.selector.Method())
}

func TestMethodSwitch_BuildFailure(t *testing.T) {
	env := newTestEnv(t, func(_ *Config, p *pki.Config) { p.KeyBits = 512 })

	rec := env.do(t, http.MethodPut, "/api/v1/method", SetMethodRequest{Method: "pki"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrInternalError.Error(), decode[ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodPost, "/api/v1/tokens", TokenRequest{Username: "jsmith"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPKIRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	env.usePKI(t)

	token := env.issueToken(t, "jsmith")
	raw, err := encoding.DecodeText(token, 0)
	require.NoError(t, err)
	assert.Len(t, raw, 1000)

	msg := encoding.EncodeText([]byte("hello, world!"))
	rec := env.do(t, http.MethodPost, "/api/v1/sign", SignRequest{Username: "jsmith", Token: token, Message: msg})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sig := decode[SignResponse](t, rec).Signature

	rec = env.do(t, http.MethodPost, "/api/v1/verify", VerifyRequest{Username: "jsmith", Message: msg, Signature: sig})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[VerifyResponse](t, rec).Valid)

	other := encoding.EncodeText([]byte("hello, world?"))
	rec = env.do(t, http.MethodPost, "/api/v1/verify", VerifyRequest{Username: "jsmith", Message: other, Signature: sig})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[VerifyResponse](t, rec).Valid)

	rec = env.do(t, http.MethodPost, "/api/v1/verify", VerifyRequest{Username: "alice", Message: msg, Signature: sig})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[VerifyResponse](t, rec).Valid)
}

func TestNoneRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)

	token := env.issueToken(t, "jsmith")
	raw, err := encoding.DecodeText(token, 0)
	require.NoError(t, err)
	assert.Equal(t, "NONETOKN", string(raw))

	msg := encoding.EncodeText([]byte("anything"))
	rec := env.do(t, http.MethodPost, "/api/v1/sign", SignRequest{Username: "jsmith", Token: token, Message: msg})
	require.Equal(t, http.StatusOK, rec.Code)
	sig := decode[SignResponse](t, rec).Signature

	rec = env.do(t, http.MethodPost, "/api/v1/verify", VerifyRequest{Username: "jsmith", Message: msg, Signature: sig})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[VerifyResponse](t, rec).Valid)
}

func TestSign_BadToken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.usePKI(t)
	msg := encoding.EncodeText([]byte("m"))

	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "!!!"},
		{"wrong length", encoding.EncodeText([]byte("short"))},
		{"not a key", encoding.EncodeText(make([]byte, 1000))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/sign", SignRequest{Username: "jsmith", Token: tt.token, Message: msg})
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestSign_TokenOfAnotherUser(t *testing.T) {
	env := newTestEnv(t, nil)
	env.usePKI(t)

	token := env.issueToken(t, "alice")
	rec := env.do(t, http.MethodPost, "/api/v1/sign", SignRequest{
		Username: "bob",
		Token:    token,
		Message:  encoding.EncodeText([]byte("m")),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTokenRequestValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing username", TokenRequest{}},
		{"traversal", TokenRequest{Username: "../etc"}},
		{"bad session length", TokenRequest{Username: "jsmith", SessionLength: "forever"}},
		{"negative session length", TokenRequest{Username: "jsmith", SessionLength: "-1h"}},
		{"unknown field", map[string]string{"username": "jsmith", "role": "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/tokens", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestTokenAuthenticationFailure(t *testing.T) {
	reject := auth.AuthenticatorFunc(func(string, types.Password) error {
		return auth.ErrAuthenticationFailed
	})
	env := newTestEnv(t, func(_ *Config, p *pki.Config) { p.Authenticator = reject })
	env.usePKI(t)

	rec := env.do(t, http.MethodPost, "/api/v1/tokens", TokenRequest{Username: "jsmith", Secret: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenRateLimited(t *testing.T) {
	limiter := ratelimit.New(&ratelimit.Config{Enabled: true, RequestsPerMinute: 1, Burst: 1})
	t.Cleanup(limiter.Stop)
	env := newTestEnv(t, func(c *Config, _ *pki.Config) { c.Limiter = limiter })

	rec := env.do(t, http.MethodPost, "/api/v1/tokens", TokenRequest{Username: "jsmith"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/tokens", TokenRequest{Username: "jsmith"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/tokens", TokenRequest{Username: "alice"})
	assert.Equal(t, http.StatusCreated, rec.Code, "limits are per username")

	// another caller asking for the same user has its own budget
	body, err := json.Marshal(TokenRequest{Username: "jsmith"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tokens", bytes.NewReader(body))
	req.RemoteAddr = "198.51.100.7:40000"
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, "limits are per caller")
}

func TestCorrelationHeader(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(correlation.CorrelationIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(correlation.CorrelationIDHeader))

	rec = env.do(t, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get(correlation.CorrelationIDHeader))
}

func TestProbes(t *testing.T) {
	checker := health.NewChecker()
	env := newTestEnv(t, func(c *Config, _ *pki.Config) { c.HealthChecker = checker })
	checker.RegisterCheck("method", health.MethodCheck(env.selector))

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/health/startup", nil).Code)
	checker.MarkStarted()
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/startup", nil).Code)

	rec := env.do(t, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, health.StatusHealthy, decode[HealthCheckResponse](t, rec).Status)

	require.NoError(t, env.selector.Close())
	rec = env.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProbesWithoutChecker(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/health/live", "/health/ready", "/health/startup"} {
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, nil).Code, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, func(c *Config, _ *pki.Config) {
		c.MetricsPath = "/metrics"
		c.MetricsHandler = promhttp.Handler()
	})

	env.do(t, http.MethodGet, "/health", nil)
	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sessionsign_")
}

type panicSigner struct{ Signer }

func (panicSigner) Method() types.Method { panic("boom") }

func TestRecoveryMiddleware(t *testing.T) {
	server, err := NewServer(&Config{Signer: panicSigner{}, Logger: logging.Discard()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServeAndStop(t *testing.T) {
	env := newTestEnv(t, func(c *Config, _ *pki.Config) { c.Address = "127.0.0.1:0" })

	errCh := make(chan error, 1)
	go func() { errCh <- env.server.Start() }()

	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, env.server.Stop(ctx))
	require.NoError(t, <-errCh)
}
