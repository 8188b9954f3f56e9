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

// Package ratelimit throttles session token issuance per user with a token
// bucket from golang.org/x/time/rate. Every token costs an RSA key
// generation and a new pair of key files, so issuance is the operation
// worth limiting.
package ratelimit

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned by Check when the caller is over its limit.
var ErrRateLimited = errors.New("ratelimit: rate limit exceeded")

// Limiter implements a token bucket rate limiter with per-client tracking.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	enabled  bool

	// Cleanup settings
	cleanupInterval time.Duration
	maxIdle         time.Duration
	lastSeen        map[string]time.Time
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// Config holds rate limiter configuration.
type Config struct {
	// Enabled controls whether rate limiting is active.
	Enabled bool

	// RequestsPerMinute sets the sustained rate limit.
	RequestsPerMinute int

	// Burst allows short bursts above the sustained rate.
	// If not set, defaults to RequestsPerMinute.
	Burst int

	// CleanupInterval controls how often to remove idle clients.
	// Defaults to 10 minutes.
	CleanupInterval time.Duration

	// MaxIdle is how long a client can be idle before cleanup.
	// Defaults to 30 minutes.
	MaxIdle time.Duration
}

// New creates a new rate limiter with the given configuration.
func New(config *Config) *Limiter {
	if config == nil {
		config = &Config{Enabled: false}
	}

	burst := config.Burst
	if burst == 0 {
		burst = config.RequestsPerMinute
	}

	cleanupInterval := config.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 10 * time.Minute
	}

	maxIdle := config.MaxIdle
	if maxIdle == 0 {
		maxIdle = 30 * time.Minute
	}

	l := &Limiter{
		limiters:        make(map[string]*rate.Limiter),
		lastSeen:        make(map[string]time.Time),
		rate:            rate.Limit(float64(config.RequestsPerMinute) / 60.0),
		burst:           burst,
		enabled:         config.Enabled,
		cleanupInterval: cleanupInterval,
		maxIdle:         maxIdle,
		stopCleanup:     make(chan struct{}),
	}

	if config.Enabled {
		go l.cleanupWorker()
	}

	return l
}

func (l *Limiter) getLimiter(clientID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[clientID]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[clientID] = limiter
	}

	l.lastSeen[clientID] = time.Now()
	return limiter
}

// Allow reports whether a request from clientID is within its limit.
func (l *Limiter) Allow(clientID string) bool {
	if !l.enabled {
		return true
	}
	return l.getLimiter(clientID).Allow()
}

// Check is Allow returning ErrRateLimited instead of false.
func (l *Limiter) Check(clientID string) error {
	if !l.Allow(clientID) {
		return ErrRateLimited
	}
	return nil
}

// Wait blocks until clientID may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, clientID string) error {
	if !l.enabled {
		return nil
	}
	return l.getLimiter(clientID).Wait(ctx)
}

func (l *Limiter) cleanupWorker() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

// cleanup removes clients that haven't made requests recently.
func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for clientID, lastSeen := range l.lastSeen {
		if now.Sub(lastSeen) > l.maxIdle {
			delete(l.limiters, clientID)
			delete(l.lastSeen, clientID)
		}
	}
}

// Stop stops the cleanup worker. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

// Stats returns current rate limiter statistics.
func (l *Limiter) Stats() map[string]interface{} {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return map[string]interface{}{
		"enabled":        l.enabled,
		"active_clients": len(l.limiters),
		"rate_per_min":   float64(l.rate) * 60,
		"burst":          l.burst,
	}
}

// KeyFunc extracts the rate limit key from a request.
type KeyFunc func(r *http.Request) string

// Middleware returns an HTTP middleware that enforces rate limiting keyed
// by keyFunc. A nil keyFunc uses the client IP.
func Middleware(limiter *Limiter, keyFunc KeyFunc) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(keyFunc(r)) {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP from the request, honouring
// X-Forwarded-For and X-Real-IP for proxied requests. The port of
// RemoteAddr is dropped so every connection from one host shares a key.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// IssuanceKey is the limiter key for token issuance: the caller address
// combined with the requested username, so one caller cannot spend the
// budget of a user it does not control from elsewhere.
func IssuanceKey(r *http.Request, username string) string {
	return ClientIP(r) + "|" + username
}
