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

// Package method selects the active signing backend and forwards every
// signing operation to it. Exactly one backend is active at a time;
// switching closes the previous backend before the next one is built.
package method

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jeremyhahn/go-sessionsign/pkg/auth"
	"github.com/jeremyhahn/go-sessionsign/pkg/backend"
	"github.com/jeremyhahn/go-sessionsign/pkg/backend/pki"
	"github.com/jeremyhahn/go-sessionsign/pkg/logging"
	"github.com/jeremyhahn/go-sessionsign/pkg/metrics"
	"github.com/jeremyhahn/go-sessionsign/pkg/types"
)

// Factory builds a backend. It is called on every activation of its method.
type Factory func() (types.Backend, error)

// Option configures a Selector.
type Option func(*Selector)

// WithFactory registers a factory for m, replacing any previous one.
func WithFactory(m types.Method, f Factory) Option {
	return func(s *Selector) {
		s.factories[m] = f
	}
}

// WithLogger sets the selector logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Selector) {
		s.logger = logger
	}
}

// Selector owns the active backend. Dispatch methods run under a read lock
// and SetMethod takes the write lock, so a switch never overlaps an
// operation in flight.
type Selector struct {
	mu        sync.RWMutex
	factories map[types.Method]Factory
	active    types.Backend
	method    types.Method
	logger    *logging.Logger
}

// NewSelector creates a selector with no active backend.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		factories: make(map[types.Method]Factory),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.DefaultLogger()
	}
	return s
}

// Register adds or replaces the factory for m.
func (s *Selector) Register(m types.Method, f Factory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[m] = f
}

// Methods returns the registered methods, sorted.
func (s *Selector) Methods() []types.Method {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.methodsLocked()
}

func (s *Selector) methodsLocked() []types.Method {
	methods := make([]types.Method, 0, len(s.factories))
	for m := range s.factories {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	return methods
}

// Method returns the active method, or "" when none is active.
func (s *Selector) Method() types.Method {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.method
}

// Backend returns the active backend, or nil.
func (s *Selector) Backend() types.Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetMethod closes the active backend and activates m. Activating the
// already active method rebuilds it. If m cannot be built the selector is
// left without an active backend.
func (s *Selector) SetMethod(m types.Method) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordOperation(metrics.OpSetMethod, m.String(), metrics.StatusFor(err), time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	factory, ok := s.factories[m]
	if !ok {
		metrics.RecordError(metrics.OpSetMethod, m.String(), "unsupported_method")
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, m)
	}

	previous := s.method
	if s.active != nil {
		if cerr := s.active.Close(); cerr != nil {
			s.logger.Warnf("method: closing %s backend: %v", s.method, cerr)
		}
		s.active = nil
		s.method = ""
	}

	b, err := factory()
	if err != nil {
		s.publishLocked()
		metrics.RecordError(metrics.OpSetMethod, m.String(), "factory")
		return fmt.Errorf("method: activate %s: %w", m, err)
	}

	s.active = b
	s.method = m
	s.publishLocked()

	s.logger.Info("method: signing method changed", "from", previous.String(), "to", m.String())
	return nil
}

func (s *Selector) publishLocked() {
	known := make([]string, 0, len(s.factories))
	for _, m := range s.methodsLocked() {
		known = append(known, m.String())
	}
	metrics.SetActiveMethod(s.method.String(), known)
}

// SigLength returns the active backend's signature length, or 0 when no
// backend is active.
func (s *Selector) SigLength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return 0
	}
	return s.active.SigLength()
}

// TokenLength returns the active backend's token length, or 0 when no
// backend is active.
func (s *Selector) TokenLength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return 0
	}
	return s.active.TokenLength()
}

// GenerateSessionToken issues a token with the active backend.
func (s *Selector) GenerateSessionToken(username string, secret types.Password, sessionLength time.Duration) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil, ErrNoActiveMethod
	}

	start := time.Now()
	token, err := s.active.GenerateSessionToken(username, secret, sessionLength)
	s.record(metrics.OpGenerateToken, err, start)
	return token, err
}

// Sign signs msg with the active backend.
func (s *Selector) Sign(msg []byte, username string, token []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil, ErrNoActiveMethod
	}

	start := time.Now()
	sig, err := s.active.Sign(msg, username, token)
	s.record(metrics.OpSign, err, start)
	return sig, err
}

// Verify verifies sig with the active backend.
func (s *Selector) Verify(msg []byte, username string, sig []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return false, ErrNoActiveMethod
	}

	start := time.Now()
	ok, err := s.active.Verify(msg, username, sig)
	s.record(metrics.OpVerify, err, start)
	if err == nil {
		metrics.RecordVerification(s.method.String(), ok)
	}
	return ok, err
}

// Purger is implemented by backends that keep key material on disk.
type Purger interface {
	Purge(username string, olderThan time.Duration) (int, error)
}

// Purge removes stored keys older than olderThan when the active backend
// keeps any. Backends without stored keys purge nothing.
func (s *Selector) Purge(username string, olderThan time.Duration) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return 0, ErrNoActiveMethod
	}

	p, ok := s.active.(Purger)
	if !ok {
		return 0, nil
	}
	start := time.Now()
	n, err := p.Purge(username, olderThan)
	s.record(metrics.OpPurge, err, start)
	return n, err
}

// Close closes the active backend. Dispatch then fails with
// ErrNoActiveMethod until SetMethod is called again.
func (s *Selector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	err := s.active.Close()
	s.active = nil
	s.method = ""
	s.publishLocked()
	return err
}

func (s *Selector) record(op string, err error, start time.Time) {
	m := s.method.String()
	metrics.RecordOperation(op, m, metrics.StatusFor(err), time.Since(start).Seconds())
	if err != nil {
		metrics.RecordError(op, m, errorType(err))
	}
}

// errorType maps an error to a short metrics label.
func errorType(err error) string {
	switch {
	case errors.Is(err, backend.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, backend.ErrInvalidUsername):
		return "invalid_username"
	case errors.Is(err, backend.ErrClosed):
		return "closed"
	case errors.Is(err, auth.ErrAuthenticationFailed):
		return "authentication_failed"
	case errors.Is(err, pki.ErrSelfCheckFailed):
		return "self_check_failed"
	default:
		return "internal"
	}
}
