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

// Package none implements the degenerate signing backend. It performs no
// cryptography: every token and signature is a fixed 8 byte sentinel. It is
// the startup default and is useful when signing is administratively
// disabled.
package none

import (
	"bytes"
	"sync"
	"time"

	"github.com/jeremyhahn/go-sessionsign/pkg/backend"
	"github.com/jeremyhahn/go-sessionsign/pkg/logging"
	"github.com/jeremyhahn/go-sessionsign/pkg/types"
)

const (
	// SentinelToken is the only token this backend issues or accepts.
	SentinelToken = "NONETOKN"

	// SentinelSignature is the only signature this backend produces or accepts.
	SentinelSignature = "NONESIGN"
)

// Backend is the NONE signing backend.
type Backend struct {
	logger *logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewBackend creates a NONE backend. A nil logger uses the default logger.
func NewBackend(logger *logging.Logger) *Backend {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Backend{logger: logger}
}

// Method returns types.MethodNone.
func (b *Backend) Method() types.Method {
	return types.MethodNone
}

// SigLength returns len(SentinelSignature).
func (b *Backend) SigLength() int {
	return len(SentinelSignature)
}

// TokenLength returns len(SentinelToken).
func (b *Backend) TokenLength() int {
	return len(SentinelToken)
}

// GenerateSessionToken returns SentinelToken regardless of input.
func (b *Backend) GenerateSessionToken(username string, _ types.Password, _ time.Duration) ([]byte, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	b.logger.Debug("none: issuing sentinel token")
	return []byte(SentinelToken), nil
}

// Sign returns SentinelSignature when token is exactly SentinelToken.
func (b *Backend) Sign(_ []byte, _ string, token []byte) ([]byte, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if !bytes.Equal(token, []byte(SentinelToken)) {
		return nil, backend.ErrInvalidToken
	}
	return []byte(SentinelSignature), nil
}

// Verify reports whether sig is exactly SentinelSignature.
func (b *Backend) Verify(_ []byte, _ string, sig []byte) (bool, error) {
	if err := b.checkOpen(); err != nil {
		return false, err
	}
	return bytes.Equal(sig, []byte(SentinelSignature)), nil
}

// Close marks the backend closed.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Backend) checkOpen() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return backend.ErrClosed
	}
	return nil
}

var _ types.Backend = (*Backend)(nil)
