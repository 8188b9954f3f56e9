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

package method

import (
	"sync"
	"time"

	"github.com/jeremyhahn/go-sessionsign/pkg/backend/none"
	"github.com/jeremyhahn/go-sessionsign/pkg/backend/pki"
	"github.com/jeremyhahn/go-sessionsign/pkg/logging"
	"github.com/jeremyhahn/go-sessionsign/pkg/types"
)

// StartupMethod is active in a newly created default selector.
const StartupMethod = types.MethodNone

var (
	defaultOnce     sync.Once
	defaultSelector *Selector
)

// NewDefaultSelector creates a selector with the built-in none and pki
// backends registered and StartupMethod active. The pki backend uses
// pkiConfig, or pki.DefaultConfig when nil.
func NewDefaultSelector(logger *logging.Logger, pkiConfig *pki.Config) (*Selector, error) {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	if pkiConfig == nil {
		pkiConfig = pki.DefaultConfig()
	}
	if pkiConfig.Logger == nil {
		cfg := *pkiConfig
		cfg.Logger = logger
		pkiConfig = &cfg
	}

	s := NewSelector(
		WithLogger(logger),
		WithFactory(types.MethodNone, func() (types.Backend, error) {
			return none.NewBackend(logger), nil
		}),
		WithFactory(types.MethodPKI, func() (types.Backend, error) {
			return pki.NewBackend(pkiConfig)
		}),
	)
	if err := s.SetMethod(StartupMethod); err != nil {
		return nil, err
	}
	return s, nil
}

// Default returns the process-wide selector, creating it on first use.
func Default() *Selector {
	defaultOnce.Do(func() {
		s, err := NewDefaultSelector(nil, nil)
		if err != nil {
			logging.DefaultLogger().FatalError(err)
		}
		defaultSelector = s
	})
	return defaultSelector
}

// GetMethod returns the method active in the default selector.
func GetMethod() types.Method {
	return Default().Method()
}

// SetMethod switches the default selector to m. An unknown method or a
// backend that cannot be built is a configuration fault and terminates the
// process; use Selector.SetMethod to handle the error instead.
func SetMethod(m types.Method) {
	if err := Default().SetMethod(m); err != nil {
		logging.DefaultLogger().FatalError(err)
	}
}

// SigLength returns the signature length of the default selector.
func SigLength() int {
	return Default().SigLength()
}

// TokenLength returns the token length of the default selector.
func TokenLength() int {
	return Default().TokenLength()
}

// GenerateSessionToken issues a token with the default selector.
func GenerateSessionToken(username string, secret types.Password, sessionLength time.Duration) ([]byte, error) {
	return Default().GenerateSessionToken(username, secret, sessionLength)
}

// Sign signs msg with the default selector.
func Sign(msg []byte, username string, token []byte) ([]byte, error) {
	return Default().Sign(msg, username, token)
}

// Verify verifies sig with the default selector.
func Verify(msg []byte, username string, sig []byte) (bool, error) {
	return Default().Verify(msg, username, sig)
}
