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

// Package pki implements the PKI signing backend. Every session token is a
// freshly generated RSA private key, padded to a fixed length. The key pair
// is also written to a per-user key store, and verification scans that
// store for a key that accepts the signature.
//
// Verification needs only the username and the signature; the caller does
// not have to say which token produced it. The cost is linear in the number
// of keys stored for the user, and keys are only removed by Purge.
package pki

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jeremyhahn/go-sessionsign/pkg/auth"
	"github.com/jeremyhahn/go-sessionsign/pkg/backend"
	"github.com/jeremyhahn/go-sessionsign/pkg/digest"
	"github.com/jeremyhahn/go-sessionsign/pkg/encoding"
	"github.com/jeremyhahn/go-sessionsign/pkg/keystore"
	"github.com/jeremyhahn/go-sessionsign/pkg/logging"
	"github.com/jeremyhahn/go-sessionsign/pkg/metrics"
	"github.com/jeremyhahn/go-sessionsign/pkg/types"
	"github.com/jeremyhahn/go-sessionsign/pkg/validation"
)

// Backend is the PKI signing backend.
type Backend struct {
	config   *Config
	store    *keystore.KeyStore
	digester *digest.Digester
	auth     auth.Authenticator
	logger   *logging.Logger
	tokenLen int
	sigLen   int
	mu       sync.RWMutex
	closed   bool
}

// NewBackend creates a PKI backend, creating the key store root if needed.
// A nil config uses DefaultConfig.
func NewBackend(config *Config) (*Backend, error) {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	digester, err := digest.New(cfg.Hash)
	if err != nil {
		return nil, err
	}
	tokenLen, err := TokenCapacity(cfg.KeyBits)
	if err != nil {
		return nil, err
	}

	store, err := keystore.New(&keystore.Config{
		Fs:         cfg.Fs,
		RootDir:    cfg.RootDir,
		Passphrase: cfg.Passphrase,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	cfg.Logger.Debugf("pki: key store at %s, %d bit keys, %s", store.RootDir(), cfg.KeyBits, cfg.Hash)

	return &Backend{
		config:   &cfg,
		store:    store,
		digester: digester,
		auth:     cfg.Authenticator,
		logger:   cfg.Logger,
		tokenLen: tokenLen,
		sigLen:   cfg.KeyBits / 8,
	}, nil
}

// Method returns types.MethodPKI.
func (b *Backend) Method() types.Method {
	return types.MethodPKI
}

// SigLength returns the signature length, the key size in bytes.
func (b *Backend) SigLength() int {
	return b.sigLen
}

// TokenLength returns the fixed token capacity for the configured key size.
func (b *Backend) TokenLength() int {
	return b.tokenLen
}

// KeyStore returns the backing key store.
func (b *Backend) KeyStore() *keystore.KeyStore {
	return b.store
}

// GenerateSessionToken authenticates the caller, generates a new key pair,
// stores it for username and returns the padded private key as the token.
// sessionLength is recorded in the log only; it is not enforced.
func (b *Backend) GenerateSessionToken(username string, secret types.Password, sessionLength time.Duration) ([]byte, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrInvalidUsername, err)
	}
	if err := b.auth.Authenticate(username, secret); err != nil {
		b.logger.Warn("pki: token request rejected",
			"user", validation.SanitizeForLog(username), "error", err)
		return nil, err
	}

	if err := b.store.EnsureUserDir(username); err != nil {
		return nil, err
	}

	key, err := rsa.GenerateKey(rand.Reader, b.config.KeyBits)
	if err != nil {
		return nil, fmt.Errorf("pki: generate key: %w", err)
	}

	token, err := b.encodeToken(key)
	if err != nil {
		return nil, err
	}

	publicPEM, err := encoding.EncodeRSAPublicKeyPEM(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	privatePEM, err := encoding.EncodePrivateKeyPEM(key, b.store.Passphrase())
	if err != nil {
		return nil, err
	}

	record, err := b.store.WritePair(username, privatePEM, publicPEM)
	if err != nil {
		return nil, err
	}

	b.logger.Info("pki: issued session token",
		"user", validation.SanitizeForLog(username),
		"key", record.Name,
		"session_length", sessionLength.String())

	return token, nil
}

// encodeToken pads the PKCS#1 PEM encoding of key to the token length.
func (b *Backend) encodeToken(key *rsa.PrivateKey) ([]byte, error) {
	pemData, err := encoding.EncodeRSAPrivateKeyPEM(key)
	if err != nil {
		return nil, err
	}
	if len(pemData) > b.tokenLen {
		return nil, fmt.Errorf("%w: %d > %d bytes", backend.ErrTokenOverflow, len(pemData), b.tokenLen)
	}
	token := make([]byte, b.tokenLen)
	copy(token, pemData)
	return token, nil
}

// decodeToken recovers the private key from a token. Only tokens of exactly
// TokenLength bytes carrying a PKCS#1 key are accepted.
func (b *Backend) decodeToken(token []byte) (*rsa.PrivateKey, error) {
	if len(token) != b.tokenLen {
		return nil, fmt.Errorf("%w: %d bytes, want %d", backend.ErrInvalidToken, len(token), b.tokenLen)
	}
	key, err := encoding.DecodeRSAPrivateKeyPEM(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrInvalidToken, err)
	}
	if key.N.BitLen() != b.config.KeyBits {
		return nil, fmt.Errorf("%w: %d bit key, want %d", backend.ErrInvalidToken, key.N.BitLen(), b.config.KeyBits)
	}
	return key, nil
}

// Sign signs msg with the key carried in token. The signature is checked
// against the user's stored keys before it is returned; username does not
// select the signing key.
func (b *Backend) Sign(msg []byte, username string, token []byte) ([]byte, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	key, err := b.decodeToken(token)
	if err != nil {
		return nil, err
	}

	sig, err := rsa.SignPKCS1v15(rand.Reader, key, b.digester.Hash(), b.digester.Sum(msg))
	if err != nil {
		return nil, fmt.Errorf("pki: sign: %w", err)
	}

	ok, err := b.Verify(msg, username, sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSelfCheckFailed, err)
	}
	if !ok {
		b.logger.Errorf("pki: signature for user %s does not verify against its key store",
			validation.SanitizeForLog(username))
		return nil, ErrSelfCheckFailed
	}

	return sig, nil
}

// Verify reports whether any key stored for username accepts sig over msg.
// Keys are tried in directory order and the scan stops at the first match.
// A missing or unreadable key directory means no key matches.
func (b *Backend) Verify(msg []byte, username string, sig []byte) (bool, error) {
	if err := b.checkOpen(); err != nil {
		return false, err
	}
	if err := validation.ValidateUsername(username); err != nil {
		return false, fmt.Errorf("%w: %v", backend.ErrInvalidUsername, err)
	}
	if len(sig) != b.sigLen {
		return false, nil
	}

	names, err := b.store.ListPrivateKeys(username)
	if err != nil {
		b.logger.Warnf("pki: cannot list keys for %s: %v", validation.SanitizeForLog(username), err)
		return false, nil
	}

	hashed := b.digester.Sum(msg)
	passphrase := b.store.Passphrase()

	tried := 0
	defer func() { metrics.ObserveVerifyCandidates(tried) }()

	for _, name := range names {
		tried++
		key, err := b.loadKey(username, name, passphrase)
		if err != nil {
			b.logger.Warnf("pki: skipping key %s for %s: %v", name, validation.SanitizeForLog(username), err)
			continue
		}
		if rsa.VerifyPKCS1v15(&key.PublicKey, b.digester.Hash(), hashed, sig) == nil {
			b.logger.Debugf("pki: signature verified with key %s after %d candidates", name, tried)
			return true, nil
		}
	}

	return false, nil
}

func (b *Backend) loadKey(username, name string, passphrase []byte) (*rsa.PrivateKey, error) {
	data, err := b.store.ReadPrivateKey(username, name)
	if err != nil {
		return nil, err
	}
	return encoding.DecodePrivateKeyPEM(data, passphrase)
}

// Purge removes the key pairs of username older than olderThan. Signatures
// made with purged keys no longer verify.
func (b *Backend) Purge(username string, olderThan time.Duration) (int, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	if olderThan < 0 {
		return 0, errors.New("pki: purge age cannot be negative")
	}
	removed, err := b.store.Purge(username, time.Now().Add(-olderThan))
	metrics.AddKeysPurged(removed)
	return removed, err
}

// Hash returns the configured digest algorithm.
func (b *Backend) Hash() crypto.Hash {
	return b.digester.Hash()
}

// Close releases the backend. Stored keys are left in place.
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
