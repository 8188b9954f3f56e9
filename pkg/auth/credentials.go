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

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jeremyhahn/go-sessionsign/internal/password"
	"github.com/jeremyhahn/go-sessionsign/pkg/storage"
	"github.com/jeremyhahn/go-sessionsign/pkg/types"
	"github.com/jeremyhahn/go-sessionsign/pkg/validation"
	"golang.org/x/crypto/argon2"
)

const (
	algorithmArgon2id = "argon2id"
	saltLength        = 16
)

// Argon2Params are the argon2id cost parameters for new credentials.
type Argon2Params struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
	KeyLen  uint32 `json:"key_len"`
}

// DefaultArgon2Params follows the RFC 9106 second recommended option.
var DefaultArgon2Params = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
}

// credential is the persisted record of one user.
type credential struct {
	Username  string       `json:"username"`
	Algorithm string       `json:"algorithm"`
	Params    Argon2Params `json:"params"`
	Salt      []byte       `json:"salt"`
	Hash      []byte       `json:"hash"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CredentialStore authenticates callers against argon2id hashed secrets
// kept in a storage.Backend.
type CredentialStore struct {
	backend storage.Backend
	params  Argon2Params
	mu      sync.RWMutex
	closed  bool
}

// CredentialStoreOption configures a CredentialStore.
type CredentialStoreOption func(*CredentialStore)

// WithArgon2Params overrides the hashing cost. Lower costs are useful in tests.
func WithArgon2Params(p Argon2Params) CredentialStoreOption {
	return func(s *CredentialStore) {
		s.params = p
	}
}

// NewCredentialStore creates a credential store on backend.
func NewCredentialStore(backend storage.Backend, opts ...CredentialStoreOption) (*CredentialStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	s := &CredentialStore{
		backend: backend,
		params:  DefaultArgon2Params,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetSecret creates or replaces the credential of username.
func (s *CredentialStore) SetSecret(username string, secret types.Password) error {
	if err := validation.ValidateUsername(username); err != nil {
		return err
	}
	if secret == nil {
		return ErrEmptySecret
	}
	raw := secret.Bytes()
	defer password.Zero(raw)
	if len(raw) == 0 {
		return ErrEmptySecret
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	now := time.Now().UTC()
	cred := credential{
		Username:  username,
		Algorithm: algorithmArgon2id,
		Params:    s.params,
		Salt:      salt,
		Hash:      argon2.IDKey(raw, salt, s.params.Time, s.params.Memory, s.params.Threads, s.params.KeyLen),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := s.load(username); err == nil {
		cred.CreatedAt = existing.CreatedAt
	}

	data, err := json.Marshal(&cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	return s.backend.Put(storage.CredentialPath(username), data, storage.DefaultOptions())
}

// Delete removes the credential of username.
func (s *CredentialStore) Delete(username string) error {
	if err := validation.ValidateUsername(username); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if err := s.backend.Delete(storage.CredentialPath(username)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return err
	}
	return nil
}

// Users returns the usernames with a stored credential.
func (s *CredentialStore) Users() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return storage.ListCredentials(s.backend)
}

// Authenticate implements Authenticator. Unknown users and wrong secrets
// both yield ErrAuthenticationFailed.
func (s *CredentialStore) Authenticate(username string, secret types.Password) error {
	if err := validation.ValidateUsername(username); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	if secret == nil {
		return ErrAuthenticationFailed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	cred, err := s.load(username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrAuthenticationFailed
		}
		return err
	}
	if cred.Algorithm != algorithmArgon2id {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrAuthenticationFailed, cred.Algorithm)
	}

	raw := secret.Bytes()
	defer password.Zero(raw)

	p := cred.Params
	hash := argon2.IDKey(raw, cred.Salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	if subtle.ConstantTimeCompare(hash, cred.Hash) != 1 {
		return ErrAuthenticationFailed
	}
	return nil
}

// Close closes the store and its backend.
func (s *CredentialStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.backend.Close()
}

func (s *CredentialStore) load(username string) (*credential, error) {
	data, err := s.backend.Get(storage.CredentialPath(username))
	if err != nil {
		return nil, err
	}
	var cred credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential for %s: %w", username, err)
	}
	return &cred, nil
}

var _ Authenticator = (*CredentialStore)(nil)
