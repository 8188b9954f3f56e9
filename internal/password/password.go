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

// Package password holds caller secrets and the key store passphrase in
// memory as types.Password values that can be zeroed once used.
package password

import (
	"crypto/subtle"
	"errors"

	"github.com/jeremyhahn/go-sessionsign/pkg/types"
)

var (
	// ErrEmptyPassword is returned when an empty password is provided.
	ErrEmptyPassword = errors.New("password cannot be empty")

	// ErrPasswordZeroed is returned when the password has been zeroed.
	ErrPasswordZeroed = errors.New("password has been zeroed")
)

// ClearPassword stores a password in memory as cleartext until Clear is
// called.
type ClearPassword struct {
	password []byte
}

// NewClearPassword copies password into a new ClearPassword.
// Returns an error if the password is empty.
func NewClearPassword(password []byte) (types.Password, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}
	p := make([]byte, len(password))
	copy(p, password)
	return &ClearPassword{password: p}, nil
}

// NewClearPasswordFromString creates a new cleartext password from a string.
// Returns an error if the password is empty.
func NewClearPasswordFromString(password string) (types.Password, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}
	return &ClearPassword{password: []byte(password)}, nil
}

// Optional returns nil for an empty string and a ClearPassword otherwise.
// Used for settings such as the key store passphrase where empty means
// "not configured".
func Optional(password string) types.Password {
	if password == "" {
		return nil
	}
	return &ClearPassword{password: []byte(password)}
}

// String returns the password as a string.
//
// Note: the returned string cannot be zeroed. Prefer Bytes.
func (p *ClearPassword) String() (string, error) {
	if p.password == nil {
		return "", ErrPasswordZeroed
	}
	return string(p.password), nil
}

// Bytes returns a copy of the password, or nil once cleared.
func (p *ClearPassword) Bytes() []byte {
	if p.password == nil {
		return nil
	}
	result := make([]byte, len(p.password))
	copy(result, p.password)
	return result
}

// Clear zeroes the password. This operation is irreversible.
func (p *ClearPassword) Clear() {
	if p.password != nil {
		Zero(p.password)
		p.password = nil
	}
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// keep the compiler from eliding the loop
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
}

// Equal compares two passwords in constant time.
func Equal(a, b types.Password) (bool, error) {
	aBytes := a.Bytes()
	if aBytes == nil {
		return false, ErrPasswordZeroed
	}
	defer Zero(aBytes)

	bBytes := b.Bytes()
	if bBytes == nil {
		return false, ErrPasswordZeroed
	}
	defer Zero(bBytes)

	return subtle.ConstantTimeCompare(aBytes, bBytes) == 1, nil
}

// Verify interface compliance at compile time
var _ types.Password = (*ClearPassword)(nil)
