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

// Package types contains the contracts shared by every signing backend, the
// backend selector and the outer CLI/REST layers. It has no dependencies on
// the backend implementations so it can be imported from anywhere without
// creating cycles.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Method identifies a signing backend.
type Method string

const (
	// MethodNone is the degenerate backend that returns fixed sentinel values.
	MethodNone Method = "none"

	// MethodPKI signs with short-lived per-user RSA keys kept in a key store.
	MethodPKI Method = "pki"
)

// String returns the string representation of the method.
func (m Method) String() string {
	return string(m)
}

// ParseMethod converts a method name to a Method. Matching is case-insensitive
// so "None" and "PKI" are accepted as well.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return MethodNone, nil
	case "pki":
		return MethodPKI, nil
	default:
		return "", fmt.Errorf("unknown signing method %q", s)
	}
}

// Methods returns all built-in methods.
func Methods() []Method {
	return []Method{MethodNone, MethodPKI}
}

// Backend is a signing strategy. Tokens and signatures are opaque byte
// buffers whose lengths are fixed by the backend configuration and never
// depend on the message or username.
type Backend interface {
	// Method returns the identifier of this backend.
	Method() Method

	// SigLength returns the length of a signature, in bytes.
	SigLength() int

	// TokenLength returns the length of a session token, in bytes.
	TokenLength() int

	// GenerateSessionToken issues a new session token for username. The
	// session length is advisory and is not enforced by any backend.
	GenerateSessionToken(username string, secret Password, sessionLength time.Duration) ([]byte, error)

	// Sign signs msg with token. The returned signature is SigLength() bytes.
	Sign(msg []byte, username string, token []byte) ([]byte, error)

	// Verify reports whether sig is a valid signature of msg for username.
	// A signature that does not verify is not an error.
	Verify(msg []byte, username string, sig []byte) (bool, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Password holds secret material such as the authentication secret passed to
// GenerateSessionToken or the key store passphrase.
type Password interface {
	// Bytes returns the password as a byte slice
	Bytes() []byte

	// String returns the password as a string
	String() (string, error)

	// Clear zeros out the password from memory
	Clear()
}
