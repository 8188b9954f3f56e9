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

// Package digest computes the fixed-size message digests that are signed and
// verified by the PKI backend.
package digest

import (
	"crypto"
	_ "crypto/sha256" // register SHA-224/SHA-256
	_ "crypto/sha512" // register SHA-384/SHA-512
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable is returned when the requested hash is not linked into
	// the binary. This is a configuration fault.
	ErrUnavailable = errors.New("digest: hash function unavailable")

	// ErrUnknownHash is returned when a hash name cannot be parsed.
	ErrUnknownHash = errors.New("digest: unknown hash")
)

// Default is the hash used when none is configured.
const Default = crypto.SHA256

// Digester hashes messages with a single, fixed algorithm.
type Digester struct {
	hash crypto.Hash
}

// New returns a Digester for h.
func New(h crypto.Hash) (*Digester, error) {
	if !h.Available() {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, h)
	}
	return &Digester{hash: h}, nil
}

// MustNew is like New but panics if the hash is unavailable.
func MustNew(h crypto.Hash) *Digester {
	d, err := New(h)
	if err != nil {
		panic(err)
	}
	return d
}

// Sum returns the digest of msg.
func (d *Digester) Sum(msg []byte) []byte {
	hasher := d.hash.New()
	hasher.Write(msg)
	return hasher.Sum(nil)
}

// Hash returns the underlying hash identifier.
func (d *Digester) Hash() crypto.Hash {
	return d.hash
}

// Size returns the digest length in bytes.
func (d *Digester) Size() int {
	return d.hash.Size()
}

// Parse maps a hash name to a crypto.Hash. An empty name yields Default.
func Parse(name string) (crypto.Hash, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case "":
		return Default, nil
	case "sha256":
		return crypto.SHA256, nil
	case "sha384":
		return crypto.SHA384, nil
	case "sha512":
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownHash, name)
	}
}
