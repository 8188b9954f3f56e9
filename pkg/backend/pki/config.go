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

package pki

import (
	"crypto"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jeremyhahn/go-sessionsign/pkg/auth"
	"github.com/jeremyhahn/go-sessionsign/pkg/backend"
	"github.com/jeremyhahn/go-sessionsign/pkg/digest"
	"github.com/jeremyhahn/go-sessionsign/pkg/logging"
	"github.com/jeremyhahn/go-sessionsign/pkg/types"
	"github.com/spf13/afero"
)

const (
	// DefaultKeyBits is short on purpose: keys only live as long as a session.
	DefaultKeyBits = 1024
)

// DefaultRootDir is the key store root used when none is configured.
var DefaultRootDir = filepath.Join(os.TempDir(), "pki")

// tokenCapacity maps a key size to the fixed session token length. Each
// capacity holds the PKCS#1 PEM encoding of a key of that size.
var tokenCapacity = map[int]int{
	1024: 1000,
	2048: 1800,
	4096: 3400,
}

// TokenCapacity returns the session token length for keys of the given size.
func TokenCapacity(bits int) (int, error) {
	capacity, ok := tokenCapacity[bits]
	if !ok {
		return 0, fmt.Errorf("%w: %d bits (supported: %v)", ErrUnsupportedKeySize, bits, SupportedKeySizes())
	}
	return capacity, nil
}

// SupportedKeySizes returns the key sizes with a token capacity, ascending.
func SupportedKeySizes() []int {
	sizes := make([]int, 0, len(tokenCapacity))
	for bits := range tokenCapacity {
		sizes = append(sizes, bits)
	}
	sort.Ints(sizes)
	return sizes
}

// Config holds the PKI backend configuration.
type Config struct {
	// RootDir is the key store root. Defaults to DefaultRootDir.
	RootDir string

	// KeyBits is the RSA modulus size. Defaults to DefaultKeyBits.
	KeyBits int

	// Hash is the message digest. Defaults to SHA-256.
	Hash crypto.Hash

	// Fs is the filesystem holding the key store. Defaults to the OS filesystem.
	Fs afero.Fs

	// Passphrase encrypts private key files at rest when set.
	Passphrase types.Password

	// Authenticator gates token issuance. Defaults to auth.AllowAll.
	Authenticator auth.Authenticator

	// Logger defaults to logging.DefaultLogger().
	Logger *logging.Logger
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return &Config{
		RootDir:       DefaultRootDir,
		KeyBits:       DefaultKeyBits,
		Hash:          digest.Default,
		Authenticator: auth.AllowAll,
	}
}

// applyDefaults fills unset fields.
func (c *Config) applyDefaults() {
	if c.RootDir == "" {
		c.RootDir = DefaultRootDir
	}
	if c.KeyBits == 0 {
		c.KeyBits = DefaultKeyBits
	}
	if c.Hash == 0 {
		c.Hash = digest.Default
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.Authenticator == nil {
		c.Authenticator = auth.AllowAll
	}
	if c.Logger == nil {
		c.Logger = logging.DefaultLogger()
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", backend.ErrInvalidConfig)
	}
	if _, err := TokenCapacity(c.KeyBits); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrInvalidConfig, err)
	}
	if _, err := digest.New(c.Hash); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrInvalidConfig, err)
	}
	return nil
}
