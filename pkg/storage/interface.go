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

// Package storage provides a small key/value persistence abstraction used
// for caller credentials. The afero file backed implementation lives in
// the file subpackage.
package storage

import (
	"io/fs"
)

// Backend defines the interface for storage backends.
// All implementations must be thread-safe.
type Backend interface {
	// Get retrieves the value for the given key.
	// Returns ErrNotFound if the key does not exist.
	Get(key string) ([]byte, error)

	// Put stores the value for the given key.
	// If the key already exists, it will be overwritten.
	Put(key string, value []byte, opts *Options) error

	// Delete removes the key and its value from storage.
	// Returns ErrNotFound if the key does not exist.
	Delete(key string) error

	// List returns all keys with the given prefix in sorted order.
	// If prefix is empty, all keys are returned.
	List(prefix string) ([]string, error)

	// Exists checks if a key exists in storage.
	Exists(key string) (bool, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Options contains optional parameters for storage operations.
type Options struct {
	// Permissions sets the file permissions for file-based storage
	Permissions fs.FileMode
}

// DefaultOptions returns Options with owner-only permissions.
func DefaultOptions() *Options {
	return &Options{
		Permissions: 0600,
	}
}
