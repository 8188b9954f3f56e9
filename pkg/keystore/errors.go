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

package keystore

import "errors"

var (
	// ErrFilesystem wraps any unexpected filesystem failure.
	ErrFilesystem = errors.New("keystore: filesystem error")

	// ErrInvalidConfig is returned for a missing root directory.
	ErrInvalidConfig = errors.New("keystore: invalid configuration")

	// ErrNameExhausted is returned when no unused key name could be found.
	ErrNameExhausted = errors.New("keystore: could not allocate a unique key name")

	// ErrKeyNotFound is returned when a named key does not exist.
	ErrKeyNotFound = errors.New("keystore: key not found")
)
