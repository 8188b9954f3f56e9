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

package backend

import "errors"

var (
	// ErrClosed is returned when a closed backend is used.
	ErrClosed = errors.New("backend: closed")

	// ErrInvalidToken is returned when a session token cannot be used for
	// signing, either because it is malformed or because it does not match
	// what the backend issued.
	ErrInvalidToken = errors.New("backend: invalid session token")

	// ErrTokenOverflow is returned when encoded key material does not fit in
	// the fixed token capacity. This indicates a key strength / capacity
	// mismatch and is a programming error.
	ErrTokenOverflow = errors.New("backend: key encoding exceeds token capacity")

	// ErrInvalidUsername is returned when a username is unsafe to use as a
	// key store path component.
	ErrInvalidUsername = errors.New("backend: invalid username")

	// ErrInvalidConfig is returned when a backend is constructed with an
	// invalid configuration.
	ErrInvalidConfig = errors.New("backend: invalid configuration")
)
