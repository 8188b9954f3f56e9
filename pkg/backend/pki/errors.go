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

import "errors"

var (
	// ErrSelfCheckFailed is returned when a freshly produced signature does
	// not verify against the user's stored keys. This means the token was
	// not issued by this key store or the store has been altered.
	ErrSelfCheckFailed = errors.New("pki: signature failed self-check")

	// ErrUnsupportedKeySize is returned for key sizes without a token capacity.
	ErrUnsupportedKeySize = errors.New("pki: unsupported key size")
)
