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

import "errors"

var (
	// ErrAuthenticationFailed is returned when a secret does not match the
	// stored credential or the user is unknown.
	ErrAuthenticationFailed = errors.New("auth: authentication failed")

	// ErrEmptySecret is returned when setting an empty secret.
	ErrEmptySecret = errors.New("auth: secret cannot be empty")

	// ErrUserNotFound is returned when deleting an unknown user.
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrClosed is returned when a closed credential store is used.
	ErrClosed = errors.New("auth: credential store closed")
)
