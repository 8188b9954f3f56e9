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

package method

import "errors"

var (
	// ErrUnsupportedMethod is returned when activating a method that has no
	// registered factory.
	ErrUnsupportedMethod = errors.New("method: unsupported signing method")

	// ErrNoActiveMethod is returned by dispatch when no backend is active,
	// for example after a failed SetMethod or Close.
	ErrNoActiveMethod = errors.New("method: no active signing method")
)
