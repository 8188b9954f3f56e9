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

// Package backend holds the errors and small helpers shared by the signing
// backend implementations in its subpackages.
package backend

import (
	"github.com/jeremyhahn/go-sessionsign/pkg/types"
)

// Type re-exports so backend implementations and their callers can use
// backend.Method without importing types separately.
type (
	// Method identifies a signing backend.
	Method = types.Method

	// Backend is a signing strategy.
	Backend = types.Backend

	// Password holds secret material.
	Password = types.Password
)

// Method constant re-exports
const (
	MethodNone = types.MethodNone
	MethodPKI  = types.MethodPKI
)
