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

// Package auth decides whether a caller may be issued a session token.
//
// The default AllowAll authenticator accepts every request, so by default
// anyone who can reach GenerateSessionToken can mint a token for any user.
// Deployments that need authentication configure a CredentialStore.
package auth

import "github.com/jeremyhahn/go-sessionsign/pkg/types"

// Authenticator checks a caller secret before a session token is issued.
type Authenticator interface {
	Authenticate(username string, secret types.Password) error
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(username string, secret types.Password) error

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(username string, secret types.Password) error {
	return f(username, secret)
}

type allowAll struct{}

func (allowAll) Authenticate(string, types.Password) error {
	return nil
}

// AllowAll accepts every caller without checking the secret.
var AllowAll Authenticator = allowAll{}
