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

// Package validation provides input validation for caller-supplied values.
// Usernames become directory names inside the key store, so they are checked
// here before any filesystem access.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxUsernameLength bounds usernames to a single path component.
const MaxUsernameLength = 255

var (
	// usernamePattern allows the characters commonly found in unix and
	// directory-service account names.
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-\.@]+$`)

	// methodPattern matches backend method names
	methodPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)
)

// ValidateUsername validates a username.
// Prevents path traversal and injection by:
// - Rejecting empty strings
// - Rejecting null bytes and control characters
// - Rejecting "." and ".." and anything with a path separator
// - Allowing only safe characters
// - Enforcing length limits
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if strings.Contains(username, "\x00") {
		return fmt.Errorf("username contains null byte")
	}

	// Check length before the regex
	if len(username) > MaxUsernameLength {
		return fmt.Errorf("username too long (max %d characters)", MaxUsernameLength)
	}

	for _, r := range username {
		if r < 32 || r == 127 {
			return fmt.Errorf("username contains control characters")
		}
	}

	if username == "." || username == ".." {
		return fmt.Errorf("username contains path traversal attempt")
	}

	if strings.ContainsAny(username, `/\`) {
		return fmt.Errorf("username contains path separator")
	}

	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username contains invalid characters (allowed: a-z, A-Z, 0-9, -, _, ., @)")
	}

	return nil
}

// ValidateMethodName validates a signing method name.
func ValidateMethodName(name string) error {
	if name == "" {
		return fmt.Errorf("method name cannot be empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("method name too long (max 64 characters)")
	}
	if !methodPattern.MatchString(name) {
		return fmt.Errorf("method name contains invalid characters (allowed: a-z, 0-9, -)")
	}
	return nil
}

// SanitizeForLog sanitizes a string for safe logging (prevents log injection).
func SanitizeForLog(s string) string {
	// Remove control characters and null bytes
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)

	// Limit length to prevent log flooding
	if len(s) > 1000 {
		s = s[:1000] + "...[truncated]"
	}

	return s
}
