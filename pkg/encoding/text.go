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

package encoding

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeText returns the length-preserving text form of a token or
// signature for transport over a CLI, log or JSON body.
func EncodeText(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeText reverses EncodeText. Surrounding whitespace is ignored. When
// wantLen is positive the decoded value must have exactly that length.
func DecodeText(s string, wantLen int) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if wantLen > 0 && len(b) != wantLen {
		return nil, fmt.Errorf("%w: decoded %d bytes, want %d", ErrInvalidData, len(b), wantLen)
	}
	return b, nil
}
