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
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"
)

// EncodePKCS8 encodes an RSA private key to ASN.1 DER PKCS#8 format.
// If a password is provided, the key will be encrypted.
// If password is nil or empty, the key will be encoded without encryption.
//
// Example:
//
//	der, err := encoding.EncodePKCS8(privateKey, []byte("mypassword"))
func EncodePKCS8(privateKey *rsa.PrivateKey, password []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}

	// youmark/pkcs8 handles both the encrypted and the plain form
	der, err := pkcs8.MarshalPrivateKey(privateKey, password, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PKCS#8: %w", err)
	}

	return der, nil
}

// DecodePKCS8 decodes ASN.1 DER PKCS#8 encoded data to an RSA private key.
// If the data is encrypted, a password must be provided.
//
// Example:
//
//	key, err := encoding.DecodePKCS8(derData, []byte("mypassword"))
func DecodePKCS8(data []byte, password []byte) (*rsa.PrivateKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	var (
		key *rsa.PrivateKey
		err error
	)
	if len(password) == 0 {
		key, err = pkcs8.ParsePKCS8PrivateKeyRSA(data)
	} else {
		key, err = pkcs8.ParsePKCS8PrivateKeyRSA(data, password)
	}
	if err != nil {
		if isPasswordError(err) {
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("failed to parse PKCS#8: %w", err)
	}

	return key, nil
}

// isPasswordError checks if an error is related to incorrect password.
// The pkcs8 package returns various error messages for password issues.
func isPasswordError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()

	// Common password-related error messages from youmark/pkcs8
	passwordErrors := []string{
		"incorrect password",
		"asn1: structure error",
		"tags don't match",
	}

	for _, msg := range passwordErrors {
		if strings.Contains(errMsg, msg) {
			return true
		}
	}

	return false
}
