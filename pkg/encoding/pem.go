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

// Package encoding converts RSA key material to and from the textual PEM
// forms kept in the key store and carried in session tokens, and provides
// the base64 text transport used by the CLI and REST layers.
package encoding

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// PEM block types
const (
	PEMTypeRSAPrivateKey       = "RSA PRIVATE KEY"
	PEMTypeRSAPublicKey        = "RSA PUBLIC KEY"
	PEMTypePrivateKey          = "PRIVATE KEY"
	PEMTypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
)

// EncodeRSAPrivateKeyPEM encodes a private key as a PKCS#1 "RSA PRIVATE KEY"
// PEM block. This is the form carried in session tokens.
func EncodeRSAPrivateKeyPEM(privateKey *rsa.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  PEMTypeRSAPrivateKey,
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}), nil
}

// DecodeRSAPrivateKeyPEM decodes the first PEM block in data, which must be a
// PKCS#1 "RSA PRIVATE KEY". Bytes after the block are ignored.
func DecodeRSAPrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEMEncoding
	}
	if block.Type != PEMTypeRSAPrivateKey {
		return nil, fmt.Errorf("%w: PEM block %q", ErrUnexpectedKeyType, block.Type)
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PKCS#1 private key: %w", err)
	}
	return key, nil
}

// EncodePrivateKeyPEM encodes a private key for storage at rest.
// With an empty password the key is written as PKCS#1 "RSA PRIVATE KEY";
// otherwise it is encrypted with PKCS#8 and written as "ENCRYPTED PRIVATE KEY".
//
// Example:
//
//	pemData, err := encoding.EncodePrivateKeyPEM(privateKey, []byte("password"))
func EncodePrivateKeyPEM(privateKey *rsa.PrivateKey, password []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}

	if len(password) == 0 {
		return EncodeRSAPrivateKeyPEM(privateKey)
	}

	der, err := EncodePKCS8(privateKey, password)
	if err != nil {
		return nil, err
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  PEMTypeEncryptedPrivateKey,
		Bytes: der,
	}), nil
}

// DecodePrivateKeyPEM decodes the first PEM block in data to an RSA private
// key. PKCS#1, PKCS#8 and encrypted PKCS#8 blocks are accepted. Bytes after
// the block, such as the zero padding of a session token, are ignored.
//
// Example:
//
//	key, err := encoding.DecodePrivateKeyPEM(pemData, []byte("password"))
func DecodePrivateKeyPEM(data []byte, password []byte) (*rsa.PrivateKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEMEncoding
	}

	switch block.Type {
	case PEMTypeRSAPrivateKey:
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#1 private key: %w", err)
		}
		return key, nil

	case PEMTypePrivateKey:
		return DecodePKCS8(block.Bytes, nil)

	case PEMTypeEncryptedPrivateKey:
		if len(password) == 0 {
			return nil, ErrPasswordRequired
		}
		return DecodePKCS8(block.Bytes, password)

	default:
		return nil, fmt.Errorf("%w: PEM block %q", ErrUnexpectedKeyType, block.Type)
	}
}

// EncodeRSAPublicKeyPEM encodes a public key as a PKCS#1 "RSA PUBLIC KEY" PEM block.
func EncodeRSAPublicKeyPEM(publicKey *rsa.PublicKey) ([]byte, error) {
	if publicKey == nil {
		return nil, ErrInvalidPublicKey
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  PEMTypeRSAPublicKey,
		Bytes: x509.MarshalPKCS1PublicKey(publicKey),
	}), nil
}

// DecodeRSAPublicKeyPEM decodes a PKCS#1 "RSA PUBLIC KEY" PEM block.
func DecodeRSAPublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEMEncoding
	}
	if block.Type != PEMTypeRSAPublicKey {
		return nil, fmt.Errorf("%w: PEM block %q", ErrUnexpectedKeyType, block.Type)
	}

	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PKCS#1 public key: %w", err)
	}
	return key, nil
}
