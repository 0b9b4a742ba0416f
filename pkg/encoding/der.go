// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keychain.
//
// go-keychain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package encoding converts RSA keys to and from the DER forms stored inside
// encrypted strings: unencrypted PKCS#8 for private keys and SubjectPublicKeyInfo
// for public keys.
package encoding

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/youmark/pkcs8"
)

// EncodePKCS8 encodes an RSA private key to unencrypted ASN.1 DER PKCS#8.
func EncodePKCS8(privateKey *rsa.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}
	der, err := pkcs8.MarshalPrivateKey(privateKey, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PKCS#8: %w", err)
	}
	return der, nil
}

// DecodePKCS8 decodes unencrypted ASN.1 DER PKCS#8 data into an RSA private key.
func DecodePKCS8(data []byte) (*rsa.PrivateKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}
	key, err := pkcs8.ParsePKCS8PrivateKeyRSA(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return key, nil
}

// DecodePKCS8PEM decodes a "PRIVATE KEY" PEM block into an RSA private key.
func DecodePKCS8PEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEMEncoding
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidPEMEncoding, block.Type)
	}
	return DecodePKCS8(block.Bytes)
}

// EncodePublicKeySPKI encodes an RSA public key to ASN.1 DER SubjectPublicKeyInfo.
func EncodePublicKeySPKI(publicKey *rsa.PublicKey) ([]byte, error) {
	if publicKey == nil {
		return nil, ErrInvalidPublicKey
	}
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SPKI public key: %w", err)
	}
	return der, nil
}

// DecodePublicKeySPKI decodes ASN.1 DER SubjectPublicKeyInfo into an RSA public key.
func DecodePublicKeySPKI(data []byte) (*rsa.PublicKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}
	pub, err := x509.ParsePKIXPublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected RSA, got %T", ErrInvalidPublicKey, pub)
	}
	return rsaPub, nil
}
