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

// Package wrapping wraps and unwraps small key payloads with RSA-OAEP.
//
// RSA is only ever used to protect symmetric keys or other short, fixed-size
// payloads. Bulk data goes through the AES-CBC-HMAC path instead.
package wrapping

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// RSAKeySize is the modulus size used for every generated key pair.
const RSAKeySize = 2048

// Algorithm selects the OAEP hash function.
type Algorithm string

const (
	// AlgorithmOAEPSHA1 is RSA-OAEP with SHA-1. New ciphertext uses this for
	// compatibility with existing clients.
	AlgorithmOAEPSHA1 Algorithm = "RSA-OAEP-SHA1"

	// AlgorithmOAEPSHA256 is RSA-OAEP with SHA-256.
	AlgorithmOAEPSHA256 Algorithm = "RSA-OAEP-SHA256"
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	return string(a)
}

func (a Algorithm) hash() (hash.Hash, error) {
	switch a {
	case AlgorithmOAEPSHA1:
		return sha1.New(), nil
	case AlgorithmOAEPSHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported wrapping algorithm: %s", a)
	}
}

// GenerateRSAKey generates a new RSA-2048 private key.
func GenerateRSAKey() (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, RSAKeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	return key, nil
}

// WrapRSAOAEP encrypts keyMaterial under publicKey using RSA-OAEP.
//
// Parameters:
//   - keyMaterial: The plaintext payload; must fit within the OAEP size limit
//   - publicKey: The recipient's RSA public key
//   - algorithm: AlgorithmOAEPSHA1 or AlgorithmOAEPSHA256
func WrapRSAOAEP(keyMaterial []byte, publicKey *rsa.PublicKey, algorithm Algorithm) ([]byte, error) {
	if len(keyMaterial) == 0 {
		return nil, fmt.Errorf("key material cannot be nil or empty")
	}
	if publicKey == nil {
		return nil, fmt.Errorf("%w: public key cannot be nil", types.ErrInvalidKey)
	}

	h, err := algorithm.hash()
	if err != nil {
		return nil, err
	}

	wrapped, err := rsa.EncryptOAEP(h, rand.Reader, publicKey, keyMaterial, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap key material with %s: %w", algorithm, err)
	}
	return wrapped, nil
}

// UnwrapRSAOAEP decrypts a payload produced by WrapRSAOAEP. Any padding or
// modulus failure is reported as types.ErrKeyDecrypt.
func UnwrapRSAOAEP(wrappedKey []byte, privateKey *rsa.PrivateKey, algorithm Algorithm) ([]byte, error) {
	if len(wrappedKey) == 0 {
		return nil, types.ErrKeyDecrypt
	}
	if privateKey == nil {
		return nil, fmt.Errorf("%w: private key cannot be nil", types.ErrInvalidKey)
	}

	h, err := algorithm.hash()
	if err != nil {
		return nil, err
	}

	unwrapped, err := rsa.DecryptOAEP(h, nil, privateKey, wrappedKey, nil)
	if err != nil {
		return nil, types.ErrKeyDecrypt
	}
	return unwrapped, nil
}
