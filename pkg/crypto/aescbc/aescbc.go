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

// Package aescbc implements AES in CBC mode with PKCS#7 padding and an
// encrypt-then-MAC HMAC-SHA256 construction over IV || ciphertext.
//
// The MAC is always verified in constant time before any decryption is
// attempted. Ciphertext that fails authentication returns types.ErrInvalidMac
// and is never passed to the block cipher.
package aescbc

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

const (
	// IVSize is the size of the CBC initialization vector.
	IVSize = aes.BlockSize

	// MACSize is the size of an HMAC-SHA256 tag.
	MACSize = sha256.Size

	// KeySize256 is the AES-256 key size.
	KeySize256 = 32

	// KeySize128 is the AES-128 key size.
	KeySize128 = 16
)

// Encrypt256 encrypts data with AES-256-CBC and a fresh random IV. No MAC is
// produced; new data should use Encrypt256HMAC.
func Encrypt256(data, key []byte) (iv [IVSize]byte, ciphertext []byte, err error) {
	if len(key) != KeySize256 {
		return iv, nil, fmt.Errorf("%w: expected %d bytes, got %d", types.ErrInvalidKeyLength, KeySize256, len(key))
	}
	if _, err = rand.Read(iv[:]); err != nil {
		return iv, nil, fmt.Errorf("failed to generate IV: %w", err)
	}
	ciphertext, err = encryptCBC(data, key, iv[:])
	return iv, ciphertext, err
}

// Encrypt256HMAC encrypts data with AES-256-CBC and authenticates IV || ciphertext
// with HMAC-SHA256 under macKey. A fresh random IV is generated on every call.
func Encrypt256HMAC(data, macKey, key []byte) (iv [IVSize]byte, mac [MACSize]byte, ciphertext []byte, err error) {
	if len(key) != KeySize256 {
		return iv, mac, nil, fmt.Errorf("%w: expected %d bytes, got %d", types.ErrInvalidKeyLength, KeySize256, len(key))
	}
	if len(macKey) == 0 {
		return iv, mac, nil, types.ErrInvalidMac
	}
	if _, err = rand.Read(iv[:]); err != nil {
		return iv, mac, nil, fmt.Errorf("failed to generate IV: %w", err)
	}
	ciphertext, err = encryptCBC(data, key, iv[:])
	if err != nil {
		return iv, mac, nil, err
	}
	mac = GenerateMAC(macKey, iv[:], ciphertext)
	return iv, mac, ciphertext, nil
}

// Decrypt256 decrypts AES-256-CBC data that carries no MAC.
func Decrypt256(iv [IVSize]byte, data, key []byte) ([]byte, error) {
	if len(key) != KeySize256 {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", types.ErrInvalidKeyLength, KeySize256, len(key))
	}
	return decryptCBC(data, key, iv[:])
}

// Decrypt256HMAC verifies the MAC over IV || data and, only if it matches,
// decrypts data with AES-256-CBC.
func Decrypt256HMAC(iv [IVSize]byte, mac [MACSize]byte, data, macKey, key []byte) ([]byte, error) {
	if len(key) != KeySize256 {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", types.ErrInvalidKeyLength, KeySize256, len(key))
	}
	if err := verifyMAC(macKey, iv[:], data, mac[:]); err != nil {
		return nil, err
	}
	return decryptCBC(data, key, iv[:])
}

// Decrypt128HMAC is the AES-128 variant of Decrypt256HMAC used by legacy
// type 1 ciphertext. Both keys are 16 bytes.
func Decrypt128HMAC(iv [IVSize]byte, mac [MACSize]byte, data, macKey, key []byte) ([]byte, error) {
	if len(key) != KeySize128 {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", types.ErrInvalidKeyLength, KeySize128, len(key))
	}
	if err := verifyMAC(macKey, iv[:], data, mac[:]); err != nil {
		return nil, err
	}
	return decryptCBC(data, key, iv[:])
}

// GenerateMAC computes HMAC-SHA256(macKey, iv || data).
func GenerateMAC(macKey, iv, data []byte) [MACSize]byte {
	h := hmac.New(sha256.New, macKey)
	h.Write(iv)
	h.Write(data)
	var out [MACSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

func verifyMAC(macKey, iv, data, mac []byte) error {
	if len(macKey) == 0 {
		return types.ErrInvalidMac
	}
	expected := GenerateMAC(macKey, iv, data)
	if !hmac.Equal(expected[:], mac) {
		return types.ErrInvalidMac
	}
	return nil
}

func encryptCBC(data, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	padded := pad(data)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func decryptCBC(data, key, iv []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, types.ErrKeyDecrypt
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return unpad(out)
}

func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(append(make([]byte, 0, len(data)+n), data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, types.ErrKeyDecrypt
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, types.ErrKeyDecrypt
		}
	}
	return data[:len(data)-n], nil
}
