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

// Package keys holds the symmetric and asymmetric key containers and the
// key-hierarchy types built on them: master, user, PIN and device keys.
//
// Key bytes are owned by the container and wiped by Zeroize. When a key is
// inserted into a keystore.Store its bytes are relocated into the store's
// locked memory, so a container must not be used after the store has
// removed it.
package keys

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

const (
	// KeySize is the size of the encryption key.
	KeySize = 32

	// MACKeySize is the size of the MAC key.
	MACKeySize = 32
)

// SymmetricCryptoKey is a 32-byte AES key with an optional 32-byte MAC key.
// The MAC key is absent only for single-purpose legacy keys such as raw
// KDF output.
type SymmetricCryptoKey struct {
	key    []byte
	macKey []byte
}

// GenerateSymmetricKey returns a new random key with a MAC key.
func GenerateSymmetricKey() (*SymmetricCryptoKey, error) {
	buf := make([]byte, KeySize+MACKeySize)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return NewSymmetricCryptoKey(buf)
}

// NewSymmetricCryptoKey builds a key from 64 bytes (key || mac) or 32 bytes
// (key only). b is zeroed before returning, whether or not the length is valid.
func NewSymmetricCryptoKey(b []byte) (*SymmetricCryptoKey, error) {
	defer clear(b)
	switch len(b) {
	case KeySize + MACKeySize:
		k := &SymmetricCryptoKey{key: make([]byte, KeySize), macKey: make([]byte, MACKeySize)}
		copy(k.key, b[:KeySize])
		copy(k.macKey, b[KeySize:])
		return k, nil
	case KeySize:
		k := &SymmetricCryptoKey{key: make([]byte, KeySize)}
		copy(k.key, b)
		return k, nil
	default:
		return nil, fmt.Errorf("%w: %d", types.ErrInvalidKeyLength, len(b))
	}
}

// SymmetricKeyFromBase64 decodes a standard base64 key.
func SymmetricKeyFromBase64(s string) (*SymmetricCryptoKey, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return NewSymmetricCryptoKey(b)
}

// EncryptionKey returns the AES key. The slice aliases the key's storage.
func (k *SymmetricCryptoKey) EncryptionKey() []byte {
	return k.key
}

// MACKey returns the MAC key, or nil when the key has none.
func (k *SymmetricCryptoKey) MACKey() []byte {
	return k.macKey
}

// HasMACKey reports whether the key carries a MAC key.
func (k *SymmetricCryptoKey) HasMACKey() bool {
	return k.macKey != nil
}

// ToVec returns a copy of key || mac. The caller should clear it when done.
func (k *SymmetricCryptoKey) ToVec() []byte {
	out := make([]byte, 0, len(k.key)+len(k.macKey))
	out = append(out, k.key...)
	return append(out, k.macKey...)
}

// ToBase64 returns the standard base64 encoding of key || mac.
func (k *SymmetricCryptoKey) ToBase64() string {
	b := k.ToVec()
	defer clear(b)
	return base64.StdEncoding.EncodeToString(b)
}

// Equal compares two keys in constant time.
func (k *SymmetricCryptoKey) Equal(other *SymmetricCryptoKey) bool {
	if k == nil || other == nil {
		return k == other
	}
	a, b := k.ToVec(), other.ToVec()
	defer clear(a)
	defer clear(b)
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Clone returns an independent copy of the key.
func (k *SymmetricCryptoKey) Clone() *SymmetricCryptoKey {
	c, _ := NewSymmetricCryptoKey(k.ToVec())
	return c
}

// SecretLen is the number of bytes the key occupies in a key store window.
func (k *SymmetricCryptoKey) SecretLen() int {
	return len(k.key) + len(k.macKey)
}

// Relocate moves the key bytes into dst, wipes the previous storage and
// makes dst the key's storage. dst must hold SecretLen bytes.
func (k *SymmetricCryptoKey) Relocate(dst []byte) {
	n := copy(dst, k.key)
	clear(k.key)
	newKey := dst[:n:n]
	if k.macKey != nil {
		m := copy(dst[n:], k.macKey)
		clear(k.macKey)
		k.macKey = dst[n : n+m : n+m]
	}
	k.key = newKey
}

// Zeroize wipes the key. The key is unusable afterwards.
func (k *SymmetricCryptoKey) Zeroize() {
	clear(k.key)
	clear(k.macKey)
	k.key = nil
	k.macKey = nil
}

func (k *SymmetricCryptoKey) String() string {
	return "SymmetricCryptoKey"
}

func (k *SymmetricCryptoKey) GoString() string {
	return "SymmetricCryptoKey"
}
