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

// Package password holds master passwords and PINs in wipeable byte buffers.
package password

import (
	"crypto/subtle"
	"errors"
	"unicode/utf8"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

var (
	// ErrEmptyPassword is returned when an empty secret is provided.
	ErrEmptyPassword = errors.New("password: cannot be empty")

	// ErrPasswordCleared is returned after the secret has been wiped.
	ErrPasswordCleared = errors.New("password: secret has been cleared")

	// ErrInvalidUtf8 is returned when a secret is not valid UTF-8 text.
	ErrInvalidUtf8 = errors.New("password: secret is not valid utf-8")
)

// Secret is a user supplied master password or PIN.
type Secret struct {
	b []byte
}

// New copies b into a new Secret. The caller may wipe b afterwards.
func New(b []byte) (types.Password, error) {
	if len(b) == 0 {
		return nil, ErrEmptyPassword
	}
	if !utf8.Valid(b) {
		return nil, ErrInvalidUtf8
	}
	return &Secret{b: append([]byte(nil), b...)}, nil
}

// FromString returns a Secret holding s.
func FromString(s string) (types.Password, error) {
	return New([]byte(s))
}

// MustFromString is FromString for literals known to be valid.
func MustFromString(s string) types.Password {
	p, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the secret as text.
func (p *Secret) String() (string, error) {
	if p.b == nil {
		return "", ErrPasswordCleared
	}
	return string(p.b), nil
}

// Bytes returns a copy of the secret, or nil once cleared.
func (p *Secret) Bytes() []byte {
	if p.b == nil {
		return nil
	}
	return append([]byte(nil), p.b...)
}

// Len returns the number of runes in the secret.
func (p *Secret) Len() int {
	return utf8.RuneCount(p.b)
}

// Clear wipes the secret. It is safe to call more than once.
func (p *Secret) Clear() {
	if p.b == nil {
		return
	}
	clear(p.b)
	p.b = nil
}

// Equal compares two secrets in constant time.
func Equal(a, b types.Password) (bool, error) {
	ab := a.Bytes()
	if ab == nil {
		return false, ErrPasswordCleared
	}
	defer clear(ab)

	bb := b.Bytes()
	if bb == nil {
		return false, ErrPasswordCleared
	}
	defer clear(bb)

	return subtle.ConstantTimeCompare(ab, bb) == 1, nil
}

var _ types.Password = (*Secret)(nil)
