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

// Package types holds the error taxonomy and small interfaces shared by every
// layer of the crypto core.
package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKeyLength is returned when raw key material has an unsupported size.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length")

	// ErrInvalidKey is returned when key material cannot be decoded.
	ErrInvalidKey = errors.New("crypto: invalid key")

	// ErrInvalidMac is returned when ciphertext fails authentication.
	ErrInvalidMac = errors.New("crypto: invalid mac")

	// ErrKeyDecrypt is returned when a cipher or padding operation fails.
	ErrKeyDecrypt = errors.New("crypto: error while decrypting")

	// ErrMissingKey is returned when a key reference cannot be resolved.
	ErrMissingKey = errors.New("crypto: missing key")

	// ErrParse is returned when an encrypted string is malformed.
	ErrParse = errors.New("crypto: parse error")

	// ErrInvalidUtf8String is returned when decrypted bytes are not valid text.
	ErrInvalidUtf8String = errors.New("crypto: invalid utf-8 string")

	// ErrInsufficientKdfParameters is returned when KDF parameters are below the minimums.
	ErrInsufficientKdfParameters = errors.New("crypto: insufficient kdf parameters")

	// ErrVaultLocked is returned when an operation needs the user key and the vault is locked.
	ErrVaultLocked = errors.New("crypto: vault is locked")

	// ErrWrongPassword is returned when a password does not unwrap the current user key.
	ErrWrongPassword = errors.New("crypto: wrong password")

	// ErrTooManyAttempts is returned when unlock attempts for an account exceed the limit.
	ErrTooManyAttempts = errors.New("crypto: too many unlock attempts")
)

// MissingKeyError identifies the key reference that could not be resolved.
type MissingKeyError struct {
	Ref fmt.Stringer
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingKey, e.Ref)
}

func (e *MissingKeyError) Unwrap() error {
	return ErrMissingKey
}

// NewMissingKeyError returns a MissingKeyError for ref.
func NewMissingKeyError(ref fmt.Stringer) error {
	return &MissingKeyError{Ref: ref}
}
