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

// Package auth implements the unlock and enrollment protocols on top of the
// key hierarchy: master password hashing and validation, PIN validation,
// passwordless auth requests, account registration and attempt throttling.
//
// Functions that need the unlocked user key read it from a
// keychain.CryptoService; they never hold it beyond the call.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/encstring"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/kdf"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keychain"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keys"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/metrics"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// HashPassword derives the master key for email and returns the master
// password hash for purpose.
func HashPassword(email string, password types.Password, k kdf.Kdf, purpose keys.HashPurpose) (string, error) {
	pw := password.Bytes()
	defer clear(pw)

	mk, err := keys.DeriveMasterKey(pw, email, k)
	if err != nil {
		return "", err
	}
	defer mk.Zeroize()
	return mk.DeriveMasterKeyHash(pw, purpose)
}

// ValidatePassword reports whether password matches a locally stored
// master password hash.
func ValidatePassword(password types.Password, hash, email string, k kdf.Kdf) (ok bool, err error) {
	defer func(start time.Time) { metrics.Observe(metrics.OpValidate, metrics.KeySymmetric, start, err) }(time.Now())

	computed, err := HashPassword(email, password, k, keys.LocalAuthorization)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1, nil
}

// ValidatePasswordUserKey checks password against the encrypted user key
// instead of a stored hash. It succeeds only when the unwrapped key equals
// the user key held by svc, and returns the local authorization hash so
// the caller can store it for later ValidatePassword calls.
func ValidatePasswordUserKey(svc *keychain.CryptoService, password types.Password, encryptedUserKey *encstring.EncString,
	email string, k kdf.Kdf) (hash string, err error) {

	defer func(start time.Time) { metrics.Observe(metrics.OpValidate, metrics.KeySymmetric, start, err) }(time.Now())

	if password == nil || encryptedUserKey == nil {
		return "", fmt.Errorf("%w: no password or encrypted user key", types.ErrInvalidKey)
	}
	pw := password.Bytes()
	defer clear(pw)

	mk, err := keys.DeriveMasterKey(pw, email, k)
	if err != nil {
		return "", err
	}
	defer mk.Zeroize()

	userKey, err := mk.DecryptUserKey(encryptedUserKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrWrongPassword, err)
	}
	defer userKey.Zeroize()

	match, err := matchesUserKey(svc, userKey)
	if err != nil {
		return "", err
	}
	if !match {
		return "", types.ErrWrongPassword
	}
	return mk.DeriveMasterKeyHash(pw, keys.LocalAuthorization)
}

// matchesUserKey compares candidate with the user key in svc in constant
// time. A locked service gives ErrVaultLocked.
func matchesUserKey(svc *keychain.CryptoService, candidate *keys.SymmetricCryptoKey) (bool, error) {
	ctx := svc.Context()
	defer ctx.Close()

	current, err := ctx.ExportSymmetricKey(keychain.UserKeyRef)
	if err != nil {
		if errors.Is(err, types.ErrMissingKey) {
			return false, types.ErrVaultLocked
		}
		return false, err
	}
	defer current.Zeroize()

	a, b := current.ToVec(), candidate.ToVec()
	defer clear(a)
	defer clear(b)
	return subtle.ConstantTimeCompare(a, b) == 1, nil
}
