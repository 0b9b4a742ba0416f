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

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/kdf"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keys"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

var fastKdf = kdf.Kdf{Type: kdf.PBKDF2, Iterations: kdf.MinPBKDF2Iterations}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword(testEmail, secret("password123"),
		kdf.Kdf{Type: kdf.PBKDF2, Iterations: 100_000}, keys.LocalAuthorization)
	require.NoError(t, err)
	assert.Equal(t, "7kTqkF1pY/3JeOu73N9kR99fDDe9O1JOZaVc7KH3lsU=", hash)

	server, err := HashPassword(testEmail, secret("password123"),
		kdf.Kdf{Type: kdf.PBKDF2, Iterations: 100_000}, keys.ServerAuthorization)
	require.NoError(t, err)
	assert.NotEqual(t, hash, server)
}

func TestHashPasswordRejectsWeakKdf(t *testing.T) {
	_, err := HashPassword(testEmail, secret("password123"),
		kdf.Kdf{Type: kdf.PBKDF2, Iterations: 1}, keys.LocalAuthorization)
	assert.ErrorIs(t, err, types.ErrInsufficientKdfParameters)
}

func TestValidatePassword(t *testing.T) {
	k := kdf.Kdf{Type: kdf.PBKDF2, Iterations: 100_000}
	const hash = "7kTqkF1pY/3JeOu73N9kR99fDDe9O1JOZaVc7KH3lsU="

	ok, err := ValidatePassword(secret("password123"), hash, testEmail, k)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ValidatePassword(secret("password124"), hash, testEmail, k)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ValidatePassword(secret("password123"), hash, " TEST@bitwarden.com ", k)
	require.NoError(t, err)
	assert.True(t, ok, "email is normalized for the master key salt")
}

func TestValidatePasswordUserKey(t *testing.T) {
	svc := newTestAccountService(t)

	hash, err := ValidatePasswordUserKey(svc, secret(testPassword), mustParse(t, testUserKey), testEmail, testKdf)
	require.NoError(t, err)

	want, err := HashPassword(testEmail, secret(testPassword), testKdf, keys.LocalAuthorization)
	require.NoError(t, err)
	assert.Equal(t, want, hash)

	_, err = ValidatePasswordUserKey(svc, secret("asdfasdfasdg"), mustParse(t, testUserKey), testEmail, testKdf)
	assert.ErrorIs(t, err, types.ErrWrongPassword)
}

func TestValidatePasswordUserKeyOtherAccount(t *testing.T) {
	svc, _ := newUnlockedService(t)

	mk, err := keys.DeriveMasterKey([]byte("hunter2hunter2"), testEmail, fastKdf)
	require.NoError(t, err)
	defer mk.Zeroize()
	uk, enc, err := mk.MakeUserKey()
	require.NoError(t, err)
	uk.Key.Zeroize()

	_, err = ValidatePasswordUserKey(svc, secret("hunter2hunter2"), enc, testEmail, fastKdf)
	assert.ErrorIs(t, err, types.ErrWrongPassword)
}

func TestValidatePasswordUserKeyLocked(t *testing.T) {
	svc := newService(t)

	mk, err := keys.DeriveMasterKey([]byte("hunter2hunter2"), testEmail, fastKdf)
	require.NoError(t, err)
	defer mk.Zeroize()
	uk, enc, err := mk.MakeUserKey()
	require.NoError(t, err)
	uk.Key.Zeroize()

	_, err = ValidatePasswordUserKey(svc, secret("hunter2hunter2"), enc, testEmail, fastKdf)
	assert.ErrorIs(t, err, types.ErrVaultLocked)
}

func TestValidatePasswordUserKeyMissingKey(t *testing.T) {
	svc, _ := newUnlockedService(t)

	_, err := ValidatePasswordUserKey(svc, secret("hunter2hunter2"), nil, testEmail, fastKdf)
	assert.ErrorIs(t, err, types.ErrInvalidKey)
	assert.NotErrorIs(t, err, types.ErrWrongPassword)
}
