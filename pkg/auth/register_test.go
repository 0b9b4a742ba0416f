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
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/keychain"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keys"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

func TestMakeRegisterKeys(t *testing.T) {
	resp, err := MakeRegisterKeys(testEmail, secret("hunter2hunter2"), fastKdf)
	require.NoError(t, err)

	want, err := HashPassword(testEmail, secret("hunter2hunter2"), fastKdf, keys.ServerAuthorization)
	require.NoError(t, err)
	assert.Equal(t, want, resp.MasterPasswordHash)

	mk, err := keys.DeriveMasterKey([]byte("hunter2hunter2"), testEmail, fastKdf)
	require.NoError(t, err)
	defer mk.Zeroize()
	userKey, err := mk.DecryptUserKey(resp.EncryptedUserKey)
	require.NoError(t, err)
	defer userKey.Zeroize()

	der, err := resp.Keys.Private.Decrypt(userKey)
	require.NoError(t, err)
	priv, err := keys.AsymmetricKeyFromDER(der)
	require.NoError(t, err)
	defer priv.Zeroize()
	pub, err := priv.ToPublicDER()
	require.NoError(t, err)
	assert.Equal(t, resp.Keys.Public, base64.StdEncoding.EncodeToString(pub))
}

func TestMakeRegisterTdeKeys(t *testing.T) {
	svc := newService(t)

	org, err := keys.GenerateAsymmetricKey()
	require.NoError(t, err)
	defer org.Zeroize()
	orgPub, err := org.ToPublicDER()
	require.NoError(t, err)

	resp, err := MakeRegisterTdeKeys(svc, base64.StdEncoding.EncodeToString(orgPub), true, nil)
	require.NoError(t, err)
	require.NotNil(t, resp.DeviceKey)
	defer resp.DeviceKey.DeviceKey.Zeroize()

	assert.True(t, svc.HasSymmetricKey(keychain.UserKeyRef))
	assert.True(t, svc.HasAsymmetricKey(keychain.UserPrivateKeyRef))

	ctx := svc.Context()
	userKey, err := ctx.ExportSymmetricKey(keychain.UserKeyRef)
	require.NoError(t, err)
	defer userKey.Zeroize()
	pub, err := ctx.PublicKey(keychain.UserPrivateKeyRef)
	ctx.Close()
	require.NoError(t, err)

	reset, err := resp.AdminReset.Decrypt(org.PrivateKey())
	require.NoError(t, err)
	assert.Equal(t, userKey.ToVec(), reset)

	fromDevice, err := resp.DeviceKey.DeviceKey.DecryptUserKey(
		resp.DeviceKey.ProtectedDevicePrivateKey, resp.DeviceKey.ProtectedUserKey)
	require.NoError(t, err)
	defer fromDevice.Zeroize()
	assert.True(t, userKey.Equal(fromDevice))

	pubDER, err := base64.StdEncoding.DecodeString(resp.PublicKey)
	require.NoError(t, err)
	want, err := keys.PublicKeyFromDER(pubDER)
	require.NoError(t, err)
	assert.True(t, want.PublicKey().Equal(pub.PublicKey()))
}

func TestMakeRegisterTdeKeysWithoutDevice(t *testing.T) {
	svc := newService(t)

	resp, err := MakeRegisterTdeKeys(svc, testPublicKey, false, nil)
	require.NoError(t, err)
	assert.Nil(t, resp.DeviceKey)
	assert.True(t, svc.HasSymmetricKey(keychain.UserKeyRef))
}

func TestMakeRegisterTdeKeysInvalidOrgKey(t *testing.T) {
	svc := newService(t)

	_, err := MakeRegisterTdeKeys(svc, "AAAA", false, nil)
	assert.ErrorIs(t, err, types.ErrInvalidKey)
	assert.False(t, svc.HasSymmetricKey(keychain.UserKeyRef))
}

func TestUnlockSkipsBadPrivateKey(t *testing.T) {
	svc := newService(t)

	userKey, err := keys.GenerateSymmetricKey()
	require.NoError(t, err)

	// Wrapped under a different key, so the MAC check fails.
	other, err := keys.GenerateSymmetricKey()
	require.NoError(t, err)
	defer other.Zeroize()
	pair, err := keys.MakeKeyPair(other)
	require.NoError(t, err)

	require.NoError(t, Unlock(svc, userKey, pair.Private, nil))
	assert.True(t, svc.HasSymmetricKey(keychain.UserKeyRef))
	assert.False(t, svc.HasAsymmetricKey(keychain.UserPrivateKeyRef))
}
