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
	"fmt"
	"time"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/encstring"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/kdf"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keychain"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keys"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/logging"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/metrics"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// RegisterKeyResponse holds everything the server needs to create a
// password account.
type RegisterKeyResponse struct {
	MasterPasswordHash string               `json:"masterPasswordHash"`
	EncryptedUserKey   *encstring.EncString `json:"encryptedUserKey"`
	Keys               *keys.RsaKeyPair     `json:"keys"`
}

// RegisterTdeKeyResponse holds the keys created when a user joins an
// organization through trusted device encryption.
type RegisterTdeKeyResponse struct {
	PrivateKey *encstring.EncString `json:"privateKey"`
	PublicKey  string               `json:"publicKey"`

	// AdminReset is the user key wrapped for the organization's public key.
	AdminReset *encstring.AsymmetricEncString `json:"adminReset"`

	// DeviceKey is nil unless the device is remembered.
	DeviceKey *keys.TrustDeviceResponse `json:"-"`
}

// MakeRegisterKeys derives the master key, then creates and wraps a new
// user key and account key pair.
func MakeRegisterKeys(email string, password types.Password, k kdf.Kdf) (resp *RegisterKeyResponse, err error) {
	defer func(start time.Time) { metrics.Observe(metrics.OpRegister, metrics.KeySymmetric, start, err) }(time.Now())

	pw := password.Bytes()
	defer clear(pw)

	mk, err := keys.DeriveMasterKey(pw, email, k)
	if err != nil {
		return nil, err
	}
	defer mk.Zeroize()

	hash, err := mk.DeriveMasterKeyHash(pw, keys.ServerAuthorization)
	if err != nil {
		return nil, err
	}
	userKey, encUserKey, err := mk.MakeUserKey()
	if err != nil {
		return nil, err
	}
	defer userKey.Key.Zeroize()

	pair, err := userKey.MakeKeyPair()
	if err != nil {
		return nil, err
	}
	return &RegisterKeyResponse{
		MasterPasswordHash: hash,
		EncryptedUserKey:   encUserKey,
		Keys:               pair,
	}, nil
}

// MakeRegisterTdeKeys creates a user key and key pair for a trusted device
// user, enrolls the user key for admin reset with the organization's base64
// public key and unlocks svc with the new keys. When rememberDevice is set
// the device is trusted as well.
func MakeRegisterTdeKeys(svc *keychain.CryptoService, orgPublicKey string, rememberDevice bool,
	logger *logging.Logger) (resp *RegisterTdeKeyResponse, err error) {

	defer func(start time.Time) { metrics.Observe(metrics.OpRegister, metrics.KeyAsymmetric, start, err) }(time.Now())

	pub, err := parsePublicKey(orgPublicKey)
	if err != nil {
		return nil, err
	}
	userKey, err := keys.GenerateSymmetricKey()
	if err != nil {
		return nil, err
	}
	defer userKey.Zeroize()

	pair, err := keys.MakeKeyPair(userKey)
	if err != nil {
		return nil, err
	}

	raw := userKey.ToVec()
	defer clear(raw)
	adminReset, err := encstring.EncryptAsymmetric(raw, pub.PublicKey())
	if err != nil {
		return nil, err
	}

	var device *keys.TrustDeviceResponse
	if rememberDevice {
		if device, err = keys.TrustDevice(userKey); err != nil {
			return nil, err
		}
	}

	if err := Unlock(svc, userKey.Clone(), pair.Private, logger); err != nil {
		if device != nil {
			device.DeviceKey.Zeroize()
		}
		return nil, err
	}

	return &RegisterTdeKeyResponse{
		PrivateKey: pair.Private,
		PublicKey:  pair.Public,
		AdminReset: adminReset,
		DeviceKey:  device,
	}, nil
}

// Unlock stores userKey as the user key of svc, taking ownership of it, and
// decrypts the account private key with it. A private key that cannot be
// decrypted is logged and skipped so the vault still unlocks for symmetric
// data.
func Unlock(svc *keychain.CryptoService, userKey *keys.SymmetricCryptoKey, privateKey *encstring.EncString,
	logger *logging.Logger) (err error) {

	defer func(start time.Time) { metrics.Observe(metrics.OpUnlock, metrics.KeySymmetric, start, err) }(time.Now())

	if logger == nil {
		logger = logging.Discard()
	}

	ctx := svc.MutableContext()
	defer ctx.Close()

	if err := ctx.SetSymmetricKey(keychain.UserKeyRef, userKey); err != nil {
		return fmt.Errorf("failed to store user key: %w", err)
	}
	if privateKey == nil {
		logger.Info("vault unlocked")
		return nil
	}
	if _, err := ctx.DecryptAndStoreAsymmetricKey(keychain.UserKeyRef, keychain.UserPrivateKeyRef, privateKey); err != nil {
		logger.Warn("skipping private key that failed to decrypt", "error", metrics.ErrorType(err))
	}
	logger.Info("vault unlocked")
	return nil
}
