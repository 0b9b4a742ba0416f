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

package session

import (
	"fmt"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/auth"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/encstring"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/kdf"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keys"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// InitUserCryptoRequest unlocks a vault.
type InitUserCryptoRequest struct {
	// Kdf is the account's KDF configuration.
	Kdf kdf.Kdf

	// Email is the account email as the server returns it.
	Email string

	// PrivateKey is the account private key wrapped by the user key. It
	// may be nil for accounts without a key pair.
	PrivateKey *encstring.EncString

	// Method recovers the user key.
	Method InitUserCryptoMethod
}

// InitUserCryptoMethod is one way to recover the user key: Password,
// DecryptedKey, Pin, AuthRequest, DeviceKey or KeyConnector.
type InitUserCryptoMethod interface {
	userKey(email string, k kdf.Kdf) (*keys.SymmetricCryptoKey, error)
	name() string
}

// Password unlocks with the master password.
type Password struct {
	Password types.Password

	// UserKey is the user key wrapped by the master key.
	UserKey *encstring.EncString
}

func (m Password) name() string { return "password" }

func (m Password) userKey(email string, k kdf.Kdf) (*keys.SymmetricCryptoKey, error) {
	if m.Password == nil || m.UserKey == nil {
		return nil, fmt.Errorf("%w: password unlock needs a password and user key", types.ErrInvalidKey)
	}
	pw := m.Password.Bytes()
	defer clear(pw)

	mk, err := keys.DeriveMasterKey(pw, email, k)
	if err != nil {
		return nil, err
	}
	defer mk.Zeroize()

	userKey, err := mk.DecryptUserKey(m.UserKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrWrongPassword, err)
	}
	return userKey, nil
}

// DecryptedKey unlocks with a base64 user key previously returned by
// GetUserEncryptionKey.
type DecryptedKey struct {
	DecryptedUserKey string
}

func (m DecryptedKey) name() string { return "decrypted_key" }

func (m DecryptedKey) userKey(string, kdf.Kdf) (*keys.SymmetricCryptoKey, error) {
	return keys.SymmetricKeyFromBase64(m.DecryptedUserKey)
}

// Pin unlocks with a PIN and the PIN protected user key.
type Pin struct {
	Pin                 types.Password
	PinProtectedUserKey *encstring.EncString
}

func (m Pin) name() string { return "pin" }

func (m Pin) userKey(email string, k kdf.Kdf) (*keys.SymmetricCryptoKey, error) {
	if m.Pin == nil || m.PinProtectedUserKey == nil {
		return nil, fmt.Errorf("%w: pin unlock needs a pin and protected user key", types.ErrInvalidKey)
	}
	raw := m.Pin.Bytes()
	defer clear(raw)

	pinKey, err := keys.DerivePinKey(raw, email, k)
	if err != nil {
		return nil, err
	}
	defer pinKey.Zeroize()
	return pinKey.DecryptUserKey(m.PinProtectedUserKey)
}

// AuthRequest unlocks with an approved passwordless login. Exactly one of
// ProtectedUserKey or ProtectedMasterKey is set; the master key flow also
// needs the account's encrypted user key.
type AuthRequest struct {
	// RequestPrivateKey is the base64 private key from NewAuthRequest.
	RequestPrivateKey string

	ProtectedUserKey   *encstring.AsymmetricEncString
	ProtectedMasterKey *encstring.AsymmetricEncString
	AuthRequestKey     *encstring.EncString
}

func (m AuthRequest) name() string { return "auth_request" }

func (m AuthRequest) userKey(string, kdf.Kdf) (*keys.SymmetricCryptoKey, error) {
	switch {
	case m.ProtectedUserKey != nil:
		return auth.AuthRequestDecryptUserKey(m.RequestPrivateKey, m.ProtectedUserKey)
	case m.ProtectedMasterKey != nil && m.AuthRequestKey != nil:
		return auth.AuthRequestDecryptMasterKey(m.RequestPrivateKey, m.ProtectedMasterKey, m.AuthRequestKey)
	default:
		return nil, fmt.Errorf("%w: auth request has no protected key", types.ErrInvalidKey)
	}
}

// DeviceKey unlocks with a trusted device's stored keys.
type DeviceKey struct {
	// DeviceKey is the base64 device key.
	DeviceKey string

	ProtectedDevicePrivateKey *encstring.EncString
	DeviceProtectedUserKey    *encstring.AsymmetricEncString
}

func (m DeviceKey) name() string { return "device_key" }

func (m DeviceKey) userKey(string, kdf.Kdf) (*keys.SymmetricCryptoKey, error) {
	key, err := keys.SymmetricKeyFromBase64(m.DeviceKey)
	if err != nil {
		return nil, err
	}
	device := keys.NewDeviceKey(key)
	defer device.Zeroize()
	return device.DecryptUserKey(m.ProtectedDevicePrivateKey, m.DeviceProtectedUserKey)
}

// KeyConnector unlocks with the master key held by a key connector service.
type KeyConnector struct {
	// MasterKey is the base64 master key.
	MasterKey string

	// UserKey is the user key wrapped by the master key.
	UserKey *encstring.EncString
}

func (m KeyConnector) name() string { return "key_connector" }

func (m KeyConnector) userKey(string, kdf.Kdf) (*keys.SymmetricCryptoKey, error) {
	if m.UserKey == nil {
		return nil, fmt.Errorf("%w: key connector unlock needs a user key", types.ErrInvalidKey)
	}
	mk, err := keys.MasterKeyFromBase64(m.MasterKey)
	if err != nil {
		return nil, err
	}
	defer mk.Zeroize()
	return mk.DecryptUserKey(m.UserKey)
}
