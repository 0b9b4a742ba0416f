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

package keys

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/encstring"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/kdf"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// DeviceKey protects a device-local RSA key pair that in turn wraps the
// user key, so a trusted device can unlock without the master password.
type DeviceKey struct {
	key *SymmetricCryptoKey
}

// TrustDeviceResponse carries the keys produced by TrustDevice. Only
// DeviceKey stays on the device; the protected values go to the server.
type TrustDeviceResponse struct {
	DeviceKey                 *DeviceKey
	ProtectedUserKey          *encstring.AsymmetricEncString
	ProtectedDevicePrivateKey *encstring.EncString
	ProtectedDevicePublicKey  *encstring.EncString
}

// NewDeviceKey wraps an existing 64-byte device key.
func NewDeviceKey(key *SymmetricCryptoKey) *DeviceKey {
	return &DeviceKey{key: key}
}

// TrustDevice creates a device key and a device key pair. The user key is
// wrapped with the device public key, the public key with the user key and
// the private key with the device key.
func TrustDevice(userKey *SymmetricCryptoKey) (*TrustDeviceResponse, error) {
	deviceKey, err := GenerateSymmetricKey()
	if err != nil {
		return nil, err
	}
	devicePrivate, err := GenerateAsymmetricKey()
	if err != nil {
		deviceKey.Zeroize()
		return nil, err
	}
	defer devicePrivate.Zeroize()

	raw := userKey.ToVec()
	defer clear(raw)
	protectedUserKey, err := encstring.EncryptAsymmetric(raw, devicePrivate.PublicKey())
	if err != nil {
		deviceKey.Zeroize()
		return nil, err
	}

	pub, err := devicePrivate.ToPublicDER()
	if err != nil {
		deviceKey.Zeroize()
		return nil, err
	}
	protectedPublic, err := encstring.Encrypt(pub, userKey)
	if err != nil {
		deviceKey.Zeroize()
		return nil, err
	}

	der, err := devicePrivate.ToDER()
	if err != nil {
		deviceKey.Zeroize()
		return nil, err
	}
	defer clear(der)
	protectedPrivate, err := encstring.Encrypt(der, deviceKey)
	if err != nil {
		deviceKey.Zeroize()
		return nil, err
	}

	return &TrustDeviceResponse{
		DeviceKey:                 &DeviceKey{key: deviceKey},
		ProtectedUserKey:          protectedUserKey,
		ProtectedDevicePrivateKey: protectedPrivate,
		ProtectedDevicePublicKey:  protectedPublic,
	}, nil
}

// DecryptUserKey recovers the user key from the values stored by
// TrustDevice.
func (d *DeviceKey) DecryptUserKey(protectedDevicePrivateKey *encstring.EncString,
	protectedUserKey *encstring.AsymmetricEncString) (*SymmetricCryptoKey, error) {

	if protectedDevicePrivateKey == nil || protectedUserKey == nil {
		return nil, fmt.Errorf("%w: device key unlock needs both protected keys", types.ErrInvalidKey)
	}
	der, err := protectedDevicePrivateKey.Decrypt(d.key)
	if err != nil {
		return nil, err
	}
	defer clear(der)
	priv, err := AsymmetricKeyFromDER(der)
	if err != nil {
		return nil, err
	}
	defer priv.Zeroize()

	raw, err := protectedUserKey.Decrypt(priv.PrivateKey())
	if err != nil {
		return nil, err
	}
	return NewSymmetricCryptoKey(raw)
}

// Key returns the device key.
func (d *DeviceKey) Key() *SymmetricCryptoKey {
	return d.key
}

// ToBase64 encodes the device key for local persistence.
func (d *DeviceKey) ToBase64() string {
	return d.key.ToBase64()
}

// Zeroize wipes the device key.
func (d *DeviceKey) Zeroize() {
	d.key.Zeroize()
}

func (d *DeviceKey) String() string {
	return "DeviceKey"
}

const shareableKeyPrefix = "bitwarden-"

// DeriveShareableKey derives a 64-byte key from a 16-byte secret that can
// be shared out of band, such as a Send key. name domain-separates callers
// and info is an optional HKDF info string.
func DeriveShareableKey(secret [16]byte, name, info string) (*SymmetricCryptoKey, error) {
	mac := hmac.New(sha256.New, []byte(shareableKeyPrefix+name))
	mac.Write(secret[:])
	prk := mac.Sum(nil)
	defer clear(prk)

	out, err := kdf.Expand(prk, info, KeySize+MACKeySize)
	if err != nil {
		return nil, err
	}
	return NewSymmetricCryptoKey(out)
}
