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
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keys"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/metrics"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// KeyConnectorResponse holds the keys of a new key connector account. The
// master key is sent to the key connector service; the rest goes to the
// server.
type KeyConnectorResponse struct {
	// MasterKey is the base64 random master key.
	MasterKey        string               `json:"masterKey"`
	EncryptedUserKey *encstring.EncString `json:"encryptedUserKey"`
	Keys             *keys.RsaKeyPair     `json:"keys"`
}

// MakeKeyConnectorKeys creates a random master key together with a user
// key wrapped by it and an account key pair wrapped by the user key.
func MakeKeyConnectorKeys() (resp *KeyConnectorResponse, err error) {
	defer func(start time.Time) { metrics.Observe(metrics.OpRegister, metrics.KeySymmetric, start, err) }(time.Now())

	mk, err := keys.GenerateMasterKey()
	if err != nil {
		return nil, err
	}
	defer mk.Zeroize()

	userKey, encUserKey, err := mk.MakeUserKey()
	if err != nil {
		return nil, err
	}
	defer userKey.Key.Zeroize()

	pair, err := userKey.MakeKeyPair()
	if err != nil {
		return nil, err
	}
	return &KeyConnectorResponse{
		MasterKey:        mk.ToBase64(),
		EncryptedUserKey: encUserKey,
		Keys:             pair,
	}, nil
}

// DeriveKeyConnector derives the master key of a password account that is
// migrating to key connector. The master key must unwrap userKeyEncrypted,
// otherwise ErrWrongPassword is returned.
func DeriveKeyConnector(userKeyEncrypted *encstring.EncString, password types.Password, email string,
	k kdf.Kdf) (masterKey string, err error) {

	defer func(start time.Time) { metrics.Observe(metrics.OpDeriveKey, metrics.KeySymmetric, start, err) }(time.Now())

	if userKeyEncrypted == nil || password == nil {
		return "", fmt.Errorf("%w: key connector needs a password and user key", types.ErrInvalidKey)
	}
	pw := password.Bytes()
	defer clear(pw)

	mk, err := keys.DeriveMasterKey(pw, email, k)
	if err != nil {
		return "", err
	}
	defer mk.Zeroize()

	userKey, err := mk.DecryptUserKey(userKeyEncrypted)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrWrongPassword, err)
	}
	userKey.Zeroize()
	return mk.ToBase64(), nil
}
