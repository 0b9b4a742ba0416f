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
	"encoding/base64"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/encstring"
)

// UserKey is the symmetric key that protects the user's vault data and
// private key.
type UserKey struct {
	Key *SymmetricCryptoKey
}

// RsaKeyPair is a new account key pair: the base64 SPKI public key and the
// PKCS#8 private key encrypted with the user key.
type RsaKeyPair struct {
	Public  string
	Private *encstring.EncString
}

// MakeKeyPair generates an RSA-2048 key pair and wraps the private key with
// the user key.
func (u *UserKey) MakeKeyPair() (*RsaKeyPair, error) {
	return MakeKeyPair(u.Key)
}

// MakeKeyPair generates an RSA-2048 key pair and wraps the private key with
// key.
func MakeKeyPair(key *SymmetricCryptoKey) (*RsaKeyPair, error) {
	priv, err := GenerateAsymmetricKey()
	if err != nil {
		return nil, err
	}
	defer priv.Zeroize()

	pub, err := priv.ToPublicDER()
	if err != nil {
		return nil, err
	}
	der, err := priv.ToDER()
	if err != nil {
		return nil, err
	}
	defer clear(der)

	enc, err := encstring.Encrypt(der, key)
	if err != nil {
		return nil, err
	}
	return &RsaKeyPair{
		Public:  base64.StdEncoding.EncodeToString(pub),
		Private: enc,
	}, nil
}
