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
	"github.com/jeremyhahn/go-vaultcrypto/pkg/encstring"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/kdf"
)

// PinKey is derived from a short PIN and used to wrap the user key for
// PIN unlock.
type PinKey struct {
	key *SymmetricCryptoKey
}

// DerivePinKey derives a PIN key. Unlike the master key, the email is used
// as salt exactly as given.
func DerivePinKey(pin []byte, email string, k kdf.Kdf) (*PinKey, error) {
	key, err := deriveKdfKey(pin, []byte(email), k)
	if err != nil {
		return nil, err
	}
	return &PinKey{key: key}, nil
}

// EncryptUserKey wraps userKey with the stretched PIN key.
func (p *PinKey) EncryptUserKey(userKey *SymmetricCryptoKey) (*encstring.EncString, error) {
	return encryptUserKey(p.key, userKey)
}

// DecryptUserKey unwraps a PIN protected user key.
func (p *PinKey) DecryptUserKey(enc *encstring.EncString) (*SymmetricCryptoKey, error) {
	return decryptUserKey(p.key, enc)
}

// Encrypt encrypts arbitrary data with the stretched PIN key.
func (p *PinKey) Encrypt(data []byte) (*encstring.EncString, error) {
	stretched, err := stretchKdfKey(p.key)
	if err != nil {
		return nil, err
	}
	defer stretched.Zeroize()
	return encstring.Encrypt(data, stretched)
}

// Zeroize wipes the PIN key.
func (p *PinKey) Zeroize() {
	p.key.Zeroize()
}

func (p *PinKey) String() string {
	return "PinKey"
}
