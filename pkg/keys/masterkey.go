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
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/encstring"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/kdf"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// HashPurpose selects the iteration count used when hashing a master key
// for authentication.
type HashPurpose int

const (
	// ServerAuthorization is the hash sent to the server at login.
	ServerAuthorization HashPurpose = 1

	// LocalAuthorization is the hash stored locally for offline checks.
	LocalAuthorization HashPurpose = 2
)

func (p HashPurpose) String() string {
	switch p {
	case ServerAuthorization:
		return "server"
	case LocalAuthorization:
		return "local"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// MasterKey is the 32-byte KDF output of the user's master password. It is
// never stored; it only wraps the user key.
type MasterKey struct {
	key *SymmetricCryptoKey
}

// NewMasterKey wraps existing master key bytes. b is zeroed.
func NewMasterKey(b []byte) (*MasterKey, error) {
	if len(b) != KeySize {
		clear(b)
		return nil, fmt.Errorf("%w: master key must be %d bytes", types.ErrInvalidKeyLength, KeySize)
	}
	k, err := NewSymmetricCryptoKey(b)
	if err != nil {
		return nil, err
	}
	return &MasterKey{key: k}, nil
}

// GenerateMasterKey returns a random master key. Key connector accounts
// have no master password, so their master key is generated and held by
// the key connector service.
func GenerateMasterKey() (*MasterKey, error) {
	buf := make([]byte, KeySize)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	return NewMasterKey(buf)
}

// MasterKeyFromBase64 decodes a master key returned by ToBase64.
func MasterKeyFromBase64(s string) (*MasterKey, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return NewMasterKey(b)
}

// DeriveMasterKey derives the master key from password using the normalized
// email as salt.
func DeriveMasterKey(password []byte, email string, k kdf.Kdf) (*MasterKey, error) {
	salt := []byte(strings.ToLower(strings.TrimSpace(email)))
	key, err := deriveKdfKey(password, salt, k)
	if err != nil {
		return nil, err
	}
	return &MasterKey{key: key}, nil
}

// DeriveMasterKeyHash returns base64(PBKDF2(masterKey, password, purpose)).
func (m *MasterKey) DeriveMasterKeyHash(password []byte, purpose HashPurpose) (string, error) {
	if purpose != ServerAuthorization && purpose != LocalAuthorization {
		return "", fmt.Errorf("%w: hash purpose %s", types.ErrInvalidKey, purpose)
	}
	hash := kdf.PBKDF2SHA256(m.key.EncryptionKey(), password, int(purpose), KeySize)
	defer clear(hash)
	return base64.StdEncoding.EncodeToString(hash), nil
}

// MakeUserKey generates a new user key and returns it together with its
// encryption under this master key.
func (m *MasterKey) MakeUserKey() (*UserKey, *encstring.EncString, error) {
	uk, err := GenerateSymmetricKey()
	if err != nil {
		return nil, nil, err
	}
	enc, err := encryptUserKey(m.key, uk)
	if err != nil {
		uk.Zeroize()
		return nil, nil, err
	}
	return &UserKey{Key: uk}, enc, nil
}

// EncryptUserKey wraps userKey with the stretched master key.
func (m *MasterKey) EncryptUserKey(userKey *SymmetricCryptoKey) (*encstring.EncString, error) {
	return encryptUserKey(m.key, userKey)
}

// DecryptUserKey unwraps a user key encrypted with this master key.
func (m *MasterKey) DecryptUserKey(enc *encstring.EncString) (*SymmetricCryptoKey, error) {
	return decryptUserKey(m.key, enc)
}

// Key exposes the raw master key, used when the master key itself is
// wrapped for an auth request.
func (m *MasterKey) Key() *SymmetricCryptoKey {
	return m.key
}

// ToBase64 encodes the master key for the key connector service.
func (m *MasterKey) ToBase64() string {
	return m.key.ToBase64()
}

// Zeroize wipes the master key.
func (m *MasterKey) Zeroize() {
	m.key.Zeroize()
}

func (m *MasterKey) String() string {
	return "MasterKey"
}

func deriveKdfKey(secret, salt []byte, k kdf.Kdf) (*SymmetricCryptoKey, error) {
	out, err := kdf.DeriveKey(secret, salt, k)
	if err != nil {
		return nil, err
	}
	return NewSymmetricCryptoKey(out)
}

func stretchKdfKey(k *SymmetricCryptoKey) (*SymmetricCryptoKey, error) {
	out, err := kdf.Stretch(k.EncryptionKey())
	if err != nil {
		return nil, err
	}
	return NewSymmetricCryptoKey(out)
}

func encryptUserKey(kdfKey, userKey *SymmetricCryptoKey) (*encstring.EncString, error) {
	stretched, err := stretchKdfKey(kdfKey)
	if err != nil {
		return nil, err
	}
	defer stretched.Zeroize()

	raw := userKey.ToVec()
	defer clear(raw)
	return encstring.Encrypt(raw, stretched)
}

// decryptUserKey unwraps with the raw KDF key for legacy type 0 strings and
// with the stretched key otherwise.
func decryptUserKey(kdfKey *SymmetricCryptoKey, enc *encstring.EncString) (*SymmetricCryptoKey, error) {
	if enc == nil {
		return nil, fmt.Errorf("%w: no encrypted user key", types.ErrInvalidKey)
	}
	var (
		raw []byte
		err error
	)
	if enc.Type == encstring.TypeAesCbc256B64 {
		raw, err = enc.Decrypt(kdfKey)
	} else {
		var stretched *SymmetricCryptoKey
		stretched, err = stretchKdfKey(kdfKey)
		if err != nil {
			return nil, err
		}
		raw, err = enc.Decrypt(stretched)
		stretched.Zeroize()
	}
	if err != nil {
		return nil, err
	}
	return NewSymmetricCryptoKey(raw)
}
