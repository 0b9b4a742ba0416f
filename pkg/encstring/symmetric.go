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

// Package encstring implements the versioned text and binary encodings of
// symmetric (EncString) and asymmetric (AsymmetricEncString) ciphertext.
//
// The text form is "<type>.<b64 field>|<b64 field>..." with the symmetric
// field order iv|data|mac. Strings without a type header are still accepted:
// three fields are read as type 1 and two fields as type 0.
package encstring

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/crypto/aescbc"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// Type is the numeric encryption type carried in the header.
type Type uint8

const (
	TypeAesCbc256B64                   Type = 0
	TypeAesCbc128HmacSha256B64         Type = 1
	TypeAesCbc256HmacSha256B64         Type = 2
	TypeRsa2048OaepSha256B64           Type = 3
	TypeRsa2048OaepSha1B64             Type = 4
	TypeRsa2048OaepSha256HmacSha256B64 Type = 5
	TypeRsa2048OaepSha1HmacSha256B64   Type = 6
)

var typeNames = map[Type]string{
	TypeAesCbc256B64:                   "AesCbc256_B64",
	TypeAesCbc128HmacSha256B64:         "AesCbc128_HmacSha256_B64",
	TypeAesCbc256HmacSha256B64:         "AesCbc256_HmacSha256_B64",
	TypeRsa2048OaepSha256B64:           "Rsa2048_OaepSha256_B64",
	TypeRsa2048OaepSha1B64:             "Rsa2048_OaepSha1_B64",
	TypeRsa2048OaepSha256HmacSha256B64: "Rsa2048_OaepSha256_HmacSha256_B64",
	TypeRsa2048OaepSha1HmacSha256B64:   "Rsa2048_OaepSha1_HmacSha256_B64",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Unknown(" + strconv.Itoa(int(t)) + ")"
}

// SymmetricKey is the view of a symmetric key needed to encrypt and decrypt.
// MACKey returns nil for single-purpose legacy keys.
type SymmetricKey interface {
	EncryptionKey() []byte
	MACKey() []byte
}

// EncString is symmetric ciphertext together with its IV and, for types 1
// and 2, its MAC. A parsed EncString is never modified.
type EncString struct {
	Type Type
	IV   [aescbc.IVSize]byte
	MAC  [aescbc.MACSize]byte
	Data []byte
}

// Parse decodes the text form of an EncString.
func Parse(s string) (*EncString, error) {
	header, parts := splitEncString(s)
	e := &EncString{}
	switch {
	case header == "0" && len(parts) == 2:
		e.Type = TypeAesCbc256B64
		if err := fromB64(parts[0], e.IV[:]); err != nil {
			return nil, err
		}
		data, err := fromB64Vec(parts[1])
		if err != nil {
			return nil, err
		}
		e.Data = data
	case (header == "1" || header == "2") && len(parts) == 3:
		e.Type = TypeAesCbc128HmacSha256B64
		if header == "2" {
			e.Type = TypeAesCbc256HmacSha256B64
		}
		if err := fromB64(parts[0], e.IV[:]); err != nil {
			return nil, err
		}
		data, err := fromB64Vec(parts[1])
		if err != nil {
			return nil, err
		}
		e.Data = data
		if err := fromB64(parts[2], e.MAC[:]); err != nil {
			return nil, err
		}
	default:
		return nil, &InvalidTypeError{Type: header, Parts: len(parts)}
	}
	return e, nil
}

// FromBuffer decodes the binary form [type][iv][mac?][data].
func FromBuffer(buf []byte) (*EncString, error) {
	if len(buf) == 0 {
		return nil, ErrNoType
	}
	e := &EncString{Type: Type(buf[0])}
	switch e.Type {
	case TypeAesCbc256B64:
		if err := checkLength(buf, 1+aescbc.IVSize+1); err != nil {
			return nil, err
		}
		copy(e.IV[:], buf[1:17])
		e.Data = append([]byte(nil), buf[17:]...)
	case TypeAesCbc128HmacSha256B64, TypeAesCbc256HmacSha256B64:
		if err := checkLength(buf, 1+aescbc.IVSize+aescbc.MACSize+1); err != nil {
			return nil, err
		}
		copy(e.IV[:], buf[1:17])
		copy(e.MAC[:], buf[17:49])
		e.Data = append([]byte(nil), buf[49:]...)
	default:
		return nil, &InvalidTypeError{Type: strconv.Itoa(int(buf[0])), Parts: 1}
	}
	return e, nil
}

// ToBuffer returns the binary form [type][iv][mac?][data].
func (e *EncString) ToBuffer() []byte {
	if !e.hasMAC() {
		buf := make([]byte, 0, 1+aescbc.IVSize+len(e.Data))
		buf = append(buf, byte(e.Type))
		buf = append(buf, e.IV[:]...)
		return append(buf, e.Data...)
	}
	buf := make([]byte, 0, 1+aescbc.IVSize+aescbc.MACSize+len(e.Data))
	buf = append(buf, byte(e.Type))
	buf = append(buf, e.IV[:]...)
	buf = append(buf, e.MAC[:]...)
	return append(buf, e.Data...)
}

// String returns the text form.
func (e *EncString) String() string {
	if !e.hasMAC() {
		return fmt.Sprintf("%d.%s", e.Type, joinB64(e.IV[:], e.Data))
	}
	return fmt.Sprintf("%d.%s", e.Type, joinB64(e.IV[:], e.Data, e.MAC[:]))
}

// GoString keeps ciphertext out of %#v output.
func (e *EncString) GoString() string {
	return "EncString"
}

func (e *EncString) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *EncString) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}

func (e *EncString) hasMAC() bool {
	return e.Type != TypeAesCbc256B64
}

// Encrypt encrypts data under key as a type 2 EncString. The key must carry
// a MAC key.
func Encrypt(data []byte, key SymmetricKey) (*EncString, error) {
	macKey := key.MACKey()
	if macKey == nil {
		return nil, types.ErrInvalidMac
	}
	iv, mac, ct, err := aescbc.Encrypt256HMAC(data, macKey, key.EncryptionKey())
	if err != nil {
		return nil, err
	}
	return &EncString{Type: TypeAesCbc256HmacSha256B64, IV: iv, MAC: mac, Data: ct}, nil
}

// EncryptString encrypts the UTF-8 bytes of s.
func EncryptString(s string, key SymmetricKey) (*EncString, error) {
	return Encrypt([]byte(s), key)
}

// Decrypt authenticates and decrypts e with key.
//
// Type 0 decrypts with the encryption key alone. Type 1 splits the 32-byte
// encryption key into a 16-byte AES key and a 16-byte MAC key. Type 2
// requires the key's MAC key.
func (e *EncString) Decrypt(key SymmetricKey) ([]byte, error) {
	encKey := key.EncryptionKey()
	switch e.Type {
	case TypeAesCbc256B64:
		return aescbc.Decrypt256(e.IV, e.Data, encKey)
	case TypeAesCbc128HmacSha256B64:
		if len(encKey) != aescbc.KeySize256 {
			return nil, types.ErrInvalidKeyLength
		}
		return aescbc.Decrypt128HMAC(e.IV, e.MAC, e.Data, encKey[16:32], encKey[:16])
	case TypeAesCbc256HmacSha256B64:
		macKey := key.MACKey()
		if macKey == nil {
			return nil, types.ErrInvalidMac
		}
		return aescbc.Decrypt256HMAC(e.IV, e.MAC, e.Data, macKey, encKey)
	default:
		return nil, types.ErrInvalidKey
	}
}

// DecryptString decrypts e and checks that the result is valid UTF-8.
func (e *EncString) DecryptString(key SymmetricKey) (string, error) {
	b, err := e.Decrypt(key)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", types.ErrInvalidUtf8String
	}
	return string(b), nil
}
