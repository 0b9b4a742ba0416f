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

package encstring

import (
	"crypto/rsa"
	"fmt"
	"unicode/utf8"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/crypto/wrapping"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// AsymmetricEncString is RSA-OAEP ciphertext. Types 5 and 6 carry a MAC that
// is kept for round-tripping and ignored on decryption.
type AsymmetricEncString struct {
	Type Type
	Data []byte
	MAC  []byte
}

// ParseAsymmetric decodes the text form of an AsymmetricEncString.
func ParseAsymmetric(s string) (*AsymmetricEncString, error) {
	header, parts := splitEncString(s)
	e := &AsymmetricEncString{}
	switch {
	case (header == "3" || header == "4") && len(parts) == 1:
		e.Type = TypeRsa2048OaepSha256B64
		if header == "4" {
			e.Type = TypeRsa2048OaepSha1B64
		}
	case (header == "5" || header == "6") && len(parts) == 2:
		e.Type = TypeRsa2048OaepSha256HmacSha256B64
		if header == "6" {
			e.Type = TypeRsa2048OaepSha1HmacSha256B64
		}
		mac, err := fromB64Vec(parts[1])
		if err != nil {
			return nil, err
		}
		e.MAC = mac
	default:
		return nil, &InvalidTypeError{Type: header, Parts: len(parts), Asymmetric: true}
	}
	data, err := fromB64Vec(parts[0])
	if err != nil {
		return nil, err
	}
	e.Data = data
	return e, nil
}

// String returns the text form.
func (e *AsymmetricEncString) String() string {
	if e.MAC == nil {
		return fmt.Sprintf("%d.%s", e.Type, joinB64(e.Data))
	}
	return fmt.Sprintf("%d.%s", e.Type, joinB64(e.Data, e.MAC))
}

// GoString keeps ciphertext out of %#v output.
func (e *AsymmetricEncString) GoString() string {
	return "AsymmetricEncString"
}

func (e *AsymmetricEncString) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *AsymmetricEncString) UnmarshalText(text []byte) error {
	parsed, err := ParseAsymmetric(string(text))
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}

// EncryptAsymmetric wraps data for pub with RSA-OAEP-SHA1 (type 4).
func EncryptAsymmetric(data []byte, pub *rsa.PublicKey) (*AsymmetricEncString, error) {
	ct, err := wrapping.WrapRSAOAEP(data, pub, wrapping.AlgorithmOAEPSHA1)
	if err != nil {
		return nil, err
	}
	return &AsymmetricEncString{Type: TypeRsa2048OaepSha1B64, Data: ct}, nil
}

// Decrypt unwraps e with priv. Every failure is reported as types.ErrKeyDecrypt.
func (e *AsymmetricEncString) Decrypt(priv *rsa.PrivateKey) ([]byte, error) {
	var alg wrapping.Algorithm
	switch e.Type {
	case TypeRsa2048OaepSha256B64, TypeRsa2048OaepSha256HmacSha256B64:
		alg = wrapping.AlgorithmOAEPSHA256
	case TypeRsa2048OaepSha1B64, TypeRsa2048OaepSha1HmacSha256B64:
		alg = wrapping.AlgorithmOAEPSHA1
	default:
		return nil, types.ErrKeyDecrypt
	}
	out, err := wrapping.UnwrapRSAOAEP(e.Data, priv, alg)
	if err != nil {
		return nil, types.ErrKeyDecrypt
	}
	return out, nil
}

// DecryptString unwraps e and checks that the result is valid UTF-8.
func (e *AsymmetricEncString) DecryptString(priv *rsa.PrivateKey) (string, error) {
	b, err := e.Decrypt(priv)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", types.ErrInvalidUtf8String
	}
	return string(b), nil
}
