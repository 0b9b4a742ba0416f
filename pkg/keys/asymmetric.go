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
	"crypto/rsa"
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/crypto/wrapping"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/encoding"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// AsymmetricCryptoKey is an RSA-2048 private key.
type AsymmetricCryptoKey struct {
	key *rsa.PrivateKey
}

// GenerateAsymmetricKey returns a new RSA-2048 key.
func GenerateAsymmetricKey() (*AsymmetricCryptoKey, error) {
	priv, err := wrapping.GenerateRSAKey()
	if err != nil {
		return nil, err
	}
	return &AsymmetricCryptoKey{key: priv}, nil
}

// AsymmetricKeyFromDER parses an unencrypted PKCS#8 DER private key.
func AsymmetricKeyFromDER(der []byte) (*AsymmetricCryptoKey, error) {
	priv, err := encoding.DecodePKCS8(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return &AsymmetricCryptoKey{key: priv}, nil
}

// AsymmetricKeyFromPEM parses a "PRIVATE KEY" PEM block.
func AsymmetricKeyFromPEM(pem string) (*AsymmetricCryptoKey, error) {
	priv, err := encoding.DecodePKCS8PEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return &AsymmetricCryptoKey{key: priv}, nil
}

// ToDER returns the PKCS#8 DER encoding of the private key.
func (k *AsymmetricCryptoKey) ToDER() ([]byte, error) {
	if k.key == nil {
		return nil, types.ErrInvalidKey
	}
	der, err := encoding.EncodePKCS8(k.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return der, nil
}

// ToPublicDER returns the SubjectPublicKeyInfo DER encoding of the public key.
func (k *AsymmetricCryptoKey) ToPublicDER() ([]byte, error) {
	if k.key == nil {
		return nil, types.ErrInvalidKey
	}
	der, err := encoding.EncodePublicKeySPKI(&k.key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return der, nil
}

// PrivateKey returns the underlying RSA key.
func (k *AsymmetricCryptoKey) PrivateKey() *rsa.PrivateKey {
	return k.key
}

// PublicKey returns the RSA public key.
func (k *AsymmetricCryptoKey) PublicKey() *rsa.PublicKey {
	if k.key == nil {
		return nil
	}
	return &k.key.PublicKey
}

// SecretLen is zero: RSA keys live on the Go heap and are wiped in place.
func (k *AsymmetricCryptoKey) SecretLen() int {
	return 0
}

// Relocate is a no-op for RSA keys.
func (k *AsymmetricCryptoKey) Relocate(dst []byte) {}

// Zeroize wipes the private exponent, the primes and the CRT values.
func (k *AsymmetricCryptoKey) Zeroize() {
	if k.key == nil {
		return
	}
	wipeInt(k.key.D)
	for _, p := range k.key.Primes {
		wipeInt(p)
	}
	wipeInt(k.key.Precomputed.Dp)
	wipeInt(k.key.Precomputed.Dq)
	wipeInt(k.key.Precomputed.Qinv)
	k.key = nil
}

func wipeInt(x *big.Int) {
	if x == nil {
		return
	}
	clear(x.Bits())
	x.SetInt64(0)
}

func (k *AsymmetricCryptoKey) String() string {
	return "AsymmetricCryptoKey"
}

func (k *AsymmetricCryptoKey) GoString() string {
	return "AsymmetricCryptoKey"
}

// AsymmetricPublicCryptoKey is an RSA public key used to wrap keys for
// another party.
type AsymmetricPublicCryptoKey struct {
	key *rsa.PublicKey
}

// PublicKeyFromDER parses a SubjectPublicKeyInfo DER public key.
func PublicKeyFromDER(der []byte) (*AsymmetricPublicCryptoKey, error) {
	pub, err := encoding.DecodePublicKeySPKI(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return &AsymmetricPublicCryptoKey{key: pub}, nil
}

// PublicKey returns the RSA public key.
func (k *AsymmetricPublicCryptoKey) PublicKey() *rsa.PublicKey {
	return k.key
}
