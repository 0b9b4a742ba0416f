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

package encoding

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPKCS8RoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := EncodePKCS8(key)
	require.NoError(t, err)

	decoded, err := DecodePKCS8(der)
	require.NoError(t, err)
	assert.True(t, key.Equal(decoded))

	block := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	fromPEM, err := DecodePKCS8PEM(block)
	require.NoError(t, err)
	assert.True(t, key.Equal(fromPEM))
}

func TestSPKIRoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := EncodePublicKeySPKI(&key.PublicKey)
	require.NoError(t, err)

	pub, err := DecodePublicKeySPKI(der)
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))
}

func TestDecodeErrors(t *testing.T) {
	_, err := DecodePKCS8(nil)
	assert.ErrorIs(t, err, ErrInvalidData)

	_, err = DecodePKCS8([]byte{0x30, 0x01, 0x00})
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, err = DecodePublicKeySPKI(nil)
	assert.ErrorIs(t, err, ErrInvalidData)

	_, err = DecodePublicKeySPKI([]byte("not der"))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = DecodePKCS8PEM([]byte("garbage"))
	assert.ErrorIs(t, err, ErrInvalidPEMEncoding)

	_, err = DecodePKCS8PEM(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: []byte{1}}))
	assert.ErrorIs(t, err, ErrInvalidPEMEncoding)

	_, err = EncodePKCS8(nil)
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, err = EncodePublicKeySPKI(nil)
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestDecodeRejectsNonRSA(t *testing.T) {
	ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	pubDER, err := x509.MarshalPKIXPublicKey(&ec.PublicKey)
	require.NoError(t, err)
	_, err = DecodePublicKeySPKI(pubDER)
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	privDER, err := x509.MarshalPKCS8PrivateKey(ec)
	require.NoError(t, err)
	_, err = DecodePKCS8(privDER)
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}
