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
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/encstring"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/fingerprint"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keychain"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keys"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/metrics"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// AccessCodeLength is the length of an auth request access code.
const AccessCodeLength = 25

const (
	lowercase = "abcdefghijklmnopqrstuvwxyz"
	uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits    = "0123456789"
)

// AuthRequestResponse is the initiator side of a passwordless login. The
// private key stays on the requesting device; the rest is sent to the
// server.
type AuthRequestResponse struct {
	// PrivateKey is the base64 PKCS#8 DER of the ephemeral key.
	PrivateKey string `json:"privateKey"`

	// PublicKey is the base64 SPKI DER of the ephemeral key.
	PublicKey string `json:"publicKey"`

	// Fingerprint is the phrase both devices display for comparison.
	Fingerprint string `json:"fingerprint"`

	// AccessCode authorizes the request with the server.
	AccessCode string `json:"accessCode"`
}

// NewAuthRequest generates an ephemeral key pair and access code for a
// passwordless login by email.
func NewAuthRequest(email string) (resp *AuthRequestResponse, err error) {
	defer func(start time.Time) { metrics.Observe(metrics.OpAuthRequest, metrics.KeyAsymmetric, start, err) }(time.Now())

	key, err := keys.GenerateAsymmetricKey()
	if err != nil {
		return nil, err
	}
	defer key.Zeroize()

	spki, err := key.ToPublicDER()
	if err != nil {
		return nil, err
	}
	phrase, err := fingerprint.Generate(email, spki)
	if err != nil {
		return nil, err
	}
	der, err := key.ToDER()
	if err != nil {
		return nil, err
	}
	defer clear(der)

	code, err := generateAccessCode(AccessCodeLength)
	if err != nil {
		return nil, err
	}

	return &AuthRequestResponse{
		PrivateKey:  base64.StdEncoding.EncodeToString(der),
		PublicKey:   base64.StdEncoding.EncodeToString(spki),
		Fingerprint: phrase,
		AccessCode:  code,
	}, nil
}

// AuthRequestDecryptUserKey unwraps a user key approved for the request
// whose private key is privateKey.
func AuthRequestDecryptUserKey(privateKey string, userKey *encstring.AsymmetricEncString) (*keys.SymmetricCryptoKey, error) {
	key, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	defer key.Zeroize()

	raw, err := userKey.Decrypt(key.PrivateKey())
	if err != nil {
		return nil, err
	}
	return keys.NewSymmetricCryptoKey(raw)
}

// AuthRequestDecryptMasterKey unwraps an approved master key and uses it to
// decrypt the account's encrypted user key.
func AuthRequestDecryptMasterKey(privateKey string, masterKey *encstring.AsymmetricEncString,
	userKey *encstring.EncString) (*keys.SymmetricCryptoKey, error) {

	key, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	defer key.Zeroize()

	raw, err := masterKey.Decrypt(key.PrivateKey())
	if err != nil {
		return nil, err
	}
	mk, err := keys.NewMasterKey(raw)
	if err != nil {
		return nil, err
	}
	defer mk.Zeroize()
	return mk.DecryptUserKey(userKey)
}

// ApproveAuthRequest wraps the user key held by svc for the requesting
// device's public key.
func ApproveAuthRequest(svc *keychain.CryptoService, publicKey string) (enc *encstring.AsymmetricEncString, err error) {
	defer func(start time.Time) { metrics.Observe(metrics.OpAuthRequest, metrics.KeyAsymmetric, start, err) }(time.Now())

	pub, err := parsePublicKey(publicKey)
	if err != nil {
		return nil, err
	}

	ctx := svc.Context()
	defer ctx.Close()

	enc, err = ctx.EncryptSymmetricKeyWithPublicKey(keychain.UserKeyRef, pub)
	if errors.Is(err, types.ErrMissingKey) {
		return nil, types.ErrVaultLocked
	}
	return enc, err
}

// GetFingerprint returns the fingerprint phrase of a base64 SPKI public key
// for email. The approving device shows it next to the requester's phrase.
func GetFingerprint(email, publicKey string) (string, error) {
	der, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return "", fmt.Errorf("%w: public key: %v", types.ErrInvalidKey, err)
	}
	return fingerprint.Generate(email, der)
}

func parsePrivateKey(b64 string) (*keys.AsymmetricCryptoKey, error) {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %v", types.ErrInvalidKey, err)
	}
	defer clear(der)
	return keys.AsymmetricKeyFromDER(der)
}

func parsePublicKey(b64 string) (*keys.AsymmetricPublicCryptoKey, error) {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", types.ErrInvalidKey, err)
	}
	return keys.PublicKeyFromDER(der)
}

// generateAccessCode returns n characters drawn uniformly from letters and
// digits, retrying until every character class is present.
func generateAccessCode(n int) (string, error) {
	const alphabet = lowercase + uppercase + digits
	size := big.NewInt(int64(len(alphabet)))

	buf := make([]byte, n)
	for {
		for i := range buf {
			idx, err := rand.Int(rand.Reader, size)
			if err != nil {
				return "", fmt.Errorf("failed to generate access code: %w", err)
			}
			buf[i] = alphabet[idx.Int64()]
		}
		code := string(buf)
		if strings.ContainsAny(code, lowercase) && strings.ContainsAny(code, uppercase) && strings.ContainsAny(code, digits) {
			return code, nil
		}
	}
}
