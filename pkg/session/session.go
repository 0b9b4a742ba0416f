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

// Package session ties the unlock protocols to one keychain.CryptoService.
// A ClientCrypto remembers the account email and KDF after unlock so later
// PIN, password and enrollment calls need only the user's input.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/auth"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/encstring"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/kdf"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keychain"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keys"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/logging"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/metrics"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// ErrNotInitialized is returned by calls that need the account email and
// KDF before InitializeUserCrypto has run.
var ErrNotInitialized = errors.New("session: user crypto not initialized")

// Option configures a ClientCrypto.
type Option func(*ClientCrypto)

// WithLogger sets the session logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *ClientCrypto) {
		c.logger = l
	}
}

// WithThrottle limits password and PIN attempts, both unlocks and
// ValidatePassword or ValidatePin calls.
func WithThrottle(t *auth.Throttle) Option {
	return func(c *ClientCrypto) {
		c.throttle = t
	}
}

// ClientCrypto is the crypto half of a logged in client.
type ClientCrypto struct {
	svc      *keychain.CryptoService
	logger   *logging.Logger
	throttle *auth.Throttle

	mu    sync.RWMutex
	email string
	kdf   kdf.Kdf
	ready bool
}

// New returns a locked ClientCrypto over svc.
func New(svc *keychain.CryptoService, opts ...Option) *ClientCrypto {
	c := &ClientCrypto{
		svc:    svc,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Service returns the underlying CryptoService.
func (c *ClientCrypto) Service() *keychain.CryptoService {
	return c.svc
}

// IsUnlocked reports whether the user key is loaded.
func (c *ClientCrypto) IsUnlocked() bool {
	return c.svc.HasSymmetricKey(keychain.UserKeyRef)
}

func (c *ClientCrypto) account() (string, kdf.Kdf, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.ready {
		return "", kdf.Kdf{}, ErrNotInitialized
	}
	return c.email, c.kdf, nil
}

// InitializeUserCrypto unlocks the vault with req.Method, then stores the
// user key and account private key in the service.
func (c *ClientCrypto) InitializeUserCrypto(req *InitUserCryptoRequest) error {
	if req == nil || req.Method == nil {
		return fmt.Errorf("%w: missing unlock method", types.ErrInvalidKey)
	}
	var userKey *keys.SymmetricCryptoKey
	unwrap := func() (err error) {
		userKey, err = req.Method.userKey(req.Email, req.Kdf)
		return err
	}
	var err error
	if c.throttle != nil && guessable(req.Method) {
		err = c.throttle.Attempt(req.Email, unwrap)
	} else {
		err = unwrap()
	}
	if err != nil {
		c.logger.Debug("unlock failed", "method", req.Method.name(), "error", metrics.ErrorType(err))
		return err
	}
	if err := auth.Unlock(c.svc, userKey, req.PrivateKey, c.logger.With("method", req.Method.name())); err != nil {
		return err
	}

	c.mu.Lock()
	c.email, c.kdf, c.ready = req.Email, req.Kdf, true
	c.mu.Unlock()
	return nil
}

// MakeRegisterTdeKeys creates the keys for a user joining an organization
// through trusted device encryption and unlocks this session with them.
func (c *ClientCrypto) MakeRegisterTdeKeys(email, orgPublicKey string, rememberDevice bool) (*auth.RegisterTdeKeyResponse, error) {
	resp, err := auth.MakeRegisterTdeKeys(c.svc, orgPublicKey, rememberDevice, c.logger)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.email, c.kdf, c.ready = email, kdf.DefaultPBKDF2(), true
	c.mu.Unlock()
	return resp, nil
}

// InitializeOrgCrypto replaces the organization keys with orgKeys, each
// unwrapped by the user's private key.
func (c *ClientCrypto) InitializeOrgCrypto(orgKeys map[uuid.UUID]*encstring.AsymmetricEncString) (err error) {
	defer func(start time.Time) { metrics.Observe(metrics.OpOrgKeysLoaded, metrics.KeyAsymmetric, start, err) }(time.Now())

	ctx := c.svc.MutableContext()
	defer ctx.Close()

	if !ctx.HasAsymmetricKey(keychain.UserPrivateKeyRef) {
		return types.ErrVaultLocked
	}
	ctx.RetainSymmetricKeys(func(ref keychain.SymmetricKeyRef) bool {
		return !ref.IsOrganization()
	})
	for id, enc := range orgKeys {
		if _, err := ctx.DecryptSymmetricKeyWithAsymmetricKey(keychain.UserPrivateKeyRef,
			keychain.OrganizationKeyRef(id), enc); err != nil {
			return fmt.Errorf("organization %s: %w", id, err)
		}
	}
	c.logger.Info("organization keys loaded", "count", len(orgKeys))
	return nil
}

// GetUserEncryptionKey returns the base64 user key so a client can persist
// it in secure platform storage.
func (c *ClientCrypto) GetUserEncryptionKey() (string, error) {
	ctx := c.svc.Context()
	defer ctx.Close()

	key, err := ctx.ExportSymmetricKey(keychain.UserKeyRef)
	if err != nil {
		return "", lockedIfMissing(err)
	}
	defer key.Zeroize()
	return key.ToBase64(), nil
}

// UpdatePasswordResponse is the result of a master password change.
type UpdatePasswordResponse struct {
	// PasswordHash is the server authorization hash of the new password.
	PasswordHash string `json:"passwordHash"`

	// NewKey is the user key wrapped by the new master key.
	NewKey *encstring.EncString `json:"newKey"`
}

// UpdatePassword rewraps the current user key under a master key derived
// from newPassword.
func (c *ClientCrypto) UpdatePassword(newPassword types.Password) (*UpdatePasswordResponse, error) {
	email, k, err := c.account()
	if err != nil {
		return nil, err
	}
	userKey, err := c.exportUserKey()
	if err != nil {
		return nil, err
	}
	defer userKey.Zeroize()

	pw := newPassword.Bytes()
	defer clear(pw)

	mk, err := keys.DeriveMasterKey(pw, email, k)
	if err != nil {
		return nil, err
	}
	defer mk.Zeroize()

	hash, err := mk.DeriveMasterKeyHash(pw, keys.ServerAuthorization)
	if err != nil {
		return nil, err
	}
	enc, err := mk.EncryptUserKey(userKey)
	if err != nil {
		return nil, err
	}
	c.logger.Info("master password updated")
	return &UpdatePasswordResponse{PasswordHash: hash, NewKey: enc}, nil
}

// DerivePinKeyResponse holds the values a client stores to unlock by PIN.
type DerivePinKeyResponse struct {
	// PinProtectedUserKey is the user key wrapped by the PIN key.
	PinProtectedUserKey *encstring.EncString `json:"pinProtectedUserKey"`

	// EncryptedPin is the PIN encrypted with the user key, used to rebuild
	// PinProtectedUserKey after a user key rotation.
	EncryptedPin *encstring.EncString `json:"encryptedPin"`
}

// DerivePinKey enrolls pin as an unlock method.
func (c *ClientCrypto) DerivePinKey(pin types.Password) (*DerivePinKeyResponse, error) {
	email, k, err := c.account()
	if err != nil {
		return nil, err
	}
	userKey, err := c.exportUserKey()
	if err != nil {
		return nil, err
	}
	defer userKey.Zeroize()

	raw := pin.Bytes()
	defer clear(raw)

	protected, err := pinProtectUserKey(raw, email, k, userKey)
	if err != nil {
		return nil, err
	}
	encryptedPin, err := encstring.Encrypt(raw, userKey)
	if err != nil {
		return nil, err
	}
	return &DerivePinKeyResponse{PinProtectedUserKey: protected, EncryptedPin: encryptedPin}, nil
}

// DerivePinUserKey rebuilds the PIN protected user key from a PIN that was
// stored encrypted with the user key.
func (c *ClientCrypto) DerivePinUserKey(encryptedPin *encstring.EncString) (*encstring.EncString, error) {
	email, k, err := c.account()
	if err != nil {
		return nil, err
	}
	userKey, err := c.exportUserKey()
	if err != nil {
		return nil, err
	}
	defer userKey.Zeroize()

	pin, err := encryptedPin.Decrypt(userKey)
	if err != nil {
		return nil, err
	}
	defer clear(pin)
	return pinProtectUserKey(pin, email, k, userKey)
}

// DeriveKeyConnectorRequest identifies a password account migrating to
// key connector.
type DeriveKeyConnectorRequest struct {
	// UserKeyEncrypted is the user key wrapped by the master key.
	UserKeyEncrypted *encstring.EncString
	Password         types.Password
	Kdf              kdf.Kdf
	Email            string
}

// DeriveKeyConnector returns the base64 master key of req's account for
// upload to a key connector service. It does not need an unlocked vault.
func (c *ClientCrypto) DeriveKeyConnector(req *DeriveKeyConnectorRequest) (string, error) {
	if req == nil {
		return "", fmt.Errorf("%w: missing key connector request", types.ErrInvalidKey)
	}
	masterKey, err := auth.DeriveKeyConnector(req.UserKeyEncrypted, req.Password, req.Email, req.Kdf)
	if err != nil {
		c.logger.Debug("key connector derivation failed", "error", metrics.ErrorType(err))
		return "", err
	}
	return masterKey, nil
}

// EnrollAdminPasswordReset wraps the user key for an organization's base64
// public key so its administrators can reset the master password.
func (c *ClientCrypto) EnrollAdminPasswordReset(orgPublicKey string) (*encstring.AsymmetricEncString, error) {
	return auth.ApproveAuthRequest(c.svc, orgPublicKey)
}

// ApproveAuthRequest wraps the user key for another device's auth request.
func (c *ClientCrypto) ApproveAuthRequest(publicKey string) (*encstring.AsymmetricEncString, error) {
	return auth.ApproveAuthRequest(c.svc, publicKey)
}

// TrustDevice creates the keys that let this device unlock without a
// password.
func (c *ClientCrypto) TrustDevice() (resp *keys.TrustDeviceResponse, err error) {
	defer func(start time.Time) { metrics.Observe(metrics.OpDeviceTrust, metrics.KeySymmetric, start, err) }(time.Now())

	userKey, err := c.exportUserKey()
	if err != nil {
		return nil, err
	}
	defer userKey.Zeroize()
	return keys.TrustDevice(userKey)
}

// ValidatePassword checks password against a locally stored hash.
func (c *ClientCrypto) ValidatePassword(password types.Password, hash string) (bool, error) {
	email, k, err := c.account()
	if err != nil {
		return false, err
	}
	if c.throttle != nil {
		return c.throttle.ValidatePassword(email, password, hash, email, k)
	}
	return auth.ValidatePassword(password, hash, email, k)
}

// ValidatePasswordUserKey checks password against the encrypted user key
// and returns the local hash to store.
func (c *ClientCrypto) ValidatePasswordUserKey(password types.Password, encryptedUserKey *encstring.EncString) (string, error) {
	email, k, err := c.account()
	if err != nil {
		return "", err
	}
	return auth.ValidatePasswordUserKey(c.svc, password, encryptedUserKey, email, k)
}

// ValidatePin checks pin against the stored PIN protected user key.
func (c *ClientCrypto) ValidatePin(pin types.Password, pinProtectedUserKey *encstring.EncString) (bool, error) {
	email, k, err := c.account()
	if err != nil {
		return false, err
	}
	if c.throttle != nil {
		return c.throttle.ValidatePin(email, c.svc, pin, pinProtectedUserKey, email, k)
	}
	return auth.ValidatePin(c.svc, pin, pinProtectedUserKey, email, k)
}

// Lock wipes every key from the service. The account email and KDF are
// kept so the vault can be unlocked again.
func (c *ClientCrypto) Lock() {
	c.svc.Clear()
	c.logger.Info("vault locked")
}

func (c *ClientCrypto) exportUserKey() (*keys.SymmetricCryptoKey, error) {
	ctx := c.svc.Context()
	defer ctx.Close()

	key, err := ctx.ExportSymmetricKey(keychain.UserKeyRef)
	if err != nil {
		return nil, lockedIfMissing(err)
	}
	return key, nil
}

func pinProtectUserKey(pin []byte, email string, k kdf.Kdf, userKey *keys.SymmetricCryptoKey) (*encstring.EncString, error) {
	pinKey, err := keys.DerivePinKey(pin, email, k)
	if err != nil {
		return nil, err
	}
	defer pinKey.Zeroize()
	return pinKey.EncryptUserKey(userKey)
}

// guessable reports whether m unlocks with a user secret that can be
// brute forced.
func guessable(m InitUserCryptoMethod) bool {
	switch m.(type) {
	case Password, Pin:
		return true
	default:
		return false
	}
}

func lockedIfMissing(err error) error {
	if errors.Is(err, types.ErrMissingKey) {
		return types.ErrVaultLocked
	}
	return err
}
