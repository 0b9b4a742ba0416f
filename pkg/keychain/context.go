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

package keychain

import (
	"fmt"
	"time"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/encstring"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keys"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/metrics"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// Context is a scoped view of a CryptoService. It is not safe for
// concurrent use; open one Context per goroutine.
type Context struct {
	svc     *CryptoService
	mutable bool
	closed  bool

	localSymmetric  *symmetricStore
	localAsymmetric *asymmetricStore
}

func newContext(s *CryptoService, mutable bool) *Context {
	return &Context{
		svc:             s,
		mutable:         mutable,
		localSymmetric:  newSymmetricStore(s.backend, s.logger, "local_symmetric"),
		localAsymmetric: newAsymmetricStore(s.backend, s.logger, "local_asymmetric"),
	}
}

// Close wipes the local keys and releases the service lock. It is safe to
// call more than once.
func (c *Context) Close() {
	if c.closed {
		return
	}
	c.closed = true
	_ = c.localSymmetric.Close()
	_ = c.localAsymmetric.Close()
	if c.mutable {
		c.svc.updateGauges()
		c.svc.mu.Unlock()
	} else {
		c.svc.mu.RUnlock()
	}
}

// Clear wipes the local keys. Global keys are untouched.
func (c *Context) Clear() {
	c.localSymmetric.Clear()
	c.localAsymmetric.Clear()
}

// IsMutable reports whether the context may modify global keys.
func (c *Context) IsMutable() bool {
	return c.mutable
}

func (c *Context) check() error {
	if c.closed {
		return ErrContextClosed
	}
	if c.svc.closed {
		return ErrServiceClosed
	}
	return nil
}

func (c *Context) symmetricStoreFor(ref SymmetricKeyRef, write bool) (*symmetricStore, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if ref.IsLocal() {
		return c.localSymmetric, nil
	}
	if write && !c.mutable {
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyContext, ref)
	}
	return c.svc.symmetric, nil
}

func (c *Context) asymmetricStoreFor(ref AsymmetricKeyRef, write bool) (*asymmetricStore, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if ref.IsLocal() {
		return c.localAsymmetric, nil
	}
	if write && !c.mutable {
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyContext, ref)
	}
	return c.svc.asymmetric, nil
}

func (c *Context) symmetricKey(ref SymmetricKeyRef) (*keys.SymmetricCryptoKey, error) {
	store, err := c.symmetricStoreFor(ref, false)
	if err != nil {
		return nil, err
	}
	key, ok := store.Get(ref)
	if !ok {
		return nil, types.NewMissingKeyError(ref)
	}
	return key, nil
}

func (c *Context) asymmetricKey(ref AsymmetricKeyRef) (*keys.AsymmetricCryptoKey, error) {
	store, err := c.asymmetricStoreFor(ref, false)
	if err != nil {
		return nil, err
	}
	key, ok := store.Get(ref)
	if !ok {
		return nil, types.NewMissingKeyError(ref)
	}
	return key, nil
}

// SetSymmetricKey stores key under ref and takes ownership of it. Global
// refs need a MutableContext.
func (c *Context) SetSymmetricKey(ref SymmetricKeyRef, key *keys.SymmetricCryptoKey) error {
	store, err := c.symmetricStoreFor(ref, true)
	if err != nil {
		key.Zeroize()
		return err
	}
	if err := store.Insert(ref, key); err != nil {
		key.Zeroize()
		return err
	}
	return nil
}

// SetAsymmetricKey stores key under ref and takes ownership of it. Global
// refs need a MutableContext.
func (c *Context) SetAsymmetricKey(ref AsymmetricKeyRef, key *keys.AsymmetricCryptoKey) error {
	store, err := c.asymmetricStoreFor(ref, true)
	if err != nil {
		key.Zeroize()
		return err
	}
	if err := store.Insert(ref, key); err != nil {
		key.Zeroize()
		return err
	}
	return nil
}

// GenerateSymmetricKey creates a random key under ref.
func (c *Context) GenerateSymmetricKey(ref SymmetricKeyRef) (SymmetricKeyRef, error) {
	key, err := keys.GenerateSymmetricKey()
	if err != nil {
		return ref, err
	}
	return ref, c.SetSymmetricKey(ref, key)
}

// HasSymmetricKey reports whether ref resolves to a key.
func (c *Context) HasSymmetricKey(ref SymmetricKeyRef) bool {
	_, err := c.symmetricKey(ref)
	return err == nil
}

// HasAsymmetricKey reports whether ref resolves to a key.
func (c *Context) HasAsymmetricKey(ref AsymmetricKeyRef) bool {
	_, err := c.asymmetricKey(ref)
	return err == nil
}

// RemoveSymmetricKey wipes the key under ref. Global refs need a
// MutableContext.
func (c *Context) RemoveSymmetricKey(ref SymmetricKeyRef) error {
	store, err := c.symmetricStoreFor(ref, true)
	if err != nil {
		return err
	}
	store.Remove(ref)
	return nil
}

// RemoveAsymmetricKey wipes the key under ref. Global refs need a
// MutableContext.
func (c *Context) RemoveAsymmetricKey(ref AsymmetricKeyRef) error {
	store, err := c.asymmetricStoreFor(ref, true)
	if err != nil {
		return err
	}
	store.Remove(ref)
	return nil
}

// RetainSymmetricKeys drops the local keys for which keep returns false
// and, in a MutableContext, the global ones too.
func (c *Context) RetainSymmetricKeys(keep func(SymmetricKeyRef) bool) {
	if c.check() != nil {
		return
	}
	c.localSymmetric.Retain(keep)
	if c.mutable {
		c.svc.symmetric.Retain(keep)
	}
}

// RetainAsymmetricKeys is the asymmetric counterpart of
// RetainSymmetricKeys.
func (c *Context) RetainAsymmetricKeys(keep func(AsymmetricKeyRef) bool) {
	if c.check() != nil {
		return
	}
	c.localAsymmetric.Retain(keep)
	if c.mutable {
		c.svc.asymmetric.Retain(keep)
	}
}

// DecryptAndStoreSymmetricKey unwraps enc with wrap and stores the result
// under newRef.
func (c *Context) DecryptAndStoreSymmetricKey(wrap, newRef SymmetricKeyRef, enc *encstring.EncString) (ref SymmetricKeyRef, err error) {
	defer observe(metrics.OpDecryptKey, metrics.KeySymmetric, time.Now(), &err)

	wrapKey, err := c.symmetricKey(wrap)
	if err != nil {
		return newRef, err
	}
	raw, err := enc.Decrypt(wrapKey)
	if err != nil {
		return newRef, err
	}
	key, err := keys.NewSymmetricCryptoKey(raw)
	if err != nil {
		return newRef, err
	}
	return newRef, c.SetSymmetricKey(newRef, key)
}

// EncryptSymmetricKey wraps the key under keyToEncrypt with wrap.
func (c *Context) EncryptSymmetricKey(wrap, keyToEncrypt SymmetricKeyRef) (enc *encstring.EncString, err error) {
	defer observe(metrics.OpEncryptKey, metrics.KeySymmetric, time.Now(), &err)

	wrapKey, err := c.symmetricKey(wrap)
	if err != nil {
		return nil, err
	}
	key, err := c.symmetricKey(keyToEncrypt)
	if err != nil {
		return nil, err
	}
	raw := key.ToVec()
	defer clear(raw)
	return encstring.Encrypt(raw, wrapKey)
}

// EncryptDataWithSymmetricKey encrypts data with the key under ref.
func (c *Context) EncryptDataWithSymmetricKey(ref SymmetricKeyRef, data []byte) (enc *encstring.EncString, err error) {
	defer observe(metrics.OpEncrypt, metrics.KeySymmetric, time.Now(), &err)

	key, err := c.symmetricKey(ref)
	if err != nil {
		return nil, err
	}
	return encstring.Encrypt(data, key)
}

// DecryptDataWithSymmetricKey decrypts enc with the key under ref.
func (c *Context) DecryptDataWithSymmetricKey(ref SymmetricKeyRef, enc *encstring.EncString) (data []byte, err error) {
	defer observe(metrics.OpDecrypt, metrics.KeySymmetric, time.Now(), &err)

	key, err := c.symmetricKey(ref)
	if err != nil {
		return nil, err
	}
	return enc.Decrypt(key)
}

// DecryptStringWithSymmetricKey decrypts enc with the key under ref and
// requires the plaintext to be valid UTF-8.
func (c *Context) DecryptStringWithSymmetricKey(ref SymmetricKeyRef, enc *encstring.EncString) (s string, err error) {
	defer observe(metrics.OpDecrypt, metrics.KeySymmetric, time.Now(), &err)

	key, err := c.symmetricKey(ref)
	if err != nil {
		return "", err
	}
	return enc.DecryptString(key)
}

// DecryptAndStoreAsymmetricKey unwraps a PKCS#8 private key with wrap and
// stores it under newRef.
func (c *Context) DecryptAndStoreAsymmetricKey(wrap SymmetricKeyRef, newRef AsymmetricKeyRef, enc *encstring.EncString) (ref AsymmetricKeyRef, err error) {
	defer observe(metrics.OpDecryptKey, metrics.KeyAsymmetric, time.Now(), &err)

	wrapKey, err := c.symmetricKey(wrap)
	if err != nil {
		return newRef, err
	}
	der, err := enc.Decrypt(wrapKey)
	if err != nil {
		return newRef, err
	}
	defer clear(der)
	key, err := keys.AsymmetricKeyFromDER(der)
	if err != nil {
		return newRef, err
	}
	return newRef, c.SetAsymmetricKey(newRef, key)
}

// EncryptAsymmetricKey wraps the PKCS#8 encoding of the private key under
// keyToEncrypt with wrap.
func (c *Context) EncryptAsymmetricKey(wrap SymmetricKeyRef, keyToEncrypt AsymmetricKeyRef) (enc *encstring.EncString, err error) {
	defer observe(metrics.OpEncryptKey, metrics.KeyAsymmetric, time.Now(), &err)

	wrapKey, err := c.symmetricKey(wrap)
	if err != nil {
		return nil, err
	}
	key, err := c.asymmetricKey(keyToEncrypt)
	if err != nil {
		return nil, err
	}
	der, err := key.ToDER()
	if err != nil {
		return nil, err
	}
	defer clear(der)
	return encstring.Encrypt(der, wrapKey)
}

// EncryptDataWithAsymmetricKey encrypts data for the public half of the
// key under ref.
func (c *Context) EncryptDataWithAsymmetricKey(ref AsymmetricKeyRef, data []byte) (enc *encstring.AsymmetricEncString, err error) {
	defer observe(metrics.OpEncrypt, metrics.KeyAsymmetric, time.Now(), &err)

	key, err := c.asymmetricKey(ref)
	if err != nil {
		return nil, err
	}
	return encstring.EncryptAsymmetric(data, key.PublicKey())
}

// DecryptDataWithAsymmetricKey decrypts enc with the private key under
// ref.
func (c *Context) DecryptDataWithAsymmetricKey(ref AsymmetricKeyRef, enc *encstring.AsymmetricEncString) (data []byte, err error) {
	defer observe(metrics.OpDecrypt, metrics.KeyAsymmetric, time.Now(), &err)

	key, err := c.asymmetricKey(ref)
	if err != nil {
		return nil, err
	}
	return enc.Decrypt(key.PrivateKey())
}

// DecryptSymmetricKeyWithAsymmetricKey unwraps a symmetric key with the
// private key under wrap and stores it under newRef.
func (c *Context) DecryptSymmetricKeyWithAsymmetricKey(wrap AsymmetricKeyRef, newRef SymmetricKeyRef, enc *encstring.AsymmetricEncString) (ref SymmetricKeyRef, err error) {
	defer observe(metrics.OpDecryptKey, metrics.KeyAsymmetric, time.Now(), &err)

	priv, err := c.asymmetricKey(wrap)
	if err != nil {
		return newRef, err
	}
	raw, err := enc.Decrypt(priv.PrivateKey())
	if err != nil {
		return newRef, err
	}
	key, err := keys.NewSymmetricCryptoKey(raw)
	if err != nil {
		return newRef, err
	}
	return newRef, c.SetSymmetricKey(newRef, key)
}

// EncryptSymmetricKeyWithPublicKey wraps the key under keyToEncrypt for
// the holder of pub, such as an organization or another device.
func (c *Context) EncryptSymmetricKeyWithPublicKey(keyToEncrypt SymmetricKeyRef, pub *keys.AsymmetricPublicCryptoKey) (enc *encstring.AsymmetricEncString, err error) {
	defer observe(metrics.OpEncryptKey, metrics.KeyAsymmetric, time.Now(), &err)

	key, err := c.symmetricKey(keyToEncrypt)
	if err != nil {
		return nil, err
	}
	raw := key.ToVec()
	defer clear(raw)
	return encstring.EncryptAsymmetric(raw, pub.PublicKey())
}

// ExportSymmetricKey returns a copy of the key under ref. The caller owns
// the copy and must Zeroize it.
func (c *Context) ExportSymmetricKey(ref SymmetricKeyRef) (*keys.SymmetricCryptoKey, error) {
	key, err := c.symmetricKey(ref)
	if err != nil {
		return nil, err
	}
	return key.Clone(), nil
}

// PublicKey returns the public half of the private key under ref.
func (c *Context) PublicKey(ref AsymmetricKeyRef) (*keys.AsymmetricPublicCryptoKey, error) {
	key, err := c.asymmetricKey(ref)
	if err != nil {
		return nil, err
	}
	der, err := key.ToPublicDER()
	if err != nil {
		return nil, err
	}
	return keys.PublicKeyFromDER(der)
}

func observe(op, keyType string, start time.Time, err *error) {
	metrics.Observe(op, keyType, start, *err)
}
