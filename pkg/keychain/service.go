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
	"runtime"
	"sync"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/keys"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keystore"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/logging"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/metrics"
)

// DefaultMinChunk is the smallest number of items a worker handles in
// EncryptList and DecryptList.
const DefaultMinChunk = 50

// symmetricWindow is the largest symmetric key: 32 bytes of AES key and
// 32 bytes of MAC key.
const symmetricWindow = keys.KeySize + keys.MACKeySize

const (
	storeGlobalSymmetric  = "global_symmetric"
	storeGlobalAsymmetric = "global_asymmetric"
)

type (
	symmetricStore  = keystore.Store[SymmetricKeyRef, *keys.SymmetricCryptoKey]
	asymmetricStore = keystore.Store[AsymmetricKeyRef, *keys.AsymmetricCryptoKey]
)

// Config configures a CryptoService.
type Config struct {
	// Backend is the key store memory backend: auto, mlock or memfd.
	Backend string `yaml:"backend" mapstructure:"backend"`

	// Workers bounds EncryptList concurrency. Zero means GOMAXPROCS.
	Workers int `yaml:"workers" mapstructure:"workers"`

	// MinChunk is the smallest chunk handed to a worker. Values below
	// DefaultMinChunk are raised to it.
	MinChunk int `yaml:"min_chunk" mapstructure:"min_chunk"`
}

// Option configures a CryptoService.
type Option func(*CryptoService)

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *CryptoService) {
		s.logger = l
	}
}

// CryptoService holds the global key stores. It is safe for concurrent
// use and is shared by pointer.
type CryptoService struct {
	mu         sync.RWMutex
	backend    keystore.Backend
	symmetric  *symmetricStore
	asymmetric *asymmetricStore
	closed     bool

	workers  int
	minChunk int
	logger   *logging.Logger
}

// New creates a CryptoService with empty stores.
func New(cfg Config, opts ...Option) (*CryptoService, error) {
	backend, err := keystore.NewBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	s := &CryptoService{
		backend:  backend,
		workers:  cfg.Workers,
		minChunk: max(cfg.MinChunk, DefaultMinChunk),
		logger:   logging.Discard(),
	}
	if s.workers <= 0 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	for _, opt := range opts {
		opt(s)
	}

	s.symmetric = newSymmetricStore(backend, s.logger, storeGlobalSymmetric)
	s.asymmetric = newAsymmetricStore(backend, s.logger, storeGlobalAsymmetric)

	s.logger.Info("crypto service started", "backend", backend.Name(), "workers", s.workers)
	return s, nil
}

func resizeHook(logger *logging.Logger, store string) keystore.Option {
	return keystore.WithResizeHook(func(backend string, oldCap, newCap int) {
		metrics.RecordKeystoreResize(backend)
		logger.Debug("key store resized", "store", store, "backend", backend, "from", oldCap, "to", newCap)
	})
}

func newSymmetricStore(b keystore.Backend, logger *logging.Logger, name string) *symmetricStore {
	return keystore.New[SymmetricKeyRef, *keys.SymmetricCryptoKey](b, symmetricWindow, resizeHook(logger, name))
}

func newAsymmetricStore(b keystore.Backend, logger *logging.Logger, name string) *asymmetricStore {
	return keystore.New[AsymmetricKeyRef, *keys.AsymmetricCryptoKey](b, 0, resizeHook(logger, name))
}

// Backend returns the name of the key store memory backend.
func (s *CryptoService) Backend() string {
	return s.backend.Name()
}

// Context opens a read-only context. It holds a read lock on the global
// stores until Close; calling a write method of the service from the
// same goroutine before then deadlocks.
func (s *CryptoService) Context() *Context {
	s.mu.RLock()
	return newContext(s, false)
}

// MutableContext opens a context that may modify global keys. It holds
// the write lock until Close.
func (s *CryptoService) MutableContext() *Context {
	s.mu.Lock()
	return newContext(s, true)
}

// InsertSymmetricKey stores key under a global ref. The service takes
// ownership of key.
func (s *CryptoService) InsertSymmetricKey(ref SymmetricKeyRef, key *keys.SymmetricCryptoKey) error {
	ctx := s.MutableContext()
	defer ctx.Close()
	return ctx.SetSymmetricKey(ref, key)
}

// InsertAsymmetricKey stores key under a global ref. The service takes
// ownership of key.
func (s *CryptoService) InsertAsymmetricKey(ref AsymmetricKeyRef, key *keys.AsymmetricCryptoKey) error {
	ctx := s.MutableContext()
	defer ctx.Close()
	return ctx.SetAsymmetricKey(ref, key)
}

// HasSymmetricKey reports whether a global symmetric key is present.
func (s *CryptoService) HasSymmetricKey(ref SymmetricKeyRef) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.symmetric.Has(ref)
}

// HasAsymmetricKey reports whether a global asymmetric key is present.
func (s *CryptoService) HasAsymmetricKey(ref AsymmetricKeyRef) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.asymmetric.Has(ref)
}

// RetainSymmetricKeys removes every global symmetric key for which keep
// returns false.
func (s *CryptoService) RetainSymmetricKeys(keep func(SymmetricKeyRef) bool) {
	ctx := s.MutableContext()
	defer ctx.Close()
	ctx.RetainSymmetricKeys(keep)
}

// Clear wipes every global key. The service stays usable.
func (s *CryptoService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symmetric.Clear()
	s.asymmetric.Clear()
	s.updateGauges()
	s.logger.Info("global keys cleared")
}

// Close wipes every global key and frees the store memory.
func (s *CryptoService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.symmetric.Close()
	if aerr := s.asymmetric.Close(); err == nil {
		err = aerr
	}
	s.updateGauges()
	return err
}

func (s *CryptoService) updateGauges() {
	metrics.SetKeysTotal(storeGlobalSymmetric, s.symmetric.Len())
	metrics.SetKeysTotal(storeGlobalAsymmetric, s.asymmetric.Len())
}
