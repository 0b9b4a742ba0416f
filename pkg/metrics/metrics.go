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

// Package metrics provides Prometheus instrumentation for crypto
// operations and key stores.
package metrics

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all metrics
	Namespace = "vaultcrypto"

	// Label names
	LabelOperation = "operation"
	LabelKeyType   = "key_type"
	LabelStatus    = "status"
	LabelErrorType = "error_type"
	LabelStore     = "store"
	LabelBackend   = "backend"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Key types
	KeySymmetric  = "symmetric"
	KeyAsymmetric = "asymmetric"

	// Operation names
	OpEncrypt       = "encrypt"
	OpDecrypt       = "decrypt"
	OpEncryptKey    = "encrypt_key"
	OpDecryptKey    = "decrypt_key"
	OpDeriveKey     = "derive_key"
	OpEncryptList   = "encrypt_list"
	OpUnlock        = "unlock"
	OpValidate      = "validate"
	OpKeystoreGrow  = "keystore_grow"
	OpFingerprint   = "fingerprint"
	OpDeviceTrust   = "device_trust"
	OpAuthRequest   = "auth_request"
	OpOrgKeysLoaded = "org_keys_loaded"
	OpRegister      = "register"
)

var (
	// OperationsTotal counts crypto operations by operation, key type and status.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of crypto operations by type, key type, and status",
		},
		[]string{LabelOperation, LabelKeyType, LabelStatus},
	)

	// OperationDuration tracks operation latency. KDF runs dominate the
	// upper buckets.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of crypto operations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{LabelOperation},
	)

	// ErrorsTotal counts failures by operation and error type.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation and error type",
		},
		[]string{LabelOperation, LabelErrorType},
	)

	// KeysTotal is the number of keys held per store.
	KeysTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "keys_total",
			Help:      "Number of keys held in a key store",
		},
		[]string{LabelStore},
	)

	// KeystoreResizesTotal counts key store region reallocations.
	KeystoreResizesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "keystore_resizes_total",
			Help:      "Total number of key store resizes by memory backend",
		},
		[]string{LabelBackend},
	)

	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordOperation records an operation with its duration and status.
func RecordOperation(operation, keyType, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, keyType, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordError records a failure of operation.
func RecordError(operation, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// Observe records the outcome of an operation that started at start. A
// non-nil err is also counted in ErrorsTotal under ErrorType(err).
//
//	start := time.Now()
//	out, err := enc.Decrypt(key)
//	metrics.Observe(metrics.OpDecrypt, metrics.KeySymmetric, start, err)
func Observe(operation, keyType string, start time.Time, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
		RecordError(operation, ErrorType(err))
	}
	RecordOperation(operation, keyType, status, time.Since(start).Seconds())
}

// ErrorType maps an error to a low cardinality label.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, types.ErrInvalidMac):
		return "invalid_mac"
	case errors.Is(err, types.ErrKeyDecrypt):
		return "key_decrypt"
	case errors.Is(err, types.ErrMissingKey):
		return "missing_key"
	case errors.Is(err, types.ErrInvalidKeyLength):
		return "invalid_key_length"
	case errors.Is(err, types.ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, types.ErrParse):
		return "parse"
	case errors.Is(err, types.ErrInvalidUtf8String):
		return "invalid_utf8"
	case errors.Is(err, types.ErrInsufficientKdfParameters):
		return "insufficient_kdf_parameters"
	case errors.Is(err, types.ErrVaultLocked):
		return "vault_locked"
	case errors.Is(err, types.ErrWrongPassword):
		return "wrong_password"
	case errors.Is(err, types.ErrTooManyAttempts):
		return "too_many_attempts"
	default:
		return "other"
	}
}

// SetKeysTotal sets the number of keys in store.
func SetKeysTotal(store string, count int) {
	if !enabled.Load() {
		return
	}
	KeysTotal.WithLabelValues(store).Set(float64(count))
}

// RecordKeystoreResize counts a key store resize on backend.
func RecordKeystoreResize(backend string) {
	if !enabled.Load() {
		return
	}
	KeystoreResizesTotal.WithLabelValues(backend).Inc()
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
