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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/encstring"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/kdf"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keychain"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/logging"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/metrics"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/ratelimit"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// Throttle limits password and PIN attempts per account. A successful
// attempt resets the account's budget.
type Throttle struct {
	limiter *ratelimit.Limiter
	logger  *logging.Logger
	maxWait time.Duration
}

// NewThrottle returns a Throttle using cfg. A nil or disabled cfg allows
// every attempt.
func NewThrottle(cfg *ratelimit.Config, logger *logging.Logger) *Throttle {
	if logger == nil {
		logger = logging.Discard()
	}
	t := &Throttle{
		limiter: ratelimit.New(cfg),
		logger:  logger,
	}
	if cfg != nil {
		t.maxWait = cfg.MaxWait
	}
	return t
}

// Enabled reports whether attempts are limited at all.
func (t *Throttle) Enabled() bool {
	return t.limiter.IsEnabled()
}

// Attempt runs one unlock attempt for account within its limit. An error
// wrapping ErrWrongPassword or ErrInvalidMac counts as a denied attempt.
// Success restores the account's full budget.
func (t *Throttle) Attempt(account string, fn func() error) error {
	if err := t.admit(account); err != nil {
		return err
	}
	err := fn()
	switch {
	case err == nil:
		t.settle(account, true, nil)
	case errors.Is(err, types.ErrWrongPassword), errors.Is(err, types.ErrInvalidMac):
		t.settle(account, false, nil)
	default:
		t.settle(account, false, err)
	}
	return err
}

// ValidatePassword is ValidatePassword guarded by the account's limit.
func (t *Throttle) ValidatePassword(account string, password types.Password, hash, email string, k kdf.Kdf) (bool, error) {
	if err := t.admit(account); err != nil {
		return false, err
	}
	ok, err := ValidatePassword(password, hash, email, k)
	t.settle(account, ok, err)
	return ok, err
}

// ValidatePin is ValidatePin guarded by the account's limit.
func (t *Throttle) ValidatePin(account string, svc *keychain.CryptoService, pin types.Password,
	pinProtectedUserKey *encstring.EncString, email string, k kdf.Kdf) (bool, error) {

	if err := t.admit(account); err != nil {
		return false, err
	}
	ok, err := ValidatePin(svc, pin, pinProtectedUserKey, email, k)
	t.settle(account, ok, err)
	return ok, err
}

// Stats reports limiter state.
func (t *Throttle) Stats() map[string]interface{} {
	return t.limiter.Stats()
}

// Stop releases the limiter's background cleanup.
func (t *Throttle) Stop() {
	t.limiter.Stop()
}

func (t *Throttle) admit(account string) error {
	if t.maxWait > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), t.maxWait)
		defer cancel()
		if t.limiter.Wait(ctx, account) == nil {
			return nil
		}
	} else if t.limiter.Allow(account) {
		return nil
	}
	t.logger.Warn("unlock attempt rejected", "account", account)
	metrics.RecordError(metrics.OpValidate, metrics.ErrorType(types.ErrTooManyAttempts))
	return fmt.Errorf("%w: %s", types.ErrTooManyAttempts, account)
}

func (t *Throttle) settle(account string, ok bool, err error) {
	switch {
	case err != nil:
		t.logger.Debug("unlock attempt failed", "account", account, "error", metrics.ErrorType(err))
	case ok:
		t.limiter.Reset(account)
	default:
		t.logger.Debug("unlock attempt denied", "account", account,
			"remaining", t.limiter.Remaining(account))
	}
}
