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
	"fmt"
	"time"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/encstring"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/kdf"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keychain"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keys"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/metrics"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// ValidatePin reports whether pin unwraps pinProtectedUserKey to the user
// key currently held by svc. A wrong PIN is not an error. The email is used
// verbatim as the salt.
func ValidatePin(svc *keychain.CryptoService, pin types.Password, pinProtectedUserKey *encstring.EncString,
	email string, k kdf.Kdf) (ok bool, err error) {

	defer func(start time.Time) { metrics.Observe(metrics.OpValidate, metrics.KeySymmetric, start, err) }(time.Now())

	if !svc.HasSymmetricKey(keychain.UserKeyRef) {
		return false, types.ErrVaultLocked
	}
	if pin == nil || pinProtectedUserKey == nil {
		return false, fmt.Errorf("%w: no pin protected user key", types.ErrInvalidKey)
	}

	raw := pin.Bytes()
	defer clear(raw)

	pinKey, err := keys.DerivePinKey(raw, email, k)
	if err != nil {
		return false, err
	}
	defer pinKey.Zeroize()

	userKey, err := pinKey.DecryptUserKey(pinProtectedUserKey)
	if err != nil {
		return false, nil
	}
	defer userKey.Zeroize()

	return matchesUserKey(svc, userKey)
}
