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
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// specialCharacters are the symbols accepted by RequireSpecial.
const specialCharacters = "!@#$%^&*"

// MasterPasswordPolicyOptions is an organization's master password policy.
type MasterPasswordPolicyOptions struct {
	// MinComplexity is the minimum strength score, 0 to 4.
	MinComplexity  uint8 `json:"minComplexity" yaml:"min_complexity"`
	MinLength      uint8 `json:"minLength" yaml:"min_length"`
	RequireUpper   bool  `json:"requireUpper" yaml:"require_upper"`
	RequireLower   bool  `json:"requireLower" yaml:"require_lower"`
	RequireNumbers bool  `json:"requireNumbers" yaml:"require_numbers"`
	RequireSpecial bool  `json:"requireSpecial" yaml:"require_special"`

	// EnforceOnLogin forces a password change at login when unmet.
	EnforceOnLogin bool `json:"enforceOnLogin" yaml:"enforce_on_login"`
}

// SatisfiesPolicy reports whether password, with the given strength score,
// meets policy. Zero-valued limits are not enforced.
func SatisfiesPolicy(password types.Password, strength uint8, policy *MasterPasswordPolicyOptions) bool {
	if policy == nil {
		return true
	}
	if policy.MinComplexity > 0 && policy.MinComplexity > strength {
		return false
	}

	raw := password.Bytes()
	defer clear(raw)

	if policy.MinLength > 0 && int(policy.MinLength) > utf8.RuneCount(raw) {
		return false
	}
	if policy.RequireUpper && !containsFunc(raw, unicode.IsUpper) {
		return false
	}
	if policy.RequireLower && !containsFunc(raw, unicode.IsLower) {
		return false
	}
	if policy.RequireNumbers && !containsFunc(raw, unicode.IsNumber) {
		return false
	}
	if policy.RequireSpecial && !containsFunc(raw, func(r rune) bool { return strings.ContainsRune(specialCharacters, r) }) {
		return false
	}
	return true
}

func containsFunc(b []byte, f func(rune) bool) bool {
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if f(r) {
			return true
		}
		b = b[size:]
	}
	return false
}
