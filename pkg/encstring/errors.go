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

package encstring

import (
	"fmt"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

var (
	// ErrNoType is returned when a buffer is empty and carries no type byte.
	ErrNoType = fmt.Errorf("%w: no type", types.ErrParse)

	// ErrInvalidBase64 is returned when a field is not valid standard base64.
	ErrInvalidBase64 = fmt.Errorf("%w: invalid base64", types.ErrParse)
)

// InvalidTypeError is returned when the type header and the number of fields
// do not describe a known encryption type.
type InvalidTypeError struct {
	Type       string
	Parts      int
	Asymmetric bool
}

func (e *InvalidTypeError) Error() string {
	kind := "symmetric"
	if e.Asymmetric {
		kind = "asymmetric"
	}
	return fmt.Sprintf("%s: invalid %s type, got type %s with %d parts", types.ErrParse, kind, e.Type, e.Parts)
}

func (e *InvalidTypeError) Unwrap() error {
	return types.ErrParse
}

// InvalidLengthError is returned when a decoded field or buffer has the wrong size.
type InvalidLengthError struct {
	Expected int
	Got      int
}

func (e *InvalidLengthError) Error() string {
	return fmt.Sprintf("%s: invalid length: expected %d, got %d", types.ErrParse, e.Expected, e.Got)
}

func (e *InvalidLengthError) Unwrap() error {
	return types.ErrParse
}
