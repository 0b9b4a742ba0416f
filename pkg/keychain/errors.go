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

import "errors"

var (
	// ErrReadOnlyContext is returned when a read-only Context is asked to
	// modify a global key.
	ErrReadOnlyContext = errors.New("keychain: global keys are read-only in this context")

	// ErrContextClosed is returned by operations on a closed Context.
	ErrContextClosed = errors.New("keychain: context is closed")

	// ErrServiceClosed is returned by operations on a closed CryptoService.
	ErrServiceClosed = errors.New("keychain: service is closed")
)
