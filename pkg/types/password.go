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

package types

// Password is a secret supplied by the user, such as a master password or PIN.
// Implementations keep the bytes out of immutable strings where possible and
// wipe them on Clear.
type Password interface {
	// Bytes returns a copy of the password.
	Bytes() []byte

	// String returns the password as a string.
	String() (string, error)

	// Clear zeros the password in memory.
	Clear()
}
