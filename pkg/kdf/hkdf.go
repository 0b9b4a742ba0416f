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

package kdf

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
	"golang.org/x/crypto/hkdf"
)

// Expand runs HKDF-Expand with SHA-256 over prk and returns n bytes. The
// extract step is skipped; prk must already be a uniformly random key of at
// least 32 bytes.
func Expand(prk []byte, info string, n int) ([]byte, error) {
	if len(prk) < sha256.Size {
		return nil, fmt.Errorf("%w: prk must be at least %d bytes", types.ErrInvalidKeyLength, sha256.Size)
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, []byte(info)), out); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKeyLength, err)
	}
	return out, nil
}

// Stretch expands a 32-byte secret into a 32-byte encryption key ("enc") and
// a 32-byte MAC key ("mac"), returned as a single 64-byte slice.
func Stretch(secret []byte) ([]byte, error) {
	enc, err := Expand(secret, "enc", 32)
	if err != nil {
		return nil, err
	}
	mac, err := Expand(secret, "mac", 32)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 64)
	out = append(out, enc...)
	out = append(out, mac...)
	clear(enc)
	clear(mac)
	return out, nil
}
