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

package keystore

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Backend kinds accepted by NewBackend.
const (
	BackendAuto  = "auto"
	BackendMlock = "mlock"
	BackendMemfd = "memfd"
)

var (
	// ErrUnsupportedBackend is returned for an unknown backend kind.
	ErrUnsupportedBackend = errors.New("keystore: unsupported backend")

	// ErrMemfdSecretUnavailable is returned when memfd_secret(2) is not
	// supported by the platform or kernel.
	ErrMemfdSecretUnavailable = errors.New("keystore: memfd_secret is not available")
)

// Region is a block of memory that holds key material.
type Region interface {
	// Bytes returns the whole region.
	Bytes() []byte

	// Free zeroes and releases the region. Bytes must not be used
	// afterwards.
	Free() error
}

// Backend allocates regions.
type Backend interface {
	Name() string
	Alloc(size int) (Region, error)
}

// NewBackend returns the backend for kind. "auto" and "" prefer
// memfd_secret and fall back to mlock.
func NewBackend(kind string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", BackendAuto:
		if MemfdSecretAvailable() {
			return MemfdSecretBackend{}, nil
		}
		return MlockBackend{}, nil
	case BackendMlock:
		return MlockBackend{}, nil
	case BackendMemfd:
		if !MemfdSecretAvailable() {
			return nil, ErrMemfdSecretUnavailable
		}
		return MemfdSecretBackend{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, kind)
	}
}

func pageAlign(n int) int {
	page := os.Getpagesize()
	if n <= 0 {
		return page
	}
	return (n + page - 1) / page * page
}
