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

//go:build !linux

package keystore

// MemfdSecretAvailable is always false outside Linux.
func MemfdSecretAvailable() bool {
	return false
}

// MemfdSecretBackend is unavailable outside Linux.
type MemfdSecretBackend struct{}

func (MemfdSecretBackend) Name() string {
	return BackendMemfd
}

func (MemfdSecretBackend) Alloc(size int) (Region, error) {
	return nil, ErrMemfdSecretUnavailable
}
