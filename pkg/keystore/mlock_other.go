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

//go:build !unix

package keystore

// MlockBackend allocates plain heap memory on platforms without mlock.
type MlockBackend struct{}

func (MlockBackend) Name() string {
	return BackendMlock
}

func (MlockBackend) Alloc(size int) (Region, error) {
	return &heapRegion{buf: make([]byte, pageAlign(size))}, nil
}

type heapRegion struct {
	buf []byte
}

func (r *heapRegion) Bytes() []byte {
	return r.buf
}

func (r *heapRegion) Free() error {
	clear(r.buf)
	r.buf = nil
	return nil
}
