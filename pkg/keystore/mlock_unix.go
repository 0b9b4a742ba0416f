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

//go:build unix

package keystore

import "golang.org/x/sys/unix"

// MlockBackend allocates heap memory and asks the kernel to keep it out of
// swap. Locking is best effort: RLIMIT_MEMLOCK is often small and a failed
// mlock still leaves usable memory.
type MlockBackend struct{}

func (MlockBackend) Name() string {
	return BackendMlock
}

func (MlockBackend) Alloc(size int) (Region, error) {
	buf := make([]byte, pageAlign(size))
	r := &mlockRegion{buf: buf}
	r.locked = unix.Mlock(buf) == nil
	return r, nil
}

type mlockRegion struct {
	buf    []byte
	locked bool
}

func (r *mlockRegion) Bytes() []byte {
	return r.buf
}

func (r *mlockRegion) Free() error {
	if r.buf == nil {
		return nil
	}
	clear(r.buf)
	if r.locked {
		_ = unix.Munlock(r.buf)
	}
	r.buf = nil
	return nil
}
