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

//go:build linux

package keystore

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	memfdOnce      sync.Once
	memfdAvailable bool
)

// MemfdSecretAvailable reports whether memfd_secret(2) works on this
// kernel. The check maps and touches one page, so a disabled secretmem or
// an exhausted RLIMIT_MEMLOCK is caught here rather than on first insert.
// It runs once.
func MemfdSecretAvailable() bool {
	memfdOnce.Do(func() {
		memfdAvailable = tryMemfdSecret() == nil
	})
	return memfdAvailable
}

func tryMemfdSecret() error {
	r, err := MemfdSecretBackend{}.Alloc(pageSize)
	if err != nil {
		return err
	}
	r.Bytes()[0] = 1
	return r.Free()
}

// MemfdSecretBackend maps memory from memfd_secret(2), which removes the
// pages from the kernel's direct map so other processes and the kernel
// itself cannot read them.
type MemfdSecretBackend struct{}

func (MemfdSecretBackend) Name() string {
	return BackendMemfd
}

func (MemfdSecretBackend) Alloc(size int) (Region, error) {
	size = pageAlign(size)

	fd, err := unix.MemfdSecret(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMemfdSecretUnavailable, err)
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return nil, fmt.Errorf("keystore: ftruncate memfd_secret: %w", err)
	}
	buf, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("keystore: mmap memfd_secret: %w", err)
	}
	return &memfdRegion{buf: buf}, nil
}

type memfdRegion struct {
	buf []byte
}

func (r *memfdRegion) Bytes() []byte {
	return r.buf
}

func (r *memfdRegion) Free() error {
	if r.buf == nil {
		return nil
	}
	clear(r.buf)
	err := unix.Munmap(r.buf)
	r.buf = nil
	return err
}
