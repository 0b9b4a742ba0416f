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

// Package keystore holds key material in sorted, fixed-window stores
// backed by locked or secret memory.
//
// A Store keeps its entries sorted by reference so lookups are a binary
// search. Each entry owns one window of the store's Region; values move
// their secret bytes into that window on insert and again when the store
// grows. Growing allocates a new region, relocates every value, then
// zeroes and frees the old region. A failed allocation leaves the store
// as it was.
package keystore

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"unsafe"
)

const pageSize = 4096

// ErrValueTooLarge is returned when a value does not fit a store window.
var ErrValueTooLarge = errors.New("keystore: value exceeds window size")

// Ref identifies a value in a store. Refs are totally ordered.
type Ref[R any] interface {
	comparable
	Compare(other R) int
	String() string
}

// Value is key material that can be moved into store memory.
type Value interface {
	// SecretLen is the number of bytes the value needs in a window.
	SecretLen() int

	// Relocate moves the secret bytes into dst and wipes the old copy.
	Relocate(dst []byte)

	// Zeroize wipes the value.
	Zeroize()
}

type entry[R Ref[R], V Value] struct {
	ref   R
	value V
	slot  int
}

// ResizeFunc is called after a store grows.
type ResizeFunc func(backend string, oldCapacity, newCapacity int)

// Option configures a Store.
type Option func(*options)

type options struct {
	onResize ResizeFunc
}

// WithResizeHook registers fn to run after every resize.
func WithResizeHook(fn ResizeFunc) Option {
	return func(o *options) {
		o.onResize = fn
	}
}

// Store is a sorted map from R to V. It is not safe for concurrent use.
type Store[R Ref[R], V Value] struct {
	backend    Backend
	windowSize int
	entrySize  int
	onResize   ResizeFunc

	entries  []entry[R, V]
	free     []int
	capacity int
	region   Region
}

// New returns an empty store. windowSize is the largest SecretLen a value
// may have; zero means values keep their material outside the region.
// No memory is allocated until the first insert.
func New[R Ref[R], V Value](backend Backend, windowSize int, opts ...Option) *Store[R, V] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[R, V]{
		backend:    backend,
		windowSize: windowSize,
		entrySize:  windowSize + int(unsafe.Sizeof(entry[R, V]{})),
		onResize:   o.onResize,
	}
}

// Len returns the number of entries.
func (s *Store[R, V]) Len() int {
	return len(s.entries)
}

// Cap returns the number of entries the store can hold without growing.
func (s *Store[R, V]) Cap() int {
	return s.capacity
}

func (s *Store[R, V]) find(ref R) (int, bool) {
	return sort.Find(len(s.entries), func(i int) int {
		return ref.Compare(s.entries[i].ref)
	})
}

// Get returns the value for ref. The value is owned by the store and is
// valid until it is removed or the store is cleared.
func (s *Store[R, V]) Get(ref R) (V, bool) {
	i, ok := s.find(ref)
	if !ok {
		var zero V
		return zero, false
	}
	return s.entries[i].value, true
}

// Has reports whether ref is present.
func (s *Store[R, V]) Has(ref R) bool {
	_, ok := s.find(ref)
	return ok
}

// Insert stores value under ref, replacing and zeroizing any previous
// value. The store takes ownership of value.
func (s *Store[R, V]) Insert(ref R, value V) error {
	if n := value.SecretLen(); n > s.windowSize {
		return fmt.Errorf("%w: %d > %d", ErrValueTooLarge, n, s.windowSize)
	}

	i, ok := s.find(ref)
	if ok {
		e := &s.entries[i]
		if any(e.value) == any(value) {
			return nil
		}
		e.value.Zeroize()
		e.value = value
		s.place(e)
		return nil
	}

	if len(s.entries) == s.capacity {
		if err := s.Reserve(1); err != nil {
			return err
		}
	}

	slot := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]
	s.entries = slices.Insert(s.entries, i, entry[R, V]{ref: ref, value: value, slot: slot})
	s.place(&s.entries[i])
	return nil
}

// Remove zeroizes and deletes the value for ref. It reports whether the
// ref was present.
func (s *Store[R, V]) Remove(ref R) bool {
	i, ok := s.find(ref)
	if !ok {
		return false
	}
	s.release(&s.entries[i])
	s.entries = slices.Delete(s.entries, i, i+1)
	return true
}

// Retain keeps only the entries for which keep returns true.
func (s *Store[R, V]) Retain(keep func(R) bool) {
	s.entries = slices.DeleteFunc(s.entries, func(e entry[R, V]) bool {
		if keep(e.ref) {
			return false
		}
		s.release(&e)
		return true
	})
}

// Refs returns the stored refs in order.
func (s *Store[R, V]) Refs() []R {
	refs := make([]R, len(s.entries))
	for i, e := range s.entries {
		refs[i] = e.ref
	}
	return refs
}

// Clear zeroizes and removes every entry. The region is kept.
func (s *Store[R, V]) Clear() {
	for i := range s.entries {
		s.release(&s.entries[i])
	}
	clear(s.entries)
	s.entries = s.entries[:0]
}

// Close clears the store and frees its region.
func (s *Store[R, V]) Close() error {
	s.Clear()
	s.free = nil
	s.capacity = 0
	if s.region == nil {
		return nil
	}
	err := s.region.Free()
	s.region = nil
	return err
}

// Reserve makes room for at least additional more entries.
func (s *Store[R, V]) Reserve(additional int) error {
	required := len(s.entries) + additional
	if required <= s.capacity {
		return nil
	}
	newCap := growCapacity(s.capacity, required, s.entrySize)

	var region Region
	if s.windowSize > 0 {
		r, err := s.backend.Alloc(newCap * s.windowSize)
		if err != nil {
			return fmt.Errorf("keystore: grow to %d entries: %w", newCap, err)
		}
		region = r
	}

	old := s.region
	s.region = region
	for i := range s.entries {
		s.place(&s.entries[i])
	}
	if old != nil {
		clear(old.Bytes())
		_ = old.Free()
	}

	for slot := newCap - 1; slot >= s.capacity; slot-- {
		s.free = append(s.free, slot)
	}
	// Low slots are handed out first.
	slices.Sort(s.free)
	slices.Reverse(s.free)

	oldCap := s.capacity
	s.capacity = newCap
	if s.onResize != nil {
		s.onResize(s.backend.Name(), oldCap, newCap)
	}
	return nil
}

func (s *Store[R, V]) window(slot int) []byte {
	if s.region == nil || s.windowSize == 0 {
		return nil
	}
	off := slot * s.windowSize
	return s.region.Bytes()[off : off+s.windowSize : off+s.windowSize]
}

// place moves the entry's value into its window.
func (s *Store[R, V]) place(e *entry[R, V]) {
	if w := s.window(e.slot); w != nil {
		e.value.Relocate(w[:e.value.SecretLen()])
	}
}

func (s *Store[R, V]) release(e *entry[R, V]) {
	e.value.Zeroize()
	clear(s.window(e.slot))
	s.free = append(s.free, e.slot)
}

// growCapacity returns the capacity needed to hold required entries. An
// empty store starts with one page worth of entries; otherwise capacity
// grows in multiples of the current capacity.
func growCapacity(capacity, required, entrySize int) int {
	if capacity == 0 {
		capacity = max(pageSize/max(entrySize, 1), 1)
		if capacity >= required {
			return capacity
		}
	}
	return capacity * ((required + capacity - 1) / capacity)
}
