// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package keymat

import (
	"encoding/base64"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Key holds key material in memory that is locked against swapping,
// excluded from core dumps, and zeroed on close. The backing memory is
// allocated via mmap outside the Go heap.
//
// A Key must not be copied after creation. Use Close to release the
// memory when the key is no longer needed. After Close, any access to
// the key's bytes panics.
type Key struct {
	mu     sync.Mutex
	data   []byte
	length int
	closed bool
}

// allocate maps an anonymous region of the given size that is locked
// into RAM (mlock) and excluded from core dumps (MADV_DONTDUMP).
func allocate(size int) ([]byte, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("keymat: mmap failed: %w", err)
	}

	// Lock the region so the key is never swapped to disk.
	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("keymat: mlock failed: %w", err)
	}

	// Keep the region out of core dumps. MADV_DONTDUMP may be
	// unsupported on old kernels; a key that can land in a dump is
	// not protected, so treat that as fatal rather than degrading.
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(data)
		unix.Munmap(data)
		return nil, fmt.Errorf("keymat: madvise(MADV_DONTDUMP) failed: %w", err)
	}

	return data, nil
}

// FromBytes creates a guarded key from existing material. The source
// bytes are copied into the protected region and then zeroed in place,
// so the caller's slice no longer holds the key.
func FromBytes(material []byte) (*Key, error) {
	if len(material) == 0 {
		return nil, fmt.Errorf("keymat: key material is empty")
	}

	data, err := allocate(len(material))
	if err != nil {
		return nil, err
	}
	copy(data, material)
	Zero(material)

	return &Key{data: data, length: len(material)}, nil
}

// FromBase64 decodes a standard-base64 key into a guarded key. The
// intermediate decode buffer is zeroed before return.
func FromBase64(encoded string) (*Key, error) {
	material, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("keymat: decode base64 key: %w", err)
	}
	return FromBytes(material)
}

// Bytes returns the key material. The returned slice points directly
// into the mmap region; do not hold references to it beyond the
// lifetime of the Key. Panics if the key has been closed.
func (k *Key) Bytes() []byte {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		panic("keymat: read from closed key")
	}

	return k.data[:k.length]
}

// Len returns the size of the key material in bytes.
func (k *Key) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.length
}

// Close zeros the key material, unlocks and unmaps the memory. After
// Close, any access to Bytes panics. Close is idempotent.
func (k *Key) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true

	Zero(k.data)

	// The memory is released by the kernel at process exit
	// regardless, so report only the first failure.
	var firstError error
	if err := unix.Munlock(k.data); err != nil {
		firstError = fmt.Errorf("keymat: munlock failed: %w", err)
	}
	if err := unix.Munmap(k.data); err != nil && firstError == nil {
		firstError = fmt.Errorf("keymat: munmap failed: %w", err)
	}

	k.data = nil
	return firstError
}

// Zero wipes a byte slice in place. For short-lived derived keys that
// never graduate to a guarded Key.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
