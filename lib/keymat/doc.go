// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

// Package keymat holds cryptographic key material in guarded memory.
//
// [Key] allocates its backing store outside the Go heap via
// mmap(MAP_ANONYMOUS), locks it into physical RAM via mlock
// (preventing swap), and marks it excluded from core dumps via
// madvise(MADV_DONTDUMP). On Close, the memory is zeroed, unlocked,
// and unmapped. Because the memory lives outside the Go heap, the
// garbage collector cannot copy or relocate it, so key bytes do not
// linger after release.
//
// Constructors:
//
//   - [FromBytes] -- copies into protected memory, zeros the source
//   - [FromBase64] -- decodes a standard-base64 key, zeros the decode
//
// Access via [Key.Bytes] (slice into the mmap region, valid until
// Close). There is deliberately no String accessor: key material has
// no business becoming an immutable heap string. [Zero] wipes
// short-lived derived keys that never graduate to a Key.
//
// Depends on golang.org/x/sys/unix. No Trestle-internal dependencies.
// Imported by auth for account keys and by crypt for key-encryption
// keys.
package keymat
