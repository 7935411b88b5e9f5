// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

// Package crypt implements client-side property encryption for table
// entities.
//
// A Policy seals selected string and binary properties under a fresh
// random content key, then stores two bookkeeping properties on the
// entity: "_ClientEncryptionMetadata1", a JSON envelope holding the
// content key wrapped by a key-encryption key, and
// "_ClientEncryptionMetadata2", a sealed manifest naming the
// encrypted properties and their original types. The service stores
// all of it as opaque data; nothing about the scheme is visible
// server-side beyond the two property names.
//
// Properties are sealed with XChaCha20-Poly1305. Nonces are not
// stored: each is derived with HKDF-SHA256 from the content key and
// the property's identity (partition key, row key, property name), so
// a ciphertext moved to another property slot or another entity fails
// authentication. The content key is fresh per Encrypt call, which
// keeps derived nonces unique.
//
// Key wrapping is pluggable through the odata.KeyWrapper interface;
// LocalKeyWrapper wraps under a key held in guarded memory for
// deployments without a key service.
//
// Depends on lib/keymat and odata. Imported by callers that pass a
// Policy to the table request builders.
package crypt
