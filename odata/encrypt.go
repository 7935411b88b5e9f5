// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package odata

// Encryptor is the client-side property encryption capability. The
// projector hands it the entity's property map before projection;
// the implementation returns a replacement map in which the selected
// property values are ciphertext and the encryption metadata
// properties have been added. How properties are selected, encrypted,
// and keyed is entirely the implementation's business.
//
// The crypt package provides the implementation used in production.
type Encryptor interface {
	Encrypt(properties map[string]Property, partitionKey, rowKey string, resolve KeyResolver) (map[string]Property, error)
}

// KeyWrapper wraps and unwraps the per-entity content key under a
// key-encryption key. The algorithm string travels in the entity's
// encryption metadata so the unwrapping side can pick the matching
// implementation.
type KeyWrapper interface {
	// KeyID names the key-encryption key, for the metadata and for
	// later resolution.
	KeyID() string

	// Wrap encrypts the content key, returning the wrapped bytes and
	// the algorithm identifier to record.
	Wrap(contentKey []byte) (wrapped []byte, algorithm string, err error)

	// Unwrap reverses Wrap for the given recorded algorithm.
	Unwrap(wrapped []byte, algorithm string) ([]byte, error)
}

// KeyResolver maps the key identifier recorded in entity metadata to
// the wrapper holding that key. Used on decrypt, and on encrypt when
// the encryptor is configured by key ID rather than with a wrapper.
type KeyResolver func(keyID string) (KeyWrapper, error)
