// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package crypt

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/trestle-storage/trestle/lib/keymat"
	"github.com/trestle-storage/trestle/odata"
)

// WrapAlgorithm identifies LocalKeyWrapper's wrapping scheme in the
// key envelope. Unwrap refuses anything else.
const WrapAlgorithm = "XCHACHA20_POLY1305_KEYWRAP_V1"

// LocalKeyWrapper wraps content keys under a key-encryption key held
// in guarded memory. It stands in for a key service in deployments
// that manage the key-encryption key themselves.
type LocalKeyWrapper struct {
	keyID string
	kek   *keymat.Key
	rand  io.Reader
}

// NewLocalKeyWrapper takes ownership of the key-encryption key; the
// caller must not use kek afterwards. The key must be KeySize bytes.
func NewLocalKeyWrapper(keyID string, kek *keymat.Key) (*LocalKeyWrapper, error) {
	if keyID == "" {
		return nil, fmt.Errorf("crypt: key wrapper needs a key ID")
	}
	if kek.Len() != KeySize {
		return nil, fmt.Errorf("crypt: key-encryption key must be %d bytes, got %d", KeySize, kek.Len())
	}
	return &LocalKeyWrapper{keyID: keyID, kek: kek, rand: rand.Reader}, nil
}

// KeyID names the key-encryption key in stored envelopes.
func (w *LocalKeyWrapper) KeyID() string {
	return w.keyID
}

// Wrap seals the content key in the format:
//
//	[Nonce: 24 bytes (random)] [Ciphertext+Tag: N+16 bytes]
//
// The algorithm identifier is the AAD, so an envelope claiming a
// different scheme fails authentication.
func (w *LocalKeyWrapper) Wrap(contentKey []byte) ([]byte, string, error) {
	aead, err := chacha20poly1305.NewX(w.kek.Bytes())
	if err != nil {
		return nil, "", fmt.Errorf("crypt: create wrapping cipher: %w", err)
	}
	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(w.rand, nonce[:]); err != nil {
		return nil, "", fmt.Errorf("crypt: generate wrapping nonce: %w", err)
	}
	wrapped := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(contentKey)+aead.Overhead())
	copy(wrapped, nonce[:])
	wrapped = aead.Seal(wrapped, nonce[:], contentKey, []byte(WrapAlgorithm))
	return wrapped, WrapAlgorithm, nil
}

// Unwrap reverses Wrap.
func (w *LocalKeyWrapper) Unwrap(wrapped []byte, algorithm string) ([]byte, error) {
	if algorithm != WrapAlgorithm {
		return nil, fmt.Errorf("crypt: unsupported wrapping algorithm %q", algorithm)
	}
	if len(wrapped) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("crypt: wrapped key is %d bytes, minimum is %d", len(wrapped), chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead)
	}
	aead, err := chacha20poly1305.NewX(w.kek.Bytes())
	if err != nil {
		return nil, fmt.Errorf("crypt: create wrapping cipher: %w", err)
	}
	contentKey, err := aead.Open(nil, wrapped[:chacha20poly1305.NonceSizeX], wrapped[chacha20poly1305.NonceSizeX:], []byte(WrapAlgorithm))
	if err != nil {
		return nil, fmt.Errorf("crypt: unwrap content key: %w", err)
	}
	return contentKey, nil
}

// Close zeroes and releases the key-encryption key. Wrap and Unwrap
// panic afterwards.
func (w *LocalKeyWrapper) Close() error {
	return w.kek.Close()
}

// StaticResolver builds a KeyResolver over a fixed set of wrappers,
// matched by key ID.
func StaticResolver(wrappers ...odata.KeyWrapper) odata.KeyResolver {
	byID := make(map[string]odata.KeyWrapper, len(wrappers))
	for _, wrapper := range wrappers {
		byID[wrapper.KeyID()] = wrapper
	}
	return func(keyID string) (odata.KeyWrapper, error) {
		wrapper, ok := byID[keyID]
		if !ok {
			return nil, fmt.Errorf("crypt: unknown key %q", keyID)
		}
		return wrapper, nil
	}
}
