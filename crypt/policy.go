// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package crypt

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/trestle-storage/trestle/lib/keymat"
	"github.com/trestle-storage/trestle/odata"
)

// KeySize is the size in bytes of content keys and key-encryption
// keys.
const KeySize = 32

// blobVersion is prepended to every sealed property and manifest
// blob. Included in the AAD, so tampering with it fails
// authentication.
const blobVersion byte = 0x01

// blobOverhead is the byte overhead per sealed blob: 1 (version) +
// 16 (Poly1305 tag). The nonce is derived, not stored.
const blobOverhead = 1 + chacha20poly1305.Overhead

// Envelope constants recorded in _ClientEncryptionMetadata1.
const (
	agentProtocol     = "1.0"
	propertyAlgorithm = "XCHACHA20_POLY1305_HKDF_V1"
)

// HKDF info tags. The info parameter separates the nonce derivation
// paths for property blobs and the manifest blob. Changing either
// invalidates all ciphertext sealed under that path.
var (
	nonceInfoProperty = []byte("trestle.table.property.nonce.v1")
	nonceInfoManifest = []byte("trestle.table.manifest.nonce.v1")
)

// ErrNotEncrypted reports that Decrypt was handed an entity without
// encryption metadata. Callers that accept plaintext entities branch
// on it with errors.Is.
var ErrNotEncrypted = errors.New("crypt: entity carries no encryption metadata")

// keyEnvelope is the JSON payload of _ClientEncryptionMetadata1.
// The field names are part of the stored format.
type keyEnvelope struct {
	WrappedContentKey wrappedContentKey `json:"WrappedContentKey"`
	EncryptionAgent   encryptionAgent   `json:"EncryptionAgent"`
}

type wrappedContentKey struct {
	KeyID        string `json:"KeyId"`
	EncryptedKey []byte `json:"EncryptedKey"`
	Algorithm    string `json:"Algorithm"`
}

type encryptionAgent struct {
	Protocol            string `json:"Protocol"`
	EncryptionAlgorithm string `json:"EncryptionAlgorithm"`
}

// manifestEntry records one encrypted property in the sealed manifest
// of _ClientEncryptionMetadata2: its name and the type to restore on
// decryption.
type manifestEntry struct {
	Name string        `json:"Name"`
	Type odata.EdmType `json:"Type"`
}

// PolicyConfig configures a Policy. The zero value is a decrypt-only
// policy that encrypts nothing and resolves keys through the resolver
// handed to Decrypt.
type PolicyConfig struct {
	// Wrapper wraps the content key on Encrypt. Required for
	// encryption; Decrypt works without it when a resolver is
	// supplied.
	Wrapper odata.KeyWrapper

	// ShouldEncrypt selects the properties to seal by name. Nil
	// encrypts every property except the entity keys, Timestamp, and
	// the metadata properties themselves.
	ShouldEncrypt func(name string) bool

	// Rand is the content key source. Nil means crypto/rand.
	Rand io.Reader
}

// Policy seals and opens entity property maps. It satisfies
// odata.Encryptor, so it plugs directly into the request builders.
// Safe for concurrent use.
type Policy struct {
	wrapper       odata.KeyWrapper
	shouldEncrypt func(name string) bool
	rand          io.Reader
}

// NewPolicy builds a Policy from the config, applying defaults.
func NewPolicy(cfg PolicyConfig) *Policy {
	policy := &Policy{
		wrapper:       cfg.Wrapper,
		shouldEncrypt: cfg.ShouldEncrypt,
		rand:          cfg.Rand,
	}
	if policy.shouldEncrypt == nil {
		policy.shouldEncrypt = func(string) bool { return true }
	}
	if policy.rand == nil {
		policy.rand = rand.Reader
	}
	return policy
}

// Encrypt seals the selected properties of one entity and returns a
// new map carrying the ciphertexts and the two metadata properties.
// The input map is not modified. Only Edm.String and Edm.Binary
// properties can be sealed; selecting any other type is an error.
//
// The resolver is the decrypt-side lookup and is not consulted here;
// encryption always uses the policy's configured wrapper.
func (p *Policy) Encrypt(properties map[string]odata.Property, partitionKey, rowKey string, resolve odata.KeyResolver) (map[string]odata.Property, error) {
	if p.wrapper == nil {
		return nil, fmt.Errorf("crypt: policy has no key wrapper")
	}
	if _, ok := properties[odata.PropertyEncryptionMetadata1]; ok {
		return nil, fmt.Errorf("crypt: entity already carries encryption metadata")
	}
	if _, ok := properties[odata.PropertyEncryptionMetadata2]; ok {
		return nil, fmt.Errorf("crypt: entity already carries encryption metadata")
	}

	raw := make([]byte, KeySize)
	if _, err := io.ReadFull(p.rand, raw); err != nil {
		return nil, fmt.Errorf("crypt: generate content key: %w", err)
	}
	contentKey, err := keymat.FromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("crypt: guard content key: %w", err)
	}
	defer contentKey.Close()

	out := make(map[string]odata.Property, len(properties)+2)
	for name, property := range properties {
		out[name] = property
	}

	// Deterministic manifest order.
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	manifest := make([]manifestEntry, 0, len(names))
	for _, name := range names {
		property := properties[name]
		if reservedProperty(name) || !p.shouldEncrypt(name) || property.IsNull() {
			continue
		}
		plaintext, err := plaintextBytes(name, property)
		if err != nil {
			return nil, err
		}
		blob, err := seal(contentKey.Bytes(), identity(nonceInfoProperty, partitionKey, rowKey, name), plaintext)
		if err != nil {
			return nil, fmt.Errorf("crypt: seal property %q: %w", name, err)
		}
		out[name] = odata.Binary(blob)
		manifest = append(manifest, manifestEntry{Name: name, Type: property.Type})
	}

	wrapped, algorithm, err := p.wrapper.Wrap(contentKey.Bytes())
	if err != nil {
		return nil, fmt.Errorf("crypt: wrap content key: %w", err)
	}
	envelope, err := json.Marshal(keyEnvelope{
		WrappedContentKey: wrappedContentKey{
			KeyID:        p.wrapper.KeyID(),
			EncryptedKey: wrapped,
			Algorithm:    algorithm,
		},
		EncryptionAgent: encryptionAgent{
			Protocol:            agentProtocol,
			EncryptionAlgorithm: propertyAlgorithm,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("crypt: marshal key envelope: %w", err)
	}

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("crypt: marshal manifest: %w", err)
	}
	sealedManifest, err := seal(contentKey.Bytes(), identity(nonceInfoManifest, partitionKey, rowKey), manifestJSON)
	if err != nil {
		return nil, fmt.Errorf("crypt: seal manifest: %w", err)
	}

	out[odata.PropertyEncryptionMetadata1] = odata.String(string(envelope))
	out[odata.PropertyEncryptionMetadata2] = odata.Binary(sealedManifest)
	return out, nil
}

// Decrypt opens an encrypted property map and returns a new map with
// the plaintext properties restored and the metadata properties
// removed. The wrapper is located through resolve by the key ID in
// the envelope, falling back to the policy's own wrapper when its ID
// matches. Returns ErrNotEncrypted (wrapped) when the map has no
// encryption metadata.
func (p *Policy) Decrypt(properties map[string]odata.Property, partitionKey, rowKey string, resolve odata.KeyResolver) (map[string]odata.Property, error) {
	meta1, ok := properties[odata.PropertyEncryptionMetadata1]
	if !ok {
		return nil, fmt.Errorf("crypt: decrypt entity %s/%s: %w", partitionKey, rowKey, ErrNotEncrypted)
	}
	envelopeJSON, ok := meta1.Value.(string)
	if !ok || meta1.Type != odata.EdmString {
		return nil, fmt.Errorf("crypt: %s is not a string property", odata.PropertyEncryptionMetadata1)
	}
	var envelope keyEnvelope
	if err := json.Unmarshal([]byte(envelopeJSON), &envelope); err != nil {
		return nil, fmt.Errorf("crypt: parse key envelope: %w", err)
	}

	wrapper, err := p.resolveWrapper(envelope.WrappedContentKey.KeyID, resolve)
	if err != nil {
		return nil, err
	}
	raw, err := wrapper.Unwrap(envelope.WrappedContentKey.EncryptedKey, envelope.WrappedContentKey.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("crypt: unwrap content key: %w", err)
	}
	contentKey, err := keymat.FromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("crypt: guard content key: %w", err)
	}
	defer contentKey.Close()

	meta2, ok := properties[odata.PropertyEncryptionMetadata2]
	if !ok {
		return nil, fmt.Errorf("crypt: entity has %s but no %s", odata.PropertyEncryptionMetadata1, odata.PropertyEncryptionMetadata2)
	}
	manifestBlob, ok := meta2.Value.([]byte)
	if !ok || meta2.Type != odata.EdmBinary {
		return nil, fmt.Errorf("crypt: %s is not a binary property", odata.PropertyEncryptionMetadata2)
	}
	manifestJSON, err := open(contentKey.Bytes(), identity(nonceInfoManifest, partitionKey, rowKey), manifestBlob)
	if err != nil {
		return nil, fmt.Errorf("crypt: open manifest: %w", err)
	}
	var manifest []manifestEntry
	if err := json.Unmarshal(manifestJSON, &manifest); err != nil {
		return nil, fmt.Errorf("crypt: parse manifest: %w", err)
	}

	out := make(map[string]odata.Property, len(properties))
	for name, property := range properties {
		if name == odata.PropertyEncryptionMetadata1 || name == odata.PropertyEncryptionMetadata2 {
			continue
		}
		out[name] = property
	}
	for _, entry := range manifest {
		property, ok := out[entry.Name]
		if !ok {
			return nil, fmt.Errorf("crypt: manifest names missing property %q", entry.Name)
		}
		blob, ok := property.Value.([]byte)
		if !ok || property.Type != odata.EdmBinary {
			return nil, fmt.Errorf("crypt: encrypted property %q is not binary", entry.Name)
		}
		plaintext, err := open(contentKey.Bytes(), identity(nonceInfoProperty, partitionKey, rowKey, entry.Name), blob)
		if err != nil {
			return nil, fmt.Errorf("crypt: open property %q: %w", entry.Name, err)
		}
		switch entry.Type {
		case odata.EdmString:
			out[entry.Name] = odata.String(string(plaintext))
		case odata.EdmBinary:
			out[entry.Name] = odata.Binary(plaintext)
		default:
			return nil, fmt.Errorf("crypt: manifest entry %q has unsupported type %s", entry.Name, entry.Type)
		}
	}
	return out, nil
}

func (p *Policy) resolveWrapper(keyID string, resolve odata.KeyResolver) (odata.KeyWrapper, error) {
	if resolve != nil {
		wrapper, err := resolve(keyID)
		if err != nil {
			return nil, fmt.Errorf("crypt: resolve key %q: %w", keyID, err)
		}
		return wrapper, nil
	}
	if p.wrapper != nil && p.wrapper.KeyID() == keyID {
		return p.wrapper, nil
	}
	return nil, fmt.Errorf("crypt: no resolver for key %q", keyID)
}

// reservedProperty reports names that are never sealed: the entity
// keys, the service timestamp, and the metadata slots.
func reservedProperty(name string) bool {
	switch name {
	case odata.PropertyPartitionKey, odata.PropertyRowKey, odata.PropertyTimestamp,
		odata.PropertyEncryptionMetadata1, odata.PropertyEncryptionMetadata2:
		return true
	}
	return false
}

func plaintextBytes(name string, property odata.Property) ([]byte, error) {
	switch property.Type {
	case odata.EdmString:
		s, ok := property.Value.(string)
		if !ok {
			return nil, fmt.Errorf("crypt: property %q: value is not a string", name)
		}
		return []byte(s), nil
	case odata.EdmBinary:
		b, ok := property.Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("crypt: property %q: value is not bytes", name)
		}
		return b, nil
	}
	return nil, fmt.Errorf("crypt: property %q has type %s; only %s and %s can be encrypted",
		name, property.Type, odata.EdmString, odata.EdmBinary)
}

// identity builds the domain-tagged byte string naming a blob's slot.
// Parts are NUL-separated so variable-length keys cannot collide
// across the boundary.
func identity(tag []byte, parts ...string) []byte {
	id := make([]byte, len(tag), len(tag)+16)
	copy(id, tag)
	for _, part := range parts {
		id = append(id, 0)
		id = append(id, part...)
	}
	return id
}

// deriveNonce stretches the content key and blob identity into an
// XChaCha20-Poly1305 nonce. Fresh content keys per Encrypt keep the
// (key, nonce) pairs unique.
func deriveNonce(contentKey, id []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, contentKey, nil, id)
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(reader, nonce); err != nil {
		return nil, fmt.Errorf("derive nonce: %w", err)
	}
	return nonce, nil
}

// seal encrypts plaintext into the blob format:
//
//	[Version: 1 byte (0x01)] [Ciphertext+Tag: N+16 bytes]
//
// The version byte and the blob identity are the AAD, so a blob moved
// to a different slot fails authentication even before the derived
// nonce diverges.
func seal(contentKey, id, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(contentKey)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce, err := deriveNonce(contentKey, id)
	if err != nil {
		return nil, err
	}
	output := make([]byte, 1, 1+len(plaintext)+aead.Overhead())
	output[0] = blobVersion
	return aead.Seal(output, nonce, plaintext, buildAAD(blobVersion, id)), nil
}

// open reverses seal.
func open(contentKey, id, blob []byte) ([]byte, error) {
	if len(blob) < blobOverhead {
		return nil, fmt.Errorf("blob is %d bytes, minimum is %d (version + tag)", len(blob), blobOverhead)
	}
	version := blob[0]
	if version != blobVersion {
		return nil, fmt.Errorf("blob version %d is not supported (expected %d)", version, blobVersion)
	}
	aead, err := chacha20poly1305.NewX(contentKey)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce, err := deriveNonce(contentKey, id)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, blob[1:], buildAAD(version, id))
	if err != nil {
		return nil, fmt.Errorf("authentication failed (wrong key, tampered data, or mismatched slot): %w", err)
	}
	return plaintext, nil
}

func buildAAD(version byte, id []byte) []byte {
	aad := make([]byte, 1+len(id))
	aad[0] = version
	copy(aad[1:], id)
	return aad
}
