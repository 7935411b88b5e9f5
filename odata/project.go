// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package odata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Pair is one name/value pair of a projected JSON object, the value
// already in wire form. A slice of pairs preserves the write order
// that a Go map cannot.
type Pair struct {
	Name  string
	Value json.RawMessage
}

// BodyKind classifies the entity body an operation sends, the two
// distinctions projection cares about: insert bodies synthesize the
// leading PartitionKey and RowKey pairs (every other body names its
// entity in the request URI instead), and merge bodies reject
// property encryption.
type BodyKind int

const (
	// BodyInsert is a full entity creating a new row.
	BodyInsert BodyKind = iota

	// BodyReplace is a full entity overwriting an existing row.
	BodyReplace

	// BodyMerge is a partial entity folded into an existing row.
	BodyMerge
)

// ErrEncryptedMerge is returned by Project when an encryptor is
// attached to a merge body. A merge leaves absent properties
// untouched on the service, so re-encrypting the present ones under a
// fresh content key would orphan the rest.
var ErrEncryptedMerge = errors.New("odata: property encryption is not supported for merge bodies")

// Project renders an entity as the ordered pairs of its OData JSON
// object for one operation body. An insert body leads with the
// PartitionKey and RowKey pairs, each omitted individually when its
// key is null; other body kinds carry no key pairs. Then come the
// remaining properties sorted by name, each followed by its
// @odata.type annotation pair when the type is not implied by JSON. A
// null property is omitted entirely; Timestamp is service-owned and
// never projected.
//
// When encryptor is non-nil the property map is passed through it
// first, which requires both keys to be present; a merge body rejects
// it with ErrEncryptedMerge before the encryptor runs. Projection
// does not modify the entity; equal entities project to equal pairs.
func Project(entity *Entity, kind BodyKind, encryptor Encryptor, resolve KeyResolver) ([]Pair, error) {
	if entity == nil {
		return nil, fmt.Errorf("odata: project nil entity")
	}

	properties := entity.Properties
	if encryptor != nil {
		if kind == BodyMerge {
			return nil, ErrEncryptedMerge
		}
		partitionKey, rowKey, ok := entity.Keys()
		if !ok {
			return nil, fmt.Errorf("odata: property encryption requires both entity keys")
		}
		encrypted, err := encryptor.Encrypt(properties, partitionKey, rowKey, resolve)
		if err != nil {
			return nil, fmt.Errorf("odata: encrypt properties: %w", err)
		}
		properties = encrypted
	}

	pairs := make([]Pair, 0, 2+2*len(properties))
	if kind == BodyInsert {
		if entity.PartitionKey != nil {
			pairs = append(pairs, Pair{Name: PropertyPartitionKey, Value: quoteJSON(*entity.PartitionKey)})
		}
		if entity.RowKey != nil {
			pairs = append(pairs, Pair{Name: PropertyRowKey, Value: quoteJSON(*entity.RowKey)})
		}
	}

	names := make([]string, 0, len(properties))
	for name := range properties {
		switch name {
		case PropertyPartitionKey, PropertyRowKey, PropertyTimestamp:
			continue
		}
		if properties[name].IsNull() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, annotation, err := encodeValue(name, properties[name])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{Name: name, Value: value})
		if annotation != "" {
			pairs = append(pairs, Pair{Name: name + "@odata.type", Value: quoteJSON(annotation)})
		}
	}
	return pairs, nil
}

// MarshalObject renders projected pairs as the JSON object the wire
// carries, preserving pair order.
func MarshalObject(pairs []Pair) []byte {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, pair := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(quoteJSON(pair.Name))
		b.WriteByte(':')
		b.Write(pair.Value)
	}
	b.WriteByte('}')
	return b.Bytes()
}
