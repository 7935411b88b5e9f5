// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package odata

import (
	"time"

	"github.com/google/uuid"
)

// EdmType identifies the Entity Data Model type of a property. The
// string values are exactly what the wire's @odata.type annotations
// carry.
type EdmType string

const (
	EdmBinary   EdmType = "Edm.Binary"
	EdmBoolean  EdmType = "Edm.Boolean"
	EdmDateTime EdmType = "Edm.DateTime"
	EdmDouble   EdmType = "Edm.Double"
	EdmGUID     EdmType = "Edm.Guid"
	EdmInt32    EdmType = "Edm.Int32"
	EdmInt64    EdmType = "Edm.Int64"
	EdmString   EdmType = "Edm.String"
)

// Property is one typed entity property value. Value holds the Go
// representation matching Type (string, bool, int32, int64, float64,
// []byte, time.Time, or uuid.UUID); a nil Value is a null property,
// which exists in the model but is omitted from the wire.
type Property struct {
	Type  EdmType
	Value any
}

// IsNull reports whether the property carries no value.
func (p Property) IsNull() bool { return p.Value == nil }

// String makes an Edm.String property.
func String(v string) Property { return Property{Type: EdmString, Value: v} }

// Bool makes an Edm.Boolean property.
func Bool(v bool) Property { return Property{Type: EdmBoolean, Value: v} }

// Int32 makes an Edm.Int32 property.
func Int32(v int32) Property { return Property{Type: EdmInt32, Value: v} }

// Int64 makes an Edm.Int64 property.
func Int64(v int64) Property { return Property{Type: EdmInt64, Value: v} }

// Double makes an Edm.Double property.
func Double(v float64) Property { return Property{Type: EdmDouble, Value: v} }

// Binary makes an Edm.Binary property.
func Binary(v []byte) Property { return Property{Type: EdmBinary, Value: v} }

// DateTime makes an Edm.DateTime property. The value is carried in
// UTC on the wire regardless of the location of t.
func DateTime(t time.Time) Property { return Property{Type: EdmDateTime, Value: t} }

// GUID makes an Edm.Guid property.
func GUID(v uuid.UUID) Property { return Property{Type: EdmGUID, Value: v} }

// Null makes a null property of the given type.
func Null(t EdmType) Property { return Property{Type: t} }

// Entity is one table entity: its addressing keys, concurrency token,
// service timestamp, and named properties.
//
// PartitionKey and RowKey are pointers because null keys are distinct
// from empty-string keys: an empty string is a legal key value, while
// a nil pointer means the key is absent and is omitted from the
// projected payload entirely.
type Entity struct {
	PartitionKey *string
	RowKey       *string

	// ETag is the concurrency token from the last read or write of
	// this entity. Empty means unconditional: operations that send
	// If-Match use "*" in its place.
	ETag string

	// Timestamp is maintained by the service and never written by
	// clients.
	Timestamp time.Time

	Properties map[string]Property
}

// NewEntity returns an entity addressed by the given keys with an
// empty property map.
func NewEntity(partitionKey, rowKey string) *Entity {
	return &Entity{
		PartitionKey: &partitionKey,
		RowKey:       &rowKey,
		Properties:   make(map[string]Property),
	}
}

// Keys returns the entity's addressing keys. ok is false when either
// key is null, in which case the entity cannot be addressed on the
// wire.
func (e *Entity) Keys() (partitionKey, rowKey string, ok bool) {
	if e.PartitionKey == nil || e.RowKey == nil {
		return "", "", false
	}
	return *e.PartitionKey, *e.RowKey, true
}
