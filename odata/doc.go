// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

// Package odata models table entities and their OData JSON wire form.
//
// The table service speaks OData JSON: an entity is a flat JSON object
// whose property types are either implied by JSON (string, boolean,
// 32-bit integer, double) or declared by an @odata.type annotation
// next to the property (Edm.Binary, Edm.DateTime, Edm.Guid,
// Edm.Int64). This package owns both directions of that mapping:
//
//   - [Entity] and [Property] -- the typed in-memory model
//   - [Project] -- entity to ordered JSON pairs, annotations included
//   - [ParseValue] -- wire value plus annotation back to a [Property]
//   - [MarshalObject] -- ordered pairs to the JSON object bytes
//
// Projection order is fixed: for an insert body PartitionKey, then
// RowKey, then the remaining properties sorted by name; every other
// body kind addresses its entity in the URI and projects the sorted
// properties only. Output never depends on map iteration order, so
// equal entities project to equal bytes.
//
// Client-side property encryption is consumed through the [Encryptor]
// interface; the crypt package provides the implementation. Wire
// constants shared by the auth and table packages (service version,
// content types, header names) live here.
//
// Depends on github.com/google/uuid for Edm.Guid values. Imported by
// auth, table, and crypt.
package odata
