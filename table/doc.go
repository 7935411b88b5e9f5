// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

// Package table turns entity operations into table service HTTP
// requests.
//
// An [Operation] is one action against one entity: Insert, Delete,
// Replace, Merge, InsertOrMerge, InsertOrReplace, Retrieve, or
// RotateEncryptionKey. Operations are plain values built by the
// constructor functions; what each kind means on the wire (verb,
// body, If-Match) is dispatch data, not behavior on the values.
//
// [Builder] renders operations against a fixed endpoint:
//
//   - [Builder.Build] -- one operation, one *http.Request. Merge-shaped
//     operations go out as POST with X-HTTP-Method: MERGE.
//   - [Builder.EncodeBatch] -- an entity group transaction: the
//     operations of a [Batch] framed as one multipart/mixed changeset,
//     written to the caller's io.Writer. Inside the changeset MERGE
//     appears as a literal verb. A batch of exactly one Retrieve is a
//     query batch and carries no changeset.
//
// Requests leave this package unsigned; the auth package's Transport
// stamps dates and Authorization at send time. Entity bodies are the
// odata package's projection, optionally routed through a property
// encryptor, which merge-shaped operations reject before any output
// is produced.
//
// Depends on github.com/google/uuid for MIME boundary names. The
// framing bytes written here are load-bearing: separators, blank
// lines, and CRLF line ends are all part of what the service parses.
package table
