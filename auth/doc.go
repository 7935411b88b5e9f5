// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth signs table service requests with the account's shared
// key.
//
// Signing has three layers:
//
//   - [CanonicalizedString], [CanonicalizedHeaders], and the
//     canonicalized resource helpers build the deterministic
//     string-to-sign from a request's verb, headers, and URI.
//   - A [Canonicalizer] is one of the four published string-to-sign
//     layouts: [SharedKey] and [SharedKeyLite] (the general forms
//     with the x-ms-* header block) and [SharedKeyTable] and
//     [SharedKeyLiteTable] (the reduced forms the table endpoint
//     verifies). All four are stateless values.
//   - [SharedKeyCredential] holds the account key in guarded memory
//     and computes the HMAC-SHA256 signature; [Transport] wraps an
//     http.RoundTripper to stamp x-ms-date, x-ms-version, and
//     x-ms-client-request-id and set the Authorization header on
//     every request that passes through it.
//
// The canonicalization rules are exact: element order, blank slots,
// and header folding all participate in the signature, and a one-byte
// difference from what the service computes is a 403. Change nothing
// here without a wire capture.
//
// Depends on lib/keymat for key storage and github.com/google/uuid
// for request IDs. Imported by anything that executes requests built
// by the table package.
package auth
