// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import "strings"

// CanonicalizedString accumulates the newline-joined elements of a
// string-to-sign. Elements are positional: a blank element still
// occupies its slot, so appending "" contributes a bare newline. The
// accumulated value never carries a trailing newline.
type CanonicalizedString struct {
	b strings.Builder
}

// NewCanonicalizedString starts a string-to-sign with its first
// element, conventionally the HTTP verb.
func NewCanonicalizedString(initial string) *CanonicalizedString {
	c := &CanonicalizedString{}
	c.b.WriteString(initial)
	return c
}

// Append adds one element.
func (c *CanonicalizedString) Append(element string) {
	c.b.WriteByte('\n')
	c.b.WriteString(element)
}

// String returns the accumulated string-to-sign.
func (c *CanonicalizedString) String() string {
	return c.b.String()
}
