// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package table

import "strings"

// validTableName reports whether name satisfies the service's table
// naming rule: 3 to 63 characters, letters and digits only, starting
// with a letter. Valid names never need URL escaping.
func validTableName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// entityPath renders the parenthesized entity address:
// Table(PartitionKey='pk',RowKey='rk'). Single quotes inside key
// values are doubled per OData literal syntax, then each value is
// percent-encoded exactly once.
func entityPath(tableName, partitionKey, rowKey string) string {
	var b strings.Builder
	b.WriteString(tableName)
	b.WriteString("(PartitionKey='")
	b.WriteString(escapeKeyComponent(strings.ReplaceAll(partitionKey, "'", "''")))
	b.WriteString("',RowKey='")
	b.WriteString(escapeKeyComponent(strings.ReplaceAll(rowKey, "'", "''")))
	b.WriteString("')")
	return b.String()
}

// keyComponentLiterals are the bytes beyond letters and digits that
// stay unescaped in an entity address. These are the characters
// net/url considers valid in an encoded path, minus the slash: the
// address must round-trip through url.Parse without re-encoding, and
// the quoting syntax around key values depends on ' ( ) , staying
// literal.
const keyComponentLiterals = "-._~!$&'()*+,;=:@"

const upperhex = "0123456789ABCDEF"

// escapeKeyComponent percent-encodes a key value for use inside an
// entity address. Every byte outside the literal set is encoded,
// non-ASCII UTF-8 bytes included. Applied after quote doubling, and
// exactly once: the output is the wire form, and the same bytes feed
// the request line, the URL, and the signature.
func escapeKeyComponent(s string) string {
	escape := 0
	for i := 0; i < len(s); i++ {
		if !isKeyLiteral(s[i]) {
			escape++
		}
	}
	if escape == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*escape)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isKeyLiteral(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0F])
	}
	return b.String()
}

func isKeyLiteral(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte(keyComponentLiterals, c) >= 0
}
