// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"net/url"
	"sort"
	"strings"
)

// CanonicalizedResource returns the full-form canonical resource:
// "/" + account + the encoded path, then one "\nname:values" element
// per query parameter with names lowercased and sorted, each name's
// values sorted and comma-joined. Parameter values keep their case;
// both names and values are in decoded form.
func CanonicalizedResource(accountName string, u *url.URL) string {
	var b strings.Builder
	b.WriteByte('/')
	b.WriteString(accountName)
	b.WriteString(u.EscapedPath())

	query := u.Query()
	if len(query) == 0 {
		return b.String()
	}

	merged := make(map[string][]string, len(query))
	for name, values := range query {
		lower := strings.ToLower(name)
		merged[lower] = append(merged[lower], values...)
	}
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values := merged[name]
		sort.Strings(values)
		b.WriteByte('\n')
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(strings.Join(values, ","))
	}
	return b.String()
}

// CanonicalizedResourceLite returns the lite-form canonical resource
// used by the SharedKeyLite and table string-to-sign layouts: "/" +
// account + the encoded path, plus "?comp=value" when the query
// names a component. Every other query parameter is outside the
// signature in this form.
func CanonicalizedResourceLite(accountName string, u *url.URL) string {
	resource := "/" + accountName + u.EscapedPath()
	if comp := u.Query().Get("comp"); comp != "" {
		resource += "?comp=" + comp
	}
	return resource
}
