// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"net/http"
	"sort"
	"strings"
)

// msHeaderPrefix marks the custom headers that participate in the
// general string-to-sign forms.
const msHeaderPrefix = "x-ms-"

// CanonicalizedHeaders returns the canonical x-ms-* header block as
// ordered "name:value" elements: names lowercased and sorted, each
// name's values folded and comma-joined in arrival order. A header
// that is present with an empty value still contributes "name:". The
// result depends only on the set of headers, never on the order they
// were added.
func CanonicalizedHeaders(headers http.Header) []string {
	merged := make(map[string][]string)
	for name, values := range headers {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, msHeaderPrefix) {
			continue
		}
		merged[lower] = append(merged[lower], values...)
	}
	if len(merged) == 0 {
		return nil
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	elements := make([]string, len(names))
	for i, name := range names {
		folded := make([]string, len(merged[name]))
		for j, value := range merged[name] {
			folded[j] = foldValue(value)
		}
		elements[i] = name + ":" + strings.Join(folded, ",")
	}
	return elements
}

// foldValue unfolds a header value: any whitespace run containing a
// line break collapses to a single space, and surrounding whitespace
// is trimmed. A value that was never folded passes through unchanged.
func foldValue(value string) string {
	value = strings.TrimSpace(value)
	if !strings.ContainsAny(value, "\r\n") {
		return value
	}
	var b strings.Builder
	for i := 0; i < len(value); {
		c := value[i]
		if c != '\r' && c != '\n' && c != ' ' && c != '\t' {
			b.WriteByte(c)
			i++
			continue
		}
		j := i
		breaking := false
		for j < len(value) && (value[j] == '\r' || value[j] == '\n' || value[j] == ' ' || value[j] == '\t') {
			if value[j] == '\r' || value[j] == '\n' {
				breaking = true
			}
			j++
		}
		if breaking {
			b.WriteByte(' ')
		} else {
			b.WriteString(value[i:j])
		}
		i = j
	}
	return b.String()
}
