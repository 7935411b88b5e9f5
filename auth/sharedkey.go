// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/trestle-storage/trestle/odata"
)

// Authorization schemes. The table layouts sign fewer elements but
// still announce themselves under the same scheme names.
const (
	SchemeSharedKey     = "SharedKey"
	SchemeSharedKeyLite = "SharedKeyLite"
)

// Canonicalizer is one published string-to-sign layout. The four
// values below are the complete set; all are stateless and safe to
// share.
type Canonicalizer struct {
	scheme       string
	stringToSign func(req *http.Request, accountName string) (string, error)
}

// Scheme returns the Authorization scheme this layout signs under.
func (c Canonicalizer) Scheme() string { return c.scheme }

// StringToSign computes the canonical string for a request. The
// request's headers and URL must be in their final wire form: the
// value signed here is byte for byte what the service recomputes.
func (c Canonicalizer) StringToSign(req *http.Request, accountName string) (string, error) {
	if req == nil || req.URL == nil {
		return "", fmt.Errorf("auth: canonicalize nil request")
	}
	if c.stringToSign == nil {
		return "", fmt.Errorf("auth: zero canonicalizer")
	}
	return c.stringToSign(req, accountName)
}

var (
	// SharedKey is the general full layout: verb, content headers,
	// date, conditional headers, the x-ms-* block, and the full-form
	// resource.
	SharedKey = Canonicalizer{scheme: SchemeSharedKey, stringToSign: fullStringToSign}

	// SharedKeyLite is the general lite layout: verb, Content-MD5,
	// Content-Type, date, the x-ms-* block, and the lite-form
	// resource.
	SharedKeyLite = Canonicalizer{scheme: SchemeSharedKeyLite, stringToSign: liteStringToSign}

	// SharedKeyTable is the layout the table endpoint verifies for
	// SharedKey: verb, Content-MD5, Content-Type, date, lite-form
	// resource. No x-ms-* block.
	SharedKeyTable = Canonicalizer{scheme: SchemeSharedKey, stringToSign: tableStringToSign}

	// SharedKeyLiteTable is the table endpoint's lite layout: just
	// the date and the lite-form resource.
	SharedKeyLiteTable = Canonicalizer{scheme: SchemeSharedKeyLite, stringToSign: tableLiteStringToSign}
)

func fullStringToSign(req *http.Request, accountName string) (string, error) {
	cs := NewCanonicalizedString(req.Method)
	cs.Append(req.Header.Get("Content-Encoding"))
	cs.Append(req.Header.Get("Content-Language"))
	cs.Append(contentLength(req))
	cs.Append(req.Header.Get("Content-MD5"))
	cs.Append(req.Header.Get("Content-Type"))
	cs.Append(generalFormDate(req.Header))
	cs.Append(req.Header.Get("If-Modified-Since"))
	cs.Append(req.Header.Get("If-Match"))
	cs.Append(req.Header.Get("If-None-Match"))
	cs.Append(req.Header.Get("If-Unmodified-Since"))
	cs.Append(req.Header.Get("Range"))
	for _, element := range CanonicalizedHeaders(req.Header) {
		cs.Append(element)
	}
	cs.Append(CanonicalizedResource(accountName, req.URL))
	return cs.String(), nil
}

func liteStringToSign(req *http.Request, accountName string) (string, error) {
	cs := NewCanonicalizedString(req.Method)
	cs.Append(req.Header.Get("Content-MD5"))
	cs.Append(req.Header.Get("Content-Type"))
	cs.Append(generalFormDate(req.Header))
	for _, element := range CanonicalizedHeaders(req.Header) {
		cs.Append(element)
	}
	cs.Append(CanonicalizedResourceLite(accountName, req.URL))
	return cs.String(), nil
}

func tableStringToSign(req *http.Request, accountName string) (string, error) {
	cs := NewCanonicalizedString(req.Method)
	cs.Append(req.Header.Get("Content-MD5"))
	cs.Append(req.Header.Get("Content-Type"))
	cs.Append(tableFormDate(req.Header))
	cs.Append(CanonicalizedResourceLite(accountName, req.URL))
	return cs.String(), nil
}

func tableLiteStringToSign(req *http.Request, accountName string) (string, error) {
	cs := NewCanonicalizedString(tableFormDate(req.Header))
	cs.Append(CanonicalizedResourceLite(accountName, req.URL))
	return cs.String(), nil
}

// contentLength renders the Content-Length element. A zero or unknown
// length is a blank slot, not "0".
func contentLength(req *http.Request) string {
	if req.ContentLength > 0 {
		return strconv.FormatInt(req.ContentLength, 10)
	}
	return ""
}

// generalFormDate returns the date element of the two general
// layouts. When x-ms-date is present it is signed inside the x-ms-*
// block and the date slot stays blank; counting it in both places
// breaks the signature. Without x-ms-date the slot carries Date.
func generalFormDate(headers http.Header) string {
	if headers.Get(odata.HeaderDate) != "" {
		return ""
	}
	return headers.Get("Date")
}

// tableFormDate returns the date element of the table layouts, which
// sign no x-ms-* block: x-ms-date when present, otherwise Date.
func tableFormDate(headers http.Header) string {
	if value := headers.Get(odata.HeaderDate); value != "" {
		return value
	}
	return headers.Get("Date")
}
