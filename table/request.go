// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package table

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/trestle-storage/trestle/odata"
)

// RequestOptions carries the per-request knobs shared by single
// operations and batches. The zero value means minimal metadata and
// no encryption.
type RequestOptions struct {
	// Format selects the Accept header's OData metadata level.
	Format odata.PayloadFormat

	// Encryptor, when non-nil, encrypts entity properties before
	// projection. Merge-shaped operations reject it.
	Encryptor odata.Encryptor

	// KeyResolver is handed to the encryptor for key lookup by ID.
	KeyResolver odata.KeyResolver
}

// Builder renders operations into HTTP requests against one account
// endpoint, e.g. https://account.table.core.windows.net. Requests
// leave the builder unsigned.
type Builder struct {
	endpoint string
}

// NewBuilder validates the endpoint and strips any trailing slash.
func NewBuilder(endpoint string) (*Builder, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("table: parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("table: endpoint %q: scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("table: endpoint %q has no host", endpoint)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("table: endpoint %q must not carry a query or fragment", endpoint)
	}
	return &Builder{endpoint: strings.TrimRight(endpoint, "/")}, nil
}

// Endpoint returns the account endpoint without a trailing slash.
func (b *Builder) Endpoint() string {
	return b.endpoint
}

// Build renders one operation as an unsigned *http.Request. The verb,
// URI, conditional headers, and body follow the operation's kind;
// every request carries the protocol version headers and the Accept
// pair for the selected payload format.
func (b *Builder) Build(ctx context.Context, op Operation, opts RequestOptions) (*http.Request, error) {
	verb, ok := operationVerbs[op.Kind]
	if !ok {
		return nil, fmt.Errorf("table: unknown operation kind %q", op.Kind)
	}
	if op.Entity == nil {
		return nil, fmt.Errorf("table: %s: nil entity", op.Kind)
	}

	var body []byte
	if operationHasBody[op.Kind] {
		pairs, err := odata.Project(op.Entity, operationBodyKind[op.Kind], opts.Encryptor, opts.KeyResolver)
		if err != nil {
			return nil, fmt.Errorf("table: %s %s: %w", op.Kind, op.Table, err)
		}
		body = odata.MarshalObject(pairs)
	}

	// MERGE is tunneled: proxies that only forward the classic verbs
	// see a POST, the service reads X-HTTP-Method.
	method := verb
	tunneled := verb == MethodMerge
	if tunneled {
		method = http.MethodPost
	}

	uri := b.endpoint + "/" + op.wirePath()
	req, err := newRequest(ctx, method, uri, body)
	if err != nil {
		return nil, fmt.Errorf("table: %s %s: %w", op.Kind, op.Table, err)
	}

	req.Header.Set("Accept", opts.Format.Accept())
	req.Header.Set(odata.HeaderAcceptCharset, odata.AcceptCharset)
	// Published in camel case; Set would fold the names.
	req.Header[odata.HeaderMaxDataServiceVersion] = []string{odata.MaxDataServiceVersion}
	req.Header[odata.HeaderDataServiceVersion] = []string{odata.DataServiceVersion}

	if body != nil {
		req.Header.Set("Content-Type", odata.ContentTypeJSON)
	}
	if tunneled {
		req.Header[odata.HeaderHTTPMethod] = []string{MethodMerge}
	}
	if op.Kind == KindInsert {
		req.Header.Set(odata.HeaderPrefer, preferValue(op.EchoContent))
	}
	if operationSendsIfMatch[op.Kind] {
		req.Header.Set("If-Match", ifMatchValue(op.Entity))
	}
	return req, nil
}

// newRequest builds the request with a nil body for bodyless
// operations so no Content-Length or chunked framing appears on
// DELETE and GET.
func newRequest(ctx context.Context, method, uri string, body []byte) (*http.Request, error) {
	if body == nil {
		return http.NewRequestWithContext(ctx, method, uri, nil)
	}
	return http.NewRequestWithContext(ctx, method, uri, bytes.NewReader(body))
}
