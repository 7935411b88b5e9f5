// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/trestle-storage/trestle/odata"
)

// TransportConfig configures a signing Transport. Only Credential is
// required.
type TransportConfig struct {
	// Credential signs every request.
	Credential *SharedKeyCredential

	// Canonicalizer selects the string-to-sign layout. Defaults to
	// SharedKeyTable, the layout the table endpoint verifies.
	Canonicalizer Canonicalizer

	// Base executes the signed request. Defaults to
	// http.DefaultTransport.
	Base http.RoundTripper

	// Logger receives debug events for signed requests. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Now supplies the x-ms-date timestamp. Defaults to time.Now.
	// Tests inject a fixed clock here.
	Now func() time.Time

	// NewRequestID supplies x-ms-client-request-id values for
	// requests that do not already carry one. Defaults to
	// uuid.NewString.
	NewRequestID func() string
}

// Transport is an http.RoundTripper that authenticates requests to
// the table service. On each request it stamps x-ms-date,
// x-ms-version, and x-ms-client-request-id, drops any caller-set
// Date header (the two date headers are mutually exclusive), and
// sets Authorization to the scheme, account, and HMAC-SHA256
// signature of the canonical string.
//
// The transport never retries and never reads response bodies;
// policy belongs to the caller.
type Transport struct {
	credential    *SharedKeyCredential
	canonicalizer Canonicalizer
	base          http.RoundTripper
	logger        *slog.Logger
	now           func() time.Time
	newRequestID  func() string
}

// NewTransport validates the config and applies defaults.
func NewTransport(cfg TransportConfig) (*Transport, error) {
	if cfg.Credential == nil {
		return nil, errors.New("auth: transport requires a credential")
	}
	t := &Transport{
		credential:    cfg.Credential,
		canonicalizer: cfg.Canonicalizer,
		base:          cfg.Base,
		logger:        cfg.Logger,
		now:           cfg.Now,
		newRequestID:  cfg.NewRequestID,
	}
	if t.canonicalizer.stringToSign == nil {
		t.canonicalizer = SharedKeyTable
	}
	if t.base == nil {
		t.base = http.DefaultTransport
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.newRequestID == nil {
		t.newRequestID = uuid.NewString
	}
	return t, nil
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not mutate the caller's request.
	signed := req.Clone(req.Context())

	signed.Header.Set(odata.HeaderDate, t.now().UTC().Format(http.TimeFormat))
	signed.Header.Del("Date")
	signed.Header.Set(odata.HeaderVersion, odata.ServiceVersion)
	requestID := signed.Header.Get(odata.HeaderClientRequestID)
	if requestID == "" {
		requestID = t.newRequestID()
		signed.Header.Set(odata.HeaderClientRequestID, requestID)
	}

	stringToSign, err := t.canonicalizer.StringToSign(signed, t.credential.AccountName())
	if err != nil {
		return nil, fmt.Errorf("auth: canonicalize request: %w", err)
	}
	signature := t.credential.ComputeHMACSHA256(stringToSign)
	signed.Header.Set("Authorization",
		t.canonicalizer.Scheme()+" "+t.credential.AccountName()+":"+signature)

	t.logger.Debug("signed table request",
		"method", signed.Method,
		"path", signed.URL.Path,
		"scheme", t.canonicalizer.Scheme(),
		"request_id", requestID)

	return t.base.RoundTrip(signed)
}
