// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)
}

func TestNewTransport_RequiresCredential(t *testing.T) {
	if _, err := NewTransport(TransportConfig{}); err == nil {
		t.Fatal("expected error for missing credential")
	}
}

func TestTransport_SignsRequest(t *testing.T) {
	var captured http.Header
	var capturedMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		capturedMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cred, err := NewSharedKeyCredential("devstore", testAccountKey)
	if err != nil {
		t.Fatalf("NewSharedKeyCredential failed: %v", err)
	}
	defer cred.Close()

	transport, err := NewTransport(TransportConfig{
		Credential:   cred,
		Now:          fixedClock,
		NewRequestID: func() string { return "fixed-request-id" },
	})
	if err != nil {
		t.Fatalf("NewTransport failed: %v", err)
	}
	client := &http.Client{Transport: transport}

	req, err := http.NewRequest(http.MethodGet, server.URL+"/Tasks(PartitionKey='p',RowKey='r')", nil)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Date", "should be dropped")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if capturedMethod != http.MethodGet {
		t.Errorf("method = %q, want GET", capturedMethod)
	}
	if got := captured.Get("x-ms-date"); got != "Mon, 02 Jan 2006 15:04:05 GMT" {
		t.Errorf("x-ms-date = %q, want fixed clock value", got)
	}
	if got := captured.Get("x-ms-version"); got != "2015-12-11" {
		t.Errorf("x-ms-version = %q, want 2015-12-11", got)
	}
	if got := captured.Get("x-ms-client-request-id"); got != "fixed-request-id" {
		t.Errorf("x-ms-client-request-id = %q, want fixed-request-id", got)
	}
	if got := captured.Get("Date"); got != "" {
		t.Errorf("Date header survived signing: %q", got)
	}

	// Recompute what the table layout signs for the request the
	// server saw.
	stringToSign := "GET\n\n\nMon, 02 Jan 2006 15:04:05 GMT\n/devstore/Tasks(PartitionKey='p',RowKey='r')"
	want := "SharedKey devstore:" + cred.ComputeHMACSHA256(stringToSign)
	if got := captured.Get("Authorization"); got != want {
		t.Errorf("Authorization = %q, want %q", got, want)
	}

	// The caller's request must not have been mutated.
	if req.Header.Get("Authorization") != "" {
		t.Error("transport mutated the original request")
	}
	if req.Header.Get("Date") != "should be dropped" {
		t.Error("transport mutated the original Date header")
	}
}

func TestTransport_KeepsCallerRequestID(t *testing.T) {
	var captured http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
	}))
	defer server.Close()

	cred, err := NewSharedKeyCredential("devstore", testAccountKey)
	if err != nil {
		t.Fatalf("NewSharedKeyCredential failed: %v", err)
	}
	defer cred.Close()

	transport, err := NewTransport(TransportConfig{Credential: cred, Now: fixedClock})
	if err != nil {
		t.Fatalf("NewTransport failed: %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, server.URL+"/Tasks", nil)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("x-ms-client-request-id", "caller-id")

	resp, err := (&http.Client{Transport: transport}).Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got := captured.Get("x-ms-client-request-id"); got != "caller-id" {
		t.Errorf("x-ms-client-request-id = %q, want caller-id", got)
	}
}
