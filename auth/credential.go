// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/trestle-storage/trestle/lib/keymat"
)

// SharedKeyCredential is an account name plus its base64-encoded
// account key. The decoded key lives in guarded memory for the
// lifetime of the credential.
type SharedKeyCredential struct {
	accountName string
	key         *keymat.Key
}

// NewSharedKeyCredential decodes the base64 account key into guarded
// memory. Close the credential when it is no longer needed.
func NewSharedKeyCredential(accountName, accountKey string) (*SharedKeyCredential, error) {
	if accountName == "" {
		return nil, errors.New("auth: account name is empty")
	}
	key, err := keymat.FromBase64(accountKey)
	if err != nil {
		return nil, fmt.Errorf("auth: account key: %w", err)
	}
	return &SharedKeyCredential{accountName: accountName, key: key}, nil
}

// AccountName returns the storage account name.
func (c *SharedKeyCredential) AccountName() string {
	return c.accountName
}

// ComputeHMACSHA256 signs the message with the account key and
// returns the base64 signature, the form the Authorization header
// carries.
func (c *SharedKeyCredential) ComputeHMACSHA256(message string) string {
	mac := hmac.New(sha256.New, c.key.Bytes())
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Close zeros and releases the account key. The credential must not
// be used afterwards.
func (c *SharedKeyCredential) Close() error {
	return c.key.Close()
}
