// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package table

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/trestle-storage/trestle/odata"
)

// maxBatchOperations is the service's cap on operations per entity
// group transaction.
const maxBatchOperations = 100

// newBoundaryID supplies the GUID part of MIME boundary names.
// Replaced in tests to make batch bodies deterministic.
var newBoundaryID = uuid.NewString

// Batch is an ordered list of operations executed as one entity group
// transaction: all against the same table and partition, applied
// atomically by the service. A batch of exactly one Retrieve is a
// query batch.
type Batch []Operation

// validate enforces the service's batch rules before any encoding
// starts.
func (b Batch) validate() error {
	if len(b) == 0 {
		return fmt.Errorf("table: empty batch")
	}
	if len(b) > maxBatchOperations {
		return fmt.Errorf("table: batch of %d operations exceeds the limit of %d", len(b), maxBatchOperations)
	}

	var tableName, partitionKey string
	for i, op := range b {
		if _, ok := operationVerbs[op.Kind]; !ok {
			return fmt.Errorf("table: batch operation %d: unknown kind %q", i, op.Kind)
		}
		if op.Kind == KindRetrieve && len(b) > 1 {
			return fmt.Errorf("table: a retrieve must be the only operation in its batch")
		}
		if op.Entity == nil {
			return fmt.Errorf("table: batch operation %d: nil entity", i)
		}
		opPartition, _, ok := op.Entity.Keys()
		if !ok {
			return fmt.Errorf("table: batch operation %d: entity needs both keys", i)
		}
		if i == 0 {
			tableName, partitionKey = op.Table, opPartition
			continue
		}
		if op.Table != tableName {
			return fmt.Errorf("table: batch spans tables %q and %q", tableName, op.Table)
		}
		if opPartition != partitionKey {
			return fmt.Errorf("table: batch spans partitions %q and %q", partitionKey, opPartition)
		}
	}
	return nil
}

// isQuery reports whether the batch is a single retrieve, which is
// framed without a changeset.
func (b Batch) isQuery() bool {
	return len(b) == 1 && b[0].Kind == KindRetrieve
}

// EncodeBatch writes the multipart/mixed body of an entity group
// transaction to w and returns the Content-Type of the outer request,
// boundary included.
//
// Validation and every body projection run before the first byte is
// written: an error, the merge-and-encryption rejection included,
// means nothing was written. Inside the changeset each operation is
// an application/http part carrying its literal verb; MERGE is not
// tunneled here.
func (b *Builder) EncodeBatch(w io.Writer, batch Batch, opts RequestOptions) (string, error) {
	if err := batch.validate(); err != nil {
		return "", err
	}

	bodies := make([][]byte, len(batch))
	for i, op := range batch {
		if !operationHasBody[op.Kind] {
			continue
		}
		pairs, err := odata.Project(op.Entity, operationBodyKind[op.Kind], opts.Encryptor, opts.KeyResolver)
		if err != nil {
			return "", fmt.Errorf("table: batch operation %d: %w", i, err)
		}
		bodies[i] = odata.MarshalObject(pairs)
	}

	batchBoundary := "batch_" + newBoundaryID()
	changesetBoundary := "changeset_" + newBoundaryID()
	isQuery := batch.isQuery()

	lw := &lineWriter{w: w}
	lw.line("--" + batchBoundary)
	if !isQuery {
		lw.line("Content-Type: multipart/mixed; boundary=" + changesetBoundary)
		lw.line("")
	}

	for i, op := range batch {
		if !isQuery {
			lw.line("--" + changesetBoundary)
		}
		lw.line("Content-Type: application/http")
		lw.line("Content-Transfer-Encoding: binary")
		lw.line("")

		lw.line(operationVerbs[op.Kind] + " " + b.endpoint + "/" + op.wirePath() + " HTTP/1.1")
		lw.line("Accept: " + opts.Format.Accept())
		if bodies[i] != nil {
			lw.line("Content-Type: " + odata.ContentTypeJSON)
		}
		if op.Kind == KindInsert {
			lw.line(odata.HeaderPrefer + ": " + preferValue(op.EchoContent))
		}
		lw.line(odata.HeaderDataServiceVersion + ": " + odata.DataServiceVersion)
		if operationSendsIfMatch[op.Kind] {
			lw.line("If-Match: " + ifMatchValue(op.Entity))
		}
		lw.line("")
		if bodies[i] != nil {
			lw.raw(bodies[i])
			lw.line("")
		}
	}

	if !isQuery {
		lw.line("--" + changesetBoundary + "--")
	}
	lw.line("--" + batchBoundary + "--")

	if lw.err != nil {
		return "", fmt.Errorf("table: write batch body: %w", lw.err)
	}
	return "multipart/mixed; boundary=" + batchBoundary, nil
}

// BuildBatchRequest encodes the batch and wraps it in the unsigned
// POST $batch request.
func (b *Builder) BuildBatchRequest(ctx context.Context, batch Batch, opts RequestOptions) (*http.Request, error) {
	var body bytes.Buffer
	contentType, err := b.EncodeBatch(&body, batch, opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/$batch", bytes.NewReader(body.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("table: batch request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", opts.Format.Accept())
	req.Header.Set(odata.HeaderAcceptCharset, odata.AcceptCharset)
	req.Header[odata.HeaderMaxDataServiceVersion] = []string{odata.MaxDataServiceVersion}
	req.Header[odata.HeaderDataServiceVersion] = []string{odata.DataServiceVersion}
	return req, nil
}

// lineWriter writes CRLF-terminated lines with a sticky error, so the
// encoding loop reads as framing rather than error plumbing.
type lineWriter struct {
	w   io.Writer
	err error
}

func (lw *lineWriter) line(s string) {
	if lw.err != nil {
		return
	}
	if s != "" {
		if _, lw.err = io.WriteString(lw.w, s); lw.err != nil {
			return
		}
	}
	_, lw.err = io.WriteString(lw.w, "\r\n")
}

func (lw *lineWriter) raw(b []byte) {
	if lw.err != nil {
		return
	}
	_, lw.err = lw.w.Write(b)
}
