// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package table

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/trestle-storage/trestle/odata"
)

const testEndpoint = "https://devstore.table.example.net"

func mustBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(testEndpoint)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

// taskEntity is the canonical test entity: keys P1/R1 and a single
// Int32 property.
func taskEntity() *odata.Entity {
	entity := odata.NewEntity("P1", "R1")
	entity.Properties["Count"] = odata.Int32(42)
	return entity
}

// stubEncryptor counts invocations and passes properties through.
type stubEncryptor struct{ calls int }

func (e *stubEncryptor) Encrypt(properties map[string]odata.Property, partitionKey, rowKey string, resolve odata.KeyResolver) (map[string]odata.Property, error) {
	e.calls++
	return properties, nil
}

func TestNewBuilder(t *testing.T) {
	t.Run("trims_trailing_slash", func(t *testing.T) {
		b, err := NewBuilder(testEndpoint + "/")
		if err != nil {
			t.Fatalf("NewBuilder: %v", err)
		}
		if b.Endpoint() != testEndpoint {
			t.Errorf("Endpoint = %q, want %q", b.Endpoint(), testEndpoint)
		}
	})

	t.Run("rejects_bad_endpoints", func(t *testing.T) {
		for _, endpoint := range []string{
			"ftp://devstore.table.example.net",
			"devstore.table.example.net",
			"https://",
			testEndpoint + "?timeout=20",
			testEndpoint + "#frag",
		} {
			if _, err := NewBuilder(endpoint); err == nil {
				t.Errorf("NewBuilder(%q) accepted", endpoint)
			}
		}
	})
}

func TestBuildInsert(t *testing.T) {
	b := mustBuilder(t)
	op, err := Insert("Tasks", taskEntity(), false)
	if err != nil {
		t.Fatal(err)
	}
	req, err := b.Build(context.Background(), op, RequestOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if req.Method != http.MethodPost {
		t.Errorf("method = %q, want POST", req.Method)
	}
	if got, want := req.URL.String(), testEndpoint+"/Tasks"; got != want {
		t.Errorf("url = %q, want %q", got, want)
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatal(err)
	}
	wantBody := `{"PartitionKey":"P1","RowKey":"R1","Count":42}`
	if string(body) != wantBody {
		t.Errorf("body = %s, want %s", body, wantBody)
	}
	if req.ContentLength != int64(len(wantBody)) {
		t.Errorf("ContentLength = %d, want %d", req.ContentLength, len(wantBody))
	}

	if got := req.Header.Get("Accept"); got != "application/json;odata=minimalmetadata" {
		t.Errorf("Accept = %q", got)
	}
	if got := req.Header.Get(odata.HeaderAcceptCharset); got != odata.AcceptCharset {
		t.Errorf("Accept-Charset = %q", got)
	}
	if got := req.Header.Get("Content-Type"); got != odata.ContentTypeJSON {
		t.Errorf("Content-Type = %q", got)
	}
	if got := req.Header.Get(odata.HeaderPrefer); got != odata.PreferReturnNoContent {
		t.Errorf("Prefer = %q", got)
	}
	if _, ok := req.Header["If-Match"]; ok {
		t.Error("insert must not carry If-Match")
	}

	// The version headers keep their published camel case, so they
	// must live under the uncanonicalized map keys.
	if got := req.Header[odata.HeaderMaxDataServiceVersion]; len(got) != 1 || got[0] != odata.MaxDataServiceVersion {
		t.Errorf("MaxDataServiceVersion = %v, want [%q]", got, odata.MaxDataServiceVersion)
	}
	if got := req.Header[odata.HeaderDataServiceVersion]; len(got) != 1 || got[0] != odata.DataServiceVersion {
		t.Errorf("DataServiceVersion = %v, want [%q]", got, odata.DataServiceVersion)
	}
	if _, ok := req.Header["Maxdataserviceversion"]; ok {
		t.Error("MaxDataServiceVersion was stored under the folded key")
	}
}

func TestBuildInsertEcho(t *testing.T) {
	b := mustBuilder(t)
	op, err := Insert("Tasks", taskEntity(), true)
	if err != nil {
		t.Fatal(err)
	}
	req, err := b.Build(context.Background(), op, RequestOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := req.Header.Get(odata.HeaderPrefer); got != odata.PreferReturnContent {
		t.Errorf("Prefer = %q, want %q", got, odata.PreferReturnContent)
	}
}

func TestBuildDelete(t *testing.T) {
	b := mustBuilder(t)

	t.Run("unconditional", func(t *testing.T) {
		op, err := Delete("Tasks", taskEntity())
		if err != nil {
			t.Fatal(err)
		}
		req, err := b.Build(context.Background(), op, RequestOptions{})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if req.Method != http.MethodDelete {
			t.Errorf("method = %q, want DELETE", req.Method)
		}
		if got, want := req.URL.String(), testEndpoint+"/Tasks(PartitionKey='P1',RowKey='R1')"; got != want {
			t.Errorf("url = %q, want %q", got, want)
		}
		if req.Body != nil {
			t.Error("delete must not carry a body")
		}
		if got := req.Header.Get("Content-Type"); got != "" {
			t.Errorf("Content-Type = %q on a bodyless request", got)
		}
		if got := req.Header.Get("If-Match"); got != "*" {
			t.Errorf("If-Match = %q, want *", got)
		}
	})

	t.Run("etag_guarded", func(t *testing.T) {
		entity := taskEntity()
		entity.ETag = `W/"datetime'2021-03-01T12%3A34%3A56.7890000Z'"`
		op, err := Delete("Tasks", entity)
		if err != nil {
			t.Fatal(err)
		}
		req, err := b.Build(context.Background(), op, RequestOptions{})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if got := req.Header.Get("If-Match"); got != entity.ETag {
			t.Errorf("If-Match = %q, want %q", got, entity.ETag)
		}
	})
}

func TestBuildMergeTunneled(t *testing.T) {
	b := mustBuilder(t)
	op, err := Merge("Tasks", taskEntity())
	if err != nil {
		t.Fatal(err)
	}
	req, err := b.Build(context.Background(), op, RequestOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.Method != http.MethodPost {
		t.Errorf("method = %q, want tunneled POST", req.Method)
	}
	if got := req.Header[odata.HeaderHTTPMethod]; len(got) != 1 || got[0] != MethodMerge {
		t.Errorf("X-HTTP-Method = %v, want [MERGE]", got)
	}
	if got := req.Header.Get("If-Match"); got != "*" {
		t.Errorf("If-Match = %q, want *", got)
	}
	if req.Body == nil {
		t.Error("merge must carry a body")
	}
}

func TestBuildInsertOrMerge(t *testing.T) {
	b := mustBuilder(t)
	op, err := InsertOrMerge("Tasks", taskEntity())
	if err != nil {
		t.Fatal(err)
	}
	req, err := b.Build(context.Background(), op, RequestOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.Method != http.MethodPost {
		t.Errorf("method = %q, want tunneled POST", req.Method)
	}
	if got := req.Header[odata.HeaderHTTPMethod]; len(got) != 1 || got[0] != MethodMerge {
		t.Errorf("X-HTTP-Method = %v, want [MERGE]", got)
	}
	if _, ok := req.Header["If-Match"]; ok {
		t.Error("insert-or-merge is unconditional, If-Match must be absent")
	}
}

func TestBuildReplaceFamily(t *testing.T) {
	b := mustBuilder(t)

	t.Run("replace_sends_if_match", func(t *testing.T) {
		op, err := Replace("Tasks", taskEntity())
		if err != nil {
			t.Fatal(err)
		}
		req, err := b.Build(context.Background(), op, RequestOptions{})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if req.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", req.Method)
		}
		if got := req.Header.Get("If-Match"); got != "*" {
			t.Errorf("If-Match = %q, want *", got)
		}
		// The URI names the entity; the body carries properties only.
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatal(err)
		}
		if got, want := string(body), `{"Count":42}`; got != want {
			t.Errorf("body = %s, want %s", got, want)
		}
	})

	t.Run("insert_or_replace_unconditional", func(t *testing.T) {
		op, err := InsertOrReplace("Tasks", taskEntity())
		if err != nil {
			t.Fatal(err)
		}
		req, err := b.Build(context.Background(), op, RequestOptions{})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if req.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", req.Method)
		}
		if _, ok := req.Header["If-Match"]; ok {
			t.Error("insert-or-replace is unconditional, If-Match must be absent")
		}
	})
}

func TestBuildRetrieve(t *testing.T) {
	b := mustBuilder(t)
	op, err := Retrieve("Tasks", "p q", "r")
	if err != nil {
		t.Fatal(err)
	}
	req, err := b.Build(context.Background(), op, RequestOptions{Format: odata.FormatFullMetadata})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.Method != http.MethodGet {
		t.Errorf("method = %q, want GET", req.Method)
	}
	// The escaped key survives parsing; the request line carries the
	// same bytes the signature will see.
	if got, want := req.URL.String(), testEndpoint+"/Tasks(PartitionKey='p%20q',RowKey='r')"; got != want {
		t.Errorf("url = %q, want %q", got, want)
	}
	if req.Body != nil {
		t.Error("retrieve must not carry a body")
	}
	if got := req.Header.Get("Accept"); got != "application/json;odata=fullmetadata" {
		t.Errorf("Accept = %q", got)
	}
}

func TestBuildQuotedAddress(t *testing.T) {
	b := mustBuilder(t)
	op, err := Retrieve("Tasks", "o'brien", "r")
	if err != nil {
		t.Fatal(err)
	}
	req, err := b.Build(context.Background(), op, RequestOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := testEndpoint + "/Tasks(PartitionKey='o''brien',RowKey='r')"
	if got := req.URL.String(); got != want {
		t.Errorf("url = %q, want %q", got, want)
	}
}

func TestBuildEncryptor(t *testing.T) {
	b := mustBuilder(t)

	t.Run("applied_on_insert", func(t *testing.T) {
		enc := &stubEncryptor{}
		op, err := Insert("Tasks", taskEntity(), false)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := b.Build(context.Background(), op, RequestOptions{Encryptor: enc}); err != nil {
			t.Fatalf("Build: %v", err)
		}
		if enc.calls != 1 {
			t.Errorf("encryptor calls = %d, want 1", enc.calls)
		}
	})

	t.Run("rejected_on_merge_family", func(t *testing.T) {
		entity := taskEntity()
		entity.Properties[odata.PropertyEncryptionMetadata1] = odata.String("{}")
		rotate, err := RotateEncryptionKey("Tasks", entity)
		if err != nil {
			t.Fatal(err)
		}
		merge, err := Merge("Tasks", taskEntity())
		if err != nil {
			t.Fatal(err)
		}
		insertOrMerge, err := InsertOrMerge("Tasks", taskEntity())
		if err != nil {
			t.Fatal(err)
		}
		for _, op := range []Operation{merge, insertOrMerge, rotate} {
			enc := &stubEncryptor{}
			_, err := b.Build(context.Background(), op, RequestOptions{Encryptor: enc})
			if !errors.Is(err, odata.ErrEncryptedMerge) {
				t.Errorf("%s: err = %v, want ErrEncryptedMerge", op.Kind, err)
			}
			if enc.calls != 0 {
				t.Errorf("%s: encryptor ran %d times before the rejection", op.Kind, enc.calls)
			}
		}
	})
}

func TestBuildUnknownKind(t *testing.T) {
	b := mustBuilder(t)
	op := Operation{Kind: OperationKind("bogus"), Table: "Tasks", Entity: taskEntity()}
	if _, err := b.Build(context.Background(), op, RequestOptions{}); err == nil {
		t.Fatal("Build accepted an unknown operation kind")
	}
}

func TestBuildNilEntity(t *testing.T) {
	b := mustBuilder(t)
	// A hand-assembled operation skips the constructors' checks; Build
	// must refuse it rather than dereference the entity.
	op := Operation{Kind: KindDelete, Table: "Tasks"}
	if _, err := b.Build(context.Background(), op, RequestOptions{}); err == nil {
		t.Fatal("Build accepted an operation with no entity")
	}
}
