// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package odata

// ServiceVersion is the table service REST version this library
// speaks, sent as x-ms-version on every request. Canonicalization
// rules and response shapes are defined against this version.
const ServiceVersion = "2015-12-11"

// OData protocol versions. DataServiceVersion declares the version of
// the request payload; MaxDataServiceVersion caps what the service may
// use in the response. Both values are byte-exact parts of the wire
// contract, trailing semicolon and NetFx tag included.
const (
	DataServiceVersion    = "3.0;"
	MaxDataServiceVersion = "3.0;NetFx"
)

// Request header names. The x-ms-* headers participate in request
// signing; X-HTTP-Method tunnels MERGE through proxies that only pass
// the classic verbs. The two DataServiceVersion names are published
// in camel case and must be written to the header map directly:
// http.Header.Set would fold them to "Dataserviceversion".
const (
	HeaderDate                  = "x-ms-date"
	HeaderVersion               = "x-ms-version"
	HeaderClientRequestID       = "x-ms-client-request-id"
	HeaderHTTPMethod            = "X-HTTP-Method"
	HeaderPrefer                = "Prefer"
	HeaderAcceptCharset         = "Accept-Charset"
	HeaderDataServiceVersion    = "DataServiceVersion"
	HeaderMaxDataServiceVersion = "MaxDataServiceVersion"
)

// AcceptCharset is the only charset the service accepts.
const AcceptCharset = "UTF-8"

// ContentTypeJSON is the content type of every entity request body.
const ContentTypeJSON = "application/json"

// Prefer header values controlling whether an insert echoes the
// entity back in the response.
const (
	PreferReturnNoContent = "return-no-content"
	PreferReturnContent   = "return-content"
)

// Reserved property names. PartitionKey and RowKey address the
// entity; Timestamp is service-owned and never written by clients.
const (
	PropertyPartitionKey = "PartitionKey"
	PropertyRowKey       = "RowKey"
	PropertyTimestamp    = "Timestamp"
)

// Encryption metadata property names. An entity with client-side
// encrypted properties carries these two alongside its data: the
// first holds the wrapped content key and agent description, the
// second the sealed list of encrypted property names.
const (
	PropertyEncryptionMetadata1 = "_ClientEncryptionMetadata1"
	PropertyEncryptionMetadata2 = "_ClientEncryptionMetadata2"
)

// PayloadFormat selects how much OData type metadata the service
// includes in responses. The zero value is minimal metadata, the
// service default this library assumes.
type PayloadFormat int

const (
	// FormatMinimalMetadata omits per-property type annotations
	// except where JSON cannot express the type.
	FormatMinimalMetadata PayloadFormat = iota

	// FormatNoMetadata strips all OData annotations from responses.
	FormatNoMetadata

	// FormatFullMetadata annotates every non-string property.
	FormatFullMetadata
)

// Accept returns the Accept header value requesting this format.
func (f PayloadFormat) Accept() string {
	switch f {
	case FormatNoMetadata:
		return "application/json;odata=nometadata"
	case FormatFullMetadata:
		return "application/json;odata=fullmetadata"
	default:
		return "application/json;odata=minimalmetadata"
	}
}

// String returns the odata= token naming the format.
func (f PayloadFormat) String() string {
	switch f {
	case FormatNoMetadata:
		return "nometadata"
	case FormatFullMetadata:
		return "fullmetadata"
	default:
		return "minimalmetadata"
	}
}
