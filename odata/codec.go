// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package odata

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// dateTimeWireFormat is the .NET round-trip ("o") rendering of a UTC
// instant: seven fractional digits, always present, Z suffix. The
// service echoes timestamps in this shape.
const dateTimeWireFormat = "2006-01-02T15:04:05.0000000Z07:00"

// quoteJSON renders s as a JSON string.
func quoteJSON(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// encodeValue renders a property value in wire form and names the
// @odata.type annotation it needs, if any. String, boolean, Int32,
// and finite Double values are implied by their JSON rendering and
// need no annotation; Binary, DateTime, Guid, Int64, and the
// non-finite Double values ride as annotated strings.
func encodeValue(name string, p Property) (json.RawMessage, string, error) {
	switch p.Type {
	case EdmString:
		v, ok := p.Value.(string)
		if !ok {
			return nil, "", typeMismatch(name, p)
		}
		return quoteJSON(v), "", nil

	case EdmBoolean:
		v, ok := p.Value.(bool)
		if !ok {
			return nil, "", typeMismatch(name, p)
		}
		return strconv.AppendBool(nil, v), "", nil

	case EdmInt32:
		v, ok := p.Value.(int32)
		if !ok {
			return nil, "", typeMismatch(name, p)
		}
		return strconv.AppendInt(nil, int64(v), 10), "", nil

	case EdmDouble:
		v, ok := p.Value.(float64)
		if !ok {
			return nil, "", typeMismatch(name, p)
		}
		switch {
		case math.IsNaN(v):
			return quoteJSON("NaN"), string(EdmDouble), nil
		case math.IsInf(v, 1):
			return quoteJSON("Infinity"), string(EdmDouble), nil
		case math.IsInf(v, -1):
			return quoteJSON("-Infinity"), string(EdmDouble), nil
		}
		b := strconv.AppendFloat(nil, v, 'g', -1, 64)
		// An integral double must keep a decimal point, or the
		// service would store it as Int32.
		if !bytes.ContainsAny(b, ".eE") {
			b = append(b, '.', '0')
		}
		return b, "", nil

	case EdmInt64:
		v, ok := p.Value.(int64)
		if !ok {
			return nil, "", typeMismatch(name, p)
		}
		return quoteJSON(strconv.FormatInt(v, 10)), string(EdmInt64), nil

	case EdmBinary:
		v, ok := p.Value.([]byte)
		if !ok {
			return nil, "", typeMismatch(name, p)
		}
		return quoteJSON(base64.StdEncoding.EncodeToString(v)), string(EdmBinary), nil

	case EdmDateTime:
		v, ok := p.Value.(time.Time)
		if !ok {
			return nil, "", typeMismatch(name, p)
		}
		return quoteJSON(v.UTC().Format(dateTimeWireFormat)), string(EdmDateTime), nil

	case EdmGUID:
		v, ok := p.Value.(uuid.UUID)
		if !ok {
			return nil, "", typeMismatch(name, p)
		}
		return quoteJSON(v.String()), string(EdmGUID), nil
	}
	return nil, "", fmt.Errorf("odata: property %q: unknown type %q", name, p.Type)
}

func typeMismatch(name string, p Property) error {
	return fmt.Errorf("odata: property %q: value %T does not match %s", name, p.Value, p.Type)
}

// ParseValue converts a wire value and its optional @odata.type
// annotation back into a typed property. An empty annotation means
// the type is implied by the JSON value: string, boolean, or number
// (integral numbers are Edm.Int32, numbers with a fraction or
// exponent are Edm.Double). A JSON null becomes a null property of
// the annotated type.
func ParseValue(raw json.RawMessage, annotation string) (Property, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return Property{}, fmt.Errorf("odata: decode value: %w", err)
	}

	if value == nil {
		if annotation == "" {
			return Null(EdmString), nil
		}
		return Null(EdmType(annotation)), nil
	}

	switch annotation {
	case "":
		return parseUnannotated(value)

	case string(EdmString):
		v, err := wireString(value, annotation)
		if err != nil {
			return Property{}, err
		}
		return String(v), nil

	case string(EdmBoolean):
		v, ok := value.(bool)
		if !ok {
			return Property{}, annotatedMismatch(value, annotation)
		}
		return Bool(v), nil

	case string(EdmInt32):
		n, ok := value.(json.Number)
		if !ok {
			return Property{}, annotatedMismatch(value, annotation)
		}
		return parseInt32(n)

	case string(EdmDouble):
		return parseDouble(value)

	case string(EdmInt64):
		v, err := wireString(value, annotation)
		if err != nil {
			return Property{}, err
		}
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Property{}, fmt.Errorf("odata: parse Edm.Int64 %q: %w", v, err)
		}
		return Int64(i), nil

	case string(EdmBinary):
		v, err := wireString(value, annotation)
		if err != nil {
			return Property{}, err
		}
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return Property{}, fmt.Errorf("odata: parse Edm.Binary: %w", err)
		}
		return Binary(b), nil

	case string(EdmDateTime):
		v, err := wireString(value, annotation)
		if err != nil {
			return Property{}, err
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return Property{}, fmt.Errorf("odata: parse Edm.DateTime %q: %w", v, err)
		}
		return DateTime(t.UTC()), nil

	case string(EdmGUID):
		v, err := wireString(value, annotation)
		if err != nil {
			return Property{}, err
		}
		u, err := uuid.Parse(v)
		if err != nil {
			return Property{}, fmt.Errorf("odata: parse Edm.Guid %q: %w", v, err)
		}
		return GUID(u), nil
	}
	return Property{}, fmt.Errorf("odata: unknown type annotation %q", annotation)
}

// parseUnannotated types a bare JSON value.
func parseUnannotated(value any) (Property, error) {
	switch v := value.(type) {
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case json.Number:
		if strings.ContainsAny(v.String(), ".eE") {
			return parseDouble(v)
		}
		return parseInt32(v)
	}
	return Property{}, fmt.Errorf("odata: value %T is not a scalar", value)
}

func parseInt32(n json.Number) (Property, error) {
	i, err := strconv.ParseInt(n.String(), 10, 32)
	if err != nil {
		return Property{}, fmt.Errorf("odata: integer %s does not fit Edm.Int32 (64-bit values carry an Edm.Int64 annotation): %w", n, err)
	}
	return Int32(int32(i)), nil
}

// parseDouble accepts a JSON number or the three non-finite values
// the wire spells as strings.
func parseDouble(value any) (Property, error) {
	switch v := value.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return Property{}, fmt.Errorf("odata: parse Edm.Double %q: %w", v, err)
		}
		return Double(f), nil
	case string:
		switch v {
		case "NaN":
			return Double(math.NaN()), nil
		case "Infinity":
			return Double(math.Inf(1)), nil
		case "-Infinity":
			return Double(math.Inf(-1)), nil
		}
		return Property{}, fmt.Errorf("odata: parse Edm.Double: %q is not a number", v)
	}
	return Property{}, annotatedMismatch(value, string(EdmDouble))
}

func wireString(value any, annotation string) (string, error) {
	v, ok := value.(string)
	if !ok {
		return "", annotatedMismatch(value, annotation)
	}
	return v, nil
}

func annotatedMismatch(value any, annotation string) error {
	return fmt.Errorf("odata: value %T does not match annotation %s", value, annotation)
}
