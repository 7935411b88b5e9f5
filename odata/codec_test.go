// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package odata

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEncodeValue(t *testing.T) {
	cases := []struct {
		name           string
		property       Property
		wantValue      string
		wantAnnotation string
	}{
		{"string", String("hello"), `"hello"`, ""},
		{"string_escaped", String(`say "hi"`), `"say \"hi\""`, ""},
		{"bool", Bool(true), `true`, ""},
		{"int32", Int32(-7), `-7`, ""},
		{"double_fractional", Double(200.23), `200.23`, ""},
		{"double_integral", Double(205), `205.0`, ""},
		{"double_nan", Double(math.NaN()), `"NaN"`, "Edm.Double"},
		{"double_infinity", Double(math.Inf(1)), `"Infinity"`, "Edm.Double"},
		{"int64", Int64(9007199254740993), `"9007199254740993"`, "Edm.Int64"},
		{"binary", Binary([]byte{1, 2}), `"AQI="`, "Edm.Binary"},
		{"datetime", DateTime(time.Date(2021, 3, 1, 12, 34, 56, 789000000, time.UTC)),
			`"2021-03-01T12:34:56.7890000Z"`, "Edm.DateTime"},
		{"guid", GUID(uuid.MustParse("c9da6455-213d-42c9-9a79-3e9149a57833")),
			`"c9da6455-213d-42c9-9a79-3e9149a57833"`, "Edm.Guid"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			value, annotation, err := encodeValue("p", tc.property)
			if err != nil {
				t.Fatalf("encodeValue failed: %v", err)
			}
			if string(value) != tc.wantValue {
				t.Errorf("value = %s, want %s", value, tc.wantValue)
			}
			if annotation != tc.wantAnnotation {
				t.Errorf("annotation = %q, want %q", annotation, tc.wantAnnotation)
			}
		})
	}
}

func TestEncodeValue_TypeMismatch(t *testing.T) {
	if _, _, err := encodeValue("p", Property{Type: EdmInt32, Value: "42"}); err == nil {
		t.Fatal("expected error for mismatched value type")
	}
	if _, _, err := encodeValue("p", Property{Type: "Edm.Decimal", Value: 1}); err == nil {
		t.Fatal("expected error for unknown Edm type")
	}
}

func TestParseValue_RoundTrip(t *testing.T) {
	properties := map[string]Property{
		"string":   String("hello"),
		"bool":     Bool(false),
		"int32":    Int32(42),
		"double":   Double(200.23),
		"infinity": Double(math.Inf(-1)),
		"int64":    Int64(-9007199254740993),
		"binary":   Binary([]byte{0, 255, 7}),
		"datetime": DateTime(time.Date(2021, 3, 1, 12, 34, 56, 789123400, time.UTC)),
		"guid":     GUID(uuid.MustParse("c9da6455-213d-42c9-9a79-3e9149a57833")),
	}

	for name, property := range properties {
		t.Run(name, func(t *testing.T) {
			value, annotation, err := encodeValue(name, property)
			if err != nil {
				t.Fatalf("encodeValue failed: %v", err)
			}
			got, err := ParseValue(value, annotation)
			if err != nil {
				t.Fatalf("ParseValue failed: %v", err)
			}
			if got.Type != property.Type {
				t.Fatalf("round-trip type = %s, want %s", got.Type, property.Type)
			}
			switch want := property.Value.(type) {
			case time.Time:
				if !got.Value.(time.Time).Equal(want) {
					t.Errorf("round-trip time = %v, want %v", got.Value, want)
				}
			case []byte:
				if !bytes.Equal(got.Value.([]byte), want) {
					t.Errorf("round-trip bytes = %v, want %v", got.Value, want)
				}
			default:
				if got.Value != property.Value {
					t.Errorf("round-trip value = %v, want %v", got.Value, property.Value)
				}
			}
		})
	}
}

func TestParseValue_Unannotated(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		wantType EdmType
	}{
		{"string", `"x"`, EdmString},
		{"bool", `true`, EdmBoolean},
		{"integer", `42`, EdmInt32},
		{"fraction", `4.5`, EdmDouble},
		{"exponent", `1e3`, EdmDouble},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseValue([]byte(tc.raw), "")
			if err != nil {
				t.Fatalf("ParseValue(%s) failed: %v", tc.raw, err)
			}
			if got.Type != tc.wantType {
				t.Errorf("type = %s, want %s", got.Type, tc.wantType)
			}
		})
	}

	t.Run("integer_overflow", func(t *testing.T) {
		if _, err := ParseValue([]byte(`3000000000`), ""); err == nil {
			t.Fatal("expected overflow error for integer beyond Int32")
		}
	})
}

func TestParseValue_Null(t *testing.T) {
	got, err := ParseValue([]byte(`null`), "Edm.Binary")
	if err != nil {
		t.Fatalf("ParseValue failed: %v", err)
	}
	if !got.IsNull() || got.Type != EdmBinary {
		t.Errorf("got %+v, want null Edm.Binary", got)
	}
}

func TestParseValue_Errors(t *testing.T) {
	cases := []struct {
		name       string
		raw        string
		annotation string
	}{
		{"unknown_annotation", `"x"`, "Edm.Decimal"},
		{"bad_base64", `"!!"`, "Edm.Binary"},
		{"bad_datetime", `"yesterday"`, "Edm.DateTime"},
		{"bad_guid", `"abc"`, "Edm.Guid"},
		{"bad_int64", `"1.5"`, "Edm.Int64"},
		{"annotated_wrong_kind", `42`, "Edm.String"},
		{"not_scalar", `[1]`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseValue([]byte(tc.raw), tc.annotation); err == nil {
				t.Fatalf("ParseValue(%s, %q): expected error", tc.raw, tc.annotation)
			}
		})
	}
}
