package models

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int", 20, int64(20)},
		{"uint8", uint8(7), int64(7)},
		{"whole float", float64(3), int64(3)},
		{"fraction", 2.5, 2.5},
		{"float beyond int64", 1e20, 1e20},
		{"large uint", uint64(math.MaxUint64), float64(math.MaxUint64)},
		{"json integer", json.Number("95"), int64(95)},
		{"json fraction", json.Number("0.25"), 0.25},
		{"json exponent", json.Number("1e3"), int64(1000)},
		{"string", "20", "20"},
		{"nil", nil, nil},
		{"nested", map[string]any{"a": []any{1, 1.5}}, map[string]any{"a": []any{int64(1), 1.5}}},
		{"yaml map keys", map[any]any{1: "x", "b": 2}, map[string]any{"1": "x", "b": int64(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeValue(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeValue(%#v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTestCaseNormalizeValues(t *testing.T) {
	params := NewParams()
	params[LocationPath]["petId"] = ParamValue{Example: json.Number("7"), Schema: &Schema{Type: "integer", Enum: []any{json.Number("7")}}}
	tc := TestCase{
		Params:           params,
		RequestBody:      &BodyTemplate{Example: map[string]any{"id": json.Number("1")}},
		Body:             map[string]any{"id": json.Number("1")},
		ExpectedResponse: &Schema{Type: "array", Items: &Schema{Default: json.Number("0.5")}},
	}

	tc.NormalizeValues()

	if got := tc.Params[LocationPath]["petId"].Example; got != int64(7) {
		t.Errorf("Expected int64 example, got %#v", got)
	}
	if got := tc.Params[LocationPath]["petId"].Schema.Enum[0]; got != int64(7) {
		t.Errorf("Expected int64 enum, got %#v", got)
	}
	if got := tc.Body.(map[string]any)["id"]; got != int64(1) {
		t.Errorf("Expected int64 body value, got %#v", got)
	}
	if got := tc.RequestBody.Example.(map[string]any)["id"]; got != int64(1) {
		t.Errorf("Expected int64 body example, got %#v", got)
	}
	if got := tc.ExpectedResponse.Items.Default; got != 0.5 {
		t.Errorf("Expected float default, got %#v", got)
	}
}
