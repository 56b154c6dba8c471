package models

import (
	"encoding/json"
	"math"
)

// NormalizeValue converts a decoded example or synthesized value into the form shared by
// parsed documents, generated test cases and imported test cases: whole numbers that fit
// are int64, other numbers float64, objects map[string]any and arrays []any.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return normalizeFloat(f)
		}
		return t.String()
	case float64:
		return normalizeFloat(t)
	case float32:
		return normalizeFloat(float64(t))
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return normalizeUint(uint64(t))
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return normalizeUint(t)
	case map[string]any:
		for k, val := range t {
			t[k] = NormalizeValue(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[stringKey(k)] = NormalizeValue(val)
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = NormalizeValue(val)
		}
		return t
	default:
		return v
	}
}

func normalizeFloat(f float64) any {
	// 2^63 is the first float64 that no longer fits an int64
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

func normalizeUint(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

func stringKey(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	data, err := json.Marshal(NormalizeValue(k))
	if err != nil {
		return ""
	}
	return string(data)
}

// NormalizeValues rewrites every free-form value of the schema tree in place
func (s *Schema) NormalizeValues() {
	if s == nil {
		return
	}
	for i, v := range s.Enum {
		s.Enum[i] = NormalizeValue(v)
	}
	s.Example = NormalizeValue(s.Example)
	s.Default = NormalizeValue(s.Default)
	s.Items.NormalizeValues()
	for _, p := range s.Properties {
		p.NormalizeValues()
	}
}

// NormalizeValues rewrites the examples, body and schemas of a test case in place
func (tc *TestCase) NormalizeValues() {
	for _, values := range tc.Params {
		for name, v := range values {
			v.Example = NormalizeValue(v.Example)
			v.Schema.NormalizeValues()
			values[name] = v
		}
	}
	if tc.RequestBody != nil {
		tc.RequestBody.Example = NormalizeValue(tc.RequestBody.Example)
		tc.RequestBody.Schema.NormalizeValues()
	}
	tc.Body = NormalizeValue(tc.Body)
	tc.ExpectedResponse.NormalizeValues()
}
