// Package value defines the scalar union used for element attributes and
// property-set values.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Kind enumerates the variants of Value.
type Kind uint8

// Value kinds.
const (
	Null Kind = iota
	String
	Number
	Boolean
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	default:
		return "null"
	}
}

// Value is a tagged union of String | Number | Boolean | Null.
// The zero Value is Null.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
}

// Unwrapper is implemented by tagged containers coming from a model parser
// (e.g. IFCLABEL('x')). Normalize unwraps them down to the plain scalar.
type Unwrapper interface {
	Unwrap() any
}

// Str creates a String value.
func Str(s string) Value { return Value{kind: String, s: s} }

// Num creates a Number value.
func Num(n float64) Value { return Value{kind: Number, n: n} }

// Bool creates a Boolean value.
func Bool(b bool) Value { return Value{kind: Boolean, b: b} }

// NullValue returns the Null value.
func NullValue() Value { return Value{} }

// Normalize converts a raw value from a parsing collaborator into a Value.
// This is the only place that inspects the dynamic shape of raw data.
func Normalize(raw any) Value {
	for depth := 0; depth < 8; depth++ {
		u, ok := raw.(Unwrapper)
		if !ok {
			break
		}
		raw = u.Unwrap()
	}

	switch v := raw.(type) {
	case nil:
		return Value{}
	case Value:
		return v
	case string:
		return Str(v)
	case bool:
		return Bool(v)
	case float64:
		return Num(v)
	case float32:
		return Num(float64(v))
	case int:
		return Num(float64(v))
	case int8:
		return Num(float64(v))
	case int16:
		return Num(float64(v))
	case int32:
		return Num(float64(v))
	case int64:
		return Num(float64(v))
	case uint:
		return Num(float64(v))
	case uint8:
		return Num(float64(v))
	case uint16:
		return Num(float64(v))
	case uint32:
		return Num(float64(v))
	case uint64:
		return Num(float64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return Num(f)
		}
		return Str(v.String())
	case fmt.Stringer:
		return Str(v.String())
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Value{}
		}
		return Normalize(rv.Elem().Interface())
	}
	return Str(fmt.Sprint(raw))
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == Null }

// Raw returns the plain Go value: nil, string, float64 or bool.
func (v Value) Raw() any {
	switch v.kind {
	case String:
		return v.s
	case Number:
		return v.n
	case Boolean:
		return v.b
	default:
		return nil
	}
}

// String returns the display form: "" for Null, shortest decimal for
// numbers, "true"/"false" for booleans.
func (v Value) String() string {
	switch v.kind {
	case String:
		return v.s
	case Number:
		return formatNumber(v.n)
	case Boolean:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Lower returns the lower-cased display form.
func (v Value) Lower() string { return strings.ToLower(v.String()) }

// Float coerces v to a number. Null, empty or non-numeric strings and NaN
// are not numbers.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case Number:
		if math.IsNaN(v.n) {
			return 0, false
		}
		return v.n, true
	case Boolean:
		if v.b {
			return 1, true
		}
		return 0, true
	case String:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.s == o.s && v.b == o.b &&
		(v.n == o.n || (math.IsNaN(v.n) && math.IsNaN(o.n)))
}

// MarshalJSON encodes the plain scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == Number && (math.IsInf(v.n, 0) || math.IsNaN(v.n)) {
		return json.Marshal(formatNumber(v.n))
	}
	return json.Marshal(v.Raw())
}

// UnmarshalJSON decodes a JSON scalar. Arrays and objects are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	switch raw.(type) {
	case []any, map[string]any:
		return fmt.Errorf("value must be a scalar, got %s", data)
	}
	*v = Normalize(raw)
	return nil
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		// exponent without padding: 1e-7, 1.5e+300
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if i := strings.IndexByte(s, 'e'); i >= 0 && i+2 < len(s) {
			s = s[:i+2] + strings.TrimLeft(s[i+2:], "0")
		}
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
