package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/bimquery/internal/domain/value"
)

type specJSON struct {
	Classes    []string        `json:"classes"`
	Conditions []conditionJSON `json:"conditions"`
	Limit      json.RawMessage `json:"limit,omitempty"`
}

type conditionJSON struct {
	Field *string         `json:"field"`
	Op    *string         `json:"op"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Decode parses a JSON filter specification. Unknown classes, fields and
// operators are accepted here and degrade during evaluation; only structural
// problems are errors.
func Decode(data []byte) (Spec, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Spec{}, fmt.Errorf("%w: expected a JSON object", ErrMalformedSpec)
	}

	var raw specJSON
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Spec{}, fmt.Errorf("%w: %w", ErrMalformedSpec, err)
	}
	if len(raw.Conditions) > MaxConditions {
		return Spec{}, fmt.Errorf("%w: too many conditions (max %d)", ErrMalformedSpec, MaxConditions)
	}

	spec := Spec{Classes: raw.Classes, Limit: decodeLimit(raw.Limit)}

	spec.Conditions = make([]Condition, 0, len(raw.Conditions))
	for i, rc := range raw.Conditions {
		if rc.Field == nil || rc.Op == nil {
			return Spec{}, fmt.Errorf("%w: condition %d requires field and op", ErrMalformedSpec, i)
		}
		operand, err := decodeOperand(rc.Value)
		if err != nil {
			return Spec{}, fmt.Errorf("%w: condition %d: %w", ErrMalformedSpec, i, err)
		}
		c, err := NewCondition(*rc.Field, Op(*rc.Op), operand)
		if err != nil {
			return Spec{}, err
		}
		spec.Conditions = append(spec.Conditions, c)
	}
	return spec, nil
}

// decodeLimit reads a JSON number or numeric string. Anything else, and any
// non-positive value, means no limit. Fractions round up.
func decodeLimit(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0
	}
	n, ok := value.Normalize(v).Float()
	if !ok || n <= 0 || math.IsInf(n, 1) || n > math.MaxInt32 {
		return 0
	}
	return int(math.Ceil(n))
}

func decodeOperand(raw json.RawMessage) (Operand, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Scalar(value.NullValue()), nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Operand{}, fmt.Errorf("decode value: %w", err)
	}

	switch t := v.(type) {
	case []any:
		items := make([]value.Value, len(t))
		for i, item := range t {
			items[i] = normalizeJSON(item)
		}
		return List(items...), nil
	default:
		return Scalar(normalizeJSON(t)), nil
	}
}

// normalizeJSON flattens nested JSON the way loose string coercion does:
// arrays join their items with "," and objects become "[object Object]".
func normalizeJSON(v any) value.Value {
	switch v.(type) {
	case []any, map[string]any:
		return value.Str(compositeString(v))
	}
	return value.Normalize(v)
}

func compositeString(v any) string {
	switch t := v.(type) {
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = compositeString(item)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	}
	return value.Normalize(v).String()
}

// MarshalJSON encodes the operand as a JSON scalar or array.
func (o Operand) MarshalJSON() ([]byte, error) {
	if o.isList {
		items := o.list
		if items == nil {
			items = []value.Value{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(o.scalar)
}

// UnmarshalJSON decodes a JSON scalar or array operand.
func (o *Operand) UnmarshalJSON(data []byte) error {
	op, err := decodeOperand(data)
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// MarshalJSON encodes the condition as {field, op, value}.
func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Field string  `json:"field"`
		Op    Op      `json:"op"`
		Value Operand `json:"value"`
	}{c.Field, c.Op, c.Value})
}

// MarshalJSON encodes the spec in the planner's wire shape.
func (s Spec) MarshalJSON() ([]byte, error) {
	out := struct {
		Classes    []string    `json:"classes"`
		Conditions []Condition `json:"conditions"`
		Limit      *int        `json:"limit"`
	}{Classes: s.Classes, Conditions: s.Conditions}
	if out.Classes == nil {
		out.Classes = []string{}
	}
	if out.Conditions == nil {
		out.Conditions = []Condition{}
	}
	if s.Limit > 0 {
		limit := s.Limit
		out.Limit = &limit
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes via Decode so the same validation applies.
func (s *Spec) UnmarshalJSON(data []byte) error {
	spec, err := Decode(data)
	if err != nil {
		return err
	}
	*s = spec
	return nil
}
