// Package filter holds the structured filter specification produced by the
// planner and its evaluator over a model index.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/bimquery/internal/domain/value"
)

// ErrMalformedSpec signals a structurally invalid specification
// (missing required keys, wrong JSON types).
var ErrMalformedSpec = errors.New("malformed filter specification")

// FieldIfcType is the pseudo-field resolving to the element class.
const FieldIfcType = "IfcType"

// PsetPrefix starts a compound pset:<Pset>:<Prop> field.
const PsetPrefix = "pset:"

// MaxConditions is the maximum number of conditions accepted by Decode.
const MaxConditions = 64

// Op is a condition operator.
type Op string

// Supported operators.
const (
	OpEquals     Op = "equals"
	OpContains   Op = "contains"
	OpStartsWith Op = "startsWith"
	OpIn         Op = "in"
	OpRegex      Op = "regex"
	OpGT         Op = "gt"
	OpLT         Op = "lt"
)

// Ops lists the supported operators in the order they are documented to
// the planner.
var Ops = []Op{OpEquals, OpContains, OpStartsWith, OpIn, OpRegex, OpGT, OpLT}

// canonical maps an operator name to its supported form, ignoring case.
// Unknown operators are returned unchanged and reject every record.
func canonical(op Op) Op {
	for _, known := range Ops {
		if strings.EqualFold(string(op), string(known)) {
			return known
		}
	}
	return op
}

// Operand is the right-hand side of a condition: a scalar or a list.
type Operand struct {
	scalar value.Value
	list   []value.Value
	isList bool
}

// Scalar creates a scalar operand.
func Scalar(v value.Value) Operand { return Operand{scalar: v} }

// List creates a list operand.
func List(vs ...value.Value) Operand { return Operand{list: vs, isList: true} }

// IsList reports whether the operand is a list.
func (o Operand) IsList() bool { return o.isList }

// Values returns the list elements (nil for scalars).
func (o Operand) Values() []value.Value { return o.list }

// Value returns the scalar (Null for lists).
func (o Operand) Value() value.Value { return o.scalar }

// String returns the display form. Lists join their elements with commas.
func (o Operand) String() string {
	if !o.isList {
		return o.scalar.String()
	}
	parts := make([]string, len(o.list))
	for i, v := range o.list {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}

// Condition is a single {field, op, value} clause.
type Condition struct {
	Field string
	Op    Op
	Value Operand
}

// NewCondition creates a Condition. The field is required; any operator
// string is accepted.
func NewCondition(field string, op Op, v Operand) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("%w: condition field is required", ErrMalformedSpec)
	}
	if op == "" {
		return Condition{}, fmt.Errorf("%w: condition op is required for field %q", ErrMalformedSpec, field)
	}
	return Condition{Field: field, Op: canonical(op), Value: v}, nil
}

// Spec is a structured element filter. Conditions are combined with AND.
// Limit <= 0 means unlimited. Empty Classes means all indexed classes.
type Spec struct {
	Classes    []string
	Conditions []Condition
	Limit      int
}

// IsEmpty reports whether the spec matches every indexed element.
func (s Spec) IsEmpty() bool {
	return len(s.Classes) == 0 && len(s.Conditions) == 0 && s.Limit <= 0
}

// fieldKind classifies how a condition field resolves.
type fieldKind uint8

const (
	fieldAttribute fieldKind = iota
	fieldIfcType
	fieldPset
)

type fieldRef struct {
	kind fieldKind
	name string
	pset string
	prop string
}

func parseField(field string) fieldRef {
	if strings.EqualFold(field, FieldIfcType) {
		return fieldRef{kind: fieldIfcType}
	}
	if len(field) >= len(PsetPrefix) && strings.EqualFold(field[:len(PsetPrefix)], PsetPrefix) {
		parts := strings.Split(field, ":")
		ref := fieldRef{kind: fieldPset}
		if len(parts) > 1 {
			ref.pset = parts[1]
		}
		if len(parts) > 2 {
			ref.prop = parts[2]
		}
		return ref
	}
	return fieldRef{kind: fieldAttribute, name: field}
}
