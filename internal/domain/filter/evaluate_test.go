package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/bimquery/internal/domain/element"
	"github.com/kailas-cloud/bimquery/internal/domain/index"
	"github.com/kailas-cloud/bimquery/internal/domain/value"
)

func buildIndex(t *testing.T) *index.Index {
	t.Helper()
	ix := index.New()
	records := []*element.Record{
		element.New(1, "IFCWALL", element.Attributes{Name: "Exterior-1", GlobalID: "g1"}, element.PropertySets{
			"Pset_WallCommon": {"IsExternal": value.Bool(true), "Age": value.Str("n/a")},
		}),
		element.New(2, "IFCWALL", element.Attributes{Name: "Interior-2", GlobalID: "g2"}, element.PropertySets{
			"Pset_WallCommon": {"IsExternal": value.Bool(false), "Age": value.Num(25)},
		}),
		element.New(3, "IFCDOOR", element.Attributes{Name: "Door-B", ObjectType: "B"}, element.PropertySets{
			"Dimensions": {"Width": value.Num(0.9)},
		}),
		element.New(4, "IFCSLAB", element.Attributes{Name: "Slab-Roof", PredefinedType: "ROOF"}, nil),
	}
	for _, r := range records {
		require.NoError(t, ix.Add(r))
	}
	ix.Freeze()
	return ix
}

func ids(recs []*element.Record) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.ExpressID()
	}
	return out
}

func cond(t *testing.T, field string, op Op, v Operand) Condition {
	t.Helper()
	c, err := NewCondition(field, op, v)
	require.NoError(t, err)
	return c
}

func TestEvaluate_NoConditionsMatchesEverything(t *testing.T) {
	ix := buildIndex(t)

	got := Evaluate(Spec{}, ix)

	assert.Equal(t, []int{1, 2, 3, 4}, ids(got))
}

func TestEvaluate_ContainsOnName(t *testing.T) {
	ix := buildIndex(t)
	spec := Spec{
		Classes:    []string{"IFCWALL"},
		Conditions: []Condition{cond(t, "Name", OpContains, Scalar(value.Str("ext")))},
	}

	assert.Equal(t, []int{1}, ids(Evaluate(spec, ix)))
}

func TestEvaluate_ClassUnionDeduplicates(t *testing.T) {
	ix := buildIndex(t)
	spec := Spec{Classes: []string{"IfcDoor", "IFCWALL", "ifcdoor", "IFCUNKNOWN"}}

	assert.Equal(t, []int{3, 1, 2}, ids(Evaluate(spec, ix)))
}

func TestEvaluate_UnknownClassOnly(t *testing.T) {
	ix := buildIndex(t)

	assert.Empty(t, Evaluate(Spec{Classes: []string{"IFCROOF"}}, ix))
}

func TestEvaluate_Limit(t *testing.T) {
	ix := buildIndex(t)

	got := Evaluate(Spec{Limit: 1}, ix)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ExpressID())

	assert.Len(t, Evaluate(Spec{Limit: 100}, ix), 4)
}

func TestEvaluate_MissingPsetFailsCondition(t *testing.T) {
	ix := buildIndex(t)
	spec := Spec{Conditions: []Condition{cond(t, "pset:Foo:Bar", OpEquals, Scalar(value.Str("x")))}}

	assert.Empty(t, Evaluate(spec, ix))
}

func TestEvaluate_PsetEqualsBoolean(t *testing.T) {
	ix := buildIndex(t)
	spec := Spec{Conditions: []Condition{
		cond(t, "pset:Pset_WallCommon:IsExternal", OpEquals, Scalar(value.Str("TRUE"))),
	}}

	assert.Equal(t, []int{1}, ids(Evaluate(spec, ix)))
}

func TestEvaluate_NumericCoercionFailure(t *testing.T) {
	ix := buildIndex(t)
	spec := Spec{Conditions: []Condition{
		cond(t, "pset:Pset_WallCommon:Age", OpGT, Scalar(value.Str("10"))),
	}}

	// record 1 has Age "n/a" and is excluded; record 2 has 25
	assert.Equal(t, []int{2}, ids(Evaluate(spec, ix)))
}

func TestEvaluate_NumericOperandNotANumber(t *testing.T) {
	ix := buildIndex(t)
	spec := Spec{Conditions: []Condition{
		cond(t, "pset:Pset_WallCommon:Age", OpLT, Scalar(value.Str("abc"))),
	}}

	assert.Empty(t, Evaluate(spec, ix))
}

func TestEvaluate_LessThan(t *testing.T) {
	ix := buildIndex(t)
	spec := Spec{Conditions: []Condition{cond(t, "pset:Dimensions:Width", OpLT, Scalar(value.Num(1)))}}

	assert.Equal(t, []int{3}, ids(Evaluate(spec, ix)))
}

func TestEvaluate_UnknownFieldResolvesToEmpty(t *testing.T) {
	ix := buildIndex(t)
	spec := Spec{Conditions: []Condition{cond(t, "Age", OpGT, Scalar(value.Str("10")))}}

	assert.Empty(t, Evaluate(spec, ix))

	// equals "" matches because the unknown field stringifies to ""
	spec = Spec{Conditions: []Condition{cond(t, "Age", OpEquals, Scalar(value.Str("")))}}
	assert.Len(t, Evaluate(spec, ix), 4)
}

func TestEvaluate_UnknownOperatorRejectsEverything(t *testing.T) {
	ix := buildIndex(t)
	spec := Spec{Conditions: []Condition{cond(t, "Name", Op("foo"), Scalar(value.Str("")))}}

	assert.Empty(t, Evaluate(spec, ix))
}

func TestEvaluate_IfcTypeField(t *testing.T) {
	ix := buildIndex(t)
	spec := Spec{Conditions: []Condition{cond(t, FieldIfcType, OpStartsWith, Scalar(value.Str("ifcd")))}}

	assert.Equal(t, []int{3}, ids(Evaluate(spec, ix)))
}

func TestEvaluate_FieldNamesIgnoreCase(t *testing.T) {
	ix := buildIndex(t)

	for _, field := range []string{"IfcType", "ifctype", "IFCTYPE"} {
		spec := Spec{Conditions: []Condition{cond(t, field, OpEquals, Scalar(value.Str("IFCWALL")))}}
		assert.Equal(t, []int{1, 2}, ids(Evaluate(spec, ix)), field)
	}

	spec := Spec{Conditions: []Condition{cond(t, "PSET:Pset_WallCommon:IsExternal", OpEquals, Scalar(value.Str("true")))}}
	assert.Equal(t, []int{1}, ids(Evaluate(spec, ix)))
}

func TestEvaluate_Regex(t *testing.T) {
	ix := buildIndex(t)

	spec := Spec{Conditions: []Condition{cond(t, "Name", OpRegex, Scalar(value.Str("^(exterior|slab)-")))}}
	assert.Equal(t, []int{1, 4}, ids(Evaluate(spec, ix)))

	spec = Spec{Conditions: []Condition{cond(t, "Name", OpRegex, Scalar(value.Str("([unclosed")))}}
	assert.Empty(t, Evaluate(spec, ix))
}

func TestEvaluate_OperatorNameIgnoresCase(t *testing.T) {
	ix := buildIndex(t)
	spec := Spec{Conditions: []Condition{cond(t, "PredefinedType", Op("STARTSWITH"), Scalar(value.Str("ro")))}}

	assert.Equal(t, []int{4}, ids(Evaluate(spec, ix)))
}

func TestEvaluate_ShortCircuitAnd(t *testing.T) {
	ix := buildIndex(t)
	spec := Spec{
		Classes: []string{"IFCWALL"},
		Conditions: []Condition{
			cond(t, "Name", OpContains, Scalar(value.Str("-"))),
			cond(t, "GlobalId", OpEquals, Scalar(value.Str("G2"))),
		},
	}

	assert.Equal(t, []int{2}, ids(Evaluate(spec, ix)))
}

func TestMatches_InOperator(t *testing.T) {
	rec := element.New(9, "IFCDOOR", element.Attributes{ObjectType: "B"}, nil)
	other := element.New(10, "IFCDOOR", element.Attributes{ObjectType: "c"}, nil)
	in := cond(t, "ObjectType", OpIn, List(value.Str("a"), value.Str("b")))

	assert.True(t, Matches(rec, []Condition{in}))
	assert.False(t, Matches(other, []Condition{in}))
}

func TestMatches_InCoercesNonStringItems(t *testing.T) {
	rec := element.New(9, "IFCDOOR", element.Attributes{Tag: "42"}, nil)
	in := cond(t, "Tag", OpIn, List(value.Num(42), value.Bool(true)))

	assert.True(t, Matches(rec, []Condition{in}))
}

func TestMatches_InRequiresList(t *testing.T) {
	rec := element.New(9, "IFCDOOR", element.Attributes{Tag: "a"}, nil)
	in := cond(t, "Tag", OpIn, Scalar(value.Str("a")))

	assert.False(t, Matches(rec, []Condition{in}))
}

func TestEvaluate_DoesNotMutateIndex(t *testing.T) {
	ix := buildIndex(t)
	before := ix.Class("IFCWALL")
	snapshot := append([]int(nil), before...)

	_ = Evaluate(Spec{Classes: []string{"IFCWALL", "IFCWALL"}, Limit: 1}, ix)

	assert.Equal(t, snapshot, ix.Class("IFCWALL"))
	assert.Equal(t, 4, ix.Len())
}
