package filter

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_PlannerOutput(t *testing.T) {
	data := []byte(`{
		"classes": ["IFCDOOR"],
		"conditions": [
			{"field": "Name", "op": "contains", "value": "fire"},
			{"field": "pset:Pset_DoorCommon:FireRating", "op": "in", "value": ["EI30", 60, true]},
			{"field": "Tag", "op": "gt", "value": 3}
		],
		"limit": null
	}`)

	spec, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"IFCDOOR"}, spec.Classes)
	assert.Equal(t, 0, spec.Limit)
	require.Len(t, spec.Conditions, 3)

	in := spec.Conditions[1]
	assert.Equal(t, OpIn, in.Op)
	require.True(t, in.Value.IsList())
	assert.Equal(t, "EI30,60,true", in.Value.String())

	gt := spec.Conditions[2]
	assert.Equal(t, "3", gt.Value.String())
}

func TestDecode_NestedValuesFlatten(t *testing.T) {
	spec, err := Decode([]byte(`{"conditions":[
		{"field":"Name","op":"in","value":[["a","b"],{"k":1},null,1e-7]},
		{"field":"Name","op":"equals","value":[1,[2,3]]}
	]}`))
	require.NoError(t, err)

	assert.Equal(t, "a,b,[object Object],,1e-7", spec.Conditions[0].Value.String())
	assert.Equal(t, "1,2,3", spec.Conditions[1].Value.String())
}

func TestDecode_DefaultsWhenKeysAbsent(t *testing.T) {
	spec, err := Decode([]byte(`{}`))
	require.NoError(t, err)
	assert.True(t, spec.IsEmpty())
}

func TestDecode_Limit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`{"limit": 5}`, 5},
		{`{"limit": 2.5}`, 3},
		{`{"limit": 0}`, 0},
		{`{"limit": -4}`, 0},
		{`{"limit": "5"}`, 5},
		{`{"limit": " 7 "}`, 7},
		{`{"limit": "ten"}`, 0},
		{`{"limit": {"max": 3}}`, 0},
		{`{"limit": 1e12}`, 0},
	}
	for _, tt := range tests {
		spec, err := Decode([]byte(tt.raw))
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, spec.Limit, tt.raw)
	}
}

func TestDecode_StructuralErrors(t *testing.T) {
	cases := []string{
		``,
		`[]`,
		`"text"`,
		`{"conditions": [{"op": "equals", "value": "x"}]}`,
		`{"conditions": [{"field": "Name", "value": "x"}]}`,
		`{"conditions": [{"field": "", "op": "equals"}]}`,
		`{"classes": "IFCWALL"}`,
	}
	for _, raw := range cases {
		_, err := Decode([]byte(raw))
		if assert.Error(t, err, raw) {
			assert.True(t, errors.Is(err, ErrMalformedSpec), raw)
		}
	}
}

func TestDecode_UnknownOperatorIsAccepted(t *testing.T) {
	spec, err := Decode([]byte(`{"conditions":[{"field":"Name","op":"foo","value":"x"}]}`))
	require.NoError(t, err)
	assert.Equal(t, Op("foo"), spec.Conditions[0].Op)
}

func TestSpec_JSONRoundTrip(t *testing.T) {
	in := `{"classes":["IFCWALL"],"conditions":[{"field":"Name","op":"startsWith","value":"ext"}],"limit":10}`

	var spec Spec
	require.NoError(t, json.Unmarshal([]byte(in), &spec))

	out, err := json.Marshal(spec)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestSpec_MarshalEmpty(t *testing.T) {
	out, err := json.Marshal(Spec{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"classes":[],"conditions":[],"limit":null}`, string(out))
}
