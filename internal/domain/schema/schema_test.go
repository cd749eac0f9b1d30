package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/bimquery/internal/domain/element"
	"github.com/kailas-cloud/bimquery/internal/domain/index"
	"github.com/kailas-cloud/bimquery/internal/domain/value"
)

func sampleIndex(t *testing.T) *index.Index {
	t.Helper()
	ix := index.New()
	require.NoError(t, ix.Add(element.New(1, "IFCWALL", element.Attributes{
		Name: "SecretWallName", GlobalID: "GUID-AAA", Tag: "TAG-1",
	}, element.PropertySets{
		"Pset_WallCommon": {"IsExternal": value.Bool(true), "FireRating": value.Str("REI-SECRET")},
	})))
	require.NoError(t, ix.Add(element.New(2, "IFCDOOR", element.Attributes{Name: "SecretDoor"}, element.PropertySets{
		"Pset_WallCommon": {"IsExternal": value.Bool(false), "LoadBearing": value.Bool(true)},
		"Pset_DoorCommon": {"Width": value.Num(913.5)},
	})))
	return ix
}

func TestSummarize_UnionsPairs(t *testing.T) {
	sum := Summarize(sampleIndex(t), Options{Strict: true})

	assert.Equal(t, []string{"IFCWALL", "IFCDOOR"}, sum.Classes)
	assert.Equal(t, Fields, sum.Fields)
	require.Len(t, sum.Psets, 2)
	assert.Equal(t, "Pset_WallCommon", sum.Psets[0].Pset)
	assert.Equal(t, []string{"FireRating", "IsExternal", "LoadBearing"}, sum.Psets[0].Props)
	assert.Equal(t, "Pset_DoorCommon", sum.Psets[1].Pset)
	assert.Equal(t, []string{"Width"}, sum.Psets[1].Props)
	assert.Empty(t, sum.Values)
	assert.False(t, sum.Truncated)
	assert.Equal(t, 4, sum.PairCount())
}

func TestSummarize_NeverLeaksValues(t *testing.T) {
	for _, strict := range []bool{true, false} {
		sum := Summarize(sampleIndex(t), Options{Strict: strict})
		data, err := json.Marshal(sum)
		require.NoError(t, err)

		text := string(data)
		for _, secret := range []string{"SecretWallName", "SecretDoor", "GUID-AAA", "TAG-1", "REI-SECRET", "913.5"} {
			assert.False(t, strings.Contains(text, secret), "summary leaked %q (strict=%v)", secret, strict)
		}
	}
}

func TestSummarize_StrictModesSameShape(t *testing.T) {
	strict := Summarize(sampleIndex(t), Options{Strict: true})
	loose := Summarize(sampleIndex(t), Options{Strict: false})

	assert.Equal(t, strict.Classes, loose.Classes)
	assert.Equal(t, strict.Psets, loose.Psets)
	assert.Equal(t, strict.Values, loose.Values)
	assert.NotEqual(t, strict.Strict, loose.Strict)
}

func TestSummarize_MaxPairs(t *testing.T) {
	sum := Summarize(sampleIndex(t), Options{MaxPairs: 2})

	assert.Equal(t, 2, sum.PairCount())
	assert.True(t, sum.Truncated)
}

func TestSummarize_EmptyIndex(t *testing.T) {
	sum := Summarize(index.New(), Options{})

	assert.Empty(t, sum.Classes)
	assert.NotNil(t, sum.Psets)
	assert.Len(t, sum.Fields, 7)
}
