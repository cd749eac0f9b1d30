package element

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kailas-cloud/bimquery/internal/domain/value"
)

func sampleRecord() *Record {
	return New(101, "IFCWALL", Attributes{
		GlobalID: "2O2Fr$t4X7Zf8NOew3FLOH",
		Name:     "Exterior-1",
		Tag:      "T-7",
	}, PropertySets{
		"Pset_WallCommon": {
			"IsExternal": value.Bool(true),
			"FireRating": value.Str("REI60"),
		},
	})
}

func TestRecord_AttributeIgnoresCase(t *testing.T) {
	r := sampleRecord()

	for _, name := range []string{"Name", "name", "NAME"} {
		v, ok := r.Attribute(name)
		if !ok || v.String() != "Exterior-1" {
			t.Errorf("Attribute(%q) = (%q, %v)", name, v.String(), ok)
		}
	}

	id, ok := r.Attribute("ExpressID")
	if !ok || id.String() != "101" {
		t.Errorf("ExpressID = %q", id.String())
	}

	v, ok := r.Attribute("Age")
	if ok || !v.IsNull() {
		t.Errorf("unknown attribute should be null, got %#v", v)
	}
}

func TestRecord_Property(t *testing.T) {
	r := sampleRecord()

	v, ok := r.Property("Pset_WallCommon", "IsExternal")
	if !ok || v.String() != "true" {
		t.Fatalf("IsExternal = (%q, %v)", v.String(), ok)
	}
	if _, ok := r.Property("Pset_Missing", "IsExternal"); ok {
		t.Error("missing pset should not resolve")
	}
	if _, ok := r.Property("Pset_WallCommon", "Missing"); ok {
		t.Error("missing property should not resolve")
	}
}

func TestRecord_AttachMeshDeduplicates(t *testing.T) {
	r := sampleRecord()

	if !r.AttachMesh(5) {
		t.Fatal("first attach should add")
	}
	if r.AttachMesh(5) {
		t.Fatal("second attach should be a no-op")
	}
	r.AttachMesh(9)

	got := r.MeshIDs()
	if len(got) != 2 || got[0] != 5 || got[1] != 9 {
		t.Fatalf("MeshIDs = %v", got)
	}

	got[0] = 100
	if r.MeshIDs()[0] != 5 {
		t.Error("MeshIDs must return a copy")
	}
}

func TestRecord_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(sampleRecord())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"expressID":101`, `"ifcClass":"IFCWALL"`, `"IsExternal":true`, `"meshIDs":[]`} {
		if !strings.Contains(s, want) {
			t.Errorf("json %s missing %s", s, want)
		}
	}
}
