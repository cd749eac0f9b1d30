package element

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/bimquery/internal/domain/value"
)

// UnknownPset is the name used for property sets that carry no name.
const UnknownPset = "UnknownPset"

// PropertySets maps property-set name -> property name -> value.
type PropertySets map[string]map[string]value.Value

// Attributes holds the basic element attributes.
type Attributes struct {
	GlobalID       string
	Name           string
	PredefinedType string
	ObjectType     string
	Tag            string
}

// Record is the normalized view of one model element.
// Everything except the mesh list is fixed at construction.
type Record struct {
	expressID int
	ifcClass  string
	attrs     Attributes
	psets     PropertySets
	meshIDs   []int
}

// New creates a Record. psets is taken over by the record.
func New(expressID int, ifcClass string, attrs Attributes, psets PropertySets) *Record {
	if psets == nil {
		psets = PropertySets{}
	}
	return &Record{
		expressID: expressID,
		ifcClass:  ifcClass,
		attrs:     attrs,
		psets:     psets,
	}
}

// ExpressID returns the model-scoped identifier.
func (r *Record) ExpressID() int { return r.expressID }

// GlobalID returns the revision-stable identifier (may be empty).
func (r *Record) GlobalID() string { return r.attrs.GlobalID }

// IfcClass returns the structural class name.
func (r *Record) IfcClass() string { return r.ifcClass }

// Name returns the element name.
func (r *Record) Name() string { return r.attrs.Name }

// PredefinedType returns the predefined type.
func (r *Record) PredefinedType() string { return r.attrs.PredefinedType }

// ObjectType returns the object type.
func (r *Record) ObjectType() string { return r.attrs.ObjectType }

// Tag returns the tag attribute.
func (r *Record) Tag() string { return r.attrs.Tag }

// PropertySets returns the property sets. Callers must not modify the map.
func (r *Record) PropertySets() PropertySets { return r.psets }

// MeshIDs returns a copy of the renderer mesh ids attached to the element.
func (r *Record) MeshIDs() []int { return slices.Clone(r.meshIDs) }

// AttachMesh adds a mesh id if not yet present. Only the index builder calls
// this, before the index is published.
func (r *Record) AttachMesh(meshID int) bool {
	if slices.Contains(r.meshIDs, meshID) {
		return false
	}
	r.meshIDs = append(r.meshIDs, meshID)
	return true
}

// Attribute resolves a bare field name against the record's direct
// attributes, ignoring case. Unknown names resolve to Null.
func (r *Record) Attribute(name string) (value.Value, bool) {
	switch strings.ToLower(name) {
	case "expressid":
		return value.Num(float64(r.expressID)), true
	case "globalid":
		return value.Str(r.attrs.GlobalID), true
	case "ifcclass":
		return value.Str(r.ifcClass), true
	case "name":
		return value.Str(r.attrs.Name), true
	case "predefinedtype":
		return value.Str(r.attrs.PredefinedType), true
	case "objecttype":
		return value.Str(r.attrs.ObjectType), true
	case "tag":
		return value.Str(r.attrs.Tag), true
	}
	return value.NullValue(), false
}

// Property looks up psets[pset][prop]. Missing levels resolve to Null.
func (r *Record) Property(pset, prop string) (value.Value, bool) {
	props, ok := r.psets[pset]
	if !ok {
		return value.NullValue(), false
	}
	v, ok := props[prop]
	if !ok {
		return value.NullValue(), false
	}
	return v, true
}
