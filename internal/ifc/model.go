// Package ifc adapts parsed IFC exchange files to the index builder.
package ifc

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/ifc/step"
	"github.com/kailas-cloud/bimquery/internal/usecase/indexing"
)

// IfcRoot / IfcProduct attribute positions shared by IFC2x3 and IFC4.
const (
	attrGlobalID       = 0
	attrName           = 2
	attrObjectType     = 4
	attrRepresentation = 6
	attrTag            = 7
)

// predefinedTypeAt lists entities whose PredefinedType is not the first
// attribute after Tag.
var predefinedTypeAt = map[string]int{
	"IFCWINDOW":             10,
	"IFCDOOR":               10,
	"IFCMECHANICALFASTENER": 10,
}

const defaultPredefinedTypeAt = 8

// Model serves a parsed exchange file through the indexing.Model contract.
type Model struct {
	file *step.File
	// element id -> property definition ids, in relationship order
	definitions map[int][]int
}

var _ indexing.Model = (*Model)(nil)

// NewModel indexes the property relationships of f.
func NewModel(f *step.File) *Model {
	m := &Model{file: f, definitions: make(map[int][]int)}
	for _, relID := range f.ByType("IFCRELDEFINESBYPROPERTIES") {
		rel, _ := f.Get(relID)
		defs := refs(rel.Arg(5))
		for _, obj := range rel.RefsArg(4) {
			for _, d := range defs {
				m.definitions[int(obj)] = append(m.definitions[int(obj)], int(d))
			}
		}
	}
	return m
}

// Schemas returns the FILE_SCHEMA identifiers, e.g. IFC4.
func (m *Model) Schemas() []string { return m.file.Schemas }

// Len returns the number of entity instances in the file.
func (m *Model) Len() int { return m.file.Len() }

// EnumerateByClass lists the instances of one entity type in file order.
func (m *Model) EnumerateByClass(ctx context.Context, class string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", class, err)
	}
	ids := m.file.ByType(class)
	return append([]int(nil), ids...), nil
}

// Attributes reads the IfcRoot/IfcProduct attributes of an element.
func (m *Model) Attributes(_ context.Context, expressID int) (indexing.RawAttributes, error) {
	in, err := m.instance(expressID)
	if err != nil {
		return indexing.RawAttributes{}, err
	}

	pos, ok := predefinedTypeAt[in.Type]
	if !ok {
		pos = defaultPredefinedTypeAt
	}
	var predefined any
	if e, ok := in.Arg(pos).(step.Enum); ok {
		predefined = string(e)
	}

	return indexing.RawAttributes{
		GlobalID:       in.Arg(attrGlobalID),
		Name:           in.Arg(attrName),
		PredefinedType: predefined,
		ObjectType:     in.Arg(attrObjectType),
		Tag:            in.Arg(attrTag),
	}, nil
}

// PropertySets resolves the property sets and quantity sets related to an
// element. A dangling reference is an error for that element only.
func (m *Model) PropertySets(_ context.Context, expressID int) ([]indexing.RawPropertySet, error) {
	if _, err := m.instance(expressID); err != nil {
		return nil, err
	}

	var out []indexing.RawPropertySet
	for _, defID := range m.definitions[expressID] {
		def, err := m.instance(defID)
		if err != nil {
			return nil, err
		}
		var set indexing.RawPropertySet
		switch def.Type {
		case "IFCPROPERTYSET":
			set, err = m.propertySet(def)
		case "IFCELEMENTQUANTITY":
			set, err = m.quantitySet(def)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("definition #%d: %w", defID, err)
		}
		out = append(out, set)
	}
	return out, nil
}

func (m *Model) propertySet(def *step.Instance) (indexing.RawPropertySet, error) {
	set := indexing.RawPropertySet{Name: def.Arg(attrName)}
	for _, ref := range def.RefsArg(4) {
		prop, err := m.instance(int(ref))
		if err != nil {
			return set, err
		}
		switch prop.Type {
		case "IFCPROPERTYSINGLEVALUE":
			set.Properties = append(set.Properties, indexing.RawProperty{Name: prop.Arg(0), Value: prop.Arg(2)})
		case "IFCPROPERTYENUMERATEDVALUE":
			set.Properties = append(set.Properties, indexing.RawProperty{Name: prop.Arg(0), Value: enumeratedValue(prop.Arg(2))})
		}
	}
	return set, nil
}

func (m *Model) quantitySet(def *step.Instance) (indexing.RawPropertySet, error) {
	set := indexing.RawPropertySet{Name: def.Arg(attrName)}
	for _, ref := range def.RefsArg(5) {
		q, err := m.instance(int(ref))
		if err != nil {
			return set, err
		}
		if !strings.HasPrefix(q.Type, "IFCQUANTITY") {
			continue
		}
		set.Properties = append(set.Properties, indexing.RawProperty{Name: q.Arg(0), Value: q.Arg(3)})
	}
	return set, nil
}

// enumeratedValue collapses an enumerated property's value list to a scalar.
func enumeratedValue(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	switch len(list) {
	case 0:
		return nil
	case 1:
		return list[0]
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if t, ok := item.(step.Typed); ok {
			item = t.Value
		}
		if e, ok := item.(step.Enum); ok {
			item = string(e)
		}
		parts = append(parts, fmt.Sprint(item))
	}
	return strings.Join(parts, ", ")
}

// Meshes yields one mesh per product representation, identified by the
// IfcProductDefinitionShape id and carrying every product drawn by it.
func (m *Model) Meshes(ctx context.Context) ([]indexing.Mesh, error) {
	var meshes []indexing.Mesh
	position := make(map[int]int)
	for _, typ := range m.file.Types() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("traverse geometry: %w", err)
		}
		for _, id := range m.file.ByType(typ) {
			in, _ := m.file.Get(id)
			ref, ok := in.RefArg(attrRepresentation)
			if !ok {
				continue
			}
			shape, ok := m.file.Resolve(ref)
			if !ok || shape.Type != "IFCPRODUCTDEFINITIONSHAPE" {
				continue
			}
			i, seen := position[shape.ID]
			if !seen {
				i = len(meshes)
				position[shape.ID] = i
				meshes = append(meshes, indexing.Mesh{ID: shape.ID})
			}
			meshes[i].ExpressIDs = append(meshes[i].ExpressIDs, id)
		}
	}
	return meshes, nil
}

func (m *Model) instance(id int) (*step.Instance, error) {
	in, ok := m.file.Get(id)
	if !ok {
		return nil, fmt.Errorf("instance #%d: %w", id, domain.ErrNotFound)
	}
	return in, nil
}

// refs accepts a single reference or a list of references.
func refs(v any) []step.Ref {
	switch t := v.(type) {
	case step.Ref:
		return []step.Ref{t}
	case []any:
		out := make([]step.Ref, 0, len(t))
		for _, item := range t {
			if r, ok := item.(step.Ref); ok {
				out = append(out, r)
			}
		}
		return out
	}
	return nil
}
