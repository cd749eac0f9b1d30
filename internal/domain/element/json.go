package element

import (
	"encoding/json"

	"github.com/kailas-cloud/bimquery/internal/domain/value"
)

type recordJSON struct {
	ExpressID      int                               `json:"expressID"`
	GlobalID       string                            `json:"globalId"`
	IfcClass       string                            `json:"ifcClass"`
	Name           string                            `json:"name"`
	PredefinedType string                            `json:"predefinedType"`
	ObjectType     string                            `json:"objectType"`
	Tag            string                            `json:"tag"`
	Psets          map[string]map[string]value.Value `json:"psets"`
	MeshIDs        []int                             `json:"meshIDs"`
}

// MarshalJSON encodes the record with the field names clients already use.
func (r *Record) MarshalJSON() ([]byte, error) {
	meshes := r.meshIDs
	if meshes == nil {
		meshes = []int{}
	}
	return json.Marshal(recordJSON{
		ExpressID:      r.expressID,
		GlobalID:       r.attrs.GlobalID,
		IfcClass:       r.ifcClass,
		Name:           r.attrs.Name,
		PredefinedType: r.attrs.PredefinedType,
		ObjectType:     r.attrs.ObjectType,
		Tag:            r.attrs.Tag,
		Psets:          r.psets,
		MeshIDs:        meshes,
	})
}
