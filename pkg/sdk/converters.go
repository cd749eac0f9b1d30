package bimquery

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/bimquery/internal/domain/element"
	"github.com/kailas-cloud/bimquery/internal/domain/filter"
	"github.com/kailas-cloud/bimquery/internal/domain/schema"
	queryuc "github.com/kailas-cloud/bimquery/internal/usecase/query"
	vieweruc "github.com/kailas-cloud/bimquery/internal/usecase/viewer"
)

// specToDomain goes through the JSON decoder so SDK specs get the same
// normalization as planner output.
func specToDomain(s Spec) (filter.Spec, error) {
	conditions := s.Conditions
	if conditions == nil {
		conditions = []Condition{}
	}
	raw, err := json.Marshal(Spec{Classes: s.Classes, Conditions: conditions, Limit: s.Limit})
	if err != nil {
		return filter.Spec{}, fmt.Errorf("%w: %w", filter.ErrMalformedSpec, err)
	}
	return filter.Decode(raw)
}

func specFromDomain(s filter.Spec) Spec {
	out := Spec{
		Classes:    append([]string(nil), s.Classes...),
		Conditions: make([]Condition, 0, len(s.Conditions)),
		Limit:      s.Limit,
	}
	for _, c := range s.Conditions {
		var v any
		if c.Value.IsList() {
			list := make([]any, 0, len(c.Value.Values()))
			for _, item := range c.Value.Values() {
				list = append(list, item.Raw())
			}
			v = list
		} else {
			v = c.Value.Value().Raw()
		}
		out.Conditions = append(out.Conditions, Condition{Field: c.Field, Op: string(c.Op), Value: v})
	}
	return out
}

func elementFromDomain(r *element.Record) Element {
	psets := make(map[string]map[string]any, len(r.PropertySets()))
	for name, props := range r.PropertySets() {
		m := make(map[string]any, len(props))
		for prop, v := range props {
			m[prop] = v.Raw()
		}
		psets[name] = m
	}
	return Element{
		ExpressID:      r.ExpressID(),
		GlobalID:       r.GlobalID(),
		IfcClass:       r.IfcClass(),
		Name:           r.Name(),
		PredefinedType: r.PredefinedType(),
		ObjectType:     r.ObjectType(),
		Tag:            r.Tag(),
		Psets:          psets,
		MeshIDs:        r.MeshIDs(),
	}
}

func resultFromDomain(res queryuc.Result) Result {
	out := Result{
		Spec:     specFromDomain(res.Spec),
		Elements: make([]Element, 0, len(res.Matches)),
		Cached:   res.Cached,
		Tokens:   res.Tokens,
	}
	for _, r := range res.Matches {
		out.Elements = append(out.Elements, elementFromDomain(r))
	}
	return out
}

func summaryFromDomain(s schema.Summary) Summary {
	out := Summary{
		Classes:   s.Classes,
		Psets:     make([]PropertySet, 0, len(s.Psets)),
		Fields:    s.Fields,
		Values:    s.Values,
		Strict:    s.Strict,
		Truncated: s.Truncated,
	}
	for _, ps := range s.Psets {
		out.Psets = append(out.Psets, PropertySet{Pset: ps.Pset, Props: ps.Props})
	}
	return out
}

func modelFromSession(sess *vieweruc.Session) ModelInfo {
	classes := sess.Report.Classes
	if classes == nil {
		classes = sess.Index.ClassCounts()
	}
	return ModelInfo{
		Name:     sess.Name,
		LoadedAt: sess.LoadedAt,
		Elements: sess.Report.Elements,
		Skipped:  sess.Report.Skipped,
		Meshes:   sess.Report.Meshes,
		Classes:  classes,
		Duration: sess.Report.Duration,
	}
}
