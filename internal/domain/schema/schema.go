// Package schema derives the name-only vocabulary that is handed to the
// query planner. A Summary never carries element values.
package schema

import (
	"maps"
	"slices"

	"github.com/kailas-cloud/bimquery/internal/domain/element"
)

// Fields are the first-class element fields a filter can reference.
var Fields = []string{"GlobalId", "ExpressID", "Name", "PredefinedType", "ObjectType", "Tag", "IfcType"}

// Source is the part of the model index the summarizer reads.
type Source interface {
	Classes() []string
	Records() []*element.Record
}

// Options controls summarization.
type Options struct {
	// Strict is passed through to the summary. Both modes currently produce
	// the same name-only output.
	Strict bool
	// MaxPairs caps the number of (pset, prop) pairs. 0 means unbounded.
	MaxPairs int
}

// PropertySet lists the property names observed under one pset.
type PropertySet struct {
	Pset  string   `json:"pset"`
	Props []string `json:"props"`
}

// Summary is the vocabulary available to filter specifications.
type Summary struct {
	Classes   []string          `json:"classes"`
	Psets     []PropertySet     `json:"psets"`
	Fields    []string          `json:"fields"`
	Values    map[string]string `json:"values"`
	Strict    bool              `json:"strict"`
	Truncated bool              `json:"truncated,omitempty"`
}

// Summarize scans every record's property sets and unions the observed
// (pset, prop) names in first-seen order.
func Summarize(src Source, opts Options) Summary {
	sum := Summary{
		Classes: src.Classes(),
		Psets:   []PropertySet{},
		Fields:  append([]string(nil), Fields...),
		Values:  map[string]string{},
		Strict:  opts.Strict,
	}

	position := make(map[string]int)
	seen := make(map[string]map[string]struct{})
	pairs := 0

	for _, rec := range src.Records() {
		for _, pset := range sortedKeys(rec.PropertySets()) {
			props := rec.PropertySets()[pset]
			idx, ok := position[pset]
			if !ok {
				if sum.capped(pairs, opts.MaxPairs) {
					continue
				}
				idx = len(sum.Psets)
				position[pset] = idx
				seen[pset] = make(map[string]struct{})
				sum.Psets = append(sum.Psets, PropertySet{Pset: pset, Props: []string{}})
			}
			for _, prop := range sortedKeys(props) {
				if _, dup := seen[pset][prop]; dup {
					continue
				}
				if sum.capped(pairs, opts.MaxPairs) {
					break
				}
				seen[pset][prop] = struct{}{}
				sum.Psets[idx].Props = append(sum.Psets[idx].Props, prop)
				pairs++
			}
		}
	}
	return sum
}

// capped reports whether the pair budget is used up and marks the summary.
func (s *Summary) capped(pairs, maxPairs int) bool {
	if maxPairs > 0 && pairs >= maxPairs {
		s.Truncated = true
		return true
	}
	return false
}

// PairCount returns the number of (pset, prop) pairs in the summary.
func (s Summary) PairCount() int {
	n := 0
	for _, p := range s.Psets {
		n += len(p.Props)
	}
	return n
}

// sortedKeys gives a stable order within one record; Go maps have none.
func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
