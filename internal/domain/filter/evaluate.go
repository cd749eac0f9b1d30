package filter

import (
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kailas-cloud/bimquery/internal/domain/element"
	"github.com/kailas-cloud/bimquery/internal/domain/value"
)

// Source is the read side of a model index consumed by the evaluator.
type Source interface {
	Classes() []string
	Class(name string) []int
	Get(id int) (*element.Record, bool)
}

// Evaluate runs spec against src and returns the matching records in
// candidate order. It never mutates src and never fails: unknown classes,
// fields and operators simply match nothing.
func Evaluate(spec Spec, src Source) []*element.Record {
	matchers := compile(spec.Conditions)

	classes := spec.Classes
	if len(classes) == 0 {
		classes = src.Classes()
	}

	var res []*element.Record
	seen := newIDSet()
	for _, class := range classes {
		for _, id := range src.Class(class) {
			if !seen.add(id) {
				continue
			}
			rec, ok := src.Get(id)
			if !ok {
				continue
			}
			if !matchAll(rec, matchers) {
				continue
			}
			res = append(res, rec)
			if spec.Limit > 0 && len(res) >= spec.Limit {
				return res
			}
		}
	}
	return res
}

// Matches reports whether a single record satisfies every condition.
func Matches(rec *element.Record, conditions []Condition) bool {
	return matchAll(rec, compile(conditions))
}

func matchAll(rec *element.Record, matchers []matcher) bool {
	for i := range matchers {
		if !matchers[i].match(rec) {
			return false
		}
	}
	return true
}

// matcher is a condition prepared for repeated evaluation.
type matcher struct {
	ref     fieldRef
	op      Op
	operand Operand
	lower   string
	list    []string
	re      *regexp.Regexp
	num     float64
	numOK   bool
}

func compile(conditions []Condition) []matcher {
	regexCache := make(map[string]*regexp.Regexp)
	out := make([]matcher, len(conditions))
	for i, c := range conditions {
		m := matcher{
			ref:     parseField(c.Field),
			op:      canonical(c.Op),
			operand: c.Value,
			lower:   strings.ToLower(c.Value.String()),
		}
		if c.Value.IsList() {
			m.list = make([]string, len(c.Value.Values()))
			for j, v := range c.Value.Values() {
				m.list[j] = v.Lower()
			}
		} else {
			m.num, m.numOK = c.Value.Value().Float()
		}
		if m.op == OpRegex {
			pattern := c.Value.String()
			re, ok := regexCache[pattern]
			if !ok {
				// A pattern that fails to compile leaves re nil and the
				// condition rejects every record.
				re, _ = regexp.Compile("(?i)" + pattern)
				regexCache[pattern] = re
			}
			m.re = re
		}
		out[i] = m
	}
	return out
}

func (m *matcher) resolve(rec *element.Record) value.Value {
	switch m.ref.kind {
	case fieldIfcType:
		return value.Str(rec.IfcClass())
	case fieldPset:
		v, _ := rec.Property(m.ref.pset, m.ref.prop)
		return v
	default:
		v, _ := rec.Attribute(m.ref.name)
		return v
	}
}

func (m *matcher) match(rec *element.Record) bool {
	v := m.resolve(rec)

	switch m.op {
	case OpEquals:
		return v.Lower() == m.lower
	case OpContains:
		return strings.Contains(v.Lower(), m.lower)
	case OpStartsWith:
		return strings.HasPrefix(v.Lower(), m.lower)
	case OpIn:
		if m.list == nil {
			return false
		}
		return slices.Contains(m.list, v.Lower())
	case OpRegex:
		return m.re != nil && m.re.MatchString(v.String())
	case OpGT, OpLT:
		if !m.numOK {
			return false
		}
		f, ok := v.Float()
		if !ok || math.IsNaN(f) {
			return false
		}
		if m.op == OpGT {
			return f > m.num
		}
		return f < m.num
	default:
		return false
	}
}

// idSet tracks visited expressIDs. Ids that fit in uint32 go into a roaring
// bitmap; anything else falls back to a map.
type idSet struct {
	bm    *roaring.Bitmap
	other map[int]struct{}
}

func newIDSet() *idSet {
	return &idSet{bm: roaring.New()}
}

// add inserts id and reports whether it was new.
func (s *idSet) add(id int) bool {
	if id >= 0 && uint64(id) <= math.MaxUint32 {
		return s.bm.CheckedAdd(uint32(id))
	}
	if s.other == nil {
		s.other = make(map[int]struct{})
	}
	if _, ok := s.other[id]; ok {
		return false
	}
	s.other[id] = struct{}{}
	return true
}
