// Package index holds the per-model lookup structure: records by expressID
// and expressIDs by class.
package index

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/bimquery/internal/domain/element"
)

// DefaultClasses is the allow-list indexed when configuration names none.
var DefaultClasses = []string{
	"IFCWALL", "IFCWALLSTANDARDCASE", "IFCWINDOW",
	"IFCDOOR", "IFCSLAB", "IFCCOLUMN", "IFCBEAM",
	"IFCSTAIR", "IFCPLATE", "IFCMECHANICALFASTENER",
}

// ErrFrozen is returned when mutating an index that has been published.
var ErrFrozen = errors.New("index is frozen")

// Index is the in-memory view of one loaded model.
// It is built once and read-only after Freeze.
type Index struct {
	byExpressID map[int]*element.Record
	byClass     map[string][]int
	classOrder  []string
	frozen      bool
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		byExpressID: make(map[int]*element.Record),
		byClass:     make(map[string][]int),
	}
}

// NormalizeClass returns the canonical (upper-case) class key.
func NormalizeClass(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// DeclareClass registers a class so it appears in Classes even if all of its
// elements end up skipped.
func (ix *Index) DeclareClass(class string) error {
	if ix.frozen {
		return ErrFrozen
	}
	key := NormalizeClass(class)
	if _, ok := ix.byClass[key]; !ok {
		ix.byClass[key] = []int{}
		ix.classOrder = append(ix.classOrder, key)
	}
	return nil
}

// Add inserts a record under its class. This is the only insertion path, so
// every id listed by class has a record.
func (ix *Index) Add(rec *element.Record) error {
	if ix.frozen {
		return ErrFrozen
	}
	if rec == nil {
		return fmt.Errorf("nil record")
	}
	key := NormalizeClass(rec.IfcClass())
	if err := ix.DeclareClass(key); err != nil {
		return err
	}
	ix.byExpressID[rec.ExpressID()] = rec
	ix.byClass[key] = append(ix.byClass[key], rec.ExpressID())
	return nil
}

// Freeze makes the index read-only.
func (ix *Index) Freeze() { ix.frozen = true }

// Frozen reports whether Freeze was called.
func (ix *Index) Frozen() bool { return ix.frozen }

// Get returns the record for an expressID.
func (ix *Index) Get(id int) (*element.Record, bool) {
	rec, ok := ix.byExpressID[id]
	return rec, ok
}

// Class returns the ids of a class in insertion order. Lookup ignores case.
// The returned slice must not be modified.
func (ix *Index) Class(name string) []int {
	return ix.byClass[NormalizeClass(name)]
}

// Classes returns the indexed class names in insertion order.
func (ix *Index) Classes() []string {
	out := make([]string, len(ix.classOrder))
	copy(out, ix.classOrder)
	return out
}

// ClassCounts returns the number of ids listed per class.
func (ix *Index) ClassCounts() map[string]int {
	out := make(map[string]int, len(ix.byClass))
	for k, ids := range ix.byClass {
		out[k] = len(ids)
	}
	return out
}

// Len returns the number of records.
func (ix *Index) Len() int { return len(ix.byExpressID) }

// Records returns all records listed by class, in class order then
// insertion order, without duplicates.
func (ix *Index) Records() []*element.Record {
	seen := make(map[int]struct{}, len(ix.byExpressID))
	out := make([]*element.Record, 0, len(ix.byExpressID))
	for _, class := range ix.classOrder {
		for _, id := range ix.byClass[class] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if rec, ok := ix.byExpressID[id]; ok {
				out = append(out, rec)
			}
		}
	}
	return out
}
