package indexing

import "context"

// Model is the parsing collaborator the index is built from.
// Values in RawAttributes and RawPropertySet may be tagged containers
// (anything implementing Unwrap() any); the builder normalizes them.
type Model interface {
	EnumerateByClass(ctx context.Context, class string) ([]int, error)
	Attributes(ctx context.Context, expressID int) (RawAttributes, error)
	PropertySets(ctx context.Context, expressID int) ([]RawPropertySet, error)
	Meshes(ctx context.Context) ([]Mesh, error)
}

// RawAttributes are the direct attributes of one element as the parser
// returns them. Missing attributes are nil.
type RawAttributes struct {
	GlobalID       any
	Name           any
	PredefinedType any
	ObjectType     any
	Tag            any
}

// RawPropertySet is one property set attached to an element. Name may be
// nil when the set carries no name.
type RawPropertySet struct {
	Name       any
	Properties []RawProperty
}

// RawProperty is a single named value inside a property set.
type RawProperty struct {
	Name  any
	Value any
}

// Mesh is one renderable primitive with the expressIDs it draws.
// ExpressIDs is the per-vertex (or per-primitive) parallel array and may
// contain repeats.
type Mesh struct {
	ID         int
	ExpressIDs []int
}

// ProgressFunc receives human-readable progress messages.
type ProgressFunc func(msg string)
