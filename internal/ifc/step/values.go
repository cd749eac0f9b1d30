package step

import (
	"fmt"
	"strconv"
)

// Ref is an entity instance reference (#12).
type Ref int

func (r Ref) String() string { return "#" + strconv.Itoa(int(r)) }

// Enum is an enumeration literal (.STANDARD.). .T. and .F. are booleans.
type Enum string

// Unwrap converts booleans and the unknown logical, other literals stay text.
func (e Enum) Unwrap() any {
	switch e {
	case "T":
		return true
	case "F":
		return false
	case "U":
		return nil
	}
	return string(e)
}

// Typed is a typed parameter such as IFCLABEL('x') or IFCREAL(1.5).
type Typed struct {
	Type  string
	Value any
}

// Unwrap returns the wrapped parameter.
func (t Typed) Unwrap() any { return t.Value }

func (t Typed) String() string { return fmt.Sprintf("%s(%v)", t.Type, t.Value) }

// Derived is the '*' placeholder for a derived attribute.
type Derived struct{}

func (Derived) String() string { return "*" }

// Instance is one #id=TYPE(args); line of the DATA section.
type Instance struct {
	ID   int
	Type string
	Args []any
	Line int
}

// Arg returns argument i, or nil when the instance has fewer arguments.
func (in *Instance) Arg(i int) any {
	if i < 0 || i >= len(in.Args) {
		return nil
	}
	return in.Args[i]
}

// RefArg returns argument i as a reference.
func (in *Instance) RefArg(i int) (Ref, bool) {
	r, ok := in.Arg(i).(Ref)
	return r, ok
}

// RefsArg returns argument i as a list of references, skipping other items.
func (in *Instance) RefsArg(i int) []Ref {
	list, _ := in.Arg(i).([]any)
	out := make([]Ref, 0, len(list))
	for _, item := range list {
		if r, ok := item.(Ref); ok {
			out = append(out, r)
		}
	}
	return out
}

// StringArg returns argument i when it is a plain string.
func (in *Instance) StringArg(i int) (string, bool) {
	s, ok := in.Arg(i).(string)
	return s, ok
}
