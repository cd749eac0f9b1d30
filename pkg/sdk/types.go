package bimquery

import "time"

// Condition is one {field, op, value} clause. Field is IfcType, a direct
// attribute (Name, PredefinedType, ObjectType, Tag, GlobalId, ExpressID) or
// pset:<Pset>:<Prop>. Value is a string, number, bool, nil, or a slice of
// those for "in".
type Condition struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// Spec is a structured element filter. Conditions are combined with AND.
// Empty Classes searches every indexed class; Limit <= 0 means unlimited.
type Spec struct {
	Classes    []string    `json:"classes"`
	Conditions []Condition `json:"conditions"`
	Limit      int         `json:"limit,omitempty"`
}

// Element is one indexed building element.
type Element struct {
	ExpressID      int                       `json:"expressID"`
	GlobalID       string                    `json:"globalId"`
	IfcClass       string                    `json:"ifcClass"`
	Name           string                    `json:"name"`
	PredefinedType string                    `json:"predefinedType"`
	ObjectType     string                    `json:"objectType"`
	Tag            string                    `json:"tag"`
	Psets          map[string]map[string]any `json:"psets"`
	MeshIDs        []int                     `json:"meshIDs"`
}

// Result is the outcome of Filter or Ask. The matched elements are also
// the client's current selection.
type Result struct {
	Spec     Spec
	Elements []Element
	Cached   bool
	Tokens   int
}

// Total returns the number of matched elements.
func (r Result) Total() int { return len(r.Elements) }

// PropertySet lists the property names observed under one pset.
type PropertySet struct {
	Pset  string   `json:"pset"`
	Props []string `json:"props"`
}

// Summary is the vocabulary of the loaded model.
type Summary struct {
	Classes   []string          `json:"classes"`
	Psets     []PropertySet     `json:"psets"`
	Fields    []string          `json:"fields"`
	Values    map[string]string `json:"values,omitempty"`
	Strict    bool              `json:"strict"`
	Truncated bool              `json:"truncated,omitempty"`
}

// ModelInfo describes the loaded model.
type ModelInfo struct {
	Name     string
	LoadedAt time.Time
	Elements int
	Skipped  int
	Meshes   int
	Classes  map[string]int
	Duration time.Duration
}

// Plan is a planner's answer to a prompt.
type Plan struct {
	Spec        Spec
	TotalTokens int
}
