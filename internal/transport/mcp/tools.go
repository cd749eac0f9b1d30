package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/domain/element"
	"github.com/kailas-cloud/bimquery/internal/domain/filter"
	"github.com/kailas-cloud/bimquery/internal/domain/schema"
	queryuc "github.com/kailas-cloud/bimquery/internal/usecase/query"
)

// DefaultMaxResults caps the elements returned by one tool call.
const DefaultMaxResults = 50

type GetSchemaInput struct {
	Strict bool `json:"strict,omitempty" jsonschema:"request the strict schema variant"`
}

type ConditionInput struct {
	Field string `json:"field" jsonschema:"IfcType, Name, PredefinedType, ObjectType, Tag, GlobalId, ExpressID or pset:<Pset>:<Prop>"`
	Op    string `json:"op" jsonschema:"equals, contains, startsWith, in, regex, gt or lt"`
	Value any    `json:"value" jsonschema:"comparison value; an array for in"`
}

type FilterElementsInput struct {
	Classes    []string         `json:"classes,omitempty" jsonschema:"IFC classes to search, all indexed classes when empty"`
	Conditions []ConditionInput `json:"conditions,omitempty" jsonschema:"conditions combined with AND"`
	Limit      int              `json:"limit,omitempty" jsonschema:"stop after this many matches, 0 for no limit"`
	MaxResults int              `json:"max_results,omitempty" jsonschema:"elements to include in the response, default 50"`
}

type AskInput struct {
	Prompt     string `json:"prompt" jsonschema:"natural-language question about the model"`
	Strict     bool   `json:"strict,omitempty" jsonschema:"plan against the strict schema"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"elements to include in the response, default 50"`
}

type GetElementInput struct {
	ExpressID int `json:"express_id" jsonschema:"element expressID"`
}

type ModelInfoInput struct{}

type PropertySetOutput struct {
	Pset  string   `json:"pset"`
	Props []string `json:"props"`
}

type SchemaOutput struct {
	Classes   []string            `json:"classes"`
	Psets     []PropertySetOutput `json:"psets"`
	Fields    []string            `json:"fields"`
	Strict    bool                `json:"strict"`
	Truncated bool                `json:"truncated"`
}

type ConditionOutput struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

type SpecOutput struct {
	Classes    []string          `json:"classes"`
	Conditions []ConditionOutput `json:"conditions"`
	Limit      int               `json:"limit"`
}

type ElementOutput struct {
	ExpressID      int                       `json:"express_id"`
	GlobalID       string                    `json:"global_id"`
	IfcClass       string                    `json:"ifc_class"`
	Name           string                    `json:"name"`
	PredefinedType string                    `json:"predefined_type"`
	ObjectType     string                    `json:"object_type"`
	Tag            string                    `json:"tag"`
	Psets          map[string]map[string]any `json:"psets"`
}

type ElementsOutput struct {
	Spec     SpecOutput      `json:"spec"`
	Total    int             `json:"total"`
	Elements []ElementOutput `json:"elements"`
	Cached   bool            `json:"cached"`
}

type ModelInfoOutput struct {
	Loaded   bool           `json:"loaded"`
	Name     string         `json:"name,omitempty"`
	LoadedAt string         `json:"loaded_at,omitempty"`
	Elements int            `json:"elements"`
	Skipped  int            `json:"skipped"`
	Meshes   int            `json:"meshes"`
	Classes  map[string]int `json:"classes"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_schema",
		Description: "List the IFC classes, property sets and element fields of the loaded model",
	}, s.handleGetSchema)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "filter_elements",
		Description: "Filter model elements with a structured specification and isolate the matches",
	}, s.handleFilterElements)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "ask",
		Description: "Answer a natural-language question by planning a filter with the language model",
	}, s.handleAsk)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_element",
		Description: "Return one element with all of its property sets",
	}, s.handleGetElement)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "model_info",
		Description: "Describe the loaded model",
	}, s.handleModelInfo)
}

func (s *Server) handleGetSchema(ctx context.Context, _ *sdk.CallToolRequest, input GetSchemaInput) (*sdk.CallToolResult, SchemaOutput, error) {
	sum, err := s.query.Schema(ctx, input.Strict)
	if err != nil {
		return nil, SchemaOutput{}, s.toolError("get_schema", err)
	}
	return nil, schemaOutput(sum), nil
}

func (s *Server) handleFilterElements(ctx context.Context, _ *sdk.CallToolRequest, input FilterElementsInput) (*sdk.CallToolResult, ElementsOutput, error) {
	spec, err := specFromInput(input)
	if err != nil {
		return nil, ElementsOutput{}, err
	}
	res, err := s.query.Filter(ctx, spec)
	if err != nil {
		return nil, ElementsOutput{}, s.toolError("filter_elements", err)
	}
	return nil, elementsOutput(res, input.MaxResults), nil
}

func (s *Server) handleAsk(ctx context.Context, _ *sdk.CallToolRequest, input AskInput) (*sdk.CallToolResult, ElementsOutput, error) {
	if input.Prompt == "" {
		return nil, ElementsOutput{}, fmt.Errorf("prompt is required")
	}
	res, err := s.query.Ask(ctx, input.Prompt, input.Strict)
	if err != nil {
		return nil, ElementsOutput{}, s.toolError("ask", err)
	}
	return nil, elementsOutput(res, input.MaxResults), nil
}

func (s *Server) handleGetElement(ctx context.Context, _ *sdk.CallToolRequest, input GetElementInput) (*sdk.CallToolResult, ElementOutput, error) {
	rec, err := s.query.Element(ctx, input.ExpressID)
	if err != nil {
		return nil, ElementOutput{}, s.toolError("get_element", err)
	}
	return nil, elementOutput(rec), nil
}

func (s *Server) handleModelInfo(_ context.Context, _ *sdk.CallToolRequest, _ ModelInfoInput) (*sdk.CallToolResult, ModelInfoOutput, error) {
	sess, err := s.sessions.Current()
	if errors.Is(err, domain.ErrNoModelLoaded) {
		return nil, ModelInfoOutput{Classes: map[string]int{}}, nil
	}
	if err != nil {
		return nil, ModelInfoOutput{}, s.toolError("model_info", err)
	}
	return nil, ModelInfoOutput{
		Loaded:   true,
		Name:     sess.Name,
		LoadedAt: sess.LoadedAt.Format(time.RFC3339),
		Elements: sess.Report.Elements,
		Skipped:  sess.Report.Skipped,
		Meshes:   sess.Report.Meshes,
		Classes:  sess.Index.ClassCounts(),
	}, nil
}

// toolError turns a use case error into a message safe to show the model.
func (s *Server) toolError(tool string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNoModelLoaded):
		return errors.New("no model loaded")
	case errors.Is(err, domain.ErrNotFound):
		return errors.New("element not found")
	case errors.Is(err, domain.ErrInvalidRequest):
		return err
	case errors.Is(err, domain.ErrRateLimited):
		return errors.New("rate limited, retry later")
	case errors.Is(err, domain.ErrPlannerQuotaExceeded):
		return errors.New("planner token budget exhausted")
	case errors.Is(err, domain.ErrNotImplemented):
		return errors.New("no language model configured")
	}
	s.logger.Error("MCP tool failed", zap.String("tool", tool), zap.Error(err))
	return errors.New("query failed")
}

// specFromInput re-encodes the tool input so it passes the same decoder as
// planner output.
func specFromInput(in FilterElementsInput) (filter.Spec, error) {
	conditions := in.Conditions
	if conditions == nil {
		conditions = []ConditionInput{}
	}
	raw, err := json.Marshal(map[string]any{
		"classes":    in.Classes,
		"conditions": conditions,
		"limit":      in.Limit,
	})
	if err != nil {
		return filter.Spec{}, fmt.Errorf("encode spec: %w", err)
	}
	spec, err := filter.Decode(raw)
	if err != nil {
		return filter.Spec{}, err
	}
	return spec, nil
}

func schemaOutput(sum schema.Summary) SchemaOutput {
	out := SchemaOutput{
		Classes:   nonNil(sum.Classes),
		Psets:     make([]PropertySetOutput, 0, len(sum.Psets)),
		Fields:    nonNil(sum.Fields),
		Strict:    sum.Strict,
		Truncated: sum.Truncated,
	}
	for _, ps := range sum.Psets {
		out.Psets = append(out.Psets, PropertySetOutput{Pset: ps.Pset, Props: nonNil(ps.Props)})
	}
	return out
}

func specOutput(spec filter.Spec) SpecOutput {
	out := SpecOutput{
		Classes:    nonNil(spec.Classes),
		Conditions: make([]ConditionOutput, 0, len(spec.Conditions)),
		Limit:      spec.Limit,
	}
	for _, c := range spec.Conditions {
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
		out.Conditions = append(out.Conditions, ConditionOutput{Field: c.Field, Op: string(c.Op), Value: v})
	}
	return out
}

func elementsOutput(res queryuc.Result, maxResults int) ElementsOutput {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	n := min(len(res.Matches), maxResults)
	out := ElementsOutput{
		Spec:     specOutput(res.Spec),
		Total:    res.Total(),
		Elements: make([]ElementOutput, 0, n),
		Cached:   res.Cached,
	}
	for _, rec := range res.Matches[:n] {
		out.Elements = append(out.Elements, elementOutput(rec))
	}
	return out
}

func elementOutput(rec *element.Record) ElementOutput {
	psets := make(map[string]map[string]any, len(rec.PropertySets()))
	for name, props := range rec.PropertySets() {
		m := make(map[string]any, len(props))
		for prop, v := range props {
			m[prop] = v.Raw()
		}
		psets[name] = m
	}
	return ElementOutput{
		ExpressID:      rec.ExpressID(),
		GlobalID:       rec.GlobalID(),
		IfcClass:       rec.IfcClass(),
		Name:           rec.Name(),
		PredefinedType: rec.PredefinedType(),
		ObjectType:     rec.ObjectType(),
		Tag:            rec.Tag(),
		Psets:          psets,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
