package domain

import (
	"context"

	"github.com/kailas-cloud/bimquery/internal/domain/filter"
	"github.com/kailas-cloud/bimquery/internal/domain/schema"
)

// Planner turns a natural-language prompt into a filter specification.
// Its output is untrusted input to the evaluator.
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (PlanResult, error)
}

// HealthChecker verifies planner provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// PlanRequest carries everything the planner may see: the prompt and a
// name-only schema summary.
type PlanRequest struct {
	Prompt string
	Schema schema.Summary
	Strict bool
}

// PlanResult carries the planned spec and token usage through the decorator chain.
type PlanResult struct {
	Spec         filter.Spec
	PromptTokens int
	TotalTokens  int
	Cached       bool
}
