package bimquery

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/bimquery/internal/domain"
)

// Planner turns a natural-language prompt into a filter specification.
// schema is the vocabulary of the loaded model.
type Planner interface {
	Plan(ctx context.Context, prompt string, schema Summary) (Plan, error)
}

// plannerAdapter wraps a public Planner to satisfy domain.Planner.
type plannerAdapter struct {
	inner Planner
}

func (a *plannerAdapter) Plan(ctx context.Context, req domain.PlanRequest) (domain.PlanResult, error) {
	p, err := a.inner.Plan(ctx, req.Prompt, summaryFromDomain(req.Schema))
	if err != nil {
		return domain.PlanResult{}, fmt.Errorf("plan: %w: %w", domain.ErrPlannerError, err)
	}
	spec, err := specToDomain(p.Spec)
	if err != nil {
		return domain.PlanResult{}, fmt.Errorf("plan: %w: %w", domain.ErrPlannerError, err)
	}
	return domain.PlanResult{Spec: spec, TotalTokens: p.TotalTokens}, nil
}
