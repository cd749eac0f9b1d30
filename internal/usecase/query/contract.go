package query

import (
	"context"

	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/usecase/viewer"
)

// Sessions provides the currently loaded model.
type Sessions interface {
	Current() (*viewer.Session, error)
}

// Planner turns a prompt and a schema summary into a filter spec.
type Planner interface {
	Plan(ctx context.Context, req domain.PlanRequest) (domain.PlanResult, error)
}
