package domain

import "context"

type plannerUsageKey struct{}

// PlannerUsage collects planner token usage for a single request.
// The handler puts a mutable pointer into the context before calling the service;
// the service writes after planning; the handler reads it for response headers.
type PlannerUsage struct {
	TotalTokens int
	Used        bool // true if the planner was called, even on a cache hit with 0 tokens
}

// NewContextWithUsage returns a context with a usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *PlannerUsage) {
	u := &PlannerUsage{}
	return context.WithValue(ctx, plannerUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *PlannerUsage {
	u, _ := ctx.Value(plannerUsageKey{}).(*PlannerUsage)
	return u
}

// AddTokens records consumed tokens.
func (u *PlannerUsage) AddTokens(n int) {
	if u != nil {
		u.TotalTokens += n
		u.Used = true
	}
}
