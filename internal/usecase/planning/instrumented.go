package planning

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/metrics"
)

// BudgetChecker is the budget surface the planner decorator needs.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedPlanner adds budget enforcement, rate limiting and logging
// around a planner. Request/latency/token metrics live in the transport.
type InstrumentedPlanner struct {
	inner    domain.Planner
	provider string
	model    string
	budget   BudgetChecker
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// Option configures an InstrumentedPlanner.
type Option func(*InstrumentedPlanner)

// WithBudget enables token budget enforcement.
func WithBudget(b BudgetChecker) Option {
	return func(p *InstrumentedPlanner) { p.budget = b }
}

// WithRateLimit allows rps planner calls per second with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(p *InstrumentedPlanner) {
		if rps <= 0 {
			p.limiter = nil
			return
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// NewInstrumentedPlanner wraps inner.
func NewInstrumentedPlanner(inner domain.Planner, provider, model string, logger *zap.Logger, opts ...Option) *InstrumentedPlanner {
	p := &InstrumentedPlanner{inner: inner, provider: provider, model: model, logger: logger}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Plan checks rate and budget, delegates, and records token usage.
func (p *InstrumentedPlanner) Plan(ctx context.Context, req domain.PlanRequest) (domain.PlanResult, error) {
	if p.limiter != nil && !p.limiter.Allow() {
		p.logger.Warn("Planner rate limited", zap.String("provider", p.provider))
		return domain.PlanResult{}, domain.ErrRateLimited
	}
	if p.budget != nil {
		if err := p.budget.Check(ctx); err != nil {
			p.logger.Error("Planner budget exceeded",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Error(err),
			)
			return domain.PlanResult{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	res, err := p.inner.Plan(ctx, req)
	duration := time.Since(start)
	if err != nil {
		p.logger.Error("Planner request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.PlanResult{}, fmt.Errorf("plan: %w", err)
	}

	if p.budget != nil && res.TotalTokens > 0 {
		p.budget.Record(int64(res.TotalTokens))
		metrics.PlannerBudgetTokensRemaining.WithLabelValues(p.provider, "daily").Set(float64(p.budget.RemainingDaily()))
		metrics.PlannerBudgetTokensRemaining.WithLabelValues(p.provider, "monthly").Set(float64(p.budget.RemainingMonthly()))
	}

	p.logger.Debug("Planner request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Bool("cached", res.Cached),
		zap.Int("conditions", len(res.Spec.Conditions)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}
