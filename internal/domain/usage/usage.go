// Package usage describes planner token usage over a reporting period.
package usage

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/bimquery/internal/domain/usage/budget"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// ParsePeriod accepts day, month or total (case-insensitive); empty means day.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodDay, nil
	case PeriodDay, PeriodMonth, PeriodTotal:
		return p, nil
	default:
		return "", fmt.Errorf("unknown usage period %q", s)
	}
}

// Report is a planner usage snapshot for one period.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	provider    string
	tokensUsed  int64
	budget      budget.Budget
}

// NewReport creates a usage report. Timestamps are unix millis; zero means
// the period is unbounded.
func NewReport(period Period, start, end int64, provider string, used int64, b budget.Budget) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		provider:    provider,
		tokensUsed:  used,
		budget:      b,
	}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the period start (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Provider returns the planner provider name.
func (r *Report) Provider() string { return r.provider }

// TokensUsed returns the tokens consumed in the period.
func (r *Report) TokensUsed() int64 { return r.tokensUsed }

// Budget returns the budget status.
func (r *Report) Budget() budget.Budget { return r.budget }
