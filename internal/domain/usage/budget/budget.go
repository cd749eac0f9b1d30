// Package budget holds the planner token budget snapshot.
package budget

// Budget is a snapshot of the planner token budget for one period.
// A zero limit means the period is unlimited.
type Budget struct {
	limit     int64
	remaining int64
	resetsAt  int64 // unix millis, formatted at the transport layer
}

// New creates a Budget snapshot. Negative remaining values are clamped to 0.
func New(limit, remaining, resetsAt int64) Budget {
	if limit <= 0 {
		return Budget{resetsAt: resetsAt}
	}
	return Budget{limit: limit, remaining: max(remaining, 0), resetsAt: resetsAt}
}

// Unlimited reports whether no limit is configured.
func (b Budget) Unlimited() bool { return b.limit <= 0 }

// TokensLimit returns the token cap, 0 when unlimited.
func (b Budget) TokensLimit() int64 { return b.limit }

// TokensRemaining returns tokens left, 0 when unlimited.
func (b Budget) TokensRemaining() int64 { return b.remaining }

// IsExhausted reports whether a limited budget is spent.
func (b Budget) IsExhausted() bool { return !b.Unlimited() && b.remaining == 0 }

// ResetsAt returns the reset timestamp (unix millis), 0 if it never resets.
func (b Budget) ResetsAt() int64 { return b.resetsAt }
