package usage

import (
	"testing"

	"github.com/kailas-cloud/bimquery/internal/domain/usage/budget"
)

func TestNewReport(t *testing.T) {
	b := budget.New(1000000, 615800, 1700000000000)

	r := NewReport(PeriodMonth, 1700000000, 1702600000, "openai", 384200, b)

	if r.Period() != PeriodMonth {
		t.Errorf("Period() = %q", r.Period())
	}
	if r.PeriodStart() != 1700000000 || r.PeriodEnd() != 1702600000 {
		t.Errorf("period = %d..%d", r.PeriodStart(), r.PeriodEnd())
	}
	if r.Provider() != "openai" {
		t.Errorf("Provider() = %q", r.Provider())
	}
	if r.TokensUsed() != 384200 {
		t.Errorf("TokensUsed() = %d", r.TokensUsed())
	}
	if r.Budget().TokensLimit() != 1000000 || r.Budget().Unlimited() {
		t.Errorf("Budget() = limit %d, unlimited %v", r.Budget().TokensLimit(), r.Budget().Unlimited())
	}
}

func TestNewReport_UnlimitedBudget(t *testing.T) {
	r := NewReport(PeriodTotal, 0, 0, "openai", 42, budget.New(0, 0, 0))

	if !r.Budget().Unlimited() {
		t.Error("Budget().Unlimited() = false, want true")
	}
	if r.Budget().IsExhausted() {
		t.Error("unlimited budget must never be exhausted")
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in   string
		want Period
		ok   bool
	}{
		{"", PeriodDay, true},
		{"day", PeriodDay, true},
		{"Month", PeriodMonth, true},
		{" total ", PeriodTotal, true},
		{"week", "", false},
	}
	for _, tt := range tests {
		got, err := ParsePeriod(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParsePeriod(%q) = %q, %v", tt.in, got, err)
		}
	}
}
