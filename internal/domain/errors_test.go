package domain

import (
	"context"
	"errors"
	"io"
	"testing"
)

func TestParseError_MatchesSentinelAndCause(t *testing.T) {
	err := NewParseError("house.ifc", "enumerate IFCWALL", io.ErrUnexpectedEOF)

	if !errors.Is(err, ErrParseFailure) {
		t.Error("expected errors.Is(err, ErrParseFailure)")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected errors.Is(err, io.ErrUnexpectedEOF)")
	}

	var pe *ParseError
	if !errors.As(err, &pe) || pe.Stage != "enumerate IFCWALL" {
		t.Fatalf("expected *ParseError with stage, got %v", err)
	}
}

func TestPlannerUsage_Context(t *testing.T) {
	ctx, usage := NewContextWithUsage(context.Background())

	UsageFromContext(ctx).AddTokens(12)
	UsageFromContext(ctx).AddTokens(0)

	if usage.TotalTokens != 12 || !usage.Used {
		t.Fatalf("unexpected usage: %+v", usage)
	}

	// nil collector is safe
	UsageFromContext(context.Background()).AddTokens(5)
}
