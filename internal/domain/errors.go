package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrNoModelLoaded signals that no model has been loaded yet.
	ErrNoModelLoaded = errors.New("no model loaded")
	// ErrParseFailure signals a model that could not be parsed or enumerated.
	ErrParseFailure = errors.New("model parse failure")
	// ErrInvalidRequest signals a request that fails validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrPlannerQuotaExceeded signals an exhausted planner token budget.
	ErrPlannerQuotaExceeded = errors.New("planner quota exceeded")
	// ErrPlannerError signals a planner (LLM provider) failure.
	ErrPlannerError = errors.New("planner provider error")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// ParseError wraps ErrParseFailure with the model name and the stage that failed.
type ParseError struct {
	Model string
	Stage string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s (%s): %v", ErrParseFailure.Error(), e.Model, e.Stage, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *ParseError) Unwrap() []error { return []error{ErrParseFailure, e.Err} }

// NewParseError creates a parse failure error.
func NewParseError(model, stage string, err error) error {
	return &ParseError{Model: model, Stage: stage, Err: err}
}
