package bimquery

import (
	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/domain/filter"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound             = domain.ErrNotFound
	ErrNoModelLoaded        = domain.ErrNoModelLoaded
	ErrParseFailure         = domain.ErrParseFailure
	ErrInvalidRequest       = domain.ErrInvalidRequest
	ErrMalformedSpec        = filter.ErrMalformedSpec
	ErrRateLimited          = domain.ErrRateLimited
	ErrPlannerQuotaExceeded = domain.ErrPlannerQuotaExceeded
	ErrPlannerError         = domain.ErrPlannerError
	ErrNotImplemented       = domain.ErrNotImplemented
)
