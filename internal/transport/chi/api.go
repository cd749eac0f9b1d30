package chi

import (
	"time"

	"github.com/kailas-cloud/bimquery/internal/domain/element"
	"github.com/kailas-cloud/bimquery/internal/domain/filter"
)

// ErrorCode is a machine-readable error kind.
type ErrorCode string

const (
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeUnauthorized         ErrorCode = "unauthorized"
	ErrorCodeValidationFailed     ErrorCode = "validation_failed"
	ErrorCodeNoModelLoaded        ErrorCode = "no_model_loaded"
	ErrorCodeNotFound             ErrorCode = "not_found"
	ErrorCodeModelLoadFailed      ErrorCode = "model_load_failed"
	ErrorCodeModelTooLarge        ErrorCode = "model_too_large"
	ErrorCodeRateLimited          ErrorCode = "rate_limited"
	ErrorCodePlannerQuotaExceeded ErrorCode = "planner_quota_exceeded"
	ErrorCodePlannerError         ErrorCode = "planner_error"
	ErrorCodeNotImplemented       ErrorCode = "not_implemented"
	ErrorCodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// RemoteModelRequest is the body of POST /models/remote.
type RemoteModelRequest struct {
	Source string `json:"source"`
}

// ModelResponse describes the loaded model.
type ModelResponse struct {
	Name       string         `json:"name"`
	LoadedAt   time.Time      `json:"loaded_at"`
	Elements   int            `json:"elements"`
	Skipped    int            `json:"skipped"`
	Meshes     int            `json:"meshes"`
	Classes    map[string]int `json:"classes"`
	DurationMs int64          `json:"duration_ms"`
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Prompt string `json:"prompt"`
	Strict bool   `json:"strict"`
}

// QueryResponse is returned by POST /query and POST /filter.
type QueryResponse struct {
	Spec     filter.Spec       `json:"spec"`
	Total    int               `json:"total"`
	Elements []*element.Record `json:"elements"`
	Cached   bool              `json:"cached"`
}

// ViewResponse is the isolation state a renderer applies.
type ViewResponse struct {
	Model    string `json:"model"`
	Filtered []int  `json:"filtered"`
	Visible  []int  `json:"visible"`
	Meshes   int    `json:"meshes"`
}

// UsageMetrics holds consumed planner tokens.
type UsageMetrics struct {
	Tokens int64 `json:"tokens"`
}

// BudgetStatus is the planner budget for the period.
type BudgetStatus struct {
	TokensLimit     int64      `json:"tokens_limit"`
	TokensRemaining int64      `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// UsageResponse is returned by GET /usage.
type UsageResponse struct {
	Period        string       `json:"period"`
	Provider      string       `json:"provider,omitempty"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
