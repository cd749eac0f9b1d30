// Package openai implements the query planner over an OpenAI-compatible
// chat completions API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/domain/filter"
	"github.com/kailas-cloud/bimquery/internal/domain/schema"
	"github.com/kailas-cloud/bimquery/internal/metrics"
)

const systemPrompt = `You are a BIM query planner. Output ONLY a JSON object as specified. If unsure, prefer "contains" on Name or IfcType.`

const contractPrompt = `Return JSON:
{
  "classes": [IFC_CLASS_NAMES],
  "conditions": [
    {"field":"IfcType|Name|PredefinedType|ObjectType|Tag|pset:Pset:Prop",
     "op":"equals|contains|startsWith|in|regex|gt|lt",
     "value": any}
  ],
  "limit": <integer|null>
}`

// zeroTemperature asks for deterministic output. A literal 0 is dropped by
// the request's omitempty tag.
const zeroTemperature = math.SmallestNonzeroFloat32

// Planner turns prompts into filter specs via chat completions.
type Planner struct {
	client   *openai.Client
	model    string
	user     string
	provider string
	logger   *zap.Logger
}

// Config holds the planner provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	User     string
	Provider string
	// Timeout bounds one completion call. 0 keeps the client default.
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewPlanner creates an OpenAI-compatible planner.
func NewPlanner(cfg *Config) *Planner {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		user:     cfg.User,
		provider: cfg.Provider,
		logger:   log,
	}
}

// Plan implements domain.Planner.
func (p *Planner) Plan(ctx context.Context, req domain.PlanRequest) (domain.PlanResult, error) {
	schemaMsg, err := SchemaPrompt(req.Schema)
	if err != nil {
		return domain.PlanResult{}, fmt.Errorf("render schema prompt: %w", err)
	}

	chat := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: zeroTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleSystem, Content: schemaMsg},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		User: p.user,
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, chat)
	duration := time.Since(start)

	if err != nil {
		metrics.PlannerRequestsTotal.WithLabelValues(p.provider, p.model, "error").Inc()
		metrics.PlannerErrorsTotal.WithLabelValues(p.provider, p.model, "api_error").Inc()
		return domain.PlanResult{}, parseAPIError(err)
	}

	metrics.PlannerRequestsTotal.WithLabelValues(p.provider, p.model, "success").Inc()
	metrics.PlannerRequestDuration.WithLabelValues(p.provider, p.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.PlannerTokensTotal.WithLabelValues(p.provider, p.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.PlannerTokensTotal.WithLabelValues(p.provider, p.model, "completion").Add(float64(resp.Usage.CompletionTokens))
		metrics.PlannerTokensTotal.WithLabelValues(p.provider, p.model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	content := "{}"
	if len(resp.Choices) > 0 && strings.TrimSpace(resp.Choices[0].Message.Content) != "" {
		content = resp.Choices[0].Message.Content
	}

	spec, err := filter.Decode([]byte(content))
	if err != nil {
		metrics.PlannerErrorsTotal.WithLabelValues(p.provider, p.model, "malformed_spec").Inc()
		p.logger.Warn("Planner returned malformed spec",
			zap.String("model", p.model),
			zap.String("content", content),
			zap.Error(err),
		)
		return domain.PlanResult{}, fmt.Errorf("decode planner output: %w: %w", domain.ErrPlannerError, err)
	}

	return domain.PlanResult{
		Spec:         spec,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (p *Planner) HealthCheck(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// SchemaPrompt renders the vocabulary and the JSON contract for the model.
// Only names from the summary are included.
func SchemaPrompt(sum schema.Summary) (string, error) {
	classes, err := json.Marshal(nonNil(sum.Classes))
	if err != nil {
		return "", err
	}
	psets, err := json.Marshal(sum.Psets)
	if err != nil {
		return "", err
	}
	fields, err := json.Marshal(nonNil(sum.Fields))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Schema:\n")
	fmt.Fprintf(&b, "- Supported IFC classes: %s\n", classes)
	fmt.Fprintf(&b, "- Property sets and properties: %s\n", psets)
	fmt.Fprintf(&b, "- Element fields: %s\n\n", fields)
	b.WriteString(contractPrompt)
	return b.String(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// parseAPIError wraps every provider failure with domain.ErrPlannerError.
func parseAPIError(err error) error {
	wrap := domain.ErrPlannerError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("planner API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("planner API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("planner API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("planner request: %w: %w", err, wrap)
	}
	return fmt.Errorf("planner request failed: %w: %w", err, wrap)
}

// extractDetail reads {"detail": "..."} error bodies some compatible
// providers return.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
