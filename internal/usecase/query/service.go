// Package query runs natural-language and structured queries against the
// loaded model and isolates the matches.
package query

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/domain/element"
	"github.com/kailas-cloud/bimquery/internal/domain/filter"
	"github.com/kailas-cloud/bimquery/internal/domain/schema"
	"github.com/kailas-cloud/bimquery/internal/export"
	"github.com/kailas-cloud/bimquery/internal/logger"
	"github.com/kailas-cloud/bimquery/internal/metrics"
	"github.com/kailas-cloud/bimquery/internal/usecase/viewer"
)

// MaxPromptLength bounds the natural-language prompt in bytes.
const MaxPromptLength = 4096

const (
	kindAsk    = "ask"
	kindFilter = "filter"
)

// Result is the outcome of one query.
type Result struct {
	Spec    filter.Spec
	Matches []*element.Record
	Cached  bool
	Tokens  int
}

// Total is the number of matched elements.
func (r Result) Total() int { return len(r.Matches) }

// Service answers queries against the current session.
type Service struct {
	sessions Sessions
	planner  Planner
	maxPairs int
}

// New creates a query service. planner may be nil, in which case Ask
// returns domain.ErrNotImplemented. maxPairs caps the schema summary (0 = no cap).
func New(sessions Sessions, planner Planner, maxPairs int) *Service {
	return &Service{sessions: sessions, planner: planner, maxPairs: maxPairs}
}

// Ask plans a filter from prompt, evaluates it and isolates the matches.
func (s *Service) Ask(ctx context.Context, prompt string, strict bool) (Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Result{}, fmt.Errorf("%w: prompt is required", domain.ErrInvalidRequest)
	}
	if len(prompt) > MaxPromptLength {
		return Result{}, fmt.Errorf("%w: prompt exceeds %d bytes", domain.ErrInvalidRequest, MaxPromptLength)
	}
	if s.planner == nil {
		return Result{}, fmt.Errorf("%w: no planner configured", domain.ErrNotImplemented)
	}

	sess, err := s.sessions.Current()
	if err != nil {
		return Result{}, err
	}

	ctx, log := logger.WithModel(ctx, sess.Name)
	sum := schema.Summarize(sess.Index, schema.Options{Strict: strict, MaxPairs: s.maxPairs})
	planned, err := s.planner.Plan(ctx, domain.PlanRequest{Prompt: prompt, Schema: sum, Strict: strict})
	if err != nil {
		log.Error("Query planning failed", zap.Error(err))
		return Result{}, fmt.Errorf("plan query: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(planned.TotalTokens)

	res := s.run(ctx, sess, kindAsk, planned.Spec)
	res.Cached = planned.Cached
	res.Tokens = planned.TotalTokens
	return res, nil
}

// Filter evaluates spec directly and isolates the matches.
func (s *Service) Filter(ctx context.Context, spec filter.Spec) (Result, error) {
	if len(spec.Conditions) > filter.MaxConditions {
		return Result{}, fmt.Errorf("%w: at most %d conditions", domain.ErrInvalidRequest, filter.MaxConditions)
	}
	sess, err := s.sessions.Current()
	if err != nil {
		return Result{}, err
	}
	ctx, _ = logger.WithModel(ctx, sess.Name)
	return s.run(ctx, sess, kindFilter, spec), nil
}

func (s *Service) run(ctx context.Context, sess *viewer.Session, kind string, spec filter.Spec) Result {
	start := time.Now()
	matches := filter.Evaluate(spec, sess.Index)
	elapsed := time.Since(start)

	metrics.QueryDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	metrics.QueryMatches.WithLabelValues(kind).Observe(float64(len(matches)))

	sess.Isolate(matches)

	logger.FromContext(ctx).Info("Query evaluated",
		zap.String("kind", kind),
		zap.Strings("classes", spec.Classes),
		zap.Int("conditions", len(spec.Conditions)),
		zap.Int("limit", spec.Limit),
		zap.Int("matches", len(matches)),
		zap.Duration("duration", elapsed),
	)
	return Result{Spec: spec, Matches: matches}
}

// Schema summarizes the current model's vocabulary.
func (s *Service) Schema(_ context.Context, strict bool) (schema.Summary, error) {
	sess, err := s.sessions.Current()
	if err != nil {
		return schema.Summary{}, err
	}
	return schema.Summarize(sess.Index, schema.Options{Strict: strict, MaxPairs: s.maxPairs}), nil
}

// Element returns one record by expressID.
func (s *Service) Element(_ context.Context, id int) (*element.Record, error) {
	sess, err := s.sessions.Current()
	if err != nil {
		return nil, err
	}
	rec, ok := sess.Index.Get(id)
	if !ok {
		return nil, fmt.Errorf("element %d: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

// Export writes the current selection as CSV. An empty selection yields
// only the header row.
func (s *Service) Export(_ context.Context, w io.Writer) (int, error) {
	sess, err := s.sessions.Current()
	if err != nil {
		return 0, err
	}
	recs := sess.Filtered()
	if err := export.WriteCSV(w, recs); err != nil {
		return 0, fmt.Errorf("export csv: %w", err)
	}
	return len(recs), nil
}
