// Package chi serves the query engine over HTTP.
package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/domain/element"
	"github.com/kailas-cloud/bimquery/internal/domain/filter"
	domusage "github.com/kailas-cloud/bimquery/internal/domain/usage"
	"github.com/kailas-cloud/bimquery/internal/export"
	"github.com/kailas-cloud/bimquery/internal/logger"
	healthuc "github.com/kailas-cloud/bimquery/internal/usecase/health"
	queryuc "github.com/kailas-cloud/bimquery/internal/usecase/query"
	usageuc "github.com/kailas-cloud/bimquery/internal/usecase/usage"
	vieweruc "github.com/kailas-cloud/bimquery/internal/usecase/viewer"
)

const (
	// DefaultModelName names uploads that carry no ?name=.
	DefaultModelName = "model.ifc"

	maxJSONBodyBytes = 1 << 20
)

// ModelSource opens remote or server-side model files.
type ModelSource interface {
	Open(ctx context.Context, source string) (io.ReadCloser, string, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	viewer        *vieweruc.Service
	query         *queryuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	sources       ModelSource
	maxModelBytes int64
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. sources may be nil, which disables
// POST /models/remote. maxModelBytes <= 0 leaves uploads unbounded.
func NewServer(
	viewer *vieweruc.Service,
	query *queryuc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	sources ModelSource,
	maxModelBytes int64,
	logger *zap.Logger,
) *Server {
	s := &Server{
		viewer:        viewer,
		query:         query,
		usage:         usage,
		health:        health,
		sources:       sources,
		maxModelBytes: maxModelBytes,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		modelTooLargeHandler,
		sentinelHandler(domain.ErrPlannerQuotaExceeded,
			http.StatusPaymentRequired, ErrorCodePlannerQuotaExceeded),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrPlannerError, http.StatusBadGateway, ErrorCodePlannerError),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, ErrorCodeNotImplemented),
		sentinelHandler(domain.ErrNoModelLoaded, http.StatusConflict, ErrorCodeNoModelLoaded),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrParseFailure, http.StatusUnprocessableEntity, ErrorCodeModelLoadFailed),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(filter.ErrMalformedSpec, http.StatusBadRequest, ErrorCodeValidationFailed),
	}
	return s
}

// UploadModel handles POST /models. The body is the model file.
func (s *Server) UploadModel(w http.ResponseWriter, r *http.Request) {
	var name string
	if err := runtime.BindQueryParameter("form", true, false, "name", r.URL.Query(), &name); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid name parameter")
		return
	}
	if name == "" {
		name = DefaultModelName
	}

	body := io.Reader(r.Body)
	if s.maxModelBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxModelBytes)
	}
	s.loadModel(w, r, name, body)
}

// LoadRemoteModel handles POST /models/remote.
func (s *Server) LoadRemoteModel(w http.ResponseWriter, r *http.Request) {
	var req RemoteModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if s.sources == nil {
		s.handleDomainError(w, domain.ErrNotImplemented)
		return
	}

	rc, name, err := s.sources.Open(r.Context(), req.Source)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	defer func() { _ = rc.Close() }()

	s.loadModel(w, r, name, rc)
}

func (s *Server) loadModel(w http.ResponseWriter, r *http.Request, name string, body io.Reader) {
	log := logger.FromContext(r.Context())
	progress := func(msg string) {
		if msg != "" {
			log.Debug("Model load progress", zap.String("model", name), zap.String("stage", msg))
		}
	}

	sess, err := s.viewer.Load(r.Context(), name, body, progress)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	log.Info("Model loaded",
		zap.String("model", name),
		zap.Int("elements", sess.Report.Elements),
		zap.Int("skipped", sess.Report.Skipped),
		zap.Duration("duration", sess.Report.Duration),
	)
	writeJSON(w, http.StatusOK, modelToResponse(sess))
}

// GetCurrentModel handles GET /models/current.
func (s *Server) GetCurrentModel(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.viewer.Current()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modelToResponse(sess))
}

// GetSchema handles GET /schema.
func (s *Server) GetSchema(w http.ResponseWriter, r *http.Request) {
	strict, ok := boolParam(w, r, "strict")
	if !ok {
		return
	}
	sum, err := s.query.Schema(r.Context(), strict)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.query.Ask(ctx, req.Prompt, req.Strict)
	setPlannerHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultToResponse(res))
}

// Filter handles POST /filter. The body is a filter specification.
func (s *Server) Filter(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid request body")
		return
	}
	spec, err := filter.Decode(data)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	res, err := s.query.Filter(r.Context(), spec)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultToResponse(res))
}

// GetElement handles GET /elements/{expressID}.
func (s *Server) GetElement(w http.ResponseWriter, r *http.Request) {
	var id int
	err := runtime.BindStyledParameterWithOptions("simple", "expressID", chi.URLParam(r, "expressID"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid expressID")
		return
	}

	rec, err := s.query.Element(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ExportCSV handles GET /export.csv.
func (s *Server) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := s.query.Export(r.Context(), &buf)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.DefaultFilename+`"`)
	w.Header().Set("X-Total-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// GetView handles GET /view.
func (s *Server) GetView(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.viewer.Current()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewToResponse(sess))
}

// ResetView handles POST /view/reset.
func (s *Server) ResetView(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.viewer.Current()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, viewToResponse(sess))
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	var raw string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &raw); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid period parameter")
		return
	}
	period, err := domusage.ParsePeriod(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "period must be day, month or total")
		return
	}

	report := s.usage.GetReport(r.Context(), period)

	resp := UsageResponse{
		Period:   string(report.Period()),
		Provider: report.Provider(),
		Usage:    UsageMetrics{Tokens: report.TokensUsed()},
		Budget: BudgetStatus{
			TokensLimit:     report.Budget().TokensLimit(),
			TokensRemaining: report.Budget().TokensRemaining(),
			IsExhausted:     report.Budget().IsExhausted(),
		},
	}

	if report.PeriodStart() > 0 {
		start := time.UnixMilli(report.PeriodStart()).UTC()
		end := time.UnixMilli(report.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}

	if report.Budget().ResetsAt() > 0 && !report.Budget().Unlimited() {
		resetsAt := time.UnixMilli(report.Budget().ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setPlannerHeaders(w http.ResponseWriter, usage *domain.PlannerUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Planner-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func boolParam(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	var v bool
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid "+name+" parameter")
		return false, false
	}
	return v, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// publicMessages replace sentinel text where the sentinel itself says too
// little or too much. Order matters: a malformed planner reply carries both
// ErrPlannerError and ErrMalformedSpec.
var publicMessages = []struct {
	err error
	msg string
}{
	{domain.ErrPlannerQuotaExceeded, domain.ErrPlannerQuotaExceeded.Error()},
	{domain.ErrRateLimited, domain.ErrRateLimited.Error()},
	{domain.ErrPlannerError, "query failed"},
	{domain.ErrNotImplemented, domain.ErrNotImplemented.Error()},
	{domain.ErrNoModelLoaded, domain.ErrNoModelLoaded.Error()},
	{domain.ErrNotFound, domain.ErrNotFound.Error()},
	{domain.ErrParseFailure, "model load failed"},
	{domain.ErrInvalidRequest, domain.ErrInvalidRequest.Error()},
	{filter.ErrMalformedSpec, filter.ErrMalformedSpec.Error()},
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, m := range publicMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// modelTooLargeHandler handles uploads cut off by http.MaxBytesReader.
func modelTooLargeHandler(w http.ResponseWriter, err error, _ string) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	writeError(w, http.StatusRequestEntityTooLarge, ErrorCodeModelTooLarge,
		"model exceeds "+strconv.FormatInt(mbe.Limit, 10)+" bytes")
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func modelToResponse(sess *vieweruc.Session) ModelResponse {
	classes := sess.Report.Classes
	if classes == nil {
		classes = sess.Index.ClassCounts()
	}
	return ModelResponse{
		Name:       sess.Name,
		LoadedAt:   sess.LoadedAt,
		Elements:   sess.Report.Elements,
		Skipped:    sess.Report.Skipped,
		Meshes:     sess.Report.Meshes,
		Classes:    classes,
		DurationMs: sess.Report.Duration.Milliseconds(),
	}
}

func resultToResponse(res queryuc.Result) QueryResponse {
	elements := res.Matches
	if elements == nil {
		elements = []*element.Record{}
	}
	return QueryResponse{
		Spec:     res.Spec,
		Total:    res.Total(),
		Elements: elements,
		Cached:   res.Cached,
	}
}

func viewToResponse(sess *vieweruc.Session) ViewResponse {
	resp := ViewResponse{
		Model:    sess.Name,
		Filtered: sess.FilteredIDs(),
		Visible:  []int{},
	}
	if resp.Filtered == nil {
		resp.Filtered = []int{}
	}
	if sess.Scene != nil {
		if v := sess.Scene.Visible(); v != nil {
			resp.Visible = v
		}
		resp.Meshes = len(sess.Scene.MeshIDs())
	}
	return resp
}
