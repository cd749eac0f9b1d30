package bimquery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/domain/element"
	"github.com/kailas-cloud/bimquery/internal/domain/filter"
	"github.com/kailas-cloud/bimquery/internal/domain/schema"
	"github.com/kailas-cloud/bimquery/internal/ifc"
	"github.com/kailas-cloud/bimquery/internal/repository/scene"
	"github.com/kailas-cloud/bimquery/internal/transport/openai"
	"github.com/kailas-cloud/bimquery/internal/usecase/indexing"
	"github.com/kailas-cloud/bimquery/internal/usecase/planning"
	queryuc "github.com/kailas-cloud/bimquery/internal/usecase/query"
	vieweruc "github.com/kailas-cloud/bimquery/internal/usecase/viewer"
)

const defaultOpenAIModel = "gpt-4o-mini"

// Internal interfaces, replaced in tests.
type viewerUseCase interface {
	Load(ctx context.Context, name string, r io.Reader, progress indexing.ProgressFunc) (*vieweruc.Session, error)
	Current() (*vieweruc.Session, error)
	Reset() error
}

type queryUseCase interface {
	Ask(ctx context.Context, prompt string, strict bool) (queryuc.Result, error)
	Filter(ctx context.Context, spec filter.Spec) (queryuc.Result, error)
	Schema(ctx context.Context, strict bool) (schema.Summary, error)
	Element(ctx context.Context, id int) (*element.Record, error)
	Export(ctx context.Context, w io.Writer) (int, error)
}

// Client is the bimquery SDK entry point. It is safe for concurrent use;
// loads are serialized.
type Client struct {
	viewer   viewerUseCase
	query    queryUseCase
	progress func(string)
	obs      *observer
}

// New creates a Client with no model loaded.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.schemaCap < 0 {
		return nil, errors.New("bimquery: schema cap must be >= 0")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	viewer := vieweruc.New(
		ifc.NewParser(cfg.maxModelBytes),
		indexing.New(cfg.classes, cfg.progressEvery),
		func(ids []int) vieweruc.Scene { return scene.New(ids) },
	)
	query := queryuc.New(viewer, buildPlanner(cfg), cfg.schemaCap)

	return &Client{
		viewer:   viewer,
		query:    query,
		progress: cfg.progress,
		obs:      obs,
	}, nil
}

// buildPlanner returns nil when neither WithPlanner nor WithOpenAI is set,
// which makes Ask fail with ErrNotImplemented.
func buildPlanner(cfg *clientConfig) queryuc.Planner {
	if cfg.planner != nil {
		return &plannerAdapter{inner: cfg.planner}
	}
	if cfg.openAIKey == "" {
		return nil
	}
	model := cfg.openAIModel
	if model == "" {
		model = defaultOpenAIModel
	}
	base := openai.NewPlanner(&openai.Config{
		APIKey:   cfg.openAIKey,
		BaseURL:  cfg.openAIBaseURL,
		Model:    model,
		Provider: "openai",
		Logger:   zap.NewNop(),
	})
	return planning.NewInstrumentedPlanner(base, "openai", model, zap.NewNop())
}

// Load reads a model from r and makes it current. name is used for display.
// On failure the previously loaded model stays current.
func (c *Client) Load(ctx context.Context, name string, r io.Reader) (info ModelInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe("load", start, err) }()

	var progress indexing.ProgressFunc
	if c.progress != nil {
		progress = c.progress
	}
	sess, err := c.viewer.Load(ctx, name, r, progress)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("load %s: %w", name, err)
	}
	return modelFromSession(sess), nil
}

// LoadFile loads a model from disk. Gzip and zstd compressed files are
// detected automatically.
func (c *Client) LoadFile(ctx context.Context, path string) (ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("open model: %w", err)
	}
	defer func() { _ = f.Close() }()
	return c.Load(ctx, filepath.Base(path), f)
}

// Model describes the loaded model.
func (c *Client) Model() (ModelInfo, error) {
	sess, err := c.viewer.Current()
	if err != nil {
		return ModelInfo{}, err
	}
	return modelFromSession(sess), nil
}

// Filter evaluates spec against the loaded model.
func (c *Client) Filter(ctx context.Context, spec Spec) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observeQuery("filter", start, res, err) }()

	ds, err := specToDomain(spec)
	if err != nil {
		return Result{}, err
	}
	return c.filter(ctx, ds)
}

// FilterJSON evaluates a JSON filter specification.
func (c *Client) FilterJSON(ctx context.Context, data []byte) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observeQuery("filter", start, res, err) }()

	ds, err := filter.Decode(data)
	if err != nil {
		return Result{}, err
	}
	return c.filter(ctx, ds)
}

func (c *Client) filter(ctx context.Context, spec filter.Spec) (Result, error) {
	res, err := c.query.Filter(ctx, spec)
	if err != nil {
		return Result{}, fmt.Errorf("filter: %w", err)
	}
	return resultFromDomain(res), nil
}

// Ask plans a filter from prompt with the configured planner and evaluates
// it. strict asks for the strict schema variant.
func (c *Client) Ask(ctx context.Context, prompt string, strict bool) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observeQuery("ask", start, res, err) }()

	ctx, usage := domain.NewContextWithUsage(ctx)
	qr, err := c.query.Ask(ctx, prompt, strict)
	if err != nil {
		return Result{}, fmt.Errorf("ask: %w", err)
	}
	out := resultFromDomain(qr)
	out.Tokens = usage.TotalTokens
	return out, nil
}

// Schema summarizes the loaded model's vocabulary.
func (c *Client) Schema(ctx context.Context, strict bool) (Summary, error) {
	sum, err := c.query.Schema(ctx, strict)
	if err != nil {
		return Summary{}, fmt.Errorf("schema: %w", err)
	}
	return summaryFromDomain(sum), nil
}

// Element returns one element by expressID.
func (c *Client) Element(ctx context.Context, expressID int) (Element, error) {
	rec, err := c.query.Element(ctx, expressID)
	if err != nil {
		return Element{}, err
	}
	return elementFromDomain(rec), nil
}

// Export writes the current selection as CSV and returns the row count.
func (c *Client) Export(ctx context.Context, w io.Writer) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("export", start, err) }()

	return c.query.Export(ctx, w)
}

// Reset clears the selection and shows every element again.
func (c *Client) Reset() error {
	return c.viewer.Reset()
}
