package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bimquery/internal/config"
	"github.com/kailas-cloud/bimquery/internal/db"
	dbRedis "github.com/kailas-cloud/bimquery/internal/db/redis"
	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/ifc"
	"github.com/kailas-cloud/bimquery/internal/metrics"
	budgetrepo "github.com/kailas-cloud/bimquery/internal/repository/budget"
	"github.com/kailas-cloud/bimquery/internal/repository/modelsource"
	"github.com/kailas-cloud/bimquery/internal/repository/plancache"
	"github.com/kailas-cloud/bimquery/internal/repository/scene"
	httpapi "github.com/kailas-cloud/bimquery/internal/transport/chi"
	"github.com/kailas-cloud/bimquery/internal/transport/openai"
	healthuc "github.com/kailas-cloud/bimquery/internal/usecase/health"
	"github.com/kailas-cloud/bimquery/internal/usecase/indexing"
	"github.com/kailas-cloud/bimquery/internal/usecase/planning"
	queryuc "github.com/kailas-cloud/bimquery/internal/usecase/query"
	usageuc "github.com/kailas-cloud/bimquery/internal/usecase/usage"
	vieweruc "github.com/kailas-cloud/bimquery/internal/usecase/viewer"
	"github.com/kailas-cloud/bimquery/internal/version"
)

// engine is the wired application shared by serve and mcp.
type engine struct {
	store         db.Store
	viewer        *vieweruc.Service
	query         *queryuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	sources       httpapi.ModelSource
	maxModelBytes int64
}

func (e *engine) Close() {
	if e.store != nil {
		e.store.Close()
	}
}

// buildEngine is the composition root.
func buildEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*engine, error) {
	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	e := &engine{store: store}

	metrics.RegisterModelMetrics()
	metrics.RegisterPlannerMetrics()
	metrics.RegisterHTTPMetrics()

	e.maxModelBytes = int64(cfg.Index.MaxModelMB) << 20
	e.viewer = vieweruc.New(
		ifc.NewParser(e.maxModelBytes),
		indexing.New(cfg.Index.Classes, cfg.Index.ProgressEvery),
		func(ids []int) vieweruc.Scene { return scene.New(ids) },
	)

	// Single BudgetTracker shared by the planner and the usage service.
	var budget *planning.BudgetTracker
	if b := cfg.LLM.Budget; b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0 {
		action := planning.BudgetActionWarn
		if b.Action == "reject" {
			action = planning.BudgetActionReject
		}
		budget = planning.NewBudgetTracker(cfg.LLM.Provider, b.DailyTokenLimit, b.MonthlyTokenLimit, action, logger)
		if store != nil {
			budget.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
		}
	}

	// Pass nil interfaces, not typed nil pointers, when a part is not configured.
	var (
		planner        queryuc.Planner
		plannerChecker healthuc.PlannerChecker
		budgetReader   usageuc.BudgetReader
		dbPinger       healthuc.DBPinger
	)
	if budget != nil {
		budgetReader = budget
	}
	if store != nil {
		dbPinger = store
	}
	if cfg.LLM.Enabled() {
		base := openai.NewPlanner(&openai.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
			User:     cfg.LLM.User,
			Provider: cfg.LLM.Provider,
			Timeout:  time.Duration(cfg.LLM.TimeoutSec) * time.Second,
			Logger:   logger,
		})
		plannerChecker = base
		planner = buildPlanner(base, cfg.LLM, store, budget, logger)
		logger.Info("Planner enabled",
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model),
			zap.Bool("cache", cfg.LLM.Cache.Enabled && store != nil),
		)
	} else {
		logger.Info("Planner disabled, natural-language queries are unavailable")
	}

	e.query = queryuc.New(e.viewer, planner, cfg.Index.SchemaMaxPairs)
	e.usage = usageuc.New(budgetReader, cfg.LLM.Provider)
	e.health = healthuc.New(dbPinger, plannerChecker, e.viewer)

	if cfg.Sources.LocalRoot != "" || cfg.Sources.S3.Endpoint != "" {
		src, err := modelsource.New(modelsource.Config{
			Endpoint:  cfg.Sources.S3.Endpoint,
			AccessKey: cfg.Sources.S3.AccessKey,
			SecretKey: cfg.Sources.S3.SecretKey,
			Region:    cfg.Sources.S3.Region,
			UseSSL:    cfg.Sources.S3.UseSSL,
			Root:      cfg.Sources.LocalRoot,
		})
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("create model source: %w", err)
		}
		e.sources = src
	}
	return e, nil
}

// buildPlanner assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildPlanner(
	base domain.Planner,
	cfg config.LLMConfig,
	store db.Store,
	budget *planning.BudgetTracker,
	logger *zap.Logger,
) domain.Planner {
	planner := base
	if cfg.Cache.Enabled && store != nil {
		planner = plancache.New(base, store, cfg.Model,
			time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.PlanCacheTotal, logger)
	}

	opts := []planning.Option{planning.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)}
	if budget != nil {
		opts = append(opts, planning.WithBudget(budget))
	}
	return planning.NewInstrumentedPlanner(planner, cfg.Provider, cfg.Model, logger, opts...)
}

// openStore returns a nil store for the "none" driver.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverNone, "":
		logger.Info("No database configured, plan cache and budget persistence disabled")
		return nil, nil
	case config.DriverRedis, config.DriverValkey:
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Addrs,
		Username:   cfg.Username,
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: "bimquery/" + version.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.String("driver", cfg.Driver), zap.Strings("addrs", cfg.Addrs))
	return store, nil
}

// preload makes path the current model before serving.
func (e *engine) preload(ctx context.Context, path string, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open model: %w", err)
	}
	defer func() { _ = f.Close() }()

	sess, err := e.viewer.Load(ctx, filepath.Base(path), f, nil)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	logger.Info("Model loaded",
		zap.String("model", sess.Name),
		zap.Int("elements", sess.Report.Elements),
		zap.Int("skipped", sess.Report.Skipped),
		zap.Duration("duration", sess.Report.Duration),
	)
	return nil
}
