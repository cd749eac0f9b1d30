package main

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bimquery/internal/config"
	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/usecase/planning"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	var cfg config.Config
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestBuildEngine_Minimal(t *testing.T) {
	cfg := testConfig(t)

	eng, err := buildEngine(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer eng.Close()

	assert.Nil(t, eng.store)
	assert.Nil(t, eng.sources)
	assert.Equal(t, int64(512)<<20, eng.maxModelBytes)

	_, err = eng.query.Ask(context.Background(), "walls", false)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)

	report := eng.health.Check(context.Background())
	assert.Equal(t, "ok", string(report.Status))
}

func TestBuildEngine_LocalSourcesAndPreload(t *testing.T) {
	cfg := testConfig(t)
	path := writeModel(t)
	cfg.Sources.LocalRoot = t.TempDir()

	eng, err := buildEngine(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer eng.Close()
	require.NotNil(t, eng.sources)

	require.NoError(t, eng.preload(context.Background(), path, zap.NewNop()))
	sess, err := eng.viewer.Current()
	require.NoError(t, err)
	assert.Equal(t, "house.ifc", sess.Name)
	assert.Equal(t, 3, sess.Report.Elements)
}

func TestBuildEngine_PreloadMissingFile(t *testing.T) {
	eng, err := buildEngine(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer eng.Close()

	err = eng.preload(context.Background(), "/does/not/exist.ifc", zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := openStore(context.Background(), config.DatabaseConfig{Driver: "postgres"}, zap.NewNop())
	require.Error(t, err)
}

type nopPlanner struct{}

func (nopPlanner) Plan(context.Context, domain.PlanRequest) (domain.PlanResult, error) {
	return domain.PlanResult{}, nil
}

func TestBuildPlanner_SkipsCacheWithoutStore(t *testing.T) {
	cfg := testConfig(t).LLM
	cfg.Cache.Enabled = true

	p := buildPlanner(nopPlanner{}, cfg, nil, nil, zap.NewNop())
	_, ok := p.(*planning.InstrumentedPlanner)
	assert.True(t, ok, "outermost planner must be instrumented, got %T", p)

	_, err := p.Plan(context.Background(), domain.PlanRequest{Prompt: "x"})
	assert.NoError(t, err)
}
