package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Budget.Action = "invalid_action"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}
	expected := `llm.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	for _, action := range []string{"", "warn", "reject"} {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.LLM.Budget.Action = action
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Database(t *testing.T) {
	tests := []struct {
		name    string
		db      DatabaseConfig
		wantErr bool
	}{
		{"none needs no addrs", DatabaseConfig{Driver: DriverNone}, false},
		{"redis without addrs", DatabaseConfig{Driver: DriverRedis}, true},
		{"valkey with addrs", DatabaseConfig{Driver: DriverValkey, Addrs: []string{"localhost:6379"}}, false},
		{"unknown driver", DatabaseConfig{Driver: "postgres", Addrs: []string{"x"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database = tt.db
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CacheNeedsDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Cache.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for plan cache without database")
	}
}

func TestValidate_NegativeRateLimit(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.RateLimit.RPS = -1

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative rps")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != DriverNone {
		t.Errorf("expected driver none, got %q", cfg.Database.Driver)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.Provider != "openai" {
		t.Errorf("unexpected llm defaults %+v", cfg.LLM)
	}
	if cfg.Index.ProgressEvery != 250 {
		t.Errorf("expected ProgressEvery=250, got %d", cfg.Index.ProgressEvery)
	}
	if cfg.Index.MaxModelMB != 512 {
		t.Errorf("expected MaxModelMB=512, got %d", cfg.Index.MaxModelMB)
	}
	if cfg.MCP.Path != "/mcp" {
		t.Errorf("expected MCP path /mcp, got %q", cfg.MCP.Path)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:  HTTPConfig{Port: 9000, ReadTimeoutSec: 30},
		LLM:   LLMConfig{Model: "llama3"},
		Index: IndexConfig{ProgressEvery: 10},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9000 || cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("http overridden: %+v", cfg.HTTP)
	}
	if cfg.LLM.Model != "llama3" {
		t.Errorf("model overridden: %q", cfg.LLM.Model)
	}
	if cfg.Index.ProgressEvery != 10 {
		t.Errorf("progress_every overridden: %d", cfg.Index.ProgressEvery)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("BIMQUERY_TEST_KEY", "sk-test")
	t.Setenv("BIMQUERY_TEST_EMPTY", "")

	cfg, err := Parse([]byte(`
http:
  port: ${BIMQUERY_TEST_PORT:-9090}
llm:
  api_key: ${BIMQUERY_TEST_KEY}
  model: ${BIMQUERY_TEST_EMPTY:-gpt-4.1-mini}
index:
  classes: [IfcWall, IfcDoor]
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.LLM.APIKey != "sk-test" || !cfg.LLM.Enabled() {
		t.Errorf("api key = %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gpt-4.1-mini" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if len(cfg.Index.Classes) != 2 {
		t.Errorf("classes = %v", cfg.Index.Classes)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte("database:\n  driver: redis\n  addrs: [\"localhost:6379\"]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Database.Driver != DriverRedis {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("BIMQUERY_A", "x")
	got := string(expandEnvVars([]byte("${BIMQUERY_A}-${BIMQUERY_UNSET:-d}-${BIMQUERY_UNSET}")))
	if got != "x-d-" {
		t.Errorf("expandEnvVars = %q", got)
	}
}
