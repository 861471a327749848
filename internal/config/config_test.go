package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected default provider openai, got %q", cfg.LLM.Provider)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.Path != "strata.db" {
		t.Errorf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Enrich.Workers != 4 {
		t.Errorf("expected 4 enrichment workers, got %d", cfg.Enrich.Workers)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected defaults for missing file, got %+v", cfg.LLM)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strata.toml")
	body := `
[llm]
provider = "gemini"
model = "gemini-2.5-flash"
api_key = "file-key"

[chunking]
preset = "rag"
window_size = 300

[enrich]
enabled = true
workers = 8

[store]
driver = "postgres"
dsn = "postgres://localhost/strata"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("llm section not applied: %+v", cfg.LLM)
	}
	if cfg.Chunking.Preset != "rag" || cfg.Chunking.WindowSize != 300 {
		t.Errorf("chunking section not applied: %+v", cfg.Chunking)
	}
	if !cfg.Enrich.Enabled || cfg.Enrich.Workers != 8 {
		t.Errorf("enrich section not applied: %+v", cfg.Enrich)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("store section not applied: %+v", cfg.Store)
	}
	// Unset fields keep their defaults.
	if cfg.Enrich.CallTimeoutSec != 60 {
		t.Errorf("expected default call timeout, got %d", cfg.Enrich.CallTimeoutSec)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[llm\nprovider = "), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed TOML")
	}
	if !strings.Contains(err.Error(), "bad.toml") {
		t.Errorf("error should name the file, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strata.toml")
	if err := os.WriteFile(path, []byte("[llm]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("STRATA_LLM_API_KEY", "env-key")
	t.Setenv("STRATA_LLM_PROVIDER", "groq")
	t.Setenv("STRATA_DB_PATH", "/tmp/other.db")
	t.Setenv("STRATA_OBSERVER_ENABLED", "1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("env should override file, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Provider != "groq" {
		t.Errorf("expected provider groq, got %q", cfg.LLM.Provider)
	}
	if cfg.Store.Path != "/tmp/other.db" {
		t.Errorf("expected db path override, got %q", cfg.Store.Path)
	}
	if !cfg.Observer.Enabled {
		t.Error("expected observer enabled via env")
	}
}
