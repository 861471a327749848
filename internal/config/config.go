// Package config loads CLI configuration with layered precedence:
// built-in defaults, then a TOML file, then environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	LLM      LLMConfig      `toml:"llm"`
	Chunking ChunkingConfig `toml:"chunking"`
	Enrich   EnrichConfig   `toml:"enrich"`
	Store    StoreConfig    `toml:"store"`
	Observer ObserverConfig `toml:"observer"`
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	// RPM and TPM cap requests and tokens per minute; zero means no cap.
	RPM int `toml:"rpm"`
	TPM int `toml:"tpm"`
}

// ChunkingConfig overrides individual splitter settings. Zero values mean
// "use the preset"; Preset selects the base ("rag", "extraction", or empty
// for the general default).
type ChunkingConfig struct {
	Preset          string `toml:"preset"`
	WindowSize      int    `toml:"window_size"`
	WindowOverlap   int    `toml:"window_overlap"`
	WindowThreshold int    `toml:"window_threshold"`
	MinChunkSize    int    `toml:"min_chunk_size"`
}

type EnrichConfig struct {
	Enabled        bool `toml:"enabled"`
	Workers        int  `toml:"workers"`
	CallTimeoutSec int  `toml:"call_timeout_seconds"`
}

type StoreConfig struct {
	Driver string `toml:"driver"` // "sqlite" or "postgres"
	Path   string `toml:"path"`   // sqlite file path
	DSN    string `toml:"dsn"`    // postgres connection string
}

type ObserverConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		LLM:    LLMConfig{Provider: "openai", Model: "gpt-4o-mini"},
		Enrich: EnrichConfig{Workers: 4, CallTimeoutSec: 60},
		Store:  StoreConfig{Driver: "sqlite", Path: "strata.db"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
// A missing file is not an error; a present but malformed file is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = "strata.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// Env overrides
	if v := os.Getenv("STRATA_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("STRATA_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("STRATA_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("STRATA_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("STRATA_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("STRATA_DB_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("STRATA_OTLP_ENDPOINT"); v != "" {
		cfg.Observer.Endpoint = v
	}
	if v := os.Getenv("STRATA_OBSERVER_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}

	return cfg, nil
}
