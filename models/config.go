// Package models defines shared value types and runtime configuration.
package models

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration assembled from the environment and an
// optional config.yaml. CLI flags override both.
type Config struct {
	// Bookmark store API.
	StoreURL   string `yaml:"store_url"`
	StoreToken string `yaml:"-"` // secrets never come from the file

	// Model API (OpenAI-compatible).
	ModelAPIKey  string `yaml:"-"`
	ModelBaseURL string `yaml:"model_base_url"`
	ModelName    string `yaml:"model"`

	// Local state.
	CacheDir string `yaml:"cache_dir"`

	// Acquisition tuning.
	WorkerCount  int    `yaml:"workers"`
	ConverterCmd string `yaml:"converter_cmd"` // document-to-markdown converter
	BrowserPath  string `yaml:"browser_path"`  // optional chrome binary override
	PromptPath   string `yaml:"prompt_path"`
	IndexPath    string `yaml:"index_path"` // curated newsletter JSONL
}

const (
	DefaultStoreURL     = "http://localhost:3000"
	DefaultModelName    = "gpt-4o-mini"
	DefaultCacheDir     = "cache"
	DefaultConverterCmd = "markitdown"
	DefaultPromptPath   = "prompts/enrich-link.md"
)

// LoadConfig reads config.yaml if present, then layers environment variables
// on top. A missing file is not an error; a malformed one is.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		StoreURL:     DefaultStoreURL,
		ModelName:    DefaultModelName,
		CacheDir:     DefaultCacheDir,
		WorkerCount:  1,
		ConverterCmd: DefaultConverterCmd,
		PromptPath:   DefaultPromptPath,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	if v := os.Getenv("LINKMARK_STORE_URL"); v != "" {
		cfg.StoreURL = v
	}
	cfg.StoreToken = os.Getenv("LINKMARK_STORE_TOKEN")

	cfg.ModelAPIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.ModelBaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.ModelName = v
	}
	if v := os.Getenv("LINKMARK_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}

	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	return cfg, nil
}

// RequireStoreToken fails hard when a command that touches the bookmark
// store is run without credentials.
func (c *Config) RequireStoreToken() error {
	if c.StoreToken == "" {
		return fmt.Errorf("LINKMARK_STORE_TOKEN environment variable must be set")
	}
	return nil
}

// DBPath returns the location of the telemetry database inside the cache dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.CacheDir, "linkmark.db")
}
