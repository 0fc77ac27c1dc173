// Package config loads, validates and persists the domo.yml configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/mwrobel/domo/internal/selector"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DOMO_*). A missing file yields defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// DOMO_SERVER.PORT -> server.port, DOMO_DATABASE_PATH -> database_path.
	if err := k.Load(env.Provider("DOMO_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "DOMO_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderOpenAI:     true,
	ProviderOpenRouter: true,
	ProviderOllama:     true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}

	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one backend is required")
	}
	seen := map[string]bool{}
	for i, b := range c.Backends {
		if b.Name == "" {
			return fmt.Errorf("backends[%d]: name is required", i)
		}
		if seen[b.Name] {
			return fmt.Errorf("backends[%d]: duplicate name %q", i, b.Name)
		}
		seen[b.Name] = true
		if !validProviders[b.Provider] {
			return fmt.Errorf("backend %s: invalid provider %q: must be one of openai, openrouter, ollama", b.Name, b.Provider)
		}
		if b.Model == "" {
			return fmt.Errorf("backend %s: model is required", b.Name)
		}
		if len(b.Levels) == 0 {
			return fmt.Errorf("backend %s: at least one complexity level is required", b.Name)
		}
		for _, l := range b.Levels {
			if _, ok := selector.ParseComplexity(l); !ok {
				return fmt.Errorf("backend %s: invalid level %q: must be one of simple, standard, complex, critical", b.Name, l)
			}
		}
		if b.Concurrency < 0 {
			return fmt.Errorf("backend %s: concurrency must be non-negative", b.Name)
		}
		if b.RPM < 0 {
			return fmt.Errorf("backend %s: rpm must be non-negative", b.Name)
		}
	}

	if c.EmbeddingProvider != "" && !validProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q", c.EmbeddingProvider)
	}

	if c.Memory.MinSimilarity < 0 || c.Memory.MinSimilarity > 1 {
		return fmt.Errorf("memory.min_similarity must be within [0, 1]")
	}
	if c.NLU.ConfidenceThreshold < 0 || c.NLU.ConfidenceThreshold > 1 {
		return fmt.Errorf("nlu.confidence_threshold must be within [0, 1]")
	}
	if c.Session.MaxContexts < 1 {
		return fmt.Errorf("session.max_contexts must be positive")
	}
	if c.Session.CleanupThreshold > c.Session.MaxContexts {
		return fmt.Errorf("session.cleanup_threshold must not exceed session.max_contexts")
	}
	if c.Breaker.FailMax < 1 {
		return fmt.Errorf("breaker.fail_max must be positive")
	}
	if c.Selector.MaxRetries < 0 {
		return fmt.Errorf("selector.max_retries must be non-negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port number")
	}

	return nil
}

// ParsedLevels converts a backend's configured level names into selector
// complexity tiers. Call Validate first; unknown names are skipped here.
func (b BackendConfig) ParsedLevels() []selector.Complexity {
	levels := make([]selector.Complexity, 0, len(b.Levels))
	for _, l := range b.Levels {
		if c, ok := selector.ParseComplexity(l); ok {
			levels = append(levels, c)
		}
	}
	return levels
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}
