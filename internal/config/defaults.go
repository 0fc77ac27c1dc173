package config

// DefaultConfig returns a Config with sensible defaults: a cheap cloud
// model for everyday queries, a stronger one for complex work and a local
// Ollama fallback that costs nothing.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:      "domo.db",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		Backends: []BackendConfig{
			{
				Name:         "gpt-4o-mini",
				Provider:     ProviderOpenAI,
				Model:        "gpt-4o-mini",
				Levels:       []string{"simple", "standard"},
				MaxTokens:    4096,
				CostPerToken: 0.00000015,
				Priority:     1,
				Concurrency:  8,
				RPM:          120,
				Description:  "fast and cheap, everyday queries",
			},
			{
				Name:         "gpt-4o",
				Provider:     ProviderOpenAI,
				Model:        "gpt-4o",
				Levels:       []string{"standard", "complex", "critical"},
				MaxTokens:    8192,
				CostPerToken: 0.0000025,
				Priority:     2,
				Concurrency:  4,
				RPM:          60,
				Description:  "strong model for complex and critical work",
			},
			{
				Name:         "ollama-local",
				Provider:     ProviderOllama,
				Model:        "llama3",
				Levels:       []string{"simple", "standard", "complex", "critical"},
				MaxTokens:    4096,
				CostPerToken: 0,
				Priority:     3,
				Concurrency:  2,
				Description:  "local fallback, free",
			},
		},
		Selector: SelectorConfig{
			MaxRetries:      2,
			BackoffMS:       500,
			CallTimeoutSec:  90,
			CacheSize:       1000,
			CacheTTLMinutes: 60,
		},
		Breaker: BreakerConfig{
			FailMax:         5,
			ResetTimeoutSec: 60,
		},
		Session: SessionConfig{
			MaxContexts:      1000,
			CleanupThreshold: 800,
		},
		Memory: MemoryConfig{
			Enabled:       true,
			MaxMemories:   1000,
			MinSimilarity: 0.7,
			HalfLifeDays:  7,
		},
		NLU: NLUConfig{
			ConfidenceThreshold: 0.5,
		},
		Server: ServerConfig{
			Port:     8080,
			AllowAll: false,
		},
	}
}
