package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOllama     ProviderType = "ollama"
)

// BackendConfig describes one model backend available to the selector.
type BackendConfig struct {
	Name         string       `yaml:"name" koanf:"name"`
	Provider     ProviderType `yaml:"provider" koanf:"provider"`
	Model        string       `yaml:"model" koanf:"model"`
	Levels       []string     `yaml:"levels" koanf:"levels"`
	MaxTokens    int          `yaml:"max_tokens" koanf:"max_tokens"`
	CostPerToken float64      `yaml:"cost_per_token" koanf:"cost_per_token"`
	Priority     int          `yaml:"priority" koanf:"priority"`
	Concurrency  int64        `yaml:"concurrency" koanf:"concurrency"`
	RPM          int          `yaml:"rpm,omitempty" koanf:"rpm"`
	Description  string       `yaml:"description,omitempty" koanf:"description"`
}

// SelectorConfig tunes model dispatch.
type SelectorConfig struct {
	MaxRetries      int `yaml:"max_retries" koanf:"max_retries"`
	BackoffMS       int `yaml:"backoff_ms" koanf:"backoff_ms"`
	CallTimeoutSec  int `yaml:"call_timeout_sec" koanf:"call_timeout_sec"`
	CacheSize       int `yaml:"cache_size" koanf:"cache_size"`
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" koanf:"cache_ttl_minutes"`
}

// KeywordsConfig lets deployments extend the Polish complexity keyword sets.
type KeywordsConfig struct {
	Complex  []string `yaml:"complex,omitempty" koanf:"complex"`
	Critical []string `yaml:"critical,omitempty" koanf:"critical"`
}

// BreakerConfig tunes the agent dispatch circuit breaker.
type BreakerConfig struct {
	FailMax         int `yaml:"fail_max" koanf:"fail_max"`
	ResetTimeoutSec int `yaml:"reset_timeout_sec" koanf:"reset_timeout_sec"`
}

// SessionConfig bounds the in-memory conversation contexts.
type SessionConfig struct {
	MaxContexts      int `yaml:"max_contexts" koanf:"max_contexts"`
	CleanupThreshold int `yaml:"cleanup_threshold" koanf:"cleanup_threshold"`
}

// MemoryConfig tunes the long-term memory store.
type MemoryConfig struct {
	Enabled       bool    `yaml:"enabled" koanf:"enabled"`
	MaxMemories   int     `yaml:"max_memories" koanf:"max_memories"`
	MinSimilarity float64 `yaml:"min_similarity" koanf:"min_similarity"`
	HalfLifeDays  float64 `yaml:"half_life_days" koanf:"half_life_days"`
}

// NLUConfig tunes intent recognition.
type NLUConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold" koanf:"confidence_threshold"`
}

// ServerConfig holds HTTP adapter settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all" koanf:"allow_all"`
}

// Config is the top-level domo configuration, corresponding to domo.yml.
type Config struct {
	DatabasePath      string          `yaml:"database_path" koanf:"database_path"`
	EmbeddingProvider ProviderType    `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string          `yaml:"embedding_model" koanf:"embedding_model"`
	Backends          []BackendConfig `yaml:"backends" koanf:"backends"`
	Selector          SelectorConfig  `yaml:"selector" koanf:"selector"`
	Keywords          KeywordsConfig  `yaml:"keywords" koanf:"keywords"`
	Breaker           BreakerConfig   `yaml:"breaker" koanf:"breaker"`
	Session           SessionConfig   `yaml:"session" koanf:"session"`
	Memory            MemoryConfig    `yaml:"memory" koanf:"memory"`
	NLU               NLUConfig       `yaml:"nlu" koanf:"nlu"`
	Server            ServerConfig    `yaml:"server" koanf:"server"`
}
