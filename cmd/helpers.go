package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mwrobel/domo/internal/agents"
	"github.com/mwrobel/domo/internal/breaker"
	"github.com/mwrobel/domo/internal/clarify"
	"github.com/mwrobel/domo/internal/config"
	"github.com/mwrobel/domo/internal/db"
	"github.com/mwrobel/domo/internal/embeddings"
	"github.com/mwrobel/domo/internal/llm"
	"github.com/mwrobel/domo/internal/locator"
	"github.com/mwrobel/domo/internal/memory"
	"github.com/mwrobel/domo/internal/nlu"
	"github.com/mwrobel/domo/internal/orchestrator"
	"github.com/mwrobel/domo/internal/selector"
	"github.com/mwrobel/domo/internal/session"
)

// app bundles everything a command needs after wiring.
type app struct {
	cfg      *config.Config
	database *db.DB
	sel      *selector.Selector
	memories *memory.Store // nil when disabled
	orch     *orchestrator.Orchestrator
	logger   *slog.Logger
}

func (a *app) Close() {
	if a.database != nil {
		a.database.Close()
	}
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `domo init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildApp wires the full pipeline from the configuration.
func buildApp(cfg *config.Config) (*app, error) {
	logger := slog.Default()

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sel, err := buildSelector(cfg, logger)
	if err != nil {
		database.Close()
		return nil, err
	}

	store := locator.NewStore(database)
	gateway := nlu.NewGateway(sel,
		nlu.WithConfidenceThreshold(cfg.NLU.ConfidenceThreshold),
		nlu.WithLogger(logger),
	)
	resolver := clarify.NewResolver(sel, logger)
	sessions := session.NewManager(cfg.Session.MaxContexts, cfg.Session.CleanupThreshold)

	br := breaker.New(cfg.Breaker.FailMax, time.Duration(cfg.Breaker.ResetTimeoutSec)*time.Second)
	general := agents.NewGeneralAgent(sel)
	router := agents.NewRouter(general, br, logger)
	router.Register(nlu.IntentChat, general)
	router.Register(nlu.IntentReadSummary, agents.NewSummaryAgent(store))
	if key := os.Getenv("WEATHER_API_KEY"); key != "" {
		router.Register(nlu.IntentWeather, agents.NewWeatherAgent(agents.NewWeatherAPIForecaster(key)))
	}

	opts := []orchestrator.Option{
		orchestrator.WithHistory(database),
		orchestrator.WithLogger(logger),
	}

	var memories *memory.Store
	if cfg.Memory.Enabled {
		memories, err = buildMemories(cfg, sel, logger)
		if err != nil {
			database.Close()
			return nil, err
		}
		opts = append(opts, orchestrator.WithMemories(memories))
	}

	orch := orchestrator.New(gateway, store, resolver, router, sessions, opts...)

	return &app{
		cfg:      cfg,
		database: database,
		sel:      sel,
		memories: memories,
		orch:     orch,
		logger:   logger,
	}, nil
}

func buildSelector(cfg *config.Config, logger *slog.Logger) (*selector.Selector, error) {
	backends := make([]*selector.Backend, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		provider, err := llm.NewProvider(string(b.Provider), b.Model)
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", b.Name, err)
		}
		if b.RPM > 0 {
			provider = llm.NewRateLimitedProvider(provider, b.RPM)
		}
		backends = append(backends, selector.NewBackend(selector.BackendConfig{
			Name:             b.Name,
			Levels:           b.ParsedLevels(),
			MaxTokens:        b.MaxTokens,
			CostPerToken:     b.CostPerToken,
			Priority:         b.Priority,
			ConcurrencyLimit: b.Concurrency,
			Description:      b.Description,
		}, provider))
	}

	// Configured keywords extend the built-in Polish sets.
	complexKw := append(append([]string{}, selector.DefaultComplexKeywords...), cfg.Keywords.Complex...)
	criticalKw := append(append([]string{}, selector.DefaultCriticalKeywords...), cfg.Keywords.Critical...)

	return selector.New(backends, selector.Config{
		Scorer:      selector.NewScorer(complexKw, criticalKw),
		CacheSize:   cfg.Selector.CacheSize,
		CacheTTL:    time.Duration(cfg.Selector.CacheTTLMinutes) * time.Minute,
		MaxRetries:  cfg.Selector.MaxRetries,
		BackoffBase: time.Duration(cfg.Selector.BackoffMS) * time.Millisecond,
		CallTimeout: time.Duration(cfg.Selector.CallTimeoutSec) * time.Second,
		Logger:      logger,
	}), nil
}

func buildMemories(cfg *config.Config, sel *selector.Selector, logger *slog.Logger) (*memory.Store, error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	decay := memory.DefaultDecayParams()
	if cfg.Memory.HalfLifeDays > 0 {
		decay.BaseHalfLife = time.Duration(cfg.Memory.HalfLifeDays * 24 * float64(time.Hour))
	}

	return memory.NewStore(embedder,
		memory.WithScorer(memory.NewImportanceScorer(sel, logger)),
		memory.WithMaxMemories(cfg.Memory.MaxMemories),
		memory.WithMinSimilarity(float32(cfg.Memory.MinSimilarity)),
		memory.WithDecayParams(decay),
		memory.WithStoreLogger(logger),
	)
}

// buildEmbedder creates an embeddings.Embedder based on config.
func buildEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, 768, ""), nil
	default:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, cfg.EmbeddingModel), nil
	}
}
