package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to domo.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to domo! Let's configure your assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Primary provider.
	providerPrompt := promptui.Select{
		Label: "Select primary LLM provider",
		Items: []string{"openai", "openrouter", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := ProviderType(providerStr)
	cfg.Backends = backendsFor(provider)

	// 2. Database path.
	dbPrompt := promptui.Prompt{
		Label:   "SQLite database path",
		Default: cfg.DatabasePath,
	}
	dbPath, err := dbPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}
	cfg.DatabasePath = dbPath

	// 3. HTTP port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP server port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			p, err := strconv.Atoi(s)
			if err != nil || p < 1 || p > 65535 {
				return fmt.Errorf("must be a port number")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 4. Long-term memory.
	memoryPrompt := promptui.Select{
		Label: "Enable long-term memory (requires an embedding provider)",
		Items: []string{"yes", "no"},
	}
	memoryIdx, _, err := memoryPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("memory selection: %w", err)
	}
	cfg.Memory.Enabled = memoryIdx == 0
	if provider == ProviderOllama {
		cfg.EmbeddingProvider = ProviderOllama
		cfg.EmbeddingModel = "nomic-embed-text"
	}

	// Check for API key.
	if envVar := APIKeyEnvVar(provider); envVar != "" {
		if os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running domo serve.\n", envVar)
		}
	}

	configPath := "domo.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}

// backendsFor returns the default backend set for the chosen provider. The
// local Ollama fallback is always included.
func backendsFor(p ProviderType) []BackendConfig {
	local := BackendConfig{
		Name:        "ollama-local",
		Provider:    ProviderOllama,
		Model:       "llama3",
		Levels:      []string{"simple", "standard", "complex", "critical"},
		MaxTokens:   4096,
		Priority:    3,
		Concurrency: 2,
		Description: "local fallback, free",
	}

	switch p {
	case ProviderOpenRouter:
		return []BackendConfig{
			{
				Name:         "or-small",
				Provider:     ProviderOpenRouter,
				Model:        "openai/gpt-4o-mini",
				Levels:       []string{"simple", "standard"},
				MaxTokens:    4096,
				CostPerToken: 0.00000015,
				Priority:     1,
				Concurrency:  8,
			},
			{
				Name:         "or-large",
				Provider:     ProviderOpenRouter,
				Model:        "openai/gpt-4o",
				Levels:       []string{"standard", "complex", "critical"},
				MaxTokens:    8192,
				CostPerToken: 0.0000025,
				Priority:     2,
				Concurrency:  4,
			},
			local,
		}
	case ProviderOllama:
		local.Priority = 1
		return []BackendConfig{local}
	default:
		return DefaultConfig().Backends
	}
}
