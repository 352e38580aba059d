package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to docqa! Let's configure your document corpus.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Dataset directory.
	dirPrompt := promptui.Prompt{
		Label:   "Directory containing your documents",
		Default: cfg.Dataset.Dir,
	}
	dir, err := dirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("dataset dir: %w", err)
	}
	cfg.Dataset.Dir = dir

	// 2. Include patterns.
	includePrompt := promptui.Prompt{
		Label:   "Include patterns (comma-separated globs)",
		Default: strings.Join(DefaultIncludes, ","),
	}
	includeStr, err := includePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}
	if include := splitAndTrim(includeStr); len(include) > 0 {
		cfg.Dataset.Include = include
	}

	// 3. Embedding provider.
	embedPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{"ollama", "openai", "google", "local"},
	}
	_, embedStr, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding provider selection: %w", err)
	}
	cfg.Embedding.Provider = ProviderType(embedStr)
	cfg.Embedding.Model, cfg.Embedding.Dimensions = DefaultEmbeddingModel(cfg.Embedding.Provider)

	// 4. Generation provider.
	genPrompt := promptui.Select{
		Label: "Select answer generation provider",
		Items: []string{"ollama", "openai", "google", "anthropic"},
	}
	_, genStr, err := genPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("generation provider selection: %w", err)
	}
	cfg.Generation.Provider = ProviderType(genStr)
	cfg.Generation.Model = DefaultGenerationModel(cfg.Generation.Provider)

	// 5. Retrieval depth.
	kPrompt := promptui.Prompt{
		Label:   "Passages retrieved per question",
		Default: strconv.Itoa(cfg.Retrieval.K),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return fmt.Errorf("must be a positive integer")
			}
			return nil
		},
	}
	kStr, err := kPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("retrieval depth: %w", err)
	}
	cfg.Retrieval.K, _ = strconv.Atoi(kStr)

	// Check for API keys.
	for _, p := range []ProviderType{cfg.Embedding.Provider, cfg.Generation.Provider} {
		if envVar := APIKeyEnvVar(p); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment (or .env) before running docqa serve.\n", envVar)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
