package config

// modelPreset pairs a generation model with the embedding model usually
// served next to it.
type modelPreset struct {
	Model          string
	EmbeddingModel string
	Dimensions     int
}

// presets maps each provider to its default model choices.
var presets = map[ProviderType]modelPreset{
	ProviderOpenAI:    {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small", Dimensions: 1536},
	ProviderGoogle:    {Model: "gemini-1.5-flash", EmbeddingModel: "text-embedding-004", Dimensions: 768},
	ProviderOllama:    {Model: "llama3", EmbeddingModel: "paraphrase-multilingual", Dimensions: 768},
	ProviderLocal:     {Model: "", EmbeddingModel: "hashing-ngram", Dimensions: 384},
	ProviderAnthropic: {Model: "claude-3-5-haiku-latest"},
}

// DefaultIncludes are the dataset globs used when none are configured.
var DefaultIncludes = []string{"**/*.pdf"}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Dir:     "dataset",
			Include: append([]string(nil), DefaultIncludes...),
		},
		Chunking: ChunkingConfig{
			Size:    800,
			Overlap: 100,
		},
		Retrieval: RetrievalConfig{K: 2},
		Answer:    AnswerConfig{PreviewChars: 300},
		Embedding: EmbeddingConfig{
			Provider:        ProviderOllama,
			Model:           "paraphrase-multilingual",
			Dimensions:      768,
			BatchSize:       64,
			CacheSize:       1000,
			CacheTTLMinutes: 30,
			RetryAttempts:   3,
		},
		Generation: GenerationConfig{
			Provider:       ProviderOllama,
			Model:          "llama3",
			MaxTokens:      512,
			Temperature:    0,
			TimeoutSeconds: 60,
		},
		Ingest: IngestConfig{Concurrency: 4},
		Server: ServerConfig{
			Port:           8000,
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultEmbeddingModel returns the usual embedding model and its vector
// size for a provider.
func DefaultEmbeddingModel(p ProviderType) (string, int) {
	preset := presets[p]
	return preset.EmbeddingModel, preset.Dimensions
}

// DefaultGenerationModel returns the usual generation model for a provider.
func DefaultGenerationModel(p ProviderType) string {
	return presets[p].Model
}
