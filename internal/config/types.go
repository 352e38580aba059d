package config

// ProviderType identifies an embedding or generation backend.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGoogle ProviderType = "google"
	ProviderOllama ProviderType = "ollama"
	// ProviderAnthropic is generation-only.
	ProviderAnthropic ProviderType = "anthropic"
	// ProviderLocal is the in-process hashing embedder. It needs no model
	// server and is used for offline runs and tests.
	ProviderLocal ProviderType = "local"
)

// Config is the top-level docqa configuration, corresponding to .docqa.yml.
type Config struct {
	Dataset    DatasetConfig    `yaml:"dataset" koanf:"dataset"`
	Chunking   ChunkingConfig   `yaml:"chunking" koanf:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" koanf:"retrieval"`
	Answer     AnswerConfig     `yaml:"answer" koanf:"answer"`
	Embedding  EmbeddingConfig  `yaml:"embedding" koanf:"embedding"`
	Generation GenerationConfig `yaml:"generation" koanf:"generation"`
	Ingest     IngestConfig     `yaml:"ingest" koanf:"ingest"`
	Server     ServerConfig     `yaml:"server" koanf:"server"`
	Log        LogConfig        `yaml:"log" koanf:"log"`
	History    HistoryConfig    `yaml:"history" koanf:"history"`
}

// DatasetConfig controls which documents are ingested at startup.
type DatasetConfig struct {
	Dir     string   `yaml:"dir" koanf:"dir"`
	Include []string `yaml:"include" koanf:"include"`
	Exclude []string `yaml:"exclude" koanf:"exclude"`
}

// ChunkingConfig holds the chunk size and overlap, both in characters.
type ChunkingConfig struct {
	Size    int `yaml:"size" koanf:"size"`
	Overlap int `yaml:"overlap" koanf:"overlap"`
}

// RetrievalConfig holds the retrieval depth.
type RetrievalConfig struct {
	K int `yaml:"k" koanf:"k"`
}

// AnswerConfig shapes the query response.
type AnswerConfig struct {
	PreviewChars int `yaml:"preview_chars" koanf:"preview_chars"`
}

// EmbeddingConfig selects the embedding model.
type EmbeddingConfig struct {
	Provider   ProviderType `yaml:"provider" koanf:"provider"`
	Model      string       `yaml:"model" koanf:"model"`
	BaseURL    string       `yaml:"base_url" koanf:"base_url"`
	Dimensions int          `yaml:"dimensions" koanf:"dimensions"`
	BatchSize  int          `yaml:"batch_size" koanf:"batch_size"`
	// CacheSize bounds the number of cached query embeddings; 0 disables the cache.
	CacheSize       int `yaml:"cache_size" koanf:"cache_size"`
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" koanf:"cache_ttl_minutes"`
	RetryAttempts   int `yaml:"retry_attempts" koanf:"retry_attempts"`
}

// GenerationConfig selects the answer generation model.
type GenerationConfig struct {
	Provider       ProviderType `yaml:"provider" koanf:"provider"`
	Model          string       `yaml:"model" koanf:"model"`
	BaseURL        string       `yaml:"base_url" koanf:"base_url"`
	MaxTokens      int          `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature    float64      `yaml:"temperature" koanf:"temperature"`
	RPM            int          `yaml:"rpm" koanf:"rpm"`
	TimeoutSeconds int          `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// IngestConfig tunes the build phase.
type IngestConfig struct {
	Concurrency int `yaml:"concurrency" koanf:"concurrency"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

// HistoryConfig points at the optional SQLite query log. An empty path
// disables it.
type HistoryConfig struct {
	Path string `yaml:"path" koanf:"path"`
}
