package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/answer"
	"github.com/ziadkadry99/docqa/internal/chunker"
	"github.com/ziadkadry99/docqa/internal/config"
	"github.com/ziadkadry99/docqa/internal/db"
	"github.com/ziadkadry99/docqa/internal/embeddings"
	"github.com/ziadkadry99/docqa/internal/extract"
	"github.com/ziadkadry99/docqa/internal/history"
	"github.com/ziadkadry99/docqa/internal/llm"
	"github.com/ziadkadry99/docqa/internal/pipeline"
	"github.com/ziadkadry99/docqa/internal/progress"
	"github.com/ziadkadry99/docqa/internal/walker"
)

// app is a ready orchestrator plus the resources it holds open.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	orchestrator *pipeline.Orchestrator
	history      *history.Store
	closers      []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("closing resource", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// createEmbedderFromConfig creates the base embedder for cfg.Embedding.
func createEmbedderFromConfig(ctx context.Context, cfg *config.Config) (embeddings.Embedder, error) {
	ec := cfg.Embedding
	switch ec.Provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" && ec.BaseURL == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(embeddings.OpenAIOptions{
			APIKey:     apiKey,
			Model:      ec.Model,
			BaseURL:    ec.BaseURL,
			Dimensions: ec.Dimensions,
			BatchSize:  ec.BatchSize,
		}), nil
	case config.ProviderGoogle:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderGoogle))
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is required for Google embeddings")
		}
		return embeddings.NewGoogleEmbedder(ctx, apiKey, ec.Model, ec.Dimensions, ec.BatchSize)
	case config.ProviderOllama:
		baseURL := ec.BaseURL
		if baseURL == "" {
			baseURL = os.Getenv("OLLAMA_HOST")
		}
		return embeddings.NewOllamaEmbedder(ec.Model, ec.Dimensions, baseURL, ec.BatchSize), nil
	case config.ProviderLocal:
		return embeddings.NewHashingEmbedder(ec.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", ec.Provider)
	}
}

// createLLMProviderFromConfig creates the generation provider for cfg.Generation.
func createLLMProviderFromConfig(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	return llm.NewProvider(ctx, llm.Options{
		Type:    string(cfg.Generation.Provider),
		Model:   cfg.Generation.Model,
		BaseURL: cfg.Generation.BaseURL,
		RPM:     cfg.Generation.RPM,
	})
}

// newApp loads config and wires every component. The orchestrator is
// returned Uninitialized; call ingest to build the index.
func newApp(ctx context.Context, rep progress.Reporter) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	orch, err := a.wire(ctx, rep)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.orchestrator = orch
	return a, nil
}

// buildApp is newApp followed by ingest.
func buildApp(ctx context.Context, rep progress.Reporter) (*app, error) {
	a, err := newApp(ctx, rep)
	if err != nil {
		return nil, err
	}
	if err := a.ingest(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// ingest discovers the dataset and builds the index.
func (a *app) ingest(ctx context.Context) error {
	cfg := a.cfg
	paths, err := walker.Discover(cfg.Dataset.Dir, cfg.Dataset.Include, cfg.Dataset.Exclude)
	if err != nil {
		return fmt.Errorf("discovering documents in %s: %w", cfg.Dataset.Dir, err)
	}
	a.logger.Info("discovered documents",
		zap.String("dir", cfg.Dataset.Dir),
		zap.Int("count", len(paths)),
	)

	if err := a.orchestrator.ProcessDocuments(ctx, paths); err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	return nil
}

func (a *app) wire(ctx context.Context, rep progress.Reporter) (*pipeline.Orchestrator, error) {
	cfg := a.cfg

	base, err := createEmbedderFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	if c, ok := base.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	embedder := embeddings.WithRetry(base, cfg.Embedding.RetryAttempts, a.logger)

	dims, err := embeddings.Load(ctx, embedder)
	if err != nil {
		return nil, err
	}
	a.logger.Info("embedding model loaded",
		zap.String("model", embedder.Name()),
		zap.Int("dimensions", dims),
	)

	var queryEmbedder embeddings.Embedder = embedder
	if cfg.Embedding.CacheSize > 0 {
		ttl := time.Duration(cfg.Embedding.CacheTTLMinutes) * time.Minute
		queryEmbedder = embeddings.WithCache(embedder, cfg.Embedding.CacheSize, ttl)
	}

	provider, err := createLLMProviderFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	if c, ok := provider.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	ch, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}

	synth := answer.New(provider, answer.Options{
		Model:        cfg.Generation.Model,
		MaxTokens:    cfg.Generation.MaxTokens,
		Temperature:  cfg.Generation.Temperature,
		PreviewChars: cfg.Answer.PreviewChars,
		Timeout:      time.Duration(cfg.Generation.TimeoutSeconds) * time.Second,
		Logger:       a.logger,
	})

	var recorder pipeline.Recorder
	if cfg.History.Path != "" {
		database, err := db.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("opening history database: %w", err)
		}
		a.closers = append(a.closers, database)
		a.history = history.NewStore(database)
		recorder = a.history
	}

	return pipeline.New(pipeline.Options{
		Extractor:     extract.NewRegistry(a.logger),
		Chunker:       ch,
		Embedder:      embedder,
		QueryEmbedder: queryEmbedder,
		Synthesizer:   synth,
		K:             cfg.Retrieval.K,
		Concurrency:   cfg.Ingest.Concurrency,
		BatchSize:     cfg.Embedding.BatchSize,
		Progress:      rep,
		Recorder:      recorder,
		Logger:        a.logger,
	})
}

// summary is a one-line description of the ready corpus.
func (a *app) summary() string {
	st := a.orchestrator.Status()
	s := fmt.Sprintf("%d documents, %d chunks", len(st.Documents), st.Chunks)
	if n := len(st.Skipped); n > 0 {
		s += fmt.Sprintf(", %d skipped", n)
	}
	return s
}
