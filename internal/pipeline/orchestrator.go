package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/answer"
	"github.com/ziadkadry99/docqa/internal/chunker"
	"github.com/ziadkadry99/docqa/internal/embeddings"
	"github.com/ziadkadry99/docqa/internal/extract"
	"github.com/ziadkadry99/docqa/internal/logging"
	"github.com/ziadkadry99/docqa/internal/progress"
	"github.com/ziadkadry99/docqa/internal/retrieval"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

// Recorder receives every answered query.
type Recorder interface {
	Record(ctx context.Context, question, answer string, documents []string, duration time.Duration) error
}

// Options wires the components of an Orchestrator.
type Options struct {
	Extractor extract.Extractor
	Chunker   *chunker.Chunker
	// Embedder embeds chunks during the build.
	Embedder embeddings.Embedder
	// QueryEmbedder embeds questions; defaults to Embedder. It must produce
	// vectors comparable with Embedder's.
	QueryEmbedder embeddings.Embedder
	Synthesizer   *answer.Synthesizer
	// Index defaults to a fresh vectordb.Index.
	Index *vectordb.Index
	// K is the retrieval depth.
	K           int
	Concurrency int
	BatchSize   int
	Progress    progress.Reporter
	Recorder    Recorder
	Logger      *zap.Logger
}

// Orchestrator ingests a corpus once and then answers questions against it.
type Orchestrator struct {
	extractor   extract.Extractor
	chunker     *chunker.Chunker
	embedder    embeddings.Embedder
	synthesizer *answer.Synthesizer
	index       *vectordb.Index
	retriever   *retrieval.Retriever
	concurrency int
	batchSize   int
	progress    progress.Reporter
	recorder    Recorder
	logger      *zap.Logger

	mu            sync.RWMutex
	state         State
	documents     []string
	skipped       []SkippedDocument
	chunks        int
	buildDuration time.Duration
	buildErr      error
}

// New validates opts and returns an Orchestrator in the Uninitialized state.
func New(opts Options) (*Orchestrator, error) {
	if opts.Extractor == nil {
		return nil, errors.New("pipeline: extractor is required")
	}
	if opts.Chunker == nil {
		return nil, errors.New("pipeline: chunker is required")
	}
	if opts.Embedder == nil {
		return nil, errors.New("pipeline: embedder is required")
	}
	if opts.Synthesizer == nil {
		return nil, errors.New("pipeline: synthesizer is required")
	}

	queryEmbedder := opts.QueryEmbedder
	if queryEmbedder == nil {
		queryEmbedder = opts.Embedder
	}
	index := opts.Index
	if index == nil {
		index = vectordb.NewIndex(opts.Embedder)
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Orchestrator{
		extractor:   opts.Extractor,
		chunker:     opts.Chunker,
		embedder:    opts.Embedder,
		synthesizer: opts.Synthesizer,
		index:       index,
		retriever:   retrieval.New(queryEmbedder, index, opts.K),
		concurrency: concurrency,
		batchSize:   opts.BatchSize,
		progress:    opts.Progress,
		recorder:    opts.Recorder,
		logger:      logging.OrNop(opts.Logger),
		state:       Uninitialized,
	}, nil
}

// ProcessDocuments builds the index from paths. It may be called once.
// Documents that fail extraction or chunking are skipped; the call fails,
// leaving the orchestrator Failed, only when nothing usable remains.
func (o *Orchestrator) ProcessDocuments(ctx context.Context, paths []string) error {
	o.mu.Lock()
	if o.state != Uninitialized {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrAlreadyStarted, state)
	}
	o.state = Building
	o.mu.Unlock()

	start := time.Now()
	o.logger.Info("building index", zap.Int("documents", len(paths)))

	var (
		contents  []string
		metadata  []vectordb.Metadata
		documents []string
		skipped   []SkippedDocument
	)
	for _, res := range o.ingest(ctx, paths) {
		if res.err != nil {
			o.logger.Warn("skipping document",
				zap.String("document", res.name),
				zap.String("path", res.path),
				zap.Error(res.err),
			)
			skipped = append(skipped, SkippedDocument{Name: res.name, Path: res.path, Reason: res.err.Error()})
			continue
		}
		for i, c := range res.chunks {
			contents = append(contents, c.Content)
			metadata = append(metadata, vectordb.Metadata{Source: res.name, Chunk: i})
		}
		documents = append(documents, res.name)
		o.logger.Debug("document chunked", zap.String("document", res.name), zap.Int("chunks", len(res.chunks)))
	}

	if err := ctx.Err(); err != nil {
		return o.fail(skipped, fmt.Errorf("ingestion cancelled: %w", err))
	}
	if len(contents) == 0 {
		return o.fail(skipped, fmt.Errorf("%w: %d of %d documents skipped", ErrNoUsableChunks, len(skipped), len(paths)))
	}

	vectors, err := o.embedAll(ctx, contents)
	if err != nil {
		return o.fail(skipped, fmt.Errorf("embed chunks: %w", err))
	}
	if err := o.index.Build(ctx, contents, vectors, metadata); err != nil {
		return o.fail(skipped, fmt.Errorf("build index: %w", err))
	}

	elapsed := time.Since(start)
	o.mu.Lock()
	o.state = Ready
	o.documents = documents
	o.skipped = skipped
	o.chunks = len(contents)
	o.buildDuration = elapsed
	o.mu.Unlock()

	o.logger.Info("index ready",
		zap.Int("documents", len(documents)),
		zap.Int("skipped", len(skipped)),
		zap.Int("chunks", len(contents)),
		zap.Duration("duration", elapsed),
	)
	return nil
}

func (o *Orchestrator) fail(skipped []SkippedDocument, err error) error {
	o.mu.Lock()
	o.state = Failed
	o.skipped = skipped
	o.buildErr = err
	o.mu.Unlock()

	o.logger.Error("index build failed", zap.Error(err))
	return err
}

// Query answers question from the indexed corpus.
func (o *Orchestrator) Query(ctx context.Context, question string) (*answer.Response, error) {
	if err := o.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	start := time.Now()
	results, err := o.retriever.Retrieve(ctx, question)
	if err != nil {
		o.logger.Error("retrieval failed", zap.Error(err))
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	resp, err := o.synthesizer.Synthesize(ctx, question, results)
	if err != nil {
		o.logger.Error("answer synthesis failed", zap.Error(err))
		return nil, err
	}

	elapsed := time.Since(start)
	o.logger.Info("query answered",
		zap.Int("results", len(results)),
		zap.Strings("documents", resp.DocumentsConsulted),
		zap.Duration("duration", elapsed),
	)

	if o.recorder != nil {
		if err := o.recorder.Record(ctx, question, resp.Answer, resp.DocumentsConsulted, elapsed); err != nil {
			o.logger.Warn("recording query failed", zap.Error(err))
		}
	}
	return resp, nil
}

// Search returns the k chunks nearest to question without generating an
// answer. k <= 0 uses the configured depth.
func (o *Orchestrator) Search(ctx context.Context, question string, k int) ([]vectordb.SearchResult, error) {
	if err := o.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if k <= 0 {
		k = o.retriever.K()
	}
	return o.retriever.RetrieveK(ctx, question, k)
}

func (o *Orchestrator) ready() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.state != Ready {
		return fmt.Errorf("%w (state %s)", ErrNotReady, o.state)
	}
	return nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Documents returns the names of the indexed documents.
func (o *Orchestrator) Documents() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.documents...)
}

// K returns the retrieval depth used by Query.
func (o *Orchestrator) K() int { return o.retriever.K() }

// Status reports the state together with what the build produced.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()

	st := Status{
		State:         o.state,
		Documents:     append([]string{}, o.documents...),
		Skipped:       append([]SkippedDocument{}, o.skipped...),
		Chunks:        o.chunks,
		BuildDuration: o.buildDuration,
		Dimensions:    o.index.Dimensions(),
		BuiltAt:       o.index.BuiltAt(),
	}
	if o.buildErr != nil {
		st.Error = o.buildErr.Error()
	}
	return st
}
