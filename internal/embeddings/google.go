package embeddings

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// googleMaxBatch is the BatchEmbedContents request limit.
const googleMaxBatch = 100

// GoogleEmbedder generates embeddings with the Gemini embedding models.
type GoogleEmbedder struct {
	client     *genai.Client
	model      *genai.EmbeddingModel
	name       string
	dimensions int
	batchSize  int
}

// NewGoogleEmbedder creates a new Google embedder. Call Close when done.
func NewGoogleEmbedder(ctx context.Context, apiKey, model string, dimensions, batchSize int) (*GoogleEmbedder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	em := client.EmbeddingModel(model)
	em.TaskType = genai.TaskTypeSemanticSimilarity

	if batchSize <= 0 || batchSize > googleMaxBatch {
		batchSize = googleMaxBatch
	}
	return &GoogleEmbedder{
		client:     client,
		model:      em,
		name:       model,
		dimensions: dimensions,
		batchSize:  batchSize,
	}, nil
}

func (e *GoogleEmbedder) Name() string {
	return "google/" + e.name
}

func (e *GoogleEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *GoogleEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, e.batchSize) {
		b := e.model.NewBatch()
		for _, text := range batch {
			b.AddContent(genai.Text(text))
		}
		resp, err := e.model.BatchEmbedContents(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("google embed request failed: %w", err)
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, fmt.Errorf("google returned %d embeddings, expected %d", len(resp.Embeddings), len(batch))
		}
		for _, emb := range resp.Embeddings {
			if emb == nil || len(emb.Values) == 0 {
				return nil, fmt.Errorf("google returned empty embedding")
			}
			results = append(results, emb.Values)
		}
	}
	return results, nil
}

// Close releases the underlying client.
func (e *GoogleEmbedder) Close() error {
	return e.client.Close()
}
