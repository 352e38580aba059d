package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ziadkadry99/docqa/internal/chunker"
	"github.com/ziadkadry99/docqa/internal/extract"
)

// docResult is the outcome of extracting and chunking one document.
type docResult struct {
	path   string
	name   string
	chunks []chunker.Chunk
	err    error
}

// ingest extracts and chunks every path on a bounded worker pool. Results
// keep the order of paths.
func (o *Orchestrator) ingest(ctx context.Context, paths []string) []docResult {
	total := len(paths)
	results := make([]docResult, total)
	if total == 0 {
		return results
	}

	if o.progress != nil {
		o.progress.Start(total)
		defer o.progress.Finish()
	}

	sem := make(chan struct{}, o.concurrency)
	var mu sync.Mutex
	var processed int64

	report := func(name string) {
		count := atomic.AddInt64(&processed, 1)
		if o.progress != nil {
			mu.Lock()
			o.progress.Update(int(count), name)
			mu.Unlock()
		}
	}

	var wg sync.WaitGroup
	for i, path := range paths {
		name := extract.DocumentName(path)

		select {
		case <-ctx.Done():
			results[i] = docResult{path: path, name: name, err: ctx.Err()}
			report(name)
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, path, name string) {
			defer wg.Done()
			defer func() { <-sem }()

			results[i] = o.ingestOne(ctx, path, name)
			report(name)
		}(i, path, name)
	}

	wg.Wait()
	return results
}

func (o *Orchestrator) ingestOne(ctx context.Context, path, name string) docResult {
	res := docResult{path: path, name: name}

	doc, err := o.extractor.Extract(ctx, path)
	if err != nil {
		res.err = err
		return res
	}
	res.name = doc.Name

	chunks, err := o.chunker.Split(doc.Text)
	if err != nil {
		res.err = err
		return res
	}
	res.chunks = chunks
	return res
}

// embedAll embeds texts in consecutive batches of o.batchSize.
func (o *Orchestrator) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	size := o.batchSize
	if size <= 0 {
		size = len(texts)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := o.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), end-start)
		}
		vectors = append(vectors, vecs...)
	}
	return vectors, nil
}
