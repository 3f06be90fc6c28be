package search

import (
	"context"

	"github.com/repoctx/repoctx/internal/domain"
)

// ChunkReranker adapts a document-and-string-based Reranker (MLXReranker,
// NoOpReranker) to the chunk-and-id-based interface internal/retrieve
// expects from its pluggable semantic reranking step.
type ChunkReranker struct {
	Reranker Reranker
}

// Rerank scores candidates against query, returning a score per chunk id.
// Chunks whose rerank response can't be matched back (should not happen,
// since documents are submitted in the same order as candidates) are
// simply omitted from the result map.
func (c ChunkReranker) Rerank(ctx context.Context, query string, candidates []*domain.Chunk) (map[string]float64, error) {
	documents := make([]string, len(candidates))
	for i, chunk := range candidates {
		documents[i] = chunk.Content
	}

	results, err := c.Reranker.Rerank(ctx, query, documents, 0)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(candidates) {
			continue
		}
		scores[candidates[r.Index].ID] = r.Score
	}
	return scores, nil
}
