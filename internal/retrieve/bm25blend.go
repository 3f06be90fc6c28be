package retrieve

import (
	"context"

	"github.com/repoctx/repoctx/internal/domain"
	"github.com/repoctx/repoctx/internal/store"
)

// LexicalRerank is step 1: score every chunk against the task query with
// BM25, normalize against the run's max raw score, and blend into
// priority as new = priority*(1-w) + normalized*w. Chunk.LexicalScore is
// set to the normalized value so later steps (dependency expansion) can
// seed off it.
func LexicalRerank(ctx context.Context, chunks []*domain.Chunk, query string, weight float64) error {
	if len(chunks) == 0 || query == "" {
		return nil
	}
	weight = clamp01(weight)

	idx, err := store.NewCodeBM25Index("", store.DefaultBM25Config())
	if err != nil {
		return err
	}
	defer idx.Close()

	docs := make([]*store.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = &store.Document{ID: c.ID, Content: c.Content}
	}
	if err := idx.Index(ctx, docs); err != nil {
		return err
	}

	results, err := idx.Search(ctx, query, len(chunks))
	if err != nil {
		return err
	}

	rawByID := make(map[string]float64, len(results))
	maxRaw := 0.0
	for _, r := range results {
		rawByID[r.DocID] = r.Score
		if r.Score > maxRaw {
			maxRaw = r.Score
		}
	}

	for _, c := range chunks {
		raw := rawByID[c.ID]
		normalized := 0.0
		if maxRaw > 0 {
			normalized = clamp01(raw / maxRaw)
		}
		c.LexicalScore = normalized
		c.Priority = round3(c.Priority*(1-weight) + normalized*weight)
	}
	return nil
}
