package retrieve

import (
	"context"
	"log/slog"
	"sort"

	"github.com/repoctx/repoctx/internal/domain"
)

// SemanticRerank is step 3: an optional pluggable rescoring of the top-K
// chunks (by current priority). A reranker failure is logged as
// "enrichment unavailable" and leaves priorities untouched — this step
// never fails the pipeline.
func SemanticRerank(ctx context.Context, chunks []*domain.Chunk, reranker SemanticReranker, query string, topK int, blendWeight float64) {
	if reranker == nil || len(chunks) == 0 || query == "" {
		return
	}

	ordered := make([]*domain.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })
	if topK <= 0 || topK > len(ordered) {
		topK = len(ordered)
	}
	candidates := ordered[:topK]

	scores, err := reranker.Rerank(ctx, query, candidates)
	if err != nil {
		slog.Warn("semantic_rerank_unavailable", slog.String("error", err.Error()))
		return
	}

	weight := clamp01(blendWeight)
	for _, c := range candidates {
		score, ok := scores[c.ID]
		if !ok {
			continue
		}
		score = clamp01(score)
		c.Priority = round3(c.Priority*(1-weight) + score*weight)
	}
}
