package retrieve

import (
	"context"
	"sort"

	"github.com/repoctx/repoctx/internal/domain"
)

// Run executes the full task-conditioned reranking pipeline over chunks
// in place: lexical BM25 (step 1), dependency expansion (step 2),
// optional semantic rerank (step 3), thread stitching (step 4), and the
// final stitch-story sort (step 5). source and reranker may be nil to
// skip steps 3/4 (e.g. a first index build with no persistent store
// yet, or no semantic reranker configured). stitchBudgetTokens is the
// absolute token budget available to step 4, already computed by the
// caller as a fraction of the remaining overall budget.
func Run(ctx context.Context, chunks []*domain.Chunk, opts Options, source StitchSource, reranker SemanticReranker, stitchBudgetTokens int) []*domain.Chunk {
	if opts.TaskQuery == "" {
		return chunks
	}

	if err := LexicalRerank(ctx, chunks, opts.TaskQuery, opts.RelevanceWeight); err != nil {
		return chunks
	}

	DependencyExpansion(chunks, opts.DependencyBlendWeight)

	if opts.EnableSemanticRerank {
		SemanticRerank(ctx, chunks, reranker, opts.TaskQuery, opts.RerankTopK, opts.SemanticBlendWeight)
	}

	seeds := topSeeds(chunks, opts.StitchTopN)
	stitched := Stitch(ctx, seeds, source, stitchBudgetTokens)

	// Merge stitched-in chunks (not already present) back into the full set.
	present := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		present[c.ID] = true
	}
	result := chunks
	for _, c := range stitched {
		if !present[c.ID] {
			result = append(result, c)
			present[c.ID] = true
		}
	}

	FinalSort(result)
	return result
}

func topSeeds(chunks []*domain.Chunk, n int) []*domain.Chunk {
	ordered := make([]*domain.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })
	if n <= 0 || n > len(ordered) {
		n = len(ordered)
	}
	return ordered[:n]
}
