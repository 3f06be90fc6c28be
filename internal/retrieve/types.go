// Package retrieve implements the task-conditioned reranking pipeline:
// lexical BM25 scoring, dependency-graph expansion, an optional pluggable
// semantic reranker, and thread stitching, per spec.md §4.7.
package retrieve

import (
	"context"

	"github.com/repoctx/repoctx/internal/domain"
)

// Options configures one reranking pass.
type Options struct {
	TaskQuery             string
	RelevanceWeight       float64 // step 1 blend weight, default 0.4
	DependencyBlendWeight float64 // step 2 blend weight, default 0.2
	SemanticBlendWeight   float64 // step 3 blend weight, default 0.4
	EnableSemanticRerank  bool
	RerankTopK            int
	StitchBudgetFraction  float64 // fraction of remaining token budget, default 0.2
	StitchTopN            int     // number of top-priority seeds to stitch around
}

// DefaultOptions returns the spec's documented default weights.
func DefaultOptions() Options {
	return Options{
		RelevanceWeight:       0.4,
		DependencyBlendWeight: 0.2,
		SemanticBlendWeight:   0.4,
		StitchBudgetFraction:  0.2,
		StitchTopN:            10,
	}
}

// SemanticReranker rescores a shortlist of candidate chunks against a task
// query, returning a score in [0,1] per chunk id. Implementations typically
// shell out to an embedding/rerank model as a scoped child process; a
// failure here is non-fatal ("enrichment unavailable"), never a pipeline
// failure.
type SemanticReranker interface {
	Rerank(ctx context.Context, query string, chunks []*domain.Chunk) (map[string]float64, error)
}

// StitchSource resolves the neighbor lookups thread stitching needs:
// which chunks define a symbol, which call it, and which files outside
// the seed's own file reference it.
type StitchSource interface {
	ChunksDefining(ctx context.Context, symbol string) ([]*domain.Chunk, error)
	ChunksCalling(ctx context.Context, symbol string) ([]*domain.Chunk, error)
	ChunksInOtherFiles(ctx context.Context, excludePath string, symbols []string) ([]*domain.Chunk, error)
}

func round3(f float64) float64 {
	return float64(int(f*1000+0.5)) / 1000
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
