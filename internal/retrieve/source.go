package retrieve

import (
	"context"

	"github.com/repoctx/repoctx/internal/domain"
	"github.com/repoctx/repoctx/internal/store"
)

// IndexStitchSource adapts a persistent store.Index to the StitchSource
// interface thread stitching needs.
type IndexStitchSource struct {
	Index *store.Index
}

func (s IndexStitchSource) ChunksDefining(ctx context.Context, symbol string) ([]*domain.Chunk, error) {
	return s.Index.ChunksDefining(ctx, symbol)
}

func (s IndexStitchSource) ChunksCalling(ctx context.Context, symbol string) ([]*domain.Chunk, error) {
	return s.Index.ChunksCalling(ctx, symbol)
}

func (s IndexStitchSource) ChunksInOtherFiles(ctx context.Context, excludePath string, symbols []string) ([]*domain.Chunk, error) {
	return s.Index.ChunksInOtherFiles(ctx, excludePath, symbols)
}

var _ StitchSource = IndexStitchSource{}
