package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/repoctx/repoctx/internal/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := OpenIndex(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestReconcileInsertsNewFile(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	file := &domain.FileInfo{Path: "main.go", Language: "go", ContentHash: "h1", ModTime: time.Now()}
	chunk := &domain.Chunk{ID: "c1", FilePath: "main.go", StartLine: 1, EndLine: 10, Content: "func main() {}"}

	result, err := idx.Reconcile(ctx, []FileUpdate{{File: file, Chunks: []*domain.Chunk{chunk}}}, map[string]bool{"main.go": true})
	require.NoError(t, err)
	require.Equal(t, []string{"main.go"}, result.Reindexed)
	require.Empty(t, result.Reused)
	require.Empty(t, result.Removed)

	results, err := idx.Query(ctx, []string{"main"}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

func TestReconcileReusesUnchangedFile(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	file := &domain.FileInfo{Path: "main.go", Language: "go", ContentHash: "h1", ModTime: time.Now()}
	chunk := &domain.Chunk{ID: "c1", FilePath: "main.go", StartLine: 1, EndLine: 10, Content: "func main() {}"}

	_, err := idx.Reconcile(ctx, []FileUpdate{{File: file, Chunks: []*domain.Chunk{chunk}}}, map[string]bool{"main.go": true})
	require.NoError(t, err)

	result, err := idx.Reconcile(ctx, []FileUpdate{{File: file, Chunks: []*domain.Chunk{chunk}}}, map[string]bool{"main.go": true})
	require.NoError(t, err)
	require.Equal(t, []string{"main.go"}, result.Reused)
	require.Empty(t, result.Reindexed)
}

func TestReconcileRemovesMissingFile(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	file := &domain.FileInfo{Path: "old.go", Language: "go", ContentHash: "h1", ModTime: time.Now()}
	chunk := &domain.Chunk{ID: "c1", FilePath: "old.go", StartLine: 1, EndLine: 5, Content: "package old"}
	_, err := idx.Reconcile(ctx, []FileUpdate{{File: file, Chunks: []*domain.Chunk{chunk}}}, map[string]bool{"old.go": true})
	require.NoError(t, err)

	result, err := idx.Reconcile(ctx, nil, map[string]bool{})
	require.NoError(t, err)
	require.Equal(t, []string{"old.go"}, result.Removed)

	results, err := idx.Query(ctx, []string{"package"}, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestQuerySymbolBoost(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	file := &domain.FileInfo{Path: "scan.go", Language: "go", ContentHash: "h1", ModTime: time.Now()}
	chunks := []*domain.Chunk{
		{ID: "c1", FilePath: "scan.go", StartLine: 1, EndLine: 10, Content: "func Scan() {}"},
		{ID: "c2", FilePath: "scan.go", StartLine: 11, EndLine: 20, Content: "func other() { scan related text }"},
	}
	edges := []domain.UsageEdge{{ChunkID: "c1", Symbol: "scan", Kind: domain.UsageCall}}

	_, err := idx.Reconcile(ctx, []FileUpdate{{File: file, Chunks: chunks, UsageEdges: edges}}, map[string]bool{"scan.go": true})
	require.NoError(t, err)

	results, err := idx.Query(ctx, []string{"scan"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	var boostedScore, plainScore float64
	for _, r := range results {
		if r.ChunkID == "c1" {
			boostedScore = r.Score
		} else {
			plainScore = r.Score
		}
	}
	require.Greater(t, boostedScore, plainScore)
}

func TestMetadataRoundTrip(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_, ok, err := idx.GetMetadata(ctx, "schema_version")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, idx.SetMetadata(ctx, "schema_version", "1"))
	value, ok, err := idx.GetMetadata(ctx, "schema_version")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", value)
}

func TestImportNeighbors(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	a := &domain.FileInfo{Path: "a.go", ContentHash: "ha", ModTime: time.Now()}
	b := &domain.FileInfo{Path: "b.go", ContentHash: "hb", ModTime: time.Now()}
	_, err := idx.Reconcile(ctx, []FileUpdate{
		{File: a, ImportPaths: []string{"b.go"}},
		{File: b},
	}, map[string]bool{"a.go": true, "b.go": true})
	require.NoError(t, err)

	neighbors, err := idx.ImportNeighbors(ctx, "b.go")
	require.NoError(t, err)
	require.Contains(t, neighbors, "a.go")
}
