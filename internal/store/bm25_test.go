package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeBM25IndexRanksMatchingDocumentHigher(t *testing.T) {
	idx, err := NewCodeBM25Index("", DefaultBM25Config())
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, []*Document{
		{ID: "a", Content: "func ParseConfig reads yaml settings from disk"},
		{ID: "b", Content: "func RenderMarkdown writes a context pack to stdout"},
	}))

	results, err := idx.Search(ctx, "parse config yaml", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "a", results[0].DocID)
}

func TestCodeBM25IndexEmptyQueryReturnsNoResults(t *testing.T) {
	idx, err := NewCodeBM25Index("", DefaultBM25Config())
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Search(context.Background(), "   ", 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestCodeBM25IndexDelete(t *testing.T) {
	idx, err := NewCodeBM25Index("", DefaultBM25Config())
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, []*Document{{ID: "a", Content: "scanner filters files by extension"}}))
	require.NoError(t, idx.Delete(ctx, []string{"a"}))

	ids, err := idx.AllIDs()
	require.NoError(t, err)
	require.Empty(t, ids)
}
