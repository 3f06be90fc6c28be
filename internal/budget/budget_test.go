package budget

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/repoctx/repoctx/internal/domain"
)

func TestApplyByteBudgetDisabledWhenLimitZero(t *testing.T) {
	files := []*domain.FileInfo{{Path: "a.go", SizeBytes: 1000}}
	selected, dropped, total := ApplyByteBudget(files, 0)
	require.Equal(t, files, selected)
	require.Empty(t, dropped)
	require.Equal(t, int64(1000), total)
}

func TestApplyByteBudgetDropsOnceThresholdReached(t *testing.T) {
	files := []*domain.FileInfo{
		{Path: "a.go", SizeBytes: 400},
		{Path: "b.go", SizeBytes: 400},
		{Path: "c.go", SizeBytes: 400},
	}
	selected, dropped, total := ApplyByteBudget(files, 500)

	require.Len(t, selected, 1)
	require.Equal(t, "a.go", selected[0].Path)
	require.Len(t, dropped, 2)
	require.Equal(t, "bytes_limit", dropped[0].Reason)
	require.Equal(t, "b.go", dropped[0].Path)
	require.Equal(t, "c.go", dropped[1].Path)
	require.Equal(t, int64(400), total)
}

func TestApplyByteBudgetBulkDropsRemainderNotJustCurrent(t *testing.T) {
	files := []*domain.FileInfo{
		{Path: "a.go", SizeBytes: 600},
		{Path: "b.go", SizeBytes: 1},
		{Path: "c.go", SizeBytes: 1},
	}
	selected, dropped, _ := ApplyByteBudget(files, 500)

	require.Len(t, selected, 1)
	require.Len(t, dropped, 2)
}

func TestApplyTokenBudgetDisabledWhenMaxZero(t *testing.T) {
	files := []FileChunks{
		{File: &domain.FileInfo{Path: "a.go"}, Chunks: []*domain.Chunk{{TokenEstimate: 50}}},
	}
	result, err := ApplyTokenBudget(files, 0, nil, false)
	require.NoError(t, err)
	require.Len(t, result.Included, 1)
	require.Equal(t, 50, result.TotalTokensIncluded)
}

func TestApplyTokenBudgetFailsWhenAlwaysIncludeAloneExceeds(t *testing.T) {
	files := []FileChunks{
		{File: &domain.FileInfo{Path: "important.go"}, Chunks: []*domain.Chunk{{TokenEstimate: 200}}},
	}
	_, err := ApplyTokenBudget(files, 100, []string{"important.go"}, false)
	require.Error(t, err)
}

func TestApplyTokenBudgetAllowsOverBudgetWhenFlagSet(t *testing.T) {
	files := []FileChunks{
		{File: &domain.FileInfo{Path: "important.go"}, Chunks: []*domain.Chunk{{TokenEstimate: 200}}},
	}
	result, err := ApplyTokenBudget(files, 100, []string{"important.go"}, true)
	require.NoError(t, err)
	require.Len(t, result.Included, 1)
	require.Equal(t, 200, result.AlwaysIncludeTokens)
}

func TestApplyTokenBudgetDropsNormalFilesThatDontFit(t *testing.T) {
	files := []FileChunks{
		{File: &domain.FileInfo{Path: "always.go", Priority: 0.9}, Chunks: []*domain.Chunk{{TokenEstimate: 50}}},
		{File: &domain.FileInfo{Path: "fits.go", Priority: 0.8}, Chunks: []*domain.Chunk{{TokenEstimate: 30}}},
		{File: &domain.FileInfo{Path: "toobig.go", Priority: 0.7}, Chunks: []*domain.Chunk{{TokenEstimate: 100}}},
	}
	result, err := ApplyTokenBudget(files, 100, []string{"always.go"}, false)
	require.NoError(t, err)

	require.Len(t, result.Included, 2)
	require.Len(t, result.Dropped, 1)
	require.Equal(t, "toobig.go", result.Dropped[0].Path)
	require.Equal(t, "token_budget", result.Dropped[0].Reason)
	require.Equal(t, 100, result.Dropped[0].Tokens)
	require.Equal(t, 1, result.Dropped[0].Chunks)
}

func TestApplyTokenBudgetStreamsInGivenOrder(t *testing.T) {
	files := []FileChunks{
		{File: &domain.FileInfo{Path: "first.go"}, Chunks: []*domain.Chunk{{TokenEstimate: 60}}},
		{File: &domain.FileInfo{Path: "second.go"}, Chunks: []*domain.Chunk{{TokenEstimate: 60}}},
	}
	result, err := ApplyTokenBudget(files, 100, nil, false)
	require.NoError(t, err)

	require.Len(t, result.Included, 1)
	require.Equal(t, "first.go", result.Included[0].File.Path)
	require.Len(t, result.Dropped, 1)
	require.Equal(t, "second.go", result.Dropped[0].Path)
}
