package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/repoctx/repoctx/internal/domain"
)

func TestLexicalRerankBoostsMatchingChunk(t *testing.T) {
	chunks := []*domain.Chunk{
		{ID: "a", FilePath: "auth.go", Content: "func RefreshToken() { oauth refresh token logic }", Priority: 0.5},
		{ID: "b", FilePath: "math.go", Content: "func Add(a, b int) int { return a + b }", Priority: 0.5},
	}

	err := LexicalRerank(context.Background(), chunks, "oauth token refresh", 0.4)
	require.NoError(t, err)
	require.Greater(t, chunks[0].Priority, chunks[1].Priority)
}

func TestDependencyExpansionBoostsRelatedFile(t *testing.T) {
	chunks := []*domain.Chunk{
		{ID: "a", FilePath: "src/auth.py", Content: "def refresh_token():\n    return True\n", Priority: 0.5, Tags: []string{"def:refresh_token"}, LexicalScore: 0.9},
		{ID: "b", FilePath: "tests/test_auth.py", Content: "from src.auth import refresh_token\n\ndef test_it():\n    assert refresh_token()\n", Priority: 0.2, LexicalScore: 0},
	}

	DependencyExpansion(chunks, 0.2)
	require.Greater(t, chunks[1].Priority, 0.2)
}

func TestFinalSortGroupsByStitchTier(t *testing.T) {
	chunks := []*domain.Chunk{
		{ID: "z", FilePath: "b.go", Priority: 0.1, StitchTier: domain.StitchTierCaller},
		{ID: "a", FilePath: "a.go", Priority: 0.9, StitchTier: domain.StitchTierNone},
		{ID: "m", FilePath: "c.go", Priority: 0.5, StitchTier: domain.StitchTierDefinition},
	}
	FinalSort(chunks)
	require.Equal(t, []string{"a", "m", "z"}, []string{chunks[0].ID, chunks[1].ID, chunks[2].ID})
}

type fakeSource struct {
	defs map[string][]*domain.Chunk
}

func (f fakeSource) ChunksDefining(ctx context.Context, symbol string) ([]*domain.Chunk, error) {
	return f.defs[symbol], nil
}
func (f fakeSource) ChunksCalling(ctx context.Context, symbol string) ([]*domain.Chunk, error) {
	return nil, nil
}
func (f fakeSource) ChunksInOtherFiles(ctx context.Context, excludePath string, symbols []string) ([]*domain.Chunk, error) {
	return nil, nil
}

func TestStitchPullsInDefinitionWithinBudget(t *testing.T) {
	seed := &domain.Chunk{ID: "seed", FilePath: "a.go", Priority: 1, Tags: []string{"call:helper"}, TokenEstimate: 10}
	def := &domain.Chunk{ID: "def1", FilePath: "b.go", TokenEstimate: 20}

	source := fakeSource{defs: map[string][]*domain.Chunk{"helper": {def}}}
	result := Stitch(context.Background(), []*domain.Chunk{seed}, source, 50)

	require.Len(t, result, 2)
	require.Equal(t, domain.StitchTierDefinition, result[1].StitchTier)
}
