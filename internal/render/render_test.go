package render

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/repoctx/repoctx/internal/domain"
	"github.com/repoctx/repoctx/internal/scan"
)

func TestContextPackOmitsTimestampWhenSuppressed(t *testing.T) {
	out := ContextPack(ContextPackInput{
		RepoName:    "demo",
		Tree:        "demo/\n  main.go",
		Files:       []*domain.FileInfo{{Path: "main.go", Priority: 0.9, Language: "go"}},
		Chunks:      []*domain.Chunk{{ID: "c1", FilePath: "main.go", Content: "package main", StartLine: 1, EndLine: 1, Priority: 0.9}},
		NoTimestamp: true,
		GeneratedAt: time.Unix(0, 0),
	})

	require.NotContains(t, out, "_Generated:")
	require.Contains(t, out, "# Context Pack: demo")
	require.Contains(t, out, "main.go")
	require.Contains(t, out, "package main")
}

func TestContextPackIncludesTimestampWhenRequested(t *testing.T) {
	out := ContextPack(ContextPackInput{
		RepoName:    "demo",
		NoTimestamp: false,
		GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Contains(t, out, "_Generated: 2026-01-01")
}

func TestJSONLOneObjectPerLine(t *testing.T) {
	chunks := []*domain.Chunk{
		{ID: "a", FilePath: "x.go", Priority: 0.5, TokenEstimate: 10, Tags: []string{"def:Foo"}},
		{ID: "b", FilePath: "y.go", Priority: 0.3, TokenEstimate: 5},
	}
	out, err := JSONL(chunks)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)

	var rec chunkRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "a", rec.ID)
	require.Equal(t, "x.go", rec.Path)
}

func TestBuildReportOmitsGeneratedAtWhenSuppressed(t *testing.T) {
	r := BuildReport(map[string]any{"mode": "prompt"}, ReportStats{Scan: scan.Stats{FilesScanned: 3}}, nil, nil, true, time.Now())
	require.Nil(t, r.GeneratedAt)
	require.Equal(t, "1.0.0", r.SchemaVersion)

	b, err := MarshalReport(r)
	require.NoError(t, err)
	require.NotContains(t, string(b), "generated_at")
}

func TestBuildReportIncludesGeneratedAtWhenRequested(t *testing.T) {
	r := BuildReport(nil, ReportStats{}, nil, nil, false, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, r.GeneratedAt)
	require.Equal(t, "2026-01-01T00:00:00Z", *r.GeneratedAt)
}

func TestTopRankedFilesLimitsAndProjects(t *testing.T) {
	files := []*domain.FileInfo{
		{Path: "a.go", Priority: 0.9},
		{Path: "b.go", Priority: 0.8},
		{Path: "c.go", Priority: 0.1},
	}
	refs := TopRankedFiles(files, map[string]int{"a.go": 100, "b.go": 50}, 2)
	require.Len(t, refs, 2)
	require.Equal(t, "a.go", refs[0].Path)
	require.Equal(t, 100, refs[0].Tokens)
}

func TestGenerateTreeMarksHighlightedFiles(t *testing.T) {
	tree := GenerateTree([]string{"src/main.go", "src/util.go", "README.md"}, 0, map[string]bool{"src/main.go": true})
	require.Contains(t, tree, "main.go *")
	require.Contains(t, tree, "util.go")
	require.NotContains(t, tree, "util.go *")
	require.Contains(t, tree, "README.md")
}

func TestGenerateTreeRespectsMaxDepth(t *testing.T) {
	tree := GenerateTree([]string{"a/b/c/deep.go"}, 2, nil)
	require.Contains(t, tree, "a")
	require.NotContains(t, tree, "deep.go")
}

func TestWriteSymbolGraphRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/symbol_graph.db"

	chunks := []*domain.Chunk{{ID: "c1", FilePath: "a.go", StartLine: 1, EndLine: 5, Language: "go", Priority: 0.5, Content: "func Foo() {}"}}
	symbols := []domain.Symbol{{Name: "Foo", Kind: domain.SymbolFunction, FilePath: "a.go", ChunkID: "c1"}}
	edges := []domain.UsageEdge{{ChunkID: "c1", Symbol: "Foo", Kind: domain.UsageCall}}
	imports := []domain.ImportEdge{{SourcePath: "a.go", TargetPath: "b.go"}}

	err := WriteSymbolGraph(context.Background(), path, chunks, symbols, edges, imports)
	require.NoError(t, err)
}
