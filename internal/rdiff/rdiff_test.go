package rdiff

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"
)

func writeReport(t *testing.T, dir string, files []ReportFile) {
	t.Helper()
	data, err := json.Marshal(reportDoc{Files: files})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.json"), data, 0644))
}

func writeChunks(t *testing.T, dir string, rows []chunkRow) {
	t.Helper()
	var buf bytes.Buffer
	for _, r := range rows {
		line, err := json.Marshal(r)
		require.NoError(t, err)
		buf.Write(line)
		buf.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chunks.jsonl"), buf.Bytes(), 0644))
}

func TestCompareDetectsAddedRemovedModified(t *testing.T) {
	before := t.TempDir()
	after := t.TempDir()

	writeReport(t, before, []ReportFile{
		{ID: "1", Path: "a.go", Priority: 0.5, Tokens: 100},
		{ID: "2", Path: "b.go", Priority: 0.3, Tokens: 50},
	})
	writeReport(t, after, []ReportFile{
		{ID: "1", Path: "a.go", Priority: 0.9, Tokens: 120},
		{ID: "3", Path: "c.go", Priority: 0.4, Tokens: 40},
	})
	writeChunks(t, before, nil)
	writeChunks(t, after, nil)

	summary, err := Compare(context.Background(), before, after)
	require.NoError(t, err)

	require.Equal(t, 1, summary.FilesAdded)
	require.Equal(t, "c.go", summary.AddedFiles[0].Path)
	require.Equal(t, 1, summary.FilesRemoved)
	require.Equal(t, "b.go", summary.RemovedFiles[0].Path)
	require.Equal(t, 1, summary.FilesModified)
	require.Equal(t, "a.go", summary.ModifiedFiles[0].Path)
	require.Equal(t, 20, summary.TokensDelta)
}

func TestCompareCountsChangedTagsAndMovedChunks(t *testing.T) {
	before := t.TempDir()
	after := t.TempDir()

	writeReport(t, before, nil)
	writeReport(t, after, nil)
	writeChunks(t, before, []chunkRow{
		{ID: "c1", Path: "a.go", Tags: []string{"def:Foo"}},
		{ID: "c2", Path: "b.go", Tags: []string{"def:Bar"}},
	})
	writeChunks(t, after, []chunkRow{
		{ID: "c1", Path: "a.go", Tags: []string{"def:Foo", "section:extra"}},
		{ID: "c2", Path: "moved/b.go", Tags: []string{"def:Bar"}},
	})

	summary, err := Compare(context.Background(), before, after)
	require.NoError(t, err)
	require.Equal(t, 1, summary.ChangedChunkTags)
	require.Equal(t, 1, summary.MovedChunks)
}

func TestCompareGraphDeltaFromSymbolGraphDB(t *testing.T) {
	before := t.TempDir()
	after := t.TempDir()
	writeReport(t, before, nil)
	writeReport(t, after, nil)
	writeChunks(t, before, nil)
	writeChunks(t, after, nil)

	makeGraphDB(t, filepath.Join(before, "symbol_graph.db"), []string{"Foo"}, []string{"a.go->b.go"})
	makeGraphDB(t, filepath.Join(after, "symbol_graph.db"), []string{"Foo", "Bar"}, nil)

	summary, err := Compare(context.Background(), before, after)
	require.NoError(t, err)
	require.NotNil(t, summary.Graph)
	require.Equal(t, 1, summary.Graph.AddedSymbols)
	require.Equal(t, 1, summary.Graph.RemovedImports)
}

func makeGraphDB(t *testing.T, path string, symbols []string, imports []string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE symbol_chunks (chunk_id TEXT, symbol TEXT); CREATE TABLE file_imports (source_path TEXT, target_path TEXT);`)
	require.NoError(t, err)
	for _, s := range symbols {
		_, err = db.Exec(`INSERT INTO symbol_chunks (chunk_id, symbol) VALUES (?, ?)`, "c1", s)
		require.NoError(t, err)
	}
	for _, imp := range imports {
		_, err = db.Exec(`INSERT INTO file_imports (source_path, target_path) VALUES (?, ?)`, imp, imp)
		require.NoError(t, err)
	}
}

func TestWriteTextFormat(t *testing.T) {
	summary := &Summary{Before: "v1", After: "v2", FilesAdded: 2}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, summary, FormatText))
	require.Contains(t, buf.String(), "Context Diff: v1 -> v2")
}

func TestWriteJSONFormat(t *testing.T) {
	summary := &Summary{Before: "v1", After: "v2"}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, summary, FormatJSON))

	var decoded Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "v1", decoded.Before)
}
