// Package rdiff compares two export run output directories (report.json,
// chunks.jsonl, and an optional symbol graph database) and summarizes
// what changed between them.
package rdiff

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// ReportFile mirrors report.json's per-file entry.
type ReportFile struct {
	ID       string  `json:"id"`
	Path     string  `json:"path"`
	Priority float64 `json:"priority"`
	Tokens   int     `json:"tokens"`
}

type reportDoc struct {
	Files []ReportFile `json:"files"`
}

type chunkRow struct {
	ID   string   `json:"id"`
	Path string   `json:"path"`
	Tags []string `json:"tags"`
}

// ModifiedFile records a file present in both runs whose id, priority,
// or token count changed.
type ModifiedFile struct {
	Path           string  `json:"path"`
	BeforePriority float64 `json:"before_priority"`
	AfterPriority  float64 `json:"after_priority"`
	BeforeTokens   int     `json:"before_tokens"`
	AfterTokens    int     `json:"after_tokens"`
}

// GraphDelta summarizes symbol/import graph changes between two
// symbol_graph.db (or persistent index.sqlite) snapshots.
type GraphDelta struct {
	AddedSymbols   int `json:"added_symbols"`
	RemovedSymbols int `json:"removed_symbols"`
	AddedImports   int `json:"added_imports"`
	RemovedImports int `json:"removed_imports"`
}

// Summary is the full diff result, serializable as-is for --format json.
type Summary struct {
	Before            string         `json:"before"`
	After             string         `json:"after"`
	FilesAdded        int            `json:"files_added"`
	FilesRemoved      int            `json:"files_removed"`
	FilesModified     int            `json:"files_modified"`
	TokensBefore      int            `json:"tokens_before"`
	TokensAfter       int            `json:"tokens_after"`
	TokensDelta       int            `json:"tokens_delta"`
	ChunksBefore      int            `json:"chunks_before"`
	ChunksAfter       int            `json:"chunks_after"`
	ChunksDelta       int            `json:"chunks_delta"`
	ChangedChunkTags  int            `json:"changed_chunk_tags"`
	MovedChunks       int            `json:"moved_chunks"`
	AddedFiles        []ReportFile   `json:"added_files"`
	RemovedFiles      []ReportFile   `json:"removed_files"`
	ModifiedFiles     []ModifiedFile `json:"modified_files"`
	Graph             *GraphDelta    `json:"graph,omitempty"`
}

// Compare reads the output directories at beforeDir and afterDir and
// builds the diff summary between them.
func Compare(ctx context.Context, beforeDir, afterDir string) (*Summary, error) {
	beforeReport, err := readReport(beforeDir)
	if err != nil {
		return nil, err
	}
	afterReport, err := readReport(afterDir)
	if err != nil {
		return nil, err
	}

	beforeChunks, err := readChunks(beforeDir)
	if err != nil {
		return nil, err
	}
	afterChunks, err := readChunks(afterDir)
	if err != nil {
		return nil, err
	}

	beforeByPath := make(map[string]ReportFile, len(beforeReport.Files))
	for _, f := range beforeReport.Files {
		beforeByPath[f.Path] = f
	}
	afterByPath := make(map[string]ReportFile, len(afterReport.Files))
	for _, f := range afterReport.Files {
		afterByPath[f.Path] = f
	}

	var added, removed []ReportFile
	for path, f := range afterByPath {
		if _, ok := beforeByPath[path]; !ok {
			added = append(added, f)
		}
	}
	for path, f := range beforeByPath {
		if _, ok := afterByPath[path]; !ok {
			removed = append(removed, f)
		}
	}

	var modified []ModifiedFile
	for path, before := range beforeByPath {
		after, ok := afterByPath[path]
		if !ok {
			continue
		}
		if before.ID != after.ID || math.Abs(before.Priority-after.Priority) >= 0.001 || before.Tokens != after.Tokens {
			modified = append(modified, ModifiedFile{
				Path:           path,
				BeforePriority: before.Priority,
				AfterPriority:  after.Priority,
				BeforeTokens:   before.Tokens,
				AfterTokens:    after.Tokens,
			})
		}
	}

	sort.Slice(added, func(i, j int) bool { return added[i].Path < added[j].Path })
	sort.Slice(removed, func(i, j int) bool { return removed[i].Path < removed[j].Path })
	sort.Slice(modified, func(i, j int) bool { return modified[i].Path < modified[j].Path })

	beforeTokens, afterTokens := 0, 0
	for _, f := range beforeByPath {
		beforeTokens += f.Tokens
	}
	for _, f := range afterByPath {
		afterTokens += f.Tokens
	}

	beforeChunksByID := make(map[string]chunkRow, len(beforeChunks))
	for _, c := range beforeChunks {
		beforeChunksByID[c.ID] = c
	}
	afterChunksByID := make(map[string]chunkRow, len(afterChunks))
	for _, c := range afterChunks {
		afterChunksByID[c.ID] = c
	}

	tagChanges, moved := 0, 0
	for id, before := range beforeChunksByID {
		after, ok := afterChunksByID[id]
		if !ok {
			continue
		}
		if !sameTagSet(before.Tags, after.Tags) {
			tagChanges++
		}
		if before.Path != after.Path {
			moved++
		}
	}

	summary := &Summary{
		Before:           beforeDir,
		After:            afterDir,
		FilesAdded:       len(added),
		FilesRemoved:     len(removed),
		FilesModified:    len(modified),
		TokensBefore:     beforeTokens,
		TokensAfter:      afterTokens,
		TokensDelta:      afterTokens - beforeTokens,
		ChunksBefore:     len(beforeChunks),
		ChunksAfter:      len(afterChunks),
		ChunksDelta:      len(afterChunks) - len(beforeChunks),
		ChangedChunkTags: tagChanges,
		MovedChunks:      moved,
		AddedFiles:       added,
		RemovedFiles:     removed,
		ModifiedFiles:    modified,
		Graph:            compareGraphs(ctx, beforeDir, afterDir),
	}
	return summary, nil
}

func sameTagSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

func readReport(dir string) (*reportDoc, error) {
	path, err := resolveOutputArtifact(dir, "report.json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report.json at %s: %w", path, err)
	}
	var doc reportDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json at %s: %w", path, err)
	}
	return &doc, nil
}

func readChunks(dir string) ([]chunkRow, error) {
	path, err := resolveOutputArtifactOptional(dir, "chunks.jsonl")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read chunks.jsonl at %s: %w", path, err)
	}
	defer f.Close()

	var rows []chunkRow
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row chunkRow
		if err := json.Unmarshal([]byte(line), &row); err == nil {
			rows = append(rows, row)
		}
	}
	return rows, scanner.Err()
}

func compareGraphs(ctx context.Context, beforeDir, afterDir string) *GraphDelta {
	beforeDB, ok1 := resolveGraphDB(beforeDir)
	afterDB, ok2 := resolveGraphDB(afterDir)
	if !ok1 || !ok2 {
		return nil
	}

	beforeSymbols, err := loadPairs(ctx, beforeDB, "SELECT symbol, chunk_id FROM symbol_chunks")
	if err != nil {
		return nil
	}
	afterSymbols, err := loadPairs(ctx, afterDB, "SELECT symbol, chunk_id FROM symbol_chunks")
	if err != nil {
		return nil
	}
	beforeImports, err := loadPairs(ctx, beforeDB, "SELECT source_path, target_path FROM file_imports")
	if err != nil {
		return nil
	}
	afterImports, err := loadPairs(ctx, afterDB, "SELECT source_path, target_path FROM file_imports")
	if err != nil {
		return nil
	}

	return &GraphDelta{
		AddedSymbols:   setDifferenceCount(afterSymbols, beforeSymbols),
		RemovedSymbols: setDifferenceCount(beforeSymbols, afterSymbols),
		AddedImports:   setDifferenceCount(afterImports, beforeImports),
		RemovedImports: setDifferenceCount(beforeImports, afterImports),
	}
}

func resolveGraphDB(dir string) (string, bool) {
	if path, err := resolveOutputArtifactOptional(dir, "symbol_graph.db"); err == nil && path != "" {
		return path, true
	}
	for _, candidate := range []string{
		filepath.Join(dir, ".repo-context", "index.sqlite"),
		filepath.Join(dir, ".repo-to-prompt", "index.sqlite"),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

func loadPairs(ctx context.Context, path, query string) (map[[2]string]bool, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[[2]string]bool)
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			continue
		}
		out[[2]string{a, b}] = true
	}
	return out, rows.Err()
}

func setDifferenceCount(a, b map[[2]string]bool) int {
	count := 0
	for k := range a {
		if !b[k] {
			count++
		}
	}
	return count
}

// resolveOutputArtifact finds baseName (or a file ending in "_"+baseName,
// matching the "<repo>_report.json" naming convention) inside dir.
func resolveOutputArtifact(dir, baseName string) (string, error) {
	path, err := resolveOutputArtifactOptional(dir, baseName)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("missing expected output file ending in %q under %s", baseName, dir)
	}
	return path, nil
}

func resolveOutputArtifactOptional(dir, baseName string) (string, error) {
	exact := filepath.Join(dir, baseName)
	if _, err := os.Stat(exact); err == nil {
		return exact, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list output directory %s: %w", dir, err)
	}

	suffix := "_" + baseName
	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), suffix) {
			candidates = append(candidates, filepath.Join(dir, entry.Name()))
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}
	sort.Strings(candidates)
	return candidates[0], nil
}
