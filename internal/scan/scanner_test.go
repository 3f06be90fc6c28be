package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestScanFiltersByCategory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\nfunc main() {}\n")
	writeFile(t, dir, "node_modules/pkg/index.js", "module.exports = {}\n")
	writeFile(t, dir, ".env", "SECRET=1\n")
	writeFile(t, dir, "binary.bin", "\x00\x01\x02binarydata")
	writeFile(t, dir, ".gitignore", "ignored.txt\n")
	writeFile(t, dir, "ignored.txt", "should be ignored\n")

	s, err := New()
	require.NoError(t, err)

	stats := &Stats{}
	results, err := s.Scan(context.Background(), dir, Options{
		RespectGitignore: true,
		MaxFileBytes:     1 << 20,
	}, stats)
	require.NoError(t, err)

	var selected []string
	for r := range results {
		if r.File != nil {
			selected = append(selected, r.File.Path)
		}
	}

	require.Contains(t, selected, "main.go")
	require.NotContains(t, selected, "node_modules/pkg/index.js")
	require.NotContains(t, selected, ".env")
	require.NotContains(t, selected, "binary.bin")
	require.NotContains(t, selected, "ignored.txt")
	require.Equal(t, 1, stats.SkippedGitignore)
	require.Equal(t, 1, stats.SkippedBinary)
	require.GreaterOrEqual(t, stats.SkippedExcludeGlob, 1)
}

func TestScanMinifiedHeuristic(t *testing.T) {
	dir := t.TempDir()
	longLine := ""
	for i := 0; i < 50; i++ {
		longLine += "var x=function(){return 1;};"
	}
	writeFile(t, dir, "bundle.js", longLine)

	s, err := New()
	require.NoError(t, err)
	stats := &Stats{}
	results, err := s.Scan(context.Background(), dir, Options{MaxFileBytes: 1 << 20}, stats)
	require.NoError(t, err)
	for range results {
	}
	require.Equal(t, 1, stats.SkippedMinified)
}
