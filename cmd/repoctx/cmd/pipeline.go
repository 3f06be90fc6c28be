package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/repoctx/repoctx/internal/budget"
	"github.com/repoctx/repoctx/internal/chunker"
	"github.com/repoctx/repoctx/internal/domain"
	"github.com/repoctx/repoctx/internal/rank"
	"github.com/repoctx/repoctx/internal/rconfig"
	"github.com/repoctx/repoctx/internal/redact"
	"github.com/repoctx/repoctx/internal/retrieve"
	"github.com/repoctx/repoctx/internal/scan"
	"github.com/repoctx/repoctx/internal/search"
	"github.com/repoctx/repoctx/internal/store"
	"github.com/repoctx/repoctx/internal/symbols"
)

// fileReadConcurrency bounds how many files are read from disk at once
// during a scan pass.
const fileReadConcurrency = 16

// pipelineResult holds everything the scan -> rank -> chunk -> redact ->
// symbol-extraction run produced, before budget selection and rendering.
type pipelineResult struct {
	Files       []*domain.FileInfo
	Chunks      []*domain.Chunk
	UsageEdges  map[string][]domain.UsageEdge // by file path
	ImportEdges []domain.ImportEdge
	ScanStats   scan.Stats
	Redacted    int // files where redaction fired at least one rule
}

// runScanChunkRedact executes steps 1-4 of the pipeline (scan, rank,
// chunk, redact) plus the symbol/usage-edge extraction pass, matching
// the component order in spec.md §4.
func runScanChunkRedact(ctx context.Context, cfg *rconfig.Config) (*pipelineResult, error) {
	scanner, err := scan.New()
	if err != nil {
		return nil, fmt.Errorf("create scanner: %w", err)
	}

	opts := scan.Options{
		IncludeExtensions: cfg.Scan.IncludeExtensions,
		ExcludeGlobs:      cfg.Scan.ExcludeGlobs,
		RespectGitignore:  cfg.Scan.RespectGitignore,
		FollowSymlinks:    cfg.Scan.FollowSymlinks,
		MaxFileBytes:      cfg.Scan.MaxFileBytes,
		IncludeMinified:   cfg.Scan.IncludeMinified,
	}

	var stats scan.Stats
	results, err := scanner.Scan(ctx, cfg.Path, opts, &stats)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", cfg.Path, err)
	}

	// The byte-budget cutoff depends on accumulation order, so accept
	// files sequentially off the scan channel before reading any of
	// their contents.
	var accepted []*domain.FileInfo
	var totalBytes int64
	for r := range results {
		if r.Err != nil || r.File == nil {
			continue
		}
		if cfg.Scan.MaxTotalBytes > 0 && totalBytes+r.File.SizeBytes > cfg.Scan.MaxTotalBytes {
			continue
		}
		totalBytes += r.File.SizeBytes
		accepted = append(accepted, r.File)
	}

	// File content reads are independent once the accepted set is
	// fixed, so fan them out with bounded concurrency rather than
	// reading one at a time.
	rawContents := make([][]byte, len(accepted))
	readable := make([]bool, len(accepted))
	var unreadable int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fileReadConcurrency)
	for i, fi := range accepted {
		i, fi := i, fi
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			data, err := os.ReadFile(fi.AbsPath)
			if err != nil {
				atomic.AddInt64(&unreadable, 1)
				return nil
			}
			rawContents[i] = data
			readable[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var files []*domain.FileInfo
	contents := map[string]string{}
	scanned := map[string]bool{}
	for i, fi := range accepted {
		if !readable[i] {
			continue
		}
		contents[fi.Path] = string(rawContents[i])
		scanned[fi.Path] = true
		files = append(files, fi)
	}
	stats.SkippedUnreadable += int(unreadable)

	manifest := rank.DetectManifest(cfg.Path, scanned)
	files = rank.Rank(files, manifest)

	registry := chunker.DefaultRegistry()
	ch := chunker.New()
	defer ch.Close()

	extractor := symbols.New()
	defer extractor.Close()

	redactOpts := redact.Options{Mode: redact.Mode(cfg.Redaction.Mode)}

	result := &pipelineResult{
		ScanStats:  stats,
		UsageEdges: map[string][]domain.UsageEdge{},
	}

	knownFiles := map[string]bool{}
	for _, f := range files {
		knownFiles[f.Path] = true
	}
	lowerKnown := map[string]string{}
	for path := range knownFiles {
		lowerKnown[toLower(path)] = path
	}

	for _, f := range files {
		content := contents[f.Path]
		language := f.Language
		if language == "" {
			language = registry.LanguageForExtension(f.Extension)
		}

		redacted := content
		if cfg.Redaction.Enabled {
			res, err := redact.Redact(f.Path, content, redactOpts)
			if err == nil {
				redacted = res.Content
				if res.Redacted {
					result.Redacted++
				}
			}
		}

		fileTags := chunkerTagsForFile(f.Path)
		chunkOpts := chunker.Options{
			ChunkTokens:    cfg.Chunk.ChunkTokens,
			ChunkOverlap:   cfg.Chunk.ChunkOverlap,
			MinChunkTokens: cfg.Chunk.MinChunkTokens,
		}
		chunks := ch.Chunk(f.Path, language, redacted, fileTags, chunkOpts)
		for _, c := range chunks {
			c.Priority = f.Priority
			result.Chunks = append(result.Chunks, c)

			edges := extractor.Extract(c.ID, language, c.Content)
			if len(edges) > 0 {
				result.UsageEdges[f.Path] = append(result.UsageEdges[f.Path], edges...)
			}
		}

		f.TokenEstimate = sumTokens(chunks)
	}

	result.Files = files
	result.ImportEdges = resolveImportEdges(result.Chunks, lowerKnown)

	sort.SliceStable(result.Files, func(i, j int) bool {
		if result.Files[i].Priority != result.Files[j].Priority {
			return result.Files[i].Priority > result.Files[j].Priority
		}
		return result.Files[i].Path < result.Files[j].Path
	})

	return result, nil
}

func sumTokens(chunks []*domain.Chunk) int {
	total := 0
	for _, c := range chunks {
		total += c.TokenEstimate
	}
	return total
}

// chunkerTagsForFile seeds a file-level tag (e.g. "file:main.go") onto
// every chunk of that file, used by render and retrieval tag reporting.
func chunkerTagsForFile(path string) []string {
	return []string{"file:" + filepath.Base(path)}
}

func toLower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// applyRetrieval runs the reranking pipeline (internal/retrieve) over
// pr.Chunks in place and returns the possibly-extended slice (thread
// stitching can pull in chunks outside the original scan's budget
// window when a persistent index is available).
func applyRetrieval(ctx context.Context, chunks []*domain.Chunk, cfg *rconfig.Config, idx *store.Index, remainingBudgetTokens int, reranker retrieve.SemanticReranker) []*domain.Chunk {
	if cfg.TaskQuery == "" {
		return chunks
	}

	opts := retrieve.DefaultOptions()
	opts.TaskQuery = cfg.TaskQuery
	opts.RelevanceWeight = cfg.Retrieval.RelevanceWeight
	opts.DependencyBlendWeight = cfg.Retrieval.DependencyBlendWeight
	opts.SemanticBlendWeight = cfg.Retrieval.SemanticBlendWeight
	opts.EnableSemanticRerank = cfg.Retrieval.EnableSemanticRerank

	var source retrieve.StitchSource
	if idx != nil {
		source = retrieve.IndexStitchSource{Index: idx}
	}

	stitchBudget := int(float64(remainingBudgetTokens) * opts.StitchBudgetFraction)
	return retrieve.Run(ctx, chunks, opts, source, reranker, stitchBudget)
}

// newSemanticReranker builds the pluggable semantic reranker for export
// when --semantic-rerank is set, wrapping the MLX HTTP reranker behind
// the chunk-based interface internal/retrieve expects. A reranker the
// MLX server can't reach is non-fatal: SemanticRerank logs and skips it.
func newSemanticReranker(ctx context.Context, enabled bool) retrieve.SemanticReranker {
	if !enabled {
		return nil
	}
	mlx, err := search.NewMLXReranker(ctx, search.DefaultMLXRerankerConfig())
	if err != nil {
		return nil
	}
	return search.ChunkReranker{Reranker: mlx}
}

// selectWithinBudget applies the two-phase budget selection from
// spec.md §4.8 and returns the surviving files/chunks plus a combined
// drop list for reporting.
func selectWithinBudget(files []*domain.FileInfo, chunksByFile map[string][]*domain.Chunk, cfg *rconfig.Config, alwaysIncludeGlobs []string, allowOverBudget bool) ([]budget.FileChunks, []budget.DroppedFile, error) {
	selectedFiles, byteDrops, _ := budget.ApplyByteBudget(files, cfg.Budget.MaxTotalBytes)

	fileChunks := make([]budget.FileChunks, 0, len(selectedFiles))
	for _, f := range selectedFiles {
		fileChunks = append(fileChunks, budget.FileChunks{File: f, Chunks: chunksByFile[f.Path]})
	}

	tokenResult, err := budget.ApplyTokenBudget(fileChunks, cfg.Budget.MaxTokens, alwaysIncludeGlobs, allowOverBudget)
	if err != nil {
		return nil, nil, err
	}

	dropped := append(byteDrops, tokenResult.Dropped...)
	return tokenResult.Included, dropped, nil
}

func chunksByFilePath(chunks []*domain.Chunk) map[string][]*domain.Chunk {
	out := map[string][]*domain.Chunk{}
	for _, c := range chunks {
		out[c.FilePath] = append(out[c.FilePath], c)
	}
	return out
}

func tokensByFilePath(chunks []*domain.Chunk) map[string]int {
	out := map[string]int{}
	for _, c := range chunks {
		out[c.FilePath] += c.TokenEstimate
	}
	return out
}
