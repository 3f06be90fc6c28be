package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/repoctx/repoctx/internal/domain"
	"github.com/repoctx/repoctx/internal/rconfig"
	"github.com/repoctx/repoctx/internal/render"
	"github.com/repoctx/repoctx/internal/rerrors"
	"github.com/repoctx/repoctx/internal/retrieve"
	"github.com/repoctx/repoctx/internal/store"
)

func newExportCmd() *cobra.Command {
	f := &pipelineFlags{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Scan a repository and write a context pack, chunk stream, and report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.toConfig(cmd)
			if err != nil {
				return err
			}
			return runExport(cmd, cfg, f)
		},
	}
	f.register(cmd)
	return cmd
}

func runExport(cmd *cobra.Command, cfg *rconfig.Config, f *pipelineFlags) error {
	start := time.Now()
	ctx := cmd.Context()

	pr, err := runScanChunkRedact(ctx, cfg)
	if err != nil {
		return err
	}

	dbPath := filepath.Join(cfg.Path, cfg.DBPath)
	var idx *store.Index
	if fileExists(dbPath) {
		idx, err = store.OpenIndex(dbPath)
		if err != nil {
			return fmt.Errorf("open existing index %s: %w", dbPath, err)
		}
		defer idx.Close()
	}

	remaining := cfg.Budget.MaxTokens
	if remaining <= 0 {
		remaining = sumChunkTokens(pr.Chunks)
	}
	reranker := newSemanticReranker(ctx, cfg.Retrieval.EnableSemanticRerank)
	chunks := applyRetrieval(ctx, pr.Chunks, cfg, idx, remaining, reranker)

	chunksByFile := chunksByFilePath(chunks)
	selected, dropped, err := selectWithinBudget(pr.Files, chunksByFile, cfg, f.alwaysIncludeGlobs, f.allowOverBudget)
	if err != nil {
		return err
	}

	var selectedFiles []*domain.FileInfo
	var selectedChunks []*domain.Chunk
	for _, fc := range selected {
		selectedFiles = append(selectedFiles, fc.File)
		selectedChunks = append(selectedChunks, fc.Chunks...)
	}
	retrieve.FinalSort(selectedChunks)

	repoName := filepath.Base(cfg.Path)
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return rerrors.IOError("create output directory", err)
	}

	highlight := map[string]bool{}
	var allPaths []string
	for _, fi := range pr.Files {
		allPaths = append(allPaths, fi.Path)
		if fi.Priority >= 0.8 {
			highlight[fi.Path] = true
		}
	}
	tree := render.GenerateTree(allPaths, cfg.Output.TreeDepth, highlight)

	pack := render.ContextPack(render.ContextPackInput{
		RepoName:    repoName,
		Tree:        tree,
		Files:       selectedFiles,
		Chunks:      selectedChunks,
		TaskQuery:   cfg.TaskQuery,
		NoTimestamp: f.noTimestamp,
		GeneratedAt: start,
	})
	packPath := filepath.Join(cfg.Output.Dir, repoName+"_context_pack.md")
	if err := os.WriteFile(packPath, []byte(pack), 0o644); err != nil {
		return rerrors.IOError("write context pack", err)
	}

	jsonl, err := render.JSONL(selectedChunks)
	if err != nil {
		return rerrors.IOError("render chunk stream", err)
	}
	jsonlPath := filepath.Join(cfg.Output.Dir, repoName+"_chunks.jsonl")
	if err := os.WriteFile(jsonlPath, []byte(jsonl), 0o644); err != nil {
		return rerrors.IOError("write chunk stream", err)
	}

	outputFiles := []string{packPath, jsonlPath}

	var graphPath string
	if idx == nil {
		graphPath = filepath.Join(cfg.Output.Dir, repoName+"_symbol_graph.db")
		var usageEdges []domain.UsageEdge
		for _, edges := range pr.UsageEdges {
			usageEdges = append(usageEdges, edges...)
		}
		if err := render.WriteSymbolGraph(ctx, graphPath, selectedChunks, nil, usageEdges, pr.ImportEdges); err != nil {
			return rerrors.IOError("write symbol graph", err)
		}
		outputFiles = append(outputFiles, graphPath)
	}

	tokensByPath := tokensByFilePath(selectedChunks)
	reportStats := render.ReportStats{
		Scan:                  pr.ScanStats,
		RedactionRulesFired:   pr.Redacted,
		ChunksCreated:         len(pr.Chunks),
		TotalTokensEstimated:  sumChunkTokens(selectedChunks),
		TopRankedFiles:        render.TopRankedFiles(selectedFiles, tokensByPath, 20),
		DroppedFiles:          dropped,
		ProcessingTimeSeconds: time.Since(start).Seconds(),
	}
	report := render.BuildReport(curatedConfig(cfg), reportStats, reportFileRefs(selectedFiles, tokensByPath), outputFiles, f.noTimestamp, start)
	reportData, err := render.MarshalReport(report)
	if err != nil {
		return rerrors.IOError("marshal report", err)
	}
	reportPath := filepath.Join(cfg.Output.Dir, repoName+"_report.json")
	if err := os.WriteFile(reportPath, reportData, 0o644); err != nil {
		return rerrors.IOError("write report", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s, %s, %s", packPath, jsonlPath, reportPath)
	if graphPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), ", %s", graphPath)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func reportFileRefs(files []*domain.FileInfo, tokensByPath map[string]int) []render.ReportFileRef {
	refs := make([]render.ReportFileRef, 0, len(files))
	for _, f := range files {
		refs = append(refs, render.ReportFileRef{
			ID:       f.Path,
			Path:     f.Path,
			Priority: f.Priority,
			Tokens:   tokensByPath[f.Path],
		})
	}
	return refs
}

func sumChunkTokens(chunks []*domain.Chunk) int {
	total := 0
	for _, c := range chunks {
		total += c.TokenEstimate
	}
	return total
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// curatedConfig projects the full configuration down to the fields
// worth echoing back in report.json, keyed the way the config's own
// YAML names read.
func curatedConfig(cfg *rconfig.Config) map[string]any {
	return map[string]any{
		"path":           cfg.Path,
		"mode":           cfg.Mode,
		"task_query":     cfg.TaskQuery,
		"chunk_tokens":   cfg.Chunk.ChunkTokens,
		"chunk_overlap":  cfg.Chunk.ChunkOverlap,
		"redaction_mode": cfg.Redaction.Mode,
		"max_tokens":     cfg.Budget.MaxTokens,
		"max_total_bytes": cfg.Budget.MaxTotalBytes,
		"output_dir":     cfg.Output.Dir,
		"tree_depth":     cfg.Output.TreeDepth,
	}
}
