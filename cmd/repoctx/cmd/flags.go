package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/repoctx/repoctx/internal/rconfig"
	"github.com/repoctx/repoctx/internal/rerrors"
)

// pipelineFlags mirrors the configuration object from spec.md §6, bound
// to cobra flags on every subcommand that runs the pipeline.
type pipelineFlags struct {
	path     string
	repo     string
	taskQuery string
	mode     string

	redactionMode string
	noRedact      bool

	chunkTokens    int
	chunkOverlap   int
	minChunkTokens int

	maxTokens           int
	maxTotalBytes       int64
	alwaysIncludeGlobs  []string
	allowOverBudget     bool

	semanticRerank bool

	outputDir   string
	treeDepth   int
	noTimestamp bool

	dbPath string
}

// register adds the shared pipeline flags to cmd. Subcommands that don't
// need a given knob (e.g. `info` has no budget flags) simply never read
// that field; keeping one registration function avoids elevenfold drift
// between subcommand flag lists.
func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "path", "", "repository path to scan")
	cmd.Flags().StringVar(&f.repo, "repo", "", "repository path to scan (alias of --path)")
	cmd.Flags().StringVar(&f.taskQuery, "task-query", "", "task-conditioned query for retrieval reranking")
	cmd.Flags().StringVar(&f.mode, "mode", "default", "output mode: default | contribution")

	cmd.Flags().StringVar(&f.redactionMode, "redaction-mode", "standard", "fast | standard | paranoid | structure_safe")
	cmd.Flags().BoolVar(&f.noRedact, "no-redact", false, "disable redaction entirely")

	cmd.Flags().IntVar(&f.chunkTokens, "chunk-tokens", 800, "target tokens per chunk")
	cmd.Flags().IntVar(&f.chunkOverlap, "chunk-overlap", 120, "token overlap between line-window chunks")
	cmd.Flags().IntVar(&f.minChunkTokens, "min-chunk-tokens", 200, "minimum tokens before coalescing adjacent chunks")

	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "token budget for the output (0 = unlimited)")
	cmd.Flags().Int64Var(&f.maxTotalBytes, "max-total-bytes", 2<<20, "byte budget for the output (0 = unlimited)")
	cmd.Flags().StringSliceVar(&f.alwaysIncludeGlobs, "always-include", nil, "glob patterns exempt from the token budget")
	cmd.Flags().BoolVar(&f.allowOverBudget, "allow-over-budget", false, "don't fail when always-include alone exceeds --max-tokens")

	cmd.Flags().BoolVar(&f.semanticRerank, "semantic-rerank", false, "enable the pluggable semantic reranker")

	cmd.Flags().StringVar(&f.outputDir, "output-dir", ".", "directory to write output artifacts into")
	cmd.Flags().IntVar(&f.treeDepth, "tree-depth", 3, "maximum depth rendered in the context pack's tree view")
	cmd.Flags().BoolVar(&f.noTimestamp, "no-timestamp", false, "omit generated_at / timestamp fields for reproducible output")

	cmd.Flags().StringVar(&f.dbPath, "db-path", ".repoctx/index.sqlite", "persistent index path")
}

// resolvePath applies the --path/--repo conflict-fails-fast rule from
// spec.md §6 and returns the effective repository root.
func (f *pipelineFlags) resolvePath() (string, error) {
	if f.path != "" && f.repo != "" && f.path != f.repo {
		return "", rerrors.New(rerrors.ErrCodeConfigConflict, "--path and --repo conflict", nil)
	}
	root := f.path
	if root == "" {
		root = f.repo
	}
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", root, err)
	}
	return abs, nil
}

// toConfig loads the layered on-disk configuration for root and applies
// every explicitly-set flag as an override, so flags win over files which
// win over built-in defaults.
func (f *pipelineFlags) toConfig(cmd *cobra.Command) (*rconfig.Config, error) {
	root, err := f.resolvePath()
	if err != nil {
		return nil, err
	}

	cfg, err := rconfig.Load(root)
	if err != nil {
		return nil, err
	}
	cfg.Path = root

	flags := cmd.Flags()
	if flags.Changed("task-query") {
		cfg.TaskQuery = f.taskQuery
	}
	if flags.Changed("mode") {
		cfg.Mode = f.mode
	}
	if flags.Changed("redaction-mode") {
		cfg.Redaction.Mode = f.redactionMode
	}
	if f.noRedact {
		cfg.Redaction.Enabled = false
	}
	if flags.Changed("chunk-tokens") {
		cfg.Chunk.ChunkTokens = f.chunkTokens
	}
	if flags.Changed("chunk-overlap") {
		cfg.Chunk.ChunkOverlap = f.chunkOverlap
	}
	if flags.Changed("min-chunk-tokens") {
		cfg.Chunk.MinChunkTokens = f.minChunkTokens
	}
	if flags.Changed("max-tokens") {
		cfg.Budget.MaxTokens = f.maxTokens
	}
	if flags.Changed("max-total-bytes") {
		cfg.Budget.MaxTotalBytes = f.maxTotalBytes
	}
	if flags.Changed("semantic-rerank") {
		cfg.Retrieval.EnableSemanticRerank = f.semanticRerank
	}
	if flags.Changed("output-dir") {
		cfg.Output.Dir = f.outputDir
	}
	if flags.Changed("tree-depth") {
		cfg.Output.TreeDepth = f.treeDepth
	}
	if flags.Changed("db-path") {
		cfg.DBPath = f.dbPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
