package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/repoctx/repoctx/internal/rconfig"
	"github.com/repoctx/repoctx/internal/rerrors"
	"github.com/repoctx/repoctx/internal/store"
)

func newIndexCmd() *cobra.Command {
	f := &pipelineFlags{}
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or incrementally update the persistent index for a repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.toConfig(cmd)
			if err != nil {
				return err
			}
			return runIndex(cmd, cfg, jsonOutput)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the reconcile result as JSON")
	return cmd
}

func runIndex(cmd *cobra.Command, cfg *rconfig.Config, jsonOutput bool) error {
	ctx := cmd.Context()

	pr, err := runScanChunkRedact(ctx, cfg)
	if err != nil {
		return err
	}

	importsBySource := map[string][]string{}
	for _, e := range pr.ImportEdges {
		importsBySource[e.SourcePath] = append(importsBySource[e.SourcePath], e.TargetPath)
	}

	chunksByFile := chunksByFilePath(pr.Chunks)

	dbPath := filepath.Join(cfg.Path, cfg.DBPath)

	lock := store.NewIndexLock(dbPath)
	acquired, err := lock.TryLock()
	if err != nil {
		return err
	}
	if !acquired {
		return rerrors.New(rerrors.ErrCodeIndexLocked,
			fmt.Sprintf("index %s is locked by another repoctx process", dbPath), nil)
	}
	defer lock.Unlock()

	idx, err := store.OpenIndex(dbPath)
	if err != nil {
		return fmt.Errorf("open index %s: %w", dbPath, err)
	}
	defer idx.Close()

	var updates []store.FileUpdate
	scanned := map[string]bool{}
	for _, fi := range pr.Files {
		scanned[fi.Path] = true
		updates = append(updates, store.FileUpdate{
			File:        fi,
			Chunks:      chunksByFile[fi.Path],
			UsageEdges:  pr.UsageEdges[fi.Path],
			ImportPaths: importsBySource[fi.Path],
		})
	}

	result, err := idx.Reconcile(ctx, updates, scanned)
	if err != nil {
		return fmt.Errorf("reconcile index: %w", err)
	}
	if err := idx.SetMetadata(ctx, "repo_root", cfg.Path); err != nil {
		return fmt.Errorf("set repo_root metadata: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %s: %d reused, %d reindexed, %d removed\n",
		cfg.Path, len(result.Reused), len(result.Reindexed), len(result.Removed))
	return nil
}
