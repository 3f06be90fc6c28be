package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/repoctx/repoctx/internal/rerrors"
	"github.com/repoctx/repoctx/internal/store"
	"github.com/repoctx/repoctx/internal/ui"
)

func newQueryCmd() *cobra.Command {
	var dbPath string
	var repoPath string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run a lexical, symbol-boosted query against the persistent index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, repoPath, dbPath, args[0], limit, jsonOutput)
		},
	}
	cmd.Flags().StringVar(&repoPath, "path", ".", "repository root holding the index")
	cmd.Flags().StringVar(&dbPath, "db-path", ".repoctx/index.sqlite", "persistent index path, relative to --path")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results to return")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func runQuery(cmd *cobra.Command, repoPath, dbPath, query string, limit int, jsonOutput bool) error {
	resolved := filepath.Join(repoPath, dbPath)
	if !fileExists(resolved) {
		return rerrors.New(rerrors.ErrCodeMissingSchema,
			fmt.Sprintf("no index found at %s; run `repoctx index` first", resolved), nil)
	}

	idx, err := store.OpenIndex(resolved)
	if err != nil {
		return fmt.Errorf("open index %s: %w", resolved, err)
	}
	defer idx.Close()

	tokens := store.TokenizeCode(query)
	results, err := idx.Query(cmd.Context(), tokens, limit)
	if err != nil {
		return fmt.Errorf("query index: %w", err)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	styles := ui.GetStyles(ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
	for _, r := range results {
		score := styles.Success.Render(fmt.Sprintf("%.3f", r.Score))
		loc := styles.Dim.Render(fmt.Sprintf("%s:%d-%d", r.FilePath, r.StartLine, r.EndLine))
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", score, loc)
	}
	return nil
}
