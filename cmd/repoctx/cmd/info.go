package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/repoctx/repoctx/internal/rerrors"
	"github.com/repoctx/repoctx/internal/store"
	"github.com/repoctx/repoctx/internal/ui"
)

// infoOutput is the structured summary printed by `repoctx info`.
type infoOutput struct {
	RepoRoot  string `json:"repo_root"`
	IndexPath string `json:"index_path"`
	Files     int    `json:"files"`
	Reused    int    `json:"-"`
}

func newInfoCmd() *cobra.Command {
	f := &pipelineFlags{}
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Report on the persistent index for a repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.toConfig(cmd)
			if err != nil {
				return err
			}
			return runInfo(cmd, cfg.Path, cfg.DBPath, jsonOutput)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func runInfo(cmd *cobra.Command, root, dbPath string, jsonOutput bool) error {
	resolved := filepath.Join(root, dbPath)
	if !fileExists(resolved) {
		return rerrors.New(rerrors.ErrCodeMissingSchema,
			fmt.Sprintf("no index found at %s; run `repoctx index` first", resolved), nil)
	}

	idx, err := store.OpenIndex(resolved)
	if err != nil {
		return fmt.Errorf("open index %s: %w", resolved, err)
	}
	defer idx.Close()

	repoRoot, _, _ := idx.GetMetadata(cmd.Context(), "repo_root")

	out := infoOutput{RepoRoot: repoRoot, IndexPath: resolved}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	styles := ui.GetStyles(ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
	label := styles.Label.Render
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", label("index:"), out.IndexPath)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", label("repo_root:"), out.RepoRoot)
	return nil
}
