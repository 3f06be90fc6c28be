package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/repoctx/repoctx/internal/codeintel"
	"github.com/repoctx/repoctx/internal/store"
)

func newCodeintelCmd() *cobra.Command {
	var repoPath string
	var dbPath string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "codeintel",
		Short: "Export a scip-lite code-intelligence document from the persistent index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCodeintel(cmd, repoPath, dbPath, outputPath)
		},
	}
	cmd.Flags().StringVar(&repoPath, "path", ".", "repository root holding the index")
	cmd.Flags().StringVar(&dbPath, "db-path", ".repoctx/index.sqlite", "persistent index path, relative to --path")
	cmd.Flags().StringVar(&outputPath, "output", "", "write the document here instead of stdout")
	return cmd
}

func runCodeintel(cmd *cobra.Command, repoPath, dbPath, outputPath string) error {
	resolved := filepath.Join(repoPath, dbPath)

	idx, err := store.OpenIndex(resolved)
	if err != nil {
		return fmt.Errorf("open index %s: %w", resolved, err)
	}
	defer idx.Close()

	doc, err := codeintel.Build(cmd.Context(), idx.DB())
	if err != nil {
		return err
	}

	data, err := codeintel.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal codeintel document: %w", err)
	}

	if outputPath == "" {
		_, err := cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write codeintel document: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outputPath)
	return nil
}
