// Package cmd provides the CLI commands for repoctx.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/repoctx/repoctx/internal/logging"
	"github.com/repoctx/repoctx/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the repoctx CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repoctx",
		Short: "Turn a repository into a ranked, budgeted context pack",
		Long: `repoctx scans a repository, ranks and chunks its files, redacts
secrets, and assembles a context pack sized to a model's token budget.

Subcommands: export, index, info, query, codeintel, diff.`,
		Version:           version.Version,
		SilenceUsage:      true,
		PersistentPreRunE: startLogging,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			stopLogging()
			return nil
		},
	}
	cmd.SetVersionTemplate("repoctx version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to .repoctx/logs/")

	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newCodeintelCmd())
	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(cmd *cobra.Command, args []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging() {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
