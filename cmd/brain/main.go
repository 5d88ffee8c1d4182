// brain is a file-backed knowledge graph for product managers: Markdown
// entities with YAML headers, append-only event logs, and a set of
// maintenance pipelines (enrichment, normalization, decay, snapshots).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/config"
	"github.com/pmbrain/brain/internal/logging"
)

// Shared across subcommands, set by the persistent flags.
var (
	rootCtx     context.Context
	logger      *log.Logger
	jsonOutput  bool
	quietMode   bool
	verboseMode bool
	actorFlag   string
	rootFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "brain",
	Short: "Personal knowledge graph over a directory of Markdown entities",
	Long: `brain manages a knowledge graph stored as Markdown files with YAML
front-matter: people, teams, squads, projects, domains, experiments,
systems, and brands, linked by typed relationships and audited through
append-only event logs.

The root directory is resolved from --root, BRAIN_ROOT, a .brain/
marker found by walking up from the working directory, or ~/brain.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		if rootFlag != "" {
			config.Set("root", rootFlag)
		}
		if quietMode {
			logger = logging.Discard()
		} else {
			logger = logging.Open(config.Root(), verboseMode)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Brain root directory (default: BRAIN_ROOT or discovered)")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "Actor recorded on events (default: BRAIN_USER or $USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Suppress progress output and file logging")
	rootCmd.PersistentFlags().BoolVarP(&verboseMode, "verbose", "v", false, "Mirror the log to stderr")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCtx = ctx

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
