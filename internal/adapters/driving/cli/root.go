// Package cli implements the casekb command line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casekb/internal/core/ports/driving"
	"github.com/custodia-labs/casekb/internal/logger"
	"github.com/custodia-labs/casekb/internal/metrics"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired by the bootstrap before Execute runs.
var (
	ingestService   driving.Ingestor
	queryService    driving.Querier
	analysisService driving.Analyzer
	appMetrics      *metrics.Metrics
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "casekb",
	Short: "Legal case knowledge base",
	Long: `casekb ingests heterogeneous case documents into a searchable
knowledge base: extraction, classification, chunking, embedding and
indexing on the way in; semantic, keyword and hybrid retrieval plus
derived analyses on the way out.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output to stderr")
}

// Deps carries the wired services from the bootstrap.
type Deps struct {
	Ingestor driving.Ingestor
	Querier  driving.Querier
	Analyzer driving.Analyzer
	Metrics  *metrics.Metrics
	Version  string
}

// SetDeps installs the services the commands run against.
func SetDeps(d Deps) {
	ingestService = d.Ingestor
	queryService = d.Querier
	analysisService = d.Analyzer
	appMetrics = d.Metrics
	if d.Version != "" {
		version = d.Version
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a cancellable context, so
// long-running commands (serve, watch, mcp serve) shut down cleanly on
// SIGINT/SIGTERM.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
