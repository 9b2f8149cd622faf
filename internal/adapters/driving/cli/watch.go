package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casekb/internal/adapters/driving/watch"
	"github.com/custodia-labs/casekb/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Watch a drop folder and ingest new files",
	Long: `Watch a directory and ingest every file dropped into it. Files
already present when the watcher starts are ingested first. Hidden
files and partial-transfer files (*.tmp, *.part, trailing ~) are
ignored.

Examples:
  casekb watch ~/case-inbox
  casekb watch --settle 2s /mnt/shared/drop`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("settle", watch.DefaultSettle, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	settle, err := cmd.Flags().GetDuration("settle")
	if err != nil {
		return fmt.Errorf("getting settle flag: %w", err)
	}

	dir := args[0]
	cmd.Printf("Watching %s (Ctrl-C to stop)\n", dir)

	w := watch.NewWatcher(ingestService, dir, settle, func(path string, outcome domain.IngestOutcome, cbErr error) {
		if cbErr != nil {
			cmd.PrintErrf("  failed    %s: %v\n", path, cbErr)
			return
		}
		printOutcome(cmd, outcome)
	})

	return w.Run(cmd.Context())
}
