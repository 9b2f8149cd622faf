package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Maintain the search indexes",
	Long:  `Verify, rebuild or repair the vector and keyword indexes.`,
}

var indexVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check index consistency",
	Long:  `Compares index entry counts against stored chunks and reports documents still pending indexing.`,
	Args:  cobra.NoArgs,
	RunE:  runIndexVerify,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild both indexes from the store",
	Long: `Reconstructs the vector and keyword indexes from a full scan of the
knowledge store. Use after a crash or an index file loss; the store is
the source of truth and is never modified.`,
	Args: cobra.NoArgs,
	RunE: runIndexRebuild,
}

var indexRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry pending index insertions",
	Args:  cobra.NoArgs,
	RunE:  runIndexRetry,
}

func init() {
	indexCmd.AddCommand(indexVerifyCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexRetryCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexVerify(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	report, err := ingestService.Verify(context.Background())
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	cmd.Printf("  Chunks:          %d\n", report.Chunks)
	cmd.Printf("  Vector entries:  %d\n", report.VectorEntries)
	cmd.Printf("  Keyword entries: %d\n", report.KeywordEntries)
	cmd.Printf("  Pending docs:    %d\n", report.PendingDocs)

	if report.Consistent() {
		cmd.Println("\nIndexes are consistent.")
		return nil
	}
	cmd.Println("\nIndexes are INCONSISTENT. Run 'casekb index rebuild'.")
	return nil
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	cmd.Println("Rebuilding indexes from store...")
	if err := ingestService.Rebuild(context.Background()); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	cmd.Println("Rebuild complete.")
	return nil
}

func runIndexRetry(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	pending := ingestService.RetryPending(context.Background())
	if len(pending) == 0 {
		cmd.Println("No documents pending indexing.")
		return nil
	}

	cmd.Printf("%d documents still pending:\n", len(pending))
	for _, id := range pending {
		cmd.Printf("  %s\n", id)
	}
	return nil
}
