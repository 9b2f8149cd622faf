package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file or directory]...",
	Short: "Ingest case documents",
	Long: `Runs each file through the full ingestion pipeline: extraction,
normalisation, deduplication, classification, chunking, embedding and
indexing. Directories are ingested non-recursively. Identical content is
skipped, whatever its filename.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	raws, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(raws) == 0 {
		cmd.Println("No files to ingest.")
		return nil
	}

	ctx := context.Background()
	start := time.Now()

	if len(raws) == 1 {
		if appMetrics != nil {
			appMetrics.StartIngest()
		}
		outcome, err := ingestService.Ingest(ctx, raws[0])
		if appMetrics != nil {
			appMetrics.FinishIngest(string(outcome.Status), time.Since(start), err)
		}
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", raws[0].DeclaredFilename, err)
		}
		printOutcome(cmd, outcome)
		return nil
	}

	batch := ingestService.IngestBatch(ctx, raws)
	for _, outcome := range batch.Outcomes {
		printOutcome(cmd, outcome)
		if appMetrics != nil {
			appMetrics.StartIngest()
			appMetrics.FinishIngest(string(outcome.Status), 0, nil)
		}
	}

	if len(batch.Failures) > 0 {
		names := make([]string, 0, len(batch.Failures))
		for name := range batch.Failures {
			names = append(names, name)
		}
		sort.Strings(names)
		cmd.Println()
		for _, name := range names {
			cmd.Printf("  FAILED %s: %v\n", name, batch.Failures[name])
		}
	}

	cmd.Printf("\nBatch %s: %d ingested, %d failed (%.1fs)\n",
		batch.JobID, len(batch.Outcomes), len(batch.Failures), time.Since(start).Seconds())
	return nil
}

func printOutcome(cmd *cobra.Command, outcome domain.IngestOutcome) {
	switch outcome.Status {
	case domain.StatusIngested:
		cmd.Printf("  ingested  %s -> %s\n", outcome.Filename, outcome.DocumentID)
	case domain.StatusDuplicateSkipped:
		cmd.Printf("  duplicate %s (already stored as %s)\n", outcome.Filename, outcome.DocumentID)
	case domain.StatusIndexPending:
		cmd.Printf("  pending   %s -> %s (stored, indexing deferred)\n", outcome.Filename, outcome.DocumentID)
	}
}

// collectFiles expands arguments into raw files. Directory arguments
// contribute their immediate regular files.
func collectFiles(args []string) ([]domain.RawFile, error) {
	var raws []domain.RawFile
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}

		if !info.IsDir() {
			raw, err := readRawFile(arg)
			if err != nil {
				return nil, err
			}
			raws = append(raws, raw)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			raw, err := readRawFile(filepath.Join(arg, entry.Name()))
			if err != nil {
				return nil, err
			}
			raws = append(raws, raw)
		}
	}
	return raws, nil
}

func readRawFile(path string) (domain.RawFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.RawFile{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return domain.RawFile{
		DeclaredFilename: filepath.Base(path),
		Path:             path,
		Content:          content,
	}, nil
}
