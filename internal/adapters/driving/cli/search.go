package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

var (
	searchLimit    int
	searchMode     string
	searchJSON     bool
	searchDocTypes []string
	searchParty    string
	searchFrom     string
	searchTo       string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Retrieves the most relevant chunks for a query.

Modes:
  semantic  vector similarity over embeddings
  keyword   term matching over chunk text
  hybrid    weighted combination of both (default)

When the embedding provider is unavailable, semantic and hybrid queries
fall back to keyword-only results and are marked degraded.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "hybrid", "retrieval mode: semantic, keyword or hybrid")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringSliceVar(&searchDocTypes, "type", nil, "restrict to document types (filing, contract, email, financial_record, other)")
	searchCmd.Flags().StringVar(&searchParty, "party", "", "restrict to documents mentioning a party")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "restrict to documents dated on or after (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "restrict to documents dated on or before (YYYY-MM-DD)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	filter, err := buildFilter()
	if err != nil {
		return err
	}

	ctx := context.Background()
	start := time.Now()

	result, err := queryService.Query(ctx, args[0], domain.QueryMode(searchMode), searchLimit, filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if appMetrics != nil {
		appMetrics.ObserveQuery(string(result.Mode), time.Since(start), result.Degraded)
	}

	if searchJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	return outputSearchTable(cmd, result)
}

func buildFilter() (domain.QueryFilter, error) {
	filter := domain.QueryFilter{Party: searchParty}

	for _, raw := range searchDocTypes {
		dt := domain.DocType(raw)
		if !dt.Valid() {
			return filter, fmt.Errorf("unknown document type %q", raw)
		}
		filter.DocTypes = append(filter.DocTypes, dt)
	}

	if searchFrom != "" {
		t, err := time.Parse("2006-01-02", searchFrom)
		if err != nil {
			return filter, fmt.Errorf("invalid --from date: %w", err)
		}
		filter.DateFrom = t
	}
	if searchTo != "" {
		t, err := time.Parse("2006-01-02", searchTo)
		if err != nil {
			return filter, fmt.Errorf("invalid --to date: %w", err)
		}
		filter.DateTo = t
	}

	return filter, nil
}

func outputSearchTable(cmd *cobra.Command, result *domain.QueryResult) error {
	if result.Degraded {
		cmd.Println("Note: embedding provider unavailable, showing keyword-only results.")
		cmd.Println()
	}

	if len(result.Hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results (%s):\n\n", result.Mode)
	for i, hit := range result.Hits {
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, hit.Document.OriginalFilename, hit.Score)
		cmd.Printf("      %s | %s | chunk %s\n", hit.Document.DocType, hit.Document.ID, hit.Chunk.ID)
		if len(hit.MatchedTerms) > 0 {
			cmd.Printf("      matched: %s\n", strings.Join(hit.MatchedTerms, ", "))
		}
		cmd.Printf("      %s\n", snippet(hit.Chunk.Content, 160))
		cmd.Println()
	}
	return nil
}

// snippet trims content to a single display line.
func snippet(content string, maxLen int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen]) + "..."
}
