package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run derived analyses over the knowledge base",
	Long: `Derived analyses reconstruct timelines, detect activity patterns,
surface contradictions and map relationships. They read only through the
retrieval engine; nothing here writes to the knowledge base.`,
}

var (
	timelineFrom string
	timelineTo   string
)

var analyzeTimelineCmd = &cobra.Command{
	Use:   "timeline [query]",
	Short: "Build a chronological event timeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeTimeline,
}

var analyzePatternsCmd = &cobra.Command{
	Use:   "patterns [query]",
	Short: "Detect coordinated-activity indicators",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzePatterns,
}

var analyzeContradictionsCmd = &cobra.Command{
	Use:   "contradictions [query]",
	Short: "Find opposing statements across documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeContradictions,
}

var analyzeRelationshipsCmd = &cobra.Command{
	Use:   "relationships [entity]...",
	Short: "Map entity co-occurrence across documents",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAnalyzeRelationships,
}

var analyzeSummarizeCmd = &cobra.Command{
	Use:   "summarize [doc-id]...",
	Short: "Produce an extractive summary of documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyzeSummarize,
}

func init() {
	analyzeTimelineCmd.Flags().StringVar(&timelineFrom, "from", "", "earliest event date (YYYY-MM-DD)")
	analyzeTimelineCmd.Flags().StringVar(&timelineTo, "to", "", "latest event date (YYYY-MM-DD)")

	analyzeCmd.AddCommand(analyzeTimelineCmd)
	analyzeCmd.AddCommand(analyzePatternsCmd)
	analyzeCmd.AddCommand(analyzeContradictionsCmd)
	analyzeCmd.AddCommand(analyzeRelationshipsCmd)
	analyzeCmd.AddCommand(analyzeSummarizeCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyzeTimeline(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	var from, to time.Time
	var err error
	if timelineFrom != "" {
		if from, err = time.Parse("2006-01-02", timelineFrom); err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if timelineTo != "" {
		if to, err = time.Parse("2006-01-02", timelineTo); err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
	}

	events, err := analysisService.Timeline(context.Background(), args[0], from, to)
	if err != nil {
		return fmt.Errorf("timeline failed: %w", err)
	}

	if len(events) == 0 {
		cmd.Println("No dated events found.")
		return nil
	}

	for _, ev := range events {
		cmd.Printf("  %s  [%s] %s\n", ev.Date.Format("2006-01-02"), ev.DocType, ev.Filename)
		if len(ev.Parties) > 0 {
			cmd.Printf("              parties: %s\n", strings.Join(ev.Parties, ", "))
		}
		cmd.Printf("              %s\n", ev.Excerpt)
	}
	cmd.Printf("\n%d events.\n", len(events))
	return nil
}

func runAnalyzePatterns(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	report, err := analysisService.DetectPatterns(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("pattern detection failed: %w", err)
	}

	cmd.Printf("Analyzed %d documents.\n\n", report.Analyzed)
	if len(report.Indicators) == 0 {
		cmd.Println("No indicators detected.")
		return nil
	}

	for _, ind := range report.Indicators {
		cmd.Printf("  %s (%d documents)\n", ind.Name, len(ind.DocumentIDs))
		cmd.Printf("    cues: %s\n", strings.Join(ind.Keywords, ", "))
		cmd.Printf("    docs: %s\n", strings.Join(ind.DocumentIDs, ", "))
		cmd.Println()
	}
	return nil
}

func runAnalyzeContradictions(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	contradictions, err := analysisService.FindContradictions(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("contradiction analysis failed: %w", err)
	}

	if len(contradictions) == 0 {
		cmd.Println("No contradictions found.")
		return nil
	}

	for i, c := range contradictions {
		cmd.Printf("  [%d] topic: %s\n", i+1, c.Topic)
		cmd.Printf("      %s says: %s\n", c.DocumentA, c.StatementA)
		cmd.Printf("      %s says: %s\n", c.DocumentB, c.StatementB)
		cmd.Println()
	}
	return nil
}

func runAnalyzeRelationships(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	relationships, err := analysisService.AnalyzeRelationships(context.Background(), args)
	if err != nil {
		return fmt.Errorf("relationship analysis failed: %w", err)
	}

	if len(relationships) == 0 {
		cmd.Println("No co-occurrences found.")
		return nil
	}

	for _, rel := range relationships {
		cmd.Printf("  %s <-> %s: %d shared documents\n", rel.EntityA, rel.EntityB, len(rel.DocumentIDs))
	}
	return nil
}

func runAnalyzeSummarize(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	summary, err := analysisService.Summarize(context.Background(), args)
	if err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}

	cmd.Println(summary)
	return nil
}
