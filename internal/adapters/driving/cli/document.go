package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage stored documents",
	Long:  `List, view or delete documents in the knowledge base.`,
}

var documentListType string

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print extracted document text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document",
	Long:  `Removes the document, its chunks and all index entries.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

func init() {
	documentListCmd.Flags().StringVarP(&documentListType, "type", "t", "", "restrict to one document type")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	docType := domain.DocType(documentListType)
	if documentListType != "" && !docType.Valid() {
		return fmt.Errorf("unknown document type %q", documentListType)
	}

	docs, err := queryService.ListDocuments(context.Background(), docType)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents stored.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s  %-16s  %s\n", docs[i].ID, docs[i].DocType, docs[i].OriginalFilename)
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))

	if appMetrics != nil && documentListType == "" {
		appMetrics.SetDocumentCount(len(docs))
	}
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	doc, err := queryService.GetDocument(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Filename:  %s\n", doc.OriginalFilename)
	cmd.Printf("  Type:      %s\n", doc.DocType)
	cmd.Printf("  Hash:      %s\n", doc.ContentHash)
	cmd.Printf("  Original:  %s\n", doc.StoredPath)
	cmd.Printf("  Ingested:  %s\n", doc.IngestedAt.Format("2006-01-02 15:04:05"))

	if len(doc.Metadata.Parties) > 0 {
		cmd.Printf("  Parties:   %s\n", strings.Join(doc.Metadata.Parties, ", "))
	}
	if len(doc.Metadata.Topics) > 0 {
		cmd.Printf("  Topics:    %s\n", strings.Join(doc.Metadata.Topics, ", "))
	}
	if len(doc.Metadata.Dates) > 0 {
		dates := make([]string, len(doc.Metadata.Dates))
		for i, d := range doc.Metadata.Dates {
			dates[i] = d.Format("2006-01-02")
		}
		cmd.Printf("  Dates:     %s\n", strings.Join(dates, ", "))
	}

	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	doc, err := queryService.GetDocument(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Println(doc.Content)
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if err := ingestService.Delete(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", args[0])
	return nil
}
