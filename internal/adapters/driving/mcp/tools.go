package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to find relevant case material"`
	Mode  string `json:"mode,omitempty" jsonschema:"retrieval mode: semantic, keyword or hybrid (default hybrid)"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Party string `json:"party,omitempty" jsonschema:"restrict to documents mentioning this party"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results  []SearchResultOutput `json:"results"`
	Count    int                  `json:"count"`
	Degraded bool                 `json:"degraded,omitempty"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID   string   `json:"document_id"`
	Filename     string   `json:"filename"`
	DocType      string   `json:"doc_type"`
	Score        float64  `json:"score"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
	Content      string   `json:"content,omitempty"`
}

// GetDocumentInput is the input schema for the get_document tool.
type GetDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document identifier"`
}

// GetDocumentOutput is the output schema for the get_document tool.
type GetDocumentOutput struct {
	DocumentID string   `json:"document_id"`
	Filename   string   `json:"filename"`
	DocType    string   `json:"doc_type"`
	Parties    []string `json:"parties,omitempty"`
	Topics     []string `json:"topics,omitempty"`
	Dates      []string `json:"dates,omitempty"`
	Content    string   `json:"content"`
}

// TimelineInput is the input schema for the timeline tool.
type TimelineInput struct {
	Query string `json:"query" jsonschema:"the topic to build a chronological timeline for"`
}

// TimelineOutput is the output schema for the timeline tool.
type TimelineOutput struct {
	Events []TimelineEventOutput `json:"events"`
}

// TimelineEventOutput represents one dated event.
type TimelineEventOutput struct {
	Date       string `json:"date"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Excerpt    string `json:"excerpt"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the case knowledge base",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Retrieve a stored case document with its metadata",
	}, s.handleGetDocument)

	if s.ports.Analyzer != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "timeline",
			Description: "Build a chronological timeline of events for a topic",
		}, s.handleTimeline)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	mode := domain.QueryMode(strings.ToLower(input.Mode))
	if input.Mode == "" {
		mode = domain.ModeHybrid
	}

	filter := domain.QueryFilter{Party: input.Party}
	result, err := s.ports.Querier.Query(ctx, input.Query, mode, input.Limit, filter)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:  make([]SearchResultOutput, len(result.Hits)),
		Count:    len(result.Hits),
		Degraded: result.Degraded,
	}

	for i := range result.Hits {
		hit := result.Hits[i]
		output.Results[i] = SearchResultOutput{
			DocumentID:   hit.Document.ID,
			Filename:     hit.Document.OriginalFilename,
			DocType:      string(hit.Document.DocType),
			Score:        hit.Score,
			MatchedTerms: hit.MatchedTerms,
			Content:      hit.Chunk.Content,
		}
	}

	return nil, output, nil
}

// handleGetDocument handles the get_document tool invocation.
func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDocumentInput,
) (*mcp.CallToolResult, GetDocumentOutput, error) {
	doc, err := s.ports.Querier.GetDocument(ctx, input.DocumentID)
	if err != nil {
		return nil, GetDocumentOutput{}, err
	}

	dates := make([]string, len(doc.Metadata.Dates))
	for i, d := range doc.Metadata.Dates {
		dates[i] = d.Format("2006-01-02")
	}

	return nil, GetDocumentOutput{
		DocumentID: doc.ID,
		Filename:   doc.OriginalFilename,
		DocType:    string(doc.DocType),
		Parties:    doc.Metadata.Parties,
		Topics:     doc.Metadata.Topics,
		Dates:      dates,
		Content:    doc.Content,
	}, nil
}

// handleTimeline handles the timeline tool invocation.
func (s *Server) handleTimeline(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TimelineInput,
) (*mcp.CallToolResult, TimelineOutput, error) {
	events, err := s.ports.Analyzer.Timeline(ctx, input.Query, time.Time{}, time.Time{})
	if err != nil {
		return nil, TimelineOutput{}, err
	}

	output := TimelineOutput{Events: make([]TimelineEventOutput, len(events))}
	for i, ev := range events {
		output.Events[i] = TimelineEventOutput{
			Date:       ev.Date.Format("2006-01-02"),
			DocumentID: ev.DocumentID,
			Filename:   ev.Filename,
			Excerpt:    ev.Excerpt,
		}
	}

	return nil, output, nil
}
