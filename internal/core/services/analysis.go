package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/casekb/internal/core/domain"
	"github.com/custodia-labs/casekb/internal/core/ports/driving"
)

// Ensure AnalysisService implements the interface.
var _ driving.Analyzer = (*AnalysisService)(nil)

// Retrieval depths for the analysis passes.
const (
	timelineDepth      = 20
	patternDepth       = 15
	contradictionDepth = 15
	relationshipDepth  = 25
)

// excerptLength bounds snippets included in analysis output.
const excerptLength = 200

// indicatorGroups are the coordinated-activity cue sets checked by
// pattern detection.
var indicatorGroups = []struct {
	name     string
	keywords []string
}{
	{"enterprise", []string{"enterprise", "organization", "entity", "business", "company"}},
	{"pattern of activity", []string{"pattern", "repeated", "systematic", "ongoing"}},
	{"coordination", []string{"coordinate", "conspire", "collaborate", "together", "joint"}},
	{"transactions", []string{"transaction", "payment", "transfer", "exchange", "deal"}},
	{"communications", []string{"email", "communication", "message", "call", "meeting", "discuss"}},
}

// negationCues mark statements that dispute or deny something.
var negationCues = []string{"not ", "never ", "denied", "disputed", "refused", "contrary", "no such"}

// AnalysisService runs derived legal-analysis passes. It consumes only
// the query boundary and the document metadata accessor, never the
// indexes directly, so retrieval consistency guarantees carry over.
type AnalysisService struct {
	querier driving.Querier
}

// NewAnalysisService creates an analysis service on top of a querier.
func NewAnalysisService(querier driving.Querier) *AnalysisService {
	return &AnalysisService{querier: querier}
}

// Timeline builds a chronological event list from the date metadata of
// documents relevant to the query.
func (s *AnalysisService) Timeline(ctx context.Context, query string, from, to time.Time) ([]domain.TimelineEvent, error) {
	docs, excerpts, err := s.retrieveDocuments(ctx, query, timelineDepth)
	if err != nil {
		return nil, err
	}

	var events []domain.TimelineEvent
	for _, doc := range docs {
		for _, date := range doc.Metadata.Dates {
			if !from.IsZero() && date.Before(from) {
				continue
			}
			if !to.IsZero() && date.After(to) {
				continue
			}
			events = append(events, domain.TimelineEvent{
				Date:       date,
				Excerpt:    excerpts[doc.ID],
				DocumentID: doc.ID,
				Filename:   doc.OriginalFilename,
				DocType:    doc.DocType,
				Parties:    doc.Metadata.Parties,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].DocumentID < events[j].DocumentID
	})
	return events, nil
}

// DetectPatterns buckets retrieved documents by coordinated-activity cues.
func (s *AnalysisService) DetectPatterns(ctx context.Context, query string) (*domain.PatternReport, error) {
	docs, _, err := s.retrieveDocuments(ctx, query, patternDepth)
	if err != nil {
		return nil, err
	}

	report := &domain.PatternReport{Query: query, Analyzed: len(docs)}
	for _, group := range indicatorGroups {
		var matched []string
		var cues []string
		for _, doc := range docs {
			content := strings.ToLower(doc.Content)
			hit := false
			for _, kw := range group.keywords {
				if strings.Contains(content, kw) {
					hit = true
					cues = appendUnique(cues, kw)
				}
			}
			if hit {
				matched = append(matched, doc.ID)
			}
		}
		if len(matched) > 0 {
			sort.Strings(matched)
			report.Indicators = append(report.Indicators, domain.PatternIndicator{
				Name:        group.name,
				Keywords:    cues,
				DocumentIDs: matched,
			})
		}
	}
	return report, nil
}

// FindContradictions pairs statements about a shared topic where one
// document affirms and another disputes.
func (s *AnalysisService) FindContradictions(ctx context.Context, query string) ([]domain.Contradiction, error) {
	docs, _, err := s.retrieveDocuments(ctx, query, contradictionDepth)
	if err != nil {
		return nil, err
	}

	type statement struct {
		docID string
		text  string
	}

	// Group statements by topic, split into affirming and disputing.
	affirming := make(map[string][]statement)
	disputing := make(map[string][]statement)

	for _, doc := range docs {
		for _, topic := range doc.Metadata.Topics {
			for _, sentence := range splitSentences(doc.Content) {
				lower := strings.ToLower(sentence)
				if !strings.Contains(lower, topic) {
					continue
				}
				st := statement{docID: doc.ID, text: truncate(sentence, excerptLength)}
				if containsAny(lower, negationCues) {
					disputing[topic] = append(disputing[topic], st)
				} else {
					affirming[topic] = append(affirming[topic], st)
				}
			}
		}
	}

	topics := make([]string, 0, len(disputing))
	for topic := range disputing {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	var found []domain.Contradiction
	for _, topic := range topics {
		for _, neg := range disputing[topic] {
			for _, aff := range affirming[topic] {
				if aff.docID == neg.docID {
					continue
				}
				found = append(found, domain.Contradiction{
					Topic:      topic,
					StatementA: aff.text,
					DocumentA:  aff.docID,
					StatementB: neg.text,
					DocumentB:  neg.docID,
				})
			}
		}
	}
	return found, nil
}

// AnalyzeRelationships maps co-occurrence of the given entities across
// retrieved documents.
func (s *AnalysisService) AnalyzeRelationships(ctx context.Context, entities []string) ([]domain.Relationship, error) {
	if len(entities) < 2 {
		return nil, fmt.Errorf("%w: need at least two entities", domain.ErrInvalidQuery)
	}

	docs, _, err := s.retrieveDocuments(ctx, strings.Join(entities, " "), relationshipDepth)
	if err != nil {
		return nil, err
	}

	pairs := make(map[[2]string][]string)
	for _, doc := range docs {
		content := strings.ToLower(doc.Content)
		var mentioned []string
		for _, e := range entities {
			if strings.Contains(content, strings.ToLower(e)) {
				mentioned = append(mentioned, e)
			}
		}
		for i := 0; i < len(mentioned); i++ {
			for j := i + 1; j < len(mentioned); j++ {
				a, b := mentioned[i], mentioned[j]
				if b < a {
					a, b = b, a
				}
				key := [2]string{a, b}
				pairs[key] = append(pairs[key], doc.ID)
			}
		}
	}

	keys := make([][2]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	relationships := make([]domain.Relationship, 0, len(keys))
	for _, key := range keys {
		relationships = append(relationships, domain.Relationship{
			EntityA:     key[0],
			EntityB:     key[1],
			DocumentIDs: pairs[key],
		})
	}
	return relationships, nil
}

// Summarize produces a bounded extractive summary of stored documents.
func (s *AnalysisService) Summarize(ctx context.Context, documentIDs []string) (string, error) {
	if len(documentIDs) == 0 {
		return "", fmt.Errorf("%w: no documents given", domain.ErrInvalidQuery)
	}

	var b strings.Builder
	for i, id := range documentIDs {
		doc, err := s.querier.GetDocument(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return "", fmt.Errorf("get document %s: %w", id, err)
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, doc.OriginalFilename, doc.DocType)
		fmt.Fprintf(&b, "   %s\n", truncate(doc.Content, 500))
		if len(doc.Metadata.Parties) > 0 {
			fmt.Fprintf(&b, "   Parties: %s\n", strings.Join(doc.Metadata.Parties, ", "))
		}
	}
	if b.Len() == 0 {
		return "", domain.ErrNotFound
	}
	return b.String(), nil
}

// retrieveDocuments queries in semantic mode (degrading transparently via
// the querier) and deduplicates hits by document, keeping the best
// chunk's excerpt per document.
func (s *AnalysisService) retrieveDocuments(
	ctx context.Context, query string, k int,
) ([]domain.Document, map[string]string, error) {
	result, err := s.querier.Query(ctx, query, domain.ModeSemantic, k, domain.QueryFilter{})
	if err != nil {
		return nil, nil, err
	}

	var docs []domain.Document
	excerpts := make(map[string]string)
	seen := make(map[string]struct{})
	for _, hit := range result.Hits {
		if _, ok := seen[hit.Document.ID]; ok {
			continue
		}
		seen[hit.Document.ID] = struct{}{}
		docs = append(docs, hit.Document)
		excerpts[hit.Document.ID] = truncate(hit.Chunk.Content, excerptLength)
	}
	return docs, excerpts, nil
}

// splitSentences splits content on common sentence terminators.
func splitSentences(content string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
