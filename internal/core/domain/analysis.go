package domain

import "time"

// TimelineEvent is one dated entry in a chronological reconstruction.
type TimelineEvent struct {
	// Date is the event date taken from document metadata.
	Date time.Time

	// Excerpt is a bounded snippet of the source chunk.
	Excerpt string

	// DocumentID and Filename attribute the event to its source.
	DocumentID string
	Filename   string

	// DocType is the source document's category.
	DocType DocType

	// Parties are the parties mentioned in the source document.
	Parties []string
}

// PatternIndicator groups documents that exhibit one coordinated-activity
// signal (e.g. repeated transactions, shared participants).
type PatternIndicator struct {
	// Name identifies the indicator category.
	Name string

	// Keywords are the cues that triggered the indicator.
	Keywords []string

	// DocumentIDs are the documents in which the cues appeared.
	DocumentIDs []string
}

// PatternReport is the outcome of a pattern detection pass.
type PatternReport struct {
	Query      string
	Analyzed   int
	Indicators []PatternIndicator
}

// Contradiction pairs two statements from different documents that appear
// to oppose each other on the same topic.
type Contradiction struct {
	Topic      string
	StatementA string
	DocumentA  string
	StatementB string
	DocumentB  string
}

// Relationship records how often two entities appear in the same document.
type Relationship struct {
	EntityA     string
	EntityB     string
	DocumentIDs []string
}
