package services

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

// Extraction caps keep metadata bounded on very large documents.
const (
	maxParties = 10
	maxDates   = 20
	maxTopics  = 10
)

var partyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:Plaintiff|Defendant|Appellant|Appellee|Petitioner|Respondent)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
	regexp.MustCompile(`([A-Z][a-z]+\s+[A-Z][a-z]+)\s+v\.\s+([A-Z][a-z]+\s+[A-Z][a-z]+)`),
	regexp.MustCompile(`(?:Mr\.|Ms\.|Mrs\.|Dr\.)\s+([A-Z][a-z]+\s+[A-Z][a-z]+)`),
	regexp.MustCompile(`(?:signed|executed|witnessed|disputed|filed)\s+by\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
}

var datePatterns = []struct {
	re      *regexp.Regexp
	layouts []string
}{
	{regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`), []string{"2006-1-2"}},
	{regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`), []string{"1/2/2006"}},
	{regexp.MustCompile(`(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}`), []string{"January 2, 2006", "January 2 2006"}},
	{regexp.MustCompile(`\d{1,2}\s+(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{4}`), []string{"2 January 2006"}},
}

// topicKeywords are the recognised legal subject terms.
var topicKeywords = []string{
	"contract", "agreement", "lawsuit", "litigation", "settlement",
	"breach", "damages", "injunction", "motion", "pleading",
	"discovery", "deposition", "testimony", "evidence", "exhibit",
	"bankruptcy", "creditor", "debtor", "foreclosure", "lien",
	"racketeering", "fraud", "conspiracy", "transaction",
}

// ExtractMetadata runs the party, date and topic heuristics over
// normalised text. Partial extraction (empty fields) is not an error.
func ExtractMetadata(normalized string) domain.Metadata {
	return domain.Metadata{
		Parties: ExtractParties(normalized),
		Dates:   ExtractDates(normalized),
		Topics:  ExtractTopics(normalized),
	}
}

// ExtractParties finds party names via legal naming patterns.
// Results are deduplicated, sorted, and capped.
func ExtractParties(text string) []string {
	seen := make(map[string]struct{})
	for _, re := range partyPatterns {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			for _, group := range match[1:] {
				if group != "" {
					seen[group] = struct{}{}
				}
			}
		}
	}

	parties := make([]string, 0, len(seen))
	for p := range seen {
		parties = append(parties, p)
	}
	sort.Strings(parties)
	if len(parties) > maxParties {
		parties = parties[:maxParties]
	}
	return parties
}

// ExtractDates finds calendar dates in several common notations and
// normalises them to UTC midnight. Unparseable matches are skipped.
func ExtractDates(text string) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, dp := range datePatterns {
		for _, match := range dp.re.FindAllString(text, -1) {
			for _, layout := range dp.layouts {
				if t, err := time.ParseInLocation(layout, match, time.UTC); err == nil {
					seen[t] = struct{}{}
					break
				}
			}
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	if len(dates) > maxDates {
		dates = dates[:maxDates]
	}
	return dates
}

// ExtractTopics returns the recognised legal keywords present in the text.
func ExtractTopics(text string) []string {
	lower := strings.ToLower(text)
	var topics []string
	for _, kw := range topicKeywords {
		if strings.Contains(lower, kw) {
			topics = append(topics, kw)
		}
	}
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics
}
