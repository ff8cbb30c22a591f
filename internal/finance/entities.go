package finance

import (
	"regexp"
	"strings"
)

// Entities collects the legal references found in a span of text.
type Entities struct {
	Dates      []string
	Amounts    []string
	Parties    []string
	ClauseRefs []string
}

var (
	dateMatcher = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b[A-Z][a-z]+\s+\d{1,2},?\s+\d{4}\b`)

	// Party names follow introduction words and stop at the next
	// connective or punctuation.
	partyMatcher = regexp.MustCompile(`(?i)(?:between|party|parties)\s+([A-Z][A-Za-z\s&]+?)(?:\s+and\b|\s*\(|\s+whereas\b|[,;.])`)

	clauseRefMatcher = regexp.MustCompile(`(?i)(?:section|clause|article|paragraph)\s+(\d+(?:\.\d+)*)`)
)

// ExtractEntities scans text for dates, monetary amounts, party names and
// clause references. Results are deduplicated in first-seen order.
func ExtractEntities(text string) Entities {
	var e Entities

	e.Dates = dedupStrings(dateMatcher.FindAllString(text, -1))

	for _, amount := range extractAmounts(text) {
		e.Amounts = append(e.Amounts, amount.Amount)
	}
	e.Amounts = dedupStrings(e.Amounts)

	for _, sub := range partyMatcher.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(sub[1])
		if name != "" {
			e.Parties = append(e.Parties, name)
		}
	}
	e.Parties = dedupStrings(e.Parties)

	for _, sub := range clauseRefMatcher.FindAllStringSubmatch(text, -1) {
		e.ClauseRefs = append(e.ClauseRefs, sub[1])
	}
	e.ClauseRefs = dedupStrings(e.ClauseRefs)

	return e
}

func dedupStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
