package finance

import (
	"regexp"
	"sort"
	"strings"
)

// contextWindow is how many characters of surrounding text are recorded for
// each recognized amount. The window is later surfaced to the LLM prompt so
// it can explain what a number means, not just quote it.
const contextWindow = 50

// minBlockChars filters out trivially short schedule/section blocks.
const minBlockChars = 50

// Amount is one recognized monetary value with its surrounding context.
type Amount struct {
	Amount   string `json:"amount"`
	Position int    `json:"position"`
	Context  string `json:"context"`
}

// ScheduleBlock is one extracted payment-schedule paragraph.
type ScheduleBlock struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// Term is one financial-term phrase with an adjacent number.
type Term struct {
	Term     string `json:"term"`
	Position int    `json:"position"`
}

// Calculation is one total-like phrase with its amount.
type Calculation struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// Analysis is the structured result of a full financial pass over a document.
type Analysis struct {
	Amounts      []Amount
	Schedules    []ScheduleBlock
	Terms        []Term
	Tables       []Table
	Calculations []Calculation
}

var scheduleLeads = regexp.MustCompile(`(?i)\b(?:payment\s+schedule|installment\s+plan|instalment\s+plan|payment\s+plan|(?:monthly|quarterly|annual)\s+installment|down\s+payment|advance\s+payment)\b`)

// Analyze runs a multi-pass extraction over document text. Each pass is
// independent: a pass that finds nothing leaves the rest of the result
// intact, so partial extraction never discards the other passes.
func Analyze(text string) Analysis {
	analysis := Analysis{}
	if text == "" {
		return analysis
	}

	analysis.Amounts = extractAmounts(text)
	analysis.Schedules = extractScheduleBlocks(text)
	analysis.Terms = extractTerms(text)
	analysis.Tables = ExtractTables(text)
	analysis.Calculations = extractCalculations(text)
	return analysis
}

// extractAmounts collects matches from every amount matcher, deduplicating
// overlapping spans in favor of the earliest, longest match.
func extractAmounts(text string) []Amount {
	var all []Match
	for _, matcher := range amountMatchers {
		all = append(all, matcher.FindAll(text)...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End > all[j].End
	})

	var amounts []Amount
	lastEnd := -1
	for _, m := range all {
		if m.Start < lastEnd {
			continue
		}
		amounts = append(amounts, Amount{
			Amount:   m.Text,
			Position: m.Start,
			Context:  surrounding(text, m.Start, m.End),
		})
		lastEnd = m.End
	}
	return amounts
}

func surrounding(text string, start, end int) string {
	from := start - contextWindow
	if from < 0 {
		from = 0
	}
	to := end + contextWindow
	if to > len(text) {
		to = len(text)
	}
	return text[from:to]
}

// extractScheduleBlocks finds payment-schedule paragraphs: a schedule lead
// phrase, bounded by the next blank line or all-caps heading line.
func extractScheduleBlocks(text string) []ScheduleBlock {
	var blocks []ScheduleBlock
	lastEnd := -1
	for _, loc := range scheduleLeads.FindAllStringIndex(text, -1) {
		if loc[0] < lastEnd {
			continue
		}
		end := blockEnd(text, loc[1])
		block := strings.TrimSpace(text[loc[0]:end])
		if len(block) < minBlockChars {
			continue
		}
		blocks = append(blocks, ScheduleBlock{Text: block, Position: loc[0]})
		lastEnd = end
	}
	return blocks
}

// blockEnd scans forward from position for the block boundary: a blank line,
// an all-caps heading line, or end of text.
func blockEnd(text string, from int) int {
	i := from
	for i < len(text) {
		nl := strings.IndexByte(text[i:], '\n')
		if nl < 0 {
			return len(text)
		}
		lineStart := i + nl + 1

		rest := text[lineStart:]
		trimmed := strings.TrimLeft(rest, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "\n") {
			return i + nl
		}

		lineEnd := strings.IndexByte(rest, '\n')
		var line string
		if lineEnd < 0 {
			line = rest
		} else {
			line = rest[:lineEnd]
		}
		if isHeadingLine(line) {
			return i + nl
		}

		i = lineStart
	}
	return len(text)
}

// isHeadingLine reports whether a line looks like a capitalized heading:
// it contains letters and none of them are lowercase.
func isHeadingLine(line string) bool {
	line = strings.TrimSpace(line)
	if len(line) < 4 {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

func extractTerms(text string) []Term {
	matches := financialTermMatcher.FindAll(text)
	terms := make([]Term, 0, len(matches))
	for _, m := range matches {
		terms = append(terms, Term{Term: m.Text, Position: m.Start})
	}
	return terms
}

func extractCalculations(text string) []Calculation {
	matches := calculationMatcher.FindAll(text)
	calcs := make([]Calculation, 0, len(matches))
	for _, m := range matches {
		calcs = append(calcs, Calculation{Text: m.Text, Position: m.Start})
	}
	return calcs
}
