// Package textnorm cleans raw extracted document text before segmentation.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	// Characters a legal document can reasonably contain. Currency symbols,
	// percent signs and pipes are kept because the financial annotator and
	// table extractor key off them.
	disallowed = regexp.MustCompile(`[^\p{L}\p{N}_\s.,;:!?()\[\]{}\-'"/|$%₹&+=*]`)

	// Horizontal whitespace runs. A run of two or more spaces (or any tab)
	// is a column separator for table detection and collapses to exactly
	// two spaces instead of one.
	spaceRun = regexp.MustCompile(`[ \t]+`)

	// Three or more newlines collapse to a single blank line; blank lines
	// bound payment-schedule blocks and must survive normalization.
	newlineRun = regexp.MustCompile(`\n{3,}`)

	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
)

// Normalize cleans and normalizes raw document text. Pure function;
// empty input yields an empty string.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = disallowed.ReplaceAllString(text, "")

	text = spaceRun.ReplaceAllStringFunc(text, func(run string) string {
		if len(run) >= 2 || strings.ContainsRune(run, '\t') {
			return "  "
		}
		return " "
	})

	text = trailingSpace.ReplaceAllString(text, "\n")
	text = newlineRun.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
