package finance

import (
	"fmt"
	"regexp"
	"strings"
)

// TableKind classifies an extracted table.
type TableKind string

const (
	TableFinancial TableKind = "financial"
	TableGeneral   TableKind = "general"
)

// Table is one extracted tabular block.
type Table struct {
	Headers   []string
	Rows      [][]string
	Kind      TableKind
	StartLine int
	EndLine   int
}

var (
	columnSep = regexp.MustCompile(`\s{2,}|\t+|\|`)

	rowDataPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d[\d,]*(?:\.\d{2})?/-`),
		regexp.MustCompile(`\$\d[\d,]*(?:\.\d{2})?`),
		regexp.MustCompile(`\d[\d,]*(?:\.\d{2})?\s*%`),
		regexp.MustCompile(`\d`),
	}

	financialLine = []*regexp.Regexp{
		regexp.MustCompile(`\d[\d,]*(?:\.\d{2})?/-`),
		regexp.MustCompile(`\$\d[\d,]*(?:\.\d{2})?`),
		regexp.MustCompile(`(?i)\d[\d,]*(?:\.\d{2})?\s*(?:USD|EUR|GBP|INR|rupees?)`),
		regexp.MustCompile(`\d[\d,]*(?:\.\d{2})?\s*%`),
		regexp.MustCompile(`(?i)\b(?:amount|price|cost|fee|charge|total|sum|value)\b`),
	}
)

// headerVocabulary is the fixed set of tabular/financial words that qualify
// a multi-column line as a table header.
var headerVocabulary = []string{
	"item", "description", "quantity", "qty", "amount", "price", "cost", "total",
	"sr", "no", "s.no", "sno", "sl", "serial", "particulars", "details",
	"unit", "rate", "value", "sum", "subtotal", "tax", "gst", "vat",
	"payment", "fee", "charge", "penalty", "interest", "discount",
}

// ExtractTables scans text line by line for tabular blocks: a header line
// followed by data rows, ended by a blank line or a non-row line. Tables
// with zero matched rows are discarded.
func ExtractTables(text string) []Table {
	lines := strings.Split(text, "\n")

	var tables []Table
	var current *Table

	flush := func(endLine int) {
		if current != nil && len(current.Rows) > 0 {
			current.EndLine = endLine
			tables = append(tables, *current)
		}
		current = nil
	}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			flush(i - 1)
			continue
		}

		// Row membership wins over header detection while a table is
		// open: data rows often repeat header vocabulary.
		switch {
		case current != nil && isTableRow(line):
			row := splitColumns(line)
			if len(row) >= 2 {
				current.Rows = append(current.Rows, row)
			}
		case isTableHeader(line):
			flush(i - 1)
			kind := TableGeneral
			if containsFinancialData(line) {
				kind = TableFinancial
			}
			current = &Table{
				Headers:   splitColumns(line),
				Kind:      kind,
				StartLine: i,
			}
		default:
			flush(i - 1)
		}
	}
	flush(len(lines) - 1)

	return tables
}

// isTableHeader reports whether a line looks like a table header: it splits
// into at least two columns and contains a word from the header vocabulary.
func isTableHeader(line string) bool {
	if len(line) < 10 {
		return false
	}
	if len(splitColumns(line)) < 2 {
		return false
	}

	lower := strings.ToLower(line)
	for _, word := range headerVocabulary {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// isTableRow reports whether a line looks like a data row: at least two
// columns and a numeric/currency token, or three or more columns.
func isTableRow(line string) bool {
	if len(line) < 5 {
		return false
	}
	columns := splitColumns(line)
	if len(columns) < 2 {
		return false
	}

	for _, p := range rowDataPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return len(columns) >= 3
}

// splitColumns splits a table line into trimmed, non-empty columns.
func splitColumns(line string) []string {
	parts := columnSep.Split(line, -1)
	columns := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			columns = append(columns, trimmed)
		}
	}
	return columns
}

func containsFinancialData(line string) bool {
	for _, p := range financialLine {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// AppendExtractedTables appends a formatted rendering of every detected
// table to the text, so tabular data survives chunking in a shape the
// retrieval side can match on. Text without tables is returned unchanged.
func AppendExtractedTables(text string) string {
	tables := ExtractTables(text)
	if len(tables) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\nEXTRACTED TABLES:\n")
	for i, t := range tables {
		fmt.Fprintf(&b, "\nTABLE %d:\n%s\n", i+1, FormatTable(t))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTable renders an extracted table as a pipe-delimited block suitable
// for inclusion in chunk text.
func FormatTable(t Table) string {
	if len(t.Rows) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("TABLE DATA:\n")
	b.WriteString("| " + strings.Join(t.Headers, " | ") + " |\n")

	dashes := make([]string, len(t.Headers))
	for i := range dashes {
		dashes[i] = "---"
	}
	b.WriteString("| " + strings.Join(dashes, " | ") + " |\n")

	for _, row := range t.Rows {
		padded := make([]string, len(t.Headers))
		copy(padded, row)
		b.WriteString("| " + strings.Join(padded, " | ") + " |\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
