package retrieval

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/briefdesk/contract-engine/internal/storage"
)

// scheduleHeader distinguishes synthesized output from document text so
// downstream prompts can cite it separately.
const scheduleHeader = "SYNTHESIZED PAYMENT SCHEDULE"

// scheduleLineAmount matches one inline amount marker on a schedule line.
var scheduleLineAmount = regexp.MustCompile(`\[(?:INDIAN_CURRENCY|CURRENCY_USD|CURRENCY|WRITTEN_AMOUNT):\s*([^\]]+)\]`)

var numericToken = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// scheduleRow is one parsed milestone line.
type scheduleRow struct {
	label  string
	amount string
}

// SynthesizeSchedule builds a numbered milestone table from
// payment-schedule chunks. Each line carrying an amount marker becomes a
// row of "label: amount"; when two or more amounts parse as plain numbers
// a computed total row is appended. Returns "" when no rows are found.
func SynthesizeSchedule(chunks []*storage.Chunk) string {
	// Dedicated payment-schedule chunks are authoritative. Only when a
	// document has none does the scan widen to every chunk.
	rows := collectScheduleRows(chunks, true)
	if len(rows) == 0 {
		rows = collectScheduleRows(chunks, false)
	}
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(scheduleHeader)
	b.WriteString(":\n")
	for i, row := range rows {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, row.label, row.amount)
	}

	if total, ok := sumAmounts(rows); ok {
		fmt.Fprintf(&b, "TOTAL: %s\n", total)
	}
	return strings.TrimRight(b.String(), "\n")
}

func collectScheduleRows(chunks []*storage.Chunk, scheduleKindOnly bool) []scheduleRow {
	var rows []scheduleRow
	seen := make(map[string]struct{})
	for _, chunk := range chunks {
		if scheduleKindOnly && chunk.Kind != storage.ChunkKindPaymentSchedule {
			continue
		}
		for _, row := range parseScheduleRows(chunk.Content) {
			key := row.label + "|" + row.amount
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			rows = append(rows, row)
		}
	}
	return rows
}

// parseScheduleRows extracts milestone rows from one chunk. A row is any
// line with leading label text followed by an amount marker.
func parseScheduleRows(content string) []scheduleRow {
	var rows []scheduleRow
	for _, line := range strings.Split(content, "\n") {
		loc := scheduleLineAmount.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}

		label := cleanScheduleLabel(line[:loc[0]])
		if label == "" {
			continue
		}
		amount := strings.TrimSpace(line[loc[2]:loc[3]])
		rows = append(rows, scheduleRow{label: label, amount: amount})
	}
	return rows
}

// cleanScheduleLabel strips list numbering, separators and marker debris
// from the text preceding an amount.
func cleanScheduleLabel(raw string) string {
	label := strings.TrimSpace(raw)
	label = strings.TrimLeft(label, "0123456789.)- \t")
	label = strings.TrimRight(label, ":-= \t")
	label = strings.TrimSpace(label)
	if len(label) < 3 {
		return ""
	}
	return label
}

// sumAmounts totals the rows whose amounts parse as plain numbers. A total
// is only reported when at least two rows contribute, otherwise a single
// parsed amount would masquerade as a sum.
func sumAmounts(rows []scheduleRow) (string, bool) {
	var total int64
	parsed := 0
	for _, row := range rows {
		token := numericToken.FindString(row.amount)
		if token == "" {
			continue
		}
		// Fractional parts are dropped: "5,000.00" totals as 5000.
		whole, _, _ := strings.Cut(token, ".")
		digits := strings.ReplaceAll(whole, ",", "")
		if digits == "" || len(digits) > 15 {
			continue
		}
		var n int64
		for _, c := range digits {
			n = n*10 + int64(c-'0')
		}
		total += n
		parsed++
	}
	if parsed < 2 {
		return "", false
	}
	return fmt.Sprintf("%d", total), true
}
