package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty input", "", ""},
		{"single spaces preserved", "the buyer shall pay", "the buyer shall pay"},
		{"space runs collapse to column separator", "Item     Amount", "Item  Amount"},
		{"tabs become column separator", "Item\tAmount", "Item  Amount"},
		{"mixed space and tab runs", "Item \t Amount\tDue", "Item  Amount  Due"},
		{"newline runs collapse to one blank line", "clause one\n\n\n\n\nclause two", "clause one\n\nclause two"},
		{"carriage returns normalized", "a\r\nb\rc", "a\nb\nc"},
		{"control characters stripped", "amount\x00\x07 due", "amount due"},
		{"currency symbols survive", "pays $5,000.00 or ₹1,00,000 at 5%", "pays $5,000.00 or ₹1,00,000 at 5%"},
		{"legal punctuation survives", `Clause 2.1(a): "Buyer" shall pay; [see Schedule-A]`, `Clause 2.1(a): "Buyer" shall pay; [see Schedule-A]`},
		{"leading and trailing whitespace trimmed", "  \n agreement text \n ", "agreement text"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalize_TabTableKeepsColumns(t *testing.T) {
	raw := "Item\tAmount\nBooking\t$1,000.00\nPossession\t$2,000.00"

	got := Normalize(raw)

	assert.Equal(t, "Item  Amount\nBooking  $1,000.00\nPossession  $2,000.00", got)
}
