package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEntities(t *testing.T) {
	text := `This Agreement to Sell is made on March 15, 2024 between Acme Builders (the Seller)
and the Party John Doe, residing at the premises.

As per Clause 4.2 the purchaser shall pay $5,000.00 on signing and the balance
of Rs. 1,00,000/- before possession as stated in Section 7. The completion
date is 12/05/2024 per clause 4.2.`

	e := ExtractEntities(text)

	assert.Equal(t, []string{"March 15, 2024", "12/05/2024"}, e.Dates)
	assert.Contains(t, e.Amounts, "$5,000.00")
	assert.Contains(t, e.Amounts, "Rs. 1,00,000/-")
	assert.Contains(t, e.Parties, "Acme Builders")
	assert.Contains(t, e.Parties, "John Doe")
	assert.Equal(t, []string{"4.2", "7"}, e.ClauseRefs)
}

func TestExtractEntities_Empty(t *testing.T) {
	e := ExtractEntities("no legal references here")

	assert.Empty(t, e.Dates)
	assert.Empty(t, e.Amounts)
	assert.Empty(t, e.Parties)
	assert.Empty(t, e.ClauseRefs)
}
