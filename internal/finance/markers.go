// Package finance recognizes monetary amounts, payment schedules, financial
// terms and tabular data in contract text, and tags them with inline typed
// markers so chunking and retrieval can prioritize them.
package finance

import "regexp"

// MarkerKind identifies the type of an inline annotation marker.
type MarkerKind string

const (
	MarkerCurrencyUSD     MarkerKind = "CURRENCY_USD"
	MarkerCurrency        MarkerKind = "CURRENCY"
	MarkerIndianCurrency  MarkerKind = "INDIAN_CURRENCY"
	MarkerWrittenAmount   MarkerKind = "WRITTEN_AMOUNT"
	MarkerPercentage      MarkerKind = "PERCENTAGE"
	MarkerFinancialTerm   MarkerKind = "FINANCIAL_TERM"
	MarkerPaymentSchedule MarkerKind = "PAYMENT_SCHEDULE"
	MarkerCalculation     MarkerKind = "CALCULATION"
)

// Match is one recognized span of text.
type Match struct {
	Kind  MarkerKind
	Text  string
	Start int
	End   int
}

// Matcher pairs a marker kind with its recognition pattern. Matchers are
// independently testable and applied in a fixed order.
type Matcher struct {
	Kind MarkerKind
	re   *regexp.Regexp
}

// FindAll returns every span of text this matcher recognizes.
func (m Matcher) FindAll(text string) []Match {
	locs := m.re.FindAllStringIndex(text, -1)
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, Match{
			Kind:  m.Kind,
			Text:  text[loc[0]:loc[1]],
			Start: loc[0],
			End:   loc[1],
		})
	}
	return matches
}

// Amount matchers. Each currency system gets its own marker kind so
// retrieval can discriminate them. Order matters: prefixed forms go first
// so "Rs. 1,02,000 /-" is captured whole before the bare "/-" suffix
// pattern can claim the digits.
var amountMatchers = []Matcher{
	{MarkerCurrencyUSD, regexp.MustCompile(`\$\d[\d,]*(?:\.\d{2})?`)},
	{MarkerIndianCurrency, regexp.MustCompile(`(?i)\brs\.?\s*\d[\d,]*(?:\.\d{2})?(?:\s*/-)?`)},
	{MarkerIndianCurrency, regexp.MustCompile(`₹\s*\d[\d,]*(?:\.\d{2})?`)},
	{MarkerIndianCurrency, regexp.MustCompile(`\d[\d,]*(?:\.\d{2})?\s*/-`)},
	{MarkerCurrency, regexp.MustCompile(`(?i)\d[\d,]*(?:\.\d{2})?\s*(?:USD|EUR|GBP|CAD|AUD|JPY|CHF|CNY|INR)\b`)},
	{MarkerIndianCurrency, regexp.MustCompile(`(?i)\d[\d,]*(?:\.\d{2})?\s*rupees?\b`)},
}

var writtenAmountMatcher = Matcher{
	MarkerWrittenAmount,
	regexp.MustCompile(`(?i)\b(?:one|two|three|four|five|six|seven|eight|nine|ten|twenty|thirty|forty|fifty|sixty|seventy|eighty|ninety|hundred|thousand|million|billion|lakh|crore)(?:\s+(?:hundred|thousand|million|billion|lakh|crore))*\s+(?:dollars?|rupees?|rs\.?)`),
}

var percentageMatcher = Matcher{
	MarkerPercentage,
	regexp.MustCompile(`\d[\d,]*(?:\.\d+)?\s*%`),
}

// financialTermWords is the vocabulary of finance-adjacent words that, when
// immediately followed by a number, form a financial-term phrase.
const financialTermWords = `payment|fee|cost|charge|price|amount|total|sum|value|deposit|advance|installment|instalment|interest|tax|commission|rent|penalty|fine|premium|brokerage|maintenance|registration|consideration`

var financialTermMatcher = Matcher{
	MarkerFinancialTerm,
	regexp.MustCompile(`(?i)\b(?:` + financialTermWords + `)\s*(?:of|:)?\s*\d[\d,]*(?:\.\d{2})?`),
}

var paymentScheduleTermMatcher = Matcher{
	MarkerPaymentSchedule,
	regexp.MustCompile(`(?i)\b(?:monthly|quarterly|annual)\s+(?:installment|instalment|payment)\s*(?:of|:)?\s*\d[\d,]*(?:\.\d{2})?`),
}

var calculationMatcher = Matcher{
	MarkerCalculation,
	regexp.MustCompile(`(?i)\b(?:grand\s+total|sub\s*total|total|sum|final\s+amount)\s+(?:is|equals?|=)\s*(?:rs\.?\s*|\$|₹\s*)?\d[\d,]*(?:\.\d{2})?(?:\s*/-)?`),
}

// annotateOrder is the full ordered matcher list applied by Annotate.
var annotateOrder = func() []Matcher {
	order := make([]Matcher, 0, len(amountMatchers)+5)
	order = append(order, amountMatchers...)
	order = append(order,
		writtenAmountMatcher,
		percentageMatcher,
		paymentScheduleTermMatcher,
		calculationMatcher,
		financialTermMatcher,
	)
	return order
}()
