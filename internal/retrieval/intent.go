package retrieval

import "strings"

// Intent classifies what a question is asking for.
type Intent string

const (
	IntentFinancial Intent = "financial"
	IntentGeneral   Intent = "general"
)

// financialQueryWords are the cue words that route a question down the
// financial retrieval path.
var financialQueryWords = []string{
	"payment", "pay", "amount", "cost", "price", "fee", "charge", "charges",
	"rupee", "rupees", "rs.", "rs ", "dollar", "dollars", "$", "₹",
	"installment", "instalment", "deposit", "advance", "total", "sum",
	"schedule", "due", "owe", "owed", "payable", "money", "financial",
	"interest", "penalty", "brokerage", "maintenance", "registration",
	"stamp duty", "consideration",
}

// scheduleQueryWords mark a financial question as asking for the payment
// schedule specifically.
var scheduleQueryWords = []string{
	"schedule", "installment", "instalment", "milestone", "stages",
	"breakup", "break-up", "plan", "on booking", "on possession", "slab",
}

// QueryIntent describes the routing decision for one question.
type QueryIntent struct {
	Intent   Intent
	Schedule bool
}

// ClassifyQuery decides the retrieval path for a question. Any financial
// cue word routes it financial; schedule cue words additionally request
// payment-schedule synthesis.
func ClassifyQuery(question string) QueryIntent {
	lower := strings.ToLower(question)

	intent := QueryIntent{Intent: IntentGeneral}
	for _, word := range financialQueryWords {
		if strings.Contains(lower, word) {
			intent.Intent = IntentFinancial
			break
		}
	}
	if intent.Intent != IntentFinancial {
		return intent
	}

	for _, word := range scheduleQueryWords {
		if strings.Contains(lower, word) {
			intent.Schedule = true
			break
		}
	}
	return intent
}
