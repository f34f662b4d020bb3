package intake

import (
	"strings"

	"github.com/viant/loanflow/workflow"
	"github.com/viant/parsly"
)

// Request holds the fields recognised in a free-form application request.
type Request struct {
	Purpose        string
	Amount         float64
	AmountLiteral  string
	City           string
	Identifier     string
	IdentifierKind string
}

// amount multipliers recognised after a number, e.g. "5 lakh"
var multipliers = map[string]float64{
	"k":      1_000,
	"lakh":   100_000,
	"lakhs":  100_000,
	"lac":    100_000,
	"lacs":   100_000,
	"crore":  10_000_000,
	"crores": 10_000_000,
}

// words that terminate a purpose phrase
var purposeStops = map[string]bool{
	"in":   true,
	"at":   true,
	"of":   true,
	"loan": true,
	"rs":   true,
	"inr":  true,
}

// Parse scans a free-form application request and extracts any fields it can
// recognise: a purpose phrase, an amount with optional Indian grouping and
// lakh/crore multipliers, a PAN or Aadhaar identifier, and a city introduced
// by "in" or "at". Unrecognised text is ignored; Parse never fails.
func Parse(input string) *Request {
	cursor := parsly.NewCursor("", []byte(input), 0)
	request := &Request{}

	var words []string
	var purpose []string
	var collectPurpose bool
	var pendingAmount float64
	var pendingLiteral string

	for cursor.Pos < cursor.InputSize {
		matched := cursor.MatchAny(whitespaceToken, panToken, aadhaarToken, amountToken, wordToken)
		switch matched.Code {
		case whitespaceToken.Code:
			continue
		case panToken.Code:
			request.Identifier = strings.ToUpper(matched.Text(cursor))
			request.IdentifierKind = "pan"
			collectPurpose = false
		case aadhaarToken.Code:
			request.Identifier = matched.Text(cursor)
			request.IdentifierKind = "aadhaar"
			collectPurpose = false
		case amountToken.Code:
			text := matched.Text(cursor)
			pendingLiteral = text
			pendingAmount = parseAmount(text)
			if request.Amount == 0 {
				request.Amount = pendingAmount
				request.AmountLiteral = pendingLiteral
			}
			collectPurpose = false
		case wordToken.Code:
			word := matched.Text(cursor)
			lower := strings.ToLower(word)
			if multiplier, ok := multipliers[lower]; ok && pendingAmount > 0 {
				scaled := pendingAmount * multiplier
				if request.Amount == pendingAmount {
					request.Amount = scaled
					request.AmountLiteral = pendingLiteral + " " + lower
				}
				pendingAmount = 0
				words = append(words, lower)
				continue
			}
			pendingAmount = 0
			switch {
			case collectPurpose:
				if purposeStops[lower] {
					collectPurpose = false
					if (lower == "in" || lower == "at") && request.City == "" {
						request.City = matchCity(cursor)
					}
				} else if lower != "a" && lower != "an" && lower != "the" {
					purpose = append(purpose, lower)
				}
			case lower == "for":
				collectPurpose = true
				purpose = nil
			case (lower == "in" || lower == "at") && request.City == "":
				request.City = matchCity(cursor)
			}
			words = append(words, lower)
		default:
			// skip a byte no token claims, e.g. punctuation or a rupee sign
			cursor.Pos++
		}
	}

	if len(purpose) > 0 {
		request.Purpose = strings.Join(purpose, " ")
	} else if noun := nounBeforeLoan(words); noun != "" {
		request.Purpose = noun
	}
	return request
}

// Prefill returns the recognised fields keyed by workflow field names,
// ready to seed a session.
func (r *Request) Prefill() map[string]interface{} {
	prefill := map[string]interface{}{}
	if r.Purpose != "" {
		prefill[workflow.FieldPurpose] = r.Purpose
	}
	if r.Amount > 0 {
		prefill[workflow.FieldAmount] = r.Amount
	}
	if r.Identifier != "" {
		prefill[workflow.FieldIdentifier] = r.Identifier
	}
	if r.City != "" {
		prefill[workflow.FieldCity] = r.City
	}
	return prefill
}

// matchCity consumes the word following "in"/"at" when one is present.
func matchCity(cursor *parsly.Cursor) string {
	matched := cursor.MatchAfterOptional(whitespaceToken, wordToken)
	if matched.Code != wordToken.Code {
		return ""
	}
	word := strings.ToLower(matched.Text(cursor))
	return strings.ToUpper(word[:1]) + word[1:]
}

// nounBeforeLoan picks up compact phrasings such as "home loan".
func nounBeforeLoan(words []string) string {
	for i := 1; i < len(words); i++ {
		if words[i] != "loan" || purposeStops[words[i-1]] {
			continue
		}
		prev := words[i-1]
		if _, ok := multipliers[prev]; ok {
			continue
		}
		switch prev {
		case "a", "an", "the", "my", "this", "any":
			continue
		}
		return prev
	}
	return ""
}

// parseAmount converts a digit run with optional comma grouping.
func parseAmount(text string) float64 {
	var value float64
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == ',' {
			continue
		}
		value = value*10 + float64(c-'0')
	}
	return value
}
