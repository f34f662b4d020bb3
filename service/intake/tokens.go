package intake

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	panCode
	aadhaarCode
	amountCode
	wordCode
)

// Token definitions
var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	panToken        = parsly.NewToken(panCode, "PAN", newPANMatcher())
	aadhaarToken    = parsly.NewToken(aadhaarCode, "Aadhaar", newAadhaarMatcher())
	amountToken     = parsly.NewToken(amountCode, "Amount", newAmountMatcher())
	wordToken       = parsly.NewToken(wordCode, "Word", newWordMatcher())
)

func newPANMatcher() parsly.Matcher {
	return &panMatcher{}
}

func newAadhaarMatcher() parsly.Matcher {
	return &aadhaarMatcher{}
}

func newAmountMatcher() parsly.Matcher {
	return &amountMatcher{}
}

func newWordMatcher() parsly.Matcher {
	return &wordMatcher{}
}

// panMatcher matches a PAN: five letters, four digits, one letter, not
// embedded in a longer alphanumeric run.
type panMatcher struct{}

func (m *panMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos+10 > size {
		return 0
	}
	for i := 0; i < 5; i++ {
		if !isUpper(input[pos+i]) {
			return 0
		}
	}
	for i := 5; i < 9; i++ {
		if !isDigit(input[pos+i]) {
			return 0
		}
	}
	if !isUpper(input[pos+9]) {
		return 0
	}
	if pos+10 < size && isAlnum(input[pos+10]) {
		return 0
	}
	return 10
}

// aadhaarMatcher matches exactly twelve digits.
type aadhaarMatcher struct{}

func (m *aadhaarMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos+12 > size {
		return 0
	}
	if pos > 0 && isAlnum(input[pos-1]) {
		return 0
	}
	for i := 0; i < 12; i++ {
		if !isDigit(input[pos+i]) {
			return 0
		}
	}
	if pos+12 < size && isDigit(input[pos+12]) {
		return 0
	}
	return 12
}

// amountMatcher matches a digit run with optional comma grouping.
type amountMatcher struct{}

func (m *amountMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size || !isDigit(input[pos]) {
		return 0
	}
	if pos > 0 && isAlnum(input[pos-1]) {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		if isDigit(input[i]) {
			matched++
			continue
		}
		if input[i] == ',' && i+1 < size && isDigit(input[i+1]) {
			matched++
			continue
		}
		break
	}
	return matched
}

// wordMatcher matches a run of letters.
type wordMatcher struct{}

func (m *wordMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size || !isLetter(input[pos]) {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		if !isLetter(input[i]) {
			break
		}
		matched++
	}
	return matched
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlnum(c byte) bool {
	return isLetter(c) || isDigit(c)
}
