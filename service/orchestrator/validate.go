package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/viant/loanflow/service/action/agreement"
	"github.com/viant/loanflow/workflow"
	"github.com/viant/toolbox"
)

const (
	minLoanAmount = 1_000
	maxLoanAmount = 10_000_000
)

var (
	panPattern     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	aadhaarPattern = regexp.MustCompile(`^[0-9]{12}$`)
)

// coerceAnswer validates a raw answer (user text or a prefill value) for a
// collection step and returns the field values it yields. The returned error
// carries user-facing guidance for the re-prompt.
func coerceAnswer(step *workflow.Step, answer interface{}) (map[string]interface{}, error) {
	switch step.Field {
	case workflow.FieldPurpose:
		purpose := strings.TrimSpace(toolbox.AsString(answer))
		if len(purpose) < 3 {
			return nil, fmt.Errorf("please describe the loan purpose in a few words")
		}
		return map[string]interface{}{workflow.FieldPurpose: purpose}, nil

	case workflow.FieldAmount:
		amount := parseAmount(answer)
		if amount < minLoanAmount || amount > maxLoanAmount {
			return nil, fmt.Errorf("the amount must be between %v and %v rupees",
				agreement.FormatINR(minLoanAmount), agreement.FormatINR(maxLoanAmount))
		}
		return map[string]interface{}{workflow.FieldAmount: amount}, nil

	case workflow.FieldIdentifier:
		identifier := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(toolbox.AsString(answer)), " ", ""))
		switch {
		case panPattern.MatchString(identifier):
			return map[string]interface{}{
				workflow.FieldIdentifier:     identifier,
				workflow.FieldIdentifierKind: "pan",
			}, nil
		case aadhaarPattern.MatchString(identifier):
			return map[string]interface{}{
				workflow.FieldIdentifier:     identifier,
				workflow.FieldIdentifierKind: "aadhaar",
			}, nil
		}
		return nil, fmt.Errorf("that does not look like a valid PAN (ABCDE1234F) or Aadhaar (12 digits)")

	case workflow.FieldCity:
		city := strings.TrimSpace(toolbox.AsString(answer))
		if len(city) < 2 {
			return nil, fmt.Errorf("please name the city you live in")
		}
		return map[string]interface{}{workflow.FieldCity: city}, nil
	}
	return nil, fmt.Errorf("no validation rule for field %v", step.Field)
}

// parseAmount accepts numeric values as-is and strips currency decoration
// (commas, rupee prefixes) from strings before conversion.
func parseAmount(value interface{}) float64 {
	if text, ok := value.(string); ok {
		text = strings.TrimSpace(text)
		text = strings.TrimPrefix(text, "₹")
		for _, prefix := range []string{"rs.", "rs", "inr"} {
			if strings.HasPrefix(strings.ToLower(text), prefix) {
				text = strings.TrimSpace(text[len(prefix):])
				break
			}
		}
		text = strings.ReplaceAll(text, ",", "")
		value = strings.TrimSpace(text)
	}
	return toolbox.AsFloat(value)
}
