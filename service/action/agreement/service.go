// Package agreement implements the agreement presentation provider: it
// renders the final agreement (or rejection notice) for a decided
// application, and produces a unified diff when an operator amends the text.
package agreement

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/viant/loanflow/service/capability"
)

const name = "agreement"

// Annual interest rates by risk level.
var rates = map[string]float64{
	"low":        0.105,
	"borderline": 0.125,
	"high":       0.145,
}

const tenureMonths = 36

// Service renders loan agreements.
type Service struct{}

// GenerateInput carries the decided application attributes.
type GenerateInput struct {
	Decision   string   `json:"decision"`
	Purpose    string   `json:"purpose"`
	Amount     float64  `json:"amount"`
	RiskLevel  string   `json:"risk_level"`
	City       string   `json:"city"`
	Identifier string   `json:"identifier"`
	Conditions []string `json:"decision_conditions"`
}

// GenerateOutput is the rendered agreement text.
type GenerateOutput struct {
	Text string `json:"agreement_text"`
}

// AmendInput carries the original and operator-amended agreement text.
type AmendInput struct {
	Original string `json:"original"`
	Amended  string `json:"amended"`
}

// AmendOutput is the amended text plus a unified diff for the audit trail.
type AmendOutput struct {
	Text string `json:"agreement_text"`
	Diff string `json:"agreement_diff"`
}

// New creates an agreement provider.
func New() *Service {
	return &Service{}
}

// Name returns the service name.
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods.
func (s *Service) Methods() capability.Signatures {
	return []capability.Signature{
		{
			Name:   "generate",
			Input:  reflect.TypeOf(&GenerateInput{}),
			Output: reflect.TypeOf(&GenerateOutput{}),
		},
		{
			Name:   "amend",
			Input:  reflect.TypeOf(&AmendInput{}),
			Output: reflect.TypeOf(&AmendOutput{}),
		},
	}
}

// Method returns the specified method.
func (s *Service) Method(name string) (capability.Executable, error) {
	switch strings.ToLower(name) {
	case "generate":
		return s.generate, nil
	case "amend":
		return s.amend, nil
	default:
		return nil, capability.NewMethodNotFoundError(name)
	}
}

func (s *Service) generate(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*GenerateInput)
	if !ok {
		return capability.NewInvalidInputError(in)
	}
	output, ok := out.(*GenerateOutput)
	if !ok {
		return capability.NewInvalidOutputError(out)
	}
	switch input.Decision {
	case "APPROVED", "CONDITIONAL":
		output.Text = s.renderOffer(input)
	case "REJECTED":
		output.Text = s.renderRejection(input)
	default:
		return capability.NewStructuralFailure("unknown decision %q", input.Decision)
	}
	return nil
}

func (s *Service) renderOffer(input *GenerateInput) string {
	rate, ok := rates[input.RiskLevel]
	if !ok {
		rate = rates["borderline"]
	}
	emi := monthlyInstalment(input.Amount, rate, tenureMonths)

	var b strings.Builder
	b.WriteString("LOAN AGREEMENT\n")
	b.WriteString("==============\n\n")
	fmt.Fprintf(&b, "Applicant: %v\n", input.Identifier)
	fmt.Fprintf(&b, "Purpose: %v\n", input.Purpose)
	fmt.Fprintf(&b, "Sanctioned amount: ₹%v\n", FormatINR(input.Amount))
	fmt.Fprintf(&b, "Interest rate: %.1f%% per annum\n", rate*100)
	fmt.Fprintf(&b, "Tenure: %d months\n", tenureMonths)
	fmt.Fprintf(&b, "Monthly instalment: ₹%v\n", FormatINR(emi))
	if input.Decision == "CONDITIONAL" && len(input.Conditions) > 0 {
		b.WriteString("\nThis offer is subject to the following conditions:\n")
		for _, condition := range input.Conditions {
			fmt.Fprintf(&b, "  - %v\n", condition)
		}
	}
	b.WriteString("\nThe offer is valid for 30 days from the date of issue.\n")
	return b.String()
}

func (s *Service) renderRejection(input *GenerateInput) string {
	var b strings.Builder
	b.WriteString("LOAN APPLICATION OUTCOME\n")
	b.WriteString("========================\n\n")
	fmt.Fprintf(&b, "Applicant: %v\n", input.Identifier)
	fmt.Fprintf(&b, "Purpose: %v\n", input.Purpose)
	fmt.Fprintf(&b, "Requested amount: ₹%v\n", FormatINR(input.Amount))
	b.WriteString("\nWe are unable to approve this application.\n")
	if len(input.Conditions) > 0 {
		b.WriteString("Reasons:\n")
		for _, condition := range input.Conditions {
			fmt.Fprintf(&b, "  - %v\n", condition)
		}
	}
	return b.String()
}

func (s *Service) amend(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*AmendInput)
	if !ok {
		return capability.NewInvalidInputError(in)
	}
	output, ok := out.(*AmendOutput)
	if !ok {
		return capability.NewInvalidOutputError(out)
	}
	if input.Amended == "" {
		return capability.NewStructuralFailure("amended text is required")
	}
	output.Text = input.Amended
	if input.Original == input.Amended {
		return nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(input.Original),
		B:        difflib.SplitLines(input.Amended),
		FromFile: "agreement (generated)",
		ToFile:   "agreement (amended)",
		Context:  3,
	})
	if err != nil {
		return capability.NewStructuralFailure("failed to diff amendment: %v", err)
	}
	output.Diff = diff
	return nil
}

// monthlyInstalment computes the EMI for a reducing-balance loan.
func monthlyInstalment(amount, annualRate float64, months int) float64 {
	monthly := annualRate / 12
	if monthly == 0 {
		return amount / float64(months)
	}
	factor := pow(1+monthly, months)
	return amount * monthly * factor / (factor - 1)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// FormatINR renders an amount with Indian digit grouping (e.g. 12,34,567).
func FormatINR(amount float64) string {
	value := fmt.Sprintf("%.0f", amount)
	negative := strings.HasPrefix(value, "-")
	if negative {
		value = value[1:]
	}
	if len(value) <= 3 {
		if negative {
			return "-" + value
		}
		return value
	}
	head := value[:len(value)-3]
	tail := value[len(value)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	result := strings.Join(groups, ",") + "," + tail
	if negative {
		return "-" + result
	}
	return result
}
