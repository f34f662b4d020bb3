// Package risk implements the risk assessment provider. It scores the
// applicant's debt-to-income headroom and credit standing for the requested
// amount, assuming a straight-line 36 month repayment for the new exposure.
package risk

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/viant/loanflow/service/capability"
)

const name = "risk"

// Risk levels, ordered by severity.
const (
	LevelLow        = "low"
	LevelBorderline = "borderline"
	LevelHigh       = "high"
)

// Thresholds for projected debt-to-income ratio.
const (
	dtiBorderline = 0.30
	dtiReject     = 0.50
)

// Service assesses repayment risk.
type Service struct{}

// Input carries the requested amount and the applicant's financial profile.
type Input struct {
	Amount        float64 `json:"amount"`
	MonthlySalary float64 `json:"monthly_salary"`
	ExistingEMI   float64 `json:"existing_emi"`
	CreditScore   int     `json:"credit_score"`
}

// Output is the risk verdict consumed by the decision engine.
type Output struct {
	Level        string   `json:"risk_level"`
	Score        float64  `json:"risk_score"`
	DTICurrent   float64  `json:"dti_current"`
	DTIProjected float64  `json:"dti_projected"`
	Conditions   []string `json:"risk_conditions"`
}

// New creates a risk assessment provider.
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
			Name:   "assess",
			Input:  reflect.TypeOf(&Input{}),
			Output: reflect.TypeOf(&Output{}),
		},
	}
}

// Method returns the specified method.
func (s *Service) Method(name string) (capability.Executable, error) {
	switch strings.ToLower(name) {
	case "assess":
		return s.assess, nil
	default:
		return nil, capability.NewMethodNotFoundError(name)
	}
}

func (s *Service) assess(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*Input)
	if !ok {
		return capability.NewInvalidInputError(in)
	}
	output, ok := out.(*Output)
	if !ok {
		return capability.NewInvalidOutputError(out)
	}
	if input.Amount <= 0 {
		return capability.NewStructuralFailure("amount must be positive")
	}
	if input.MonthlySalary <= 0 {
		return capability.NewStructuralFailure("monthly salary must be positive")
	}
	if input.CreditScore < 300 || input.CreditScore > 850 {
		return capability.NewStructuralFailure("credit score %d outside the 300-850 range", input.CreditScore)
	}

	newEMI := input.Amount / 36
	output.DTICurrent = round4(input.ExistingEMI / input.MonthlySalary)
	output.DTIProjected = round4((input.ExistingEMI + newEMI) / input.MonthlySalary)
	output.Conditions = []string{}

	switch {
	case output.DTIProjected > dtiReject || input.CreditScore < 580:
		output.Level = LevelHigh
		if output.DTIProjected > dtiReject {
			output.Conditions = append(output.Conditions,
				fmt.Sprintf("projected debt-to-income %.0f%% exceeds the %.0f%% limit", output.DTIProjected*100, dtiReject*100))
		}
		if input.CreditScore < 580 {
			output.Conditions = append(output.Conditions,
				fmt.Sprintf("credit score %d below the minimum of 580", input.CreditScore))
		}
	case output.DTIProjected > dtiBorderline || input.CreditScore < 650:
		output.Level = LevelBorderline
		if output.DTIProjected > dtiBorderline {
			output.Conditions = append(output.Conditions,
				fmt.Sprintf("projected debt-to-income %.0f%% exceeds the recommended %.0f%%", output.DTIProjected*100, dtiBorderline*100))
		}
		if input.CreditScore < 650 {
			output.Conditions = append(output.Conditions, "co-applicant or collateral recommended for credit score below 650")
		}
	default:
		output.Level = LevelLow
	}
	output.Score = score(output.DTIProjected, input.CreditScore)
	return nil
}

// score blends projected DTI and credit standing into a 0..1 risk figure
// (higher is riskier).
func score(dtiProjected float64, creditScore int) float64 {
	dtiComponent := dtiProjected
	if dtiComponent > 1 {
		dtiComponent = 1
	}
	creditComponent := float64(850-creditScore) / 550
	return round4(0.6*dtiComponent + 0.4*creditComponent)
}

func round4(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}
