// Package geopolicy implements the geographic lending policy provider. It
// combines the purpose category status with the per-city lending rules into a
// single permitted / conditionally permitted / prohibited outcome.
package geopolicy

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/viant/loanflow/policy"
	"github.com/viant/loanflow/service/capability"
)

const name = "geopolicy"

// Service validates applications against geographic lending policy.
type Service struct {
	tables *policy.Tables
}

// Input carries the city, the classified purpose category and the requested
// amount.
type Input struct {
	City            string  `json:"city"`
	PurposeCategory string  `json:"purpose_category"`
	Amount          float64 `json:"amount"`
}

// Output is the geo-policy verdict consumed by the decision engine.
type Output struct {
	Status     string   `json:"geo_status"`
	Conditions []string `json:"geo_conditions"`
	MaxAmount  float64  `json:"geo_max_amount"`
}

// New creates a geo-policy provider.
func New(tables *policy.Tables) *Service {
	return &Service{tables: tables}
}

// Name returns the service name.
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods.
func (s *Service) Methods() capability.Signatures {
	return []capability.Signature{
		{
			Name:   "check",
			Input:  reflect.TypeOf(&Input{}),
			Output: reflect.TypeOf(&Output{}),
		},
	}
}

// Method returns the specified method.
func (s *Service) Method(name string) (capability.Executable, error) {
	switch strings.ToLower(name) {
	case "check":
		return s.check, nil
	default:
		return nil, capability.NewMethodNotFoundError(name)
	}
}

func (s *Service) check(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*Input)
	if !ok {
		return capability.NewInvalidInputError(in)
	}
	output, ok := out.(*Output)
	if !ok {
		return capability.NewInvalidOutputError(out)
	}
	if input.City == "" || input.PurposeCategory == "" || input.Amount <= 0 {
		return capability.NewStructuralFailure("city, purpose_category and amount are all required")
	}
	output.Conditions = []string{}

	purposeRule := s.purposeRule(input.PurposeCategory)
	if purposeRule == nil {
		return capability.NewStructuralFailure("unknown purpose category %q", input.PurposeCategory)
	}
	if purposeRule.Status == policy.Prohibited {
		output.Status = policy.Prohibited
		output.Conditions = append(output.Conditions, fmt.Sprintf("purpose %q is prohibited by lending policy", purposeRule.Category))
		return nil
	}

	cityRule := s.tables.City(input.City)
	if cityRule == nil {
		output.Status = policy.Prohibited
		output.Conditions = append(output.Conditions, fmt.Sprintf("lending is not offered in %v", input.City))
		return nil
	}
	output.MaxAmount = cityRule.MaxAmount
	if input.Amount > cityRule.MaxAmount {
		output.Status = policy.Prohibited
		output.Conditions = append(output.Conditions,
			fmt.Sprintf("requested amount exceeds the %v regional limit of %.0f", cityRule.City, cityRule.MaxAmount))
		return nil
	}

	output.Conditions = append(output.Conditions, purposeRule.Conditions...)
	output.Conditions = append(output.Conditions, cityRule.Conditions...)
	if purposeRule.Status == policy.ConditionallyPermitted || len(cityRule.Conditions) > 0 {
		output.Status = policy.ConditionallyPermitted
		return nil
	}
	output.Status = policy.Permitted
	return nil
}

func (s *Service) purposeRule(category string) *policy.PurposeRule {
	normalized := strings.ToLower(strings.TrimSpace(category))
	for _, rule := range s.tables.Purposes {
		if strings.ToLower(rule.Category) == normalized {
			return rule
		}
	}
	return nil
}
