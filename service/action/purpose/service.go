// Package purpose implements the loan purpose classification provider: it
// matches a free-text purpose against the policy's purpose categories and
// reports the category's permission status.
package purpose

import (
	"context"
	"reflect"
	"strings"

	"github.com/viant/loanflow/policy"
	"github.com/viant/loanflow/service/capability"
)

const name = "purpose"

// Service classifies loan purposes against policy tables.
type Service struct {
	tables *policy.Tables
}

// Input is the applicant's free-text purpose.
type Input struct {
	Purpose string `json:"purpose"`
}

// Output reports the matched category and its policy status. Matched is false
// when no category covers the text; the orchestrator treats that as a
// low-confidence outcome and escalates.
type Output struct {
	Matched    bool     `json:"matched"`
	Category   string   `json:"purpose_category,omitempty"`
	Status     string   `json:"purpose_status,omitempty"`
	Conditions []string `json:"purpose_conditions,omitempty"`
}

// New creates a purpose classification provider.
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
			Name:   "classify",
			Input:  reflect.TypeOf(&Input{}),
			Output: reflect.TypeOf(&Output{}),
		},
	}
}

// Method returns the specified method.
func (s *Service) Method(name string) (capability.Executable, error) {
	switch strings.ToLower(name) {
	case "classify":
		return s.classify, nil
	default:
		return nil, capability.NewMethodNotFoundError(name)
	}
}

func (s *Service) classify(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*Input)
	if !ok {
		return capability.NewInvalidInputError(in)
	}
	output, ok := out.(*Output)
	if !ok {
		return capability.NewInvalidOutputError(out)
	}
	rule := s.tables.MatchPurpose(input.Purpose)
	if rule == nil {
		output.Matched = false
		return nil
	}
	output.Matched = true
	output.Category = rule.Category
	output.Status = rule.Status
	output.Conditions = append([]string(nil), rule.Conditions...)
	return nil
}
