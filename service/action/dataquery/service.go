// Package dataquery implements the applicant lookup provider: given a PAN or
// Aadhaar identifier it returns the applicant's financial profile for known
// applicants, or the "new" discriminator for unknown ones.
package dataquery

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/viant/loanflow/service/capability"
)

const name = "dataquery"

// Profile holds the financial attributes used by risk assessment.
type Profile struct {
	MonthlySalary float64 `json:"monthlySalary" yaml:"monthlySalary"`
	ExistingEMI   float64 `json:"existingEmi" yaml:"existingEmi"`
	CreditScore   int     `json:"creditScore" yaml:"creditScore"`
}

// Service is the applicant data provider.
type Service struct {
	applicants map[string]*Profile
}

// Input identifies the applicant.
type Input struct {
	Identifier string `json:"identifier"`
}

// Output carries the applicant discriminator and, for existing applicants,
// the stored profile.
type Output struct {
	ApplicantType string  `json:"applicant_type"`
	MonthlySalary float64 `json:"monthly_salary,omitempty"`
	ExistingEMI   float64 `json:"existing_emi,omitempty"`
	CreditScore   int     `json:"credit_score,omitempty"`
	ProfileSource string  `json:"profile_source,omitempty"`
}

// New creates a provider backed by the supplied applicant records; nil keeps
// the provider empty so every lookup resolves to a new applicant.
func New(applicants map[string]*Profile) *Service {
	if applicants == nil {
		applicants = map[string]*Profile{}
	}
	return &Service{applicants: applicants}
}

// NewFromURL loads applicant records from a YAML document keyed by
// identifier.
func NewFromURL(ctx context.Context, URL string) (*Service, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load applicant records from %s: %w", URL, err)
	}
	applicants := map[string]*Profile{}
	if err := yaml.Unmarshal(data, &applicants); err != nil {
		return nil, fmt.Errorf("failed to parse applicant records %s: %w", URL, err)
	}
	return New(applicants), nil
}

// Name returns the service name.
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods.
func (s *Service) Methods() capability.Signatures {
	return []capability.Signature{
		{
			Name:   "lookup",
			Input:  reflect.TypeOf(&Input{}),
			Output: reflect.TypeOf(&Output{}),
		},
	}
}

// Method returns the specified method.
func (s *Service) Method(name string) (capability.Executable, error) {
	switch strings.ToLower(name) {
	case "lookup":
		return s.lookup, nil
	default:
		return nil, capability.NewMethodNotFoundError(name)
	}
}

func (s *Service) lookup(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*Input)
	if !ok {
		return capability.NewInvalidInputError(in)
	}
	output, ok := out.(*Output)
	if !ok {
		return capability.NewInvalidOutputError(out)
	}
	identifier := strings.ToUpper(strings.TrimSpace(input.Identifier))
	if identifier == "" {
		return capability.NewStructuralFailure("identifier is required")
	}
	profile, ok := s.applicants[identifier]
	if !ok {
		output.ApplicantType = "new"
		return nil
	}
	output.ApplicantType = "existing"
	output.MonthlySalary = profile.MonthlySalary
	output.ExistingEMI = profile.ExistingEMI
	output.CreditScore = profile.CreditScore
	output.ProfileSource = "records"
	return nil
}

// SampleApplicants returns the built-in applicant records used when no
// external dataset is configured.
func SampleApplicants() map[string]*Profile {
	return map[string]*Profile{
		"ABCDE1234F":   {MonthlySalary: 85000, ExistingEMI: 9000, CreditScore: 760},
		"FGHIJ5678K":   {MonthlySalary: 42000, ExistingEMI: 15000, CreditScore: 640},
		"KLMNO9012P":   {MonthlySalary: 28000, ExistingEMI: 14000, CreditScore: 560},
		"123456789012": {MonthlySalary: 60000, ExistingEMI: 5000, CreditScore: 710},
	}
}
