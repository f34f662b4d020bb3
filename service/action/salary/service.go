// Package salary implements the salary sheet provider for new applicants. It
// can extract a financial profile from a supplied salary document, and it can
// generate a deterministic synthetic profile when no document is available,
// which is the declared fallback branch of the workflow.
package salary

import (
	"context"
	"fmt"
	"hash/fnv"
	"reflect"
	"strconv"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/loanflow/service/capability"
)

const name = "salary"

// Profile floors applied to generated data.
const (
	minMonthlySalary = 15000.0
	minCreditScore   = 300
	maxCreditScore   = 850
)

// Service generates or extracts salary sheets.
type Service struct {
	fs afs.Service
}

// GenerateInput seeds synthetic profile generation.
type GenerateInput struct {
	Identifier string  `json:"identifier"`
	Amount     float64 `json:"amount"`
}

// ExtractInput locates the salary document to parse.
type ExtractInput struct {
	URL        string `json:"salary_document"`
	Identifier string `json:"identifier"`
}

// Output is the financial profile produced by either method.
type Output struct {
	MonthlySalary float64 `json:"monthly_salary"`
	ExistingEMI   float64 `json:"existing_emi"`
	CreditScore   int     `json:"credit_score"`
	ProfileSource string  `json:"profile_source"`
}

// New creates a salary sheet provider.
func New() *Service {
	return &Service{fs: afs.New()}
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
			Output: reflect.TypeOf(&Output{}),
		},
		{
			Name:   "extract",
			Input:  reflect.TypeOf(&ExtractInput{}),
			Output: reflect.TypeOf(&Output{}),
		},
	}
}

// Method returns the specified method.
func (s *Service) Method(name string) (capability.Executable, error) {
	switch strings.ToLower(name) {
	case "generate":
		return s.generate, nil
	case "extract":
		return s.extract, nil
	default:
		return nil, capability.NewMethodNotFoundError(name)
	}
}

// generate produces a deterministic synthetic profile seeded from the
// identifier, so repeated runs for the same applicant agree.
func (s *Service) generate(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*GenerateInput)
	if !ok {
		return capability.NewInvalidInputError(in)
	}
	output, ok := out.(*Output)
	if !ok {
		return capability.NewInvalidOutputError(out)
	}
	if input.Identifier == "" {
		return capability.NewStructuralFailure("identifier is required")
	}

	seed := hashOf(input.Identifier)
	salary := minMonthlySalary + float64(seed%66)*1000 // 15,000 .. 80,000
	emi := salary * float64(seed%26) / 100             // 0 .. 25% of salary
	credit := 560 + int(seed%241)                      // 560 .. 800

	output.MonthlySalary = salary
	output.ExistingEMI = emi
	output.CreditScore = credit
	output.ProfileSource = "generated"
	return nil
}

// extract parses a plain-text salary sheet with "key: value" lines for
// monthly_salary, existing_emi and credit_score.
func (s *Service) extract(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*ExtractInput)
	if !ok {
		return capability.NewInvalidInputError(in)
	}
	output, ok := out.(*Output)
	if !ok {
		return capability.NewInvalidOutputError(out)
	}
	if input.URL == "" {
		return capability.NewStructuralFailure("salary document location is required")
	}
	data, err := s.fs.DownloadWithURL(ctx, input.URL)
	if err != nil {
		return capability.NewStructuralFailure("failed to read salary document %s: %v", input.URL, err)
	}

	values := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		key = strings.ReplaceAll(key, " ", "_")
		values[key] = strings.TrimSpace(parts[1])
	}

	salary, err := parseAmount(values["monthly_salary"])
	if err != nil {
		return capability.NewStructuralFailure("salary document %s: monthly salary: %v", input.URL, err)
	}
	emi, _ := parseAmount(values["existing_emi"])
	credit, err := strconv.Atoi(strings.TrimSpace(values["credit_score"]))
	if err != nil {
		return capability.NewStructuralFailure("salary document %s: credit score: %v", input.URL, err)
	}
	if salary < minMonthlySalary {
		return capability.NewStructuralFailure("extracted monthly salary %.0f below the %.0f floor", salary, minMonthlySalary)
	}
	if credit < minCreditScore || credit > maxCreditScore {
		return capability.NewStructuralFailure("extracted credit score %d outside the %d-%d range", credit, minCreditScore, maxCreditScore)
	}

	output.MonthlySalary = salary
	output.ExistingEMI = emi
	output.CreditScore = credit
	output.ProfileSource = "document"
	return nil
}

func parseAmount(value string) (float64, error) {
	cleaned := strings.NewReplacer(",", "", "₹", "", " ", "").Replace(value)
	if cleaned == "" {
		return 0, fmt.Errorf("missing value")
	}
	return strconv.ParseFloat(cleaned, 64)
}

func hashOf(value string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToUpper(strings.TrimSpace(value))))
	return h.Sum64()
}
