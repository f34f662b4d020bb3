// Package workflow declares the fixed loan application step table: every step
// with its prerequisites, produced fields and successor. The orchestrator
// refuses to dispatch a step whose prerequisites are not yet collected and
// never reorders this sequence.
package workflow

// Step names, in declared execution order.
const (
	StepCollectPurpose    = "COLLECT_PURPOSE"
	StepCollectAmount     = "COLLECT_AMOUNT"
	StepCollectIdentifier = "COLLECT_IDENTIFIER"
	StepDataQuery         = "DATA_QUERY"
	StepSalaryGeneration  = "SALARY_GENERATION"
	StepCollectCity       = "COLLECT_CITY"
	StepGeoPolicyCheck    = "GEO_POLICY_CHECK"
	StepRiskAssessment    = "RISK_ASSESSMENT"
	StepDecision          = "DECISION"
	StepAgreement         = "AGREEMENT_PRESENTATION"
)

// Collected field names.
const (
	FieldPurpose           = "purpose"
	FieldPurposeCategory   = "purpose_category"
	FieldPurposeStatus     = "purpose_status"
	FieldPurposeConditions = "purpose_conditions"
	FieldAmount            = "amount"
	FieldIdentifier        = "identifier"
	FieldIdentifierKind    = "identifier_kind"
	FieldApplicantType     = "applicant_type"
	FieldMonthlySalary     = "monthly_salary"
	FieldExistingEMI       = "existing_emi"
	FieldCreditScore       = "credit_score"
	FieldProfileSource     = "profile_source"
	FieldSalaryDocument    = "salary_document"
	FieldCity              = "city"
	FieldGeoStatus         = "geo_status"
	FieldGeoConditions     = "geo_conditions"
	FieldGeoMaxAmount      = "geo_max_amount"
	FieldRiskLevel         = "risk_level"
	FieldRiskScore         = "risk_score"
	FieldRiskConditions    = "risk_conditions"
	FieldDecision          = "decision"
	FieldConditions        = "decision_conditions"
	FieldAgreement         = "agreement_text"
)

// Applicant discriminator values returned by DATA_QUERY.
const (
	ApplicantExisting = "existing"
	ApplicantNew      = "new"
)

// Kind classifies how the orchestrator drives a step.
type Kind string

const (
	// KindCollect suspends for a user answer unless a prefill entry exists.
	KindCollect Kind = "collect"
	// KindCapability invokes a registered capability provider.
	KindCapability Kind = "capability"
	// KindDecision invokes the pure decision engine.
	KindDecision Kind = "decision"
)

// Branch routes the successor of a step on a collected field value.
type Branch struct {
	Field   string
	Routes  map[string]string
	Default string
}

// Step is one unit of orchestrated work with declared required and produced
// fields.
type Step struct {
	Name     string
	Kind     Kind
	Field    string // collect steps: the field the answer populates
	Prompt   string // collect steps: the question asked
	Action   string // capability steps: service.method
	Requires []string
	Optional []string // forwarded to the provider when present, never gating
	Produces []string
	Next     string  // empty Next with nil Branch terminates the workflow
	Branch   *Branch // evaluated instead of Next when present
}

// Successor resolves the next step name given collected fields.
func (s *Step) Successor(fields map[string]interface{}) string {
	if s.Branch == nil {
		return s.Next
	}
	if v, ok := fields[s.Branch.Field]; ok {
		if str, ok := v.(string); ok {
			if next, ok := s.Branch.Routes[str]; ok {
				return next
			}
		}
	}
	return s.Branch.Default
}

// steps is the declared application sequence.
var steps = []*Step{
	{
		Name:     StepCollectPurpose,
		Kind:     KindCollect,
		Field:    FieldPurpose,
		Prompt:   "What is the purpose of the loan?",
		Action:   "purpose.classify",
		Produces: []string{FieldPurpose, FieldPurposeCategory, FieldPurposeStatus},
		Next:     StepCollectAmount,
	},
	{
		Name:     StepCollectAmount,
		Kind:     KindCollect,
		Field:    FieldAmount,
		Prompt:   "How much would you like to borrow (in rupees)?",
		Produces: []string{FieldAmount},
		Next:     StepCollectIdentifier,
	},
	{
		Name:     StepCollectIdentifier,
		Kind:     KindCollect,
		Field:    FieldIdentifier,
		Prompt:   "Please share your PAN (ABCDE1234F) or Aadhaar (12 digits).",
		Produces: []string{FieldIdentifier, FieldIdentifierKind},
		Next:     StepDataQuery,
	},
	{
		Name:     StepDataQuery,
		Kind:     KindCapability,
		Action:   "dataquery.lookup",
		Requires: []string{FieldIdentifier},
		Produces: []string{FieldApplicantType},
		Branch: &Branch{
			Field: FieldApplicantType,
			Routes: map[string]string{
				ApplicantNew:      StepSalaryGeneration,
				ApplicantExisting: StepCollectCity,
			},
			Default: StepCollectCity,
		},
	},
	{
		Name:     StepSalaryGeneration,
		Kind:     KindCapability,
		Action:   "salary.generate",
		Requires: []string{FieldIdentifier, FieldAmount},
		Produces: []string{FieldMonthlySalary, FieldExistingEMI, FieldCreditScore, FieldProfileSource},
		Next:     StepCollectCity,
	},
	{
		Name:     StepCollectCity,
		Kind:     KindCollect,
		Field:    FieldCity,
		Prompt:   "Which city do you live in?",
		Produces: []string{FieldCity},
		Next:     StepGeoPolicyCheck,
	},
	{
		Name:     StepGeoPolicyCheck,
		Kind:     KindCapability,
		Action:   "geopolicy.check",
		Requires: []string{FieldCity, FieldPurposeCategory, FieldAmount},
		Produces: []string{FieldGeoStatus, FieldGeoConditions, FieldGeoMaxAmount},
		Next:     StepRiskAssessment,
	},
	{
		Name:     StepRiskAssessment,
		Kind:     KindCapability,
		Action:   "risk.assess",
		Requires: []string{FieldAmount, FieldMonthlySalary, FieldExistingEMI, FieldCreditScore},
		Produces: []string{FieldRiskLevel, FieldRiskScore, FieldRiskConditions},
		Next:     StepDecision,
	},
	{
		Name:     StepDecision,
		Kind:     KindDecision,
		Requires: []string{FieldGeoStatus, FieldRiskLevel},
		Produces: []string{FieldDecision, FieldConditions},
		Next:     StepAgreement,
	},
	{
		Name:     StepAgreement,
		Kind:     KindCapability,
		Action:   "agreement.generate",
		Requires: []string{FieldDecision, FieldPurpose, FieldAmount},
		Optional: []string{FieldRiskLevel, FieldCity, FieldIdentifier, FieldConditions},
		Produces: []string{FieldAgreement},
	},
}

var byName = func() map[string]*Step {
	index := make(map[string]*Step, len(steps))
	for _, step := range steps {
		index[step.Name] = step
	}
	return index
}()

// First returns the entry step of the sequence.
func First() *Step {
	return steps[0]
}

// Lookup returns a declared step by name, or nil.
func Lookup(name string) *Step {
	return byName[name]
}

// Steps returns the declared sequence in order.
func Steps() []*Step {
	return steps
}
