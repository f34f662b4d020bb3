package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/loanflow/internal/keylock"
	"github.com/viant/loanflow/model/session"
	"github.com/viant/loanflow/policy"
	"github.com/viant/loanflow/service/action/agreement"
	"github.com/viant/loanflow/service/action/dataquery"
	"github.com/viant/loanflow/service/action/geopolicy"
	"github.com/viant/loanflow/service/action/purpose"
	"github.com/viant/loanflow/service/action/risk"
	"github.com/viant/loanflow/service/action/salary"
	"github.com/viant/loanflow/service/capability"
	"github.com/viant/loanflow/service/dao"
	escmem "github.com/viant/loanflow/service/dao/escalation/memory"
	sessfs "github.com/viant/loanflow/service/dao/session/fs"
	sessmem "github.com/viant/loanflow/service/dao/session/memory"
	"github.com/viant/loanflow/service/decision"
	"github.com/viant/loanflow/service/escalation"
	qmem "github.com/viant/loanflow/service/messaging/memory"
	"github.com/viant/loanflow/workflow"
)

func newRegistry(providers ...capability.Service) *capability.Registry {
	tables := policy.Default()
	defaults := map[string]capability.Service{
		"dataquery": dataquery.New(dataquery.SampleApplicants()),
		"purpose":   purpose.New(tables),
		"geopolicy": geopolicy.New(tables),
		"risk":      risk.New(),
		"salary":    salary.New(),
		"agreement": agreement.New(),
	}
	for _, provider := range providers {
		defaults[provider.Name()] = provider
	}
	registry := capability.NewRegistry()
	for _, provider := range defaults {
		registry.Register(provider)
	}
	return registry
}

func newTestService(sessions dao.Service[string, session.Session], providers ...capability.Service) (*Service, *escalation.Manager) {
	locks := keylock.New()
	manager := escalation.New(sessions, escmem.New(),
		qmem.NewQueue[escalation.Event](qmem.DefaultConfig()), locks)
	invoker := capability.NewInvoker(newRegistry(providers...), time.Second)
	config := Config{MaxRetries: 2, RetryDelay: time.Millisecond, MaxAnswerAttempts: 3}
	return New(config, sessions, manager, invoker, locks), manager
}

// flakyLookup stands in for the applicant profile store to exercise retry
// classification.
type flakyLookup struct {
	failures  int
	transient bool
	calls     int
}

func (f *flakyLookup) Name() string { return "dataquery" }

func (f *flakyLookup) Methods() capability.Signatures {
	return capability.Signatures{
		{Name: "lookup", Input: reflect.TypeOf(&dataquery.Input{}), Output: reflect.TypeOf(&dataquery.Output{})},
	}
}

func (f *flakyLookup) Method(name string) (capability.Executable, error) {
	return func(ctx context.Context, in, out interface{}) error {
		f.calls++
		if f.calls <= f.failures {
			if f.transient {
				return capability.NewTransientFailure("profile store unavailable")
			}
			return capability.NewStructuralFailure("profile store corrupt")
		}
		output := out.(*dataquery.Output)
		output.ApplicantType = workflow.ApplicantExisting
		output.MonthlySalary = 60000
		output.ExistingEMI = 4000
		output.CreditScore = 710
		return nil
	}, nil
}

func TestService_Start_PrefilledHappyPath(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(sessmem.New())

	view, err := svc.Start(ctx, "I need 5,00,000 for home renovation in Mumbai, my PAN is ABCDE1234F")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusCompleted, view.Status)
	assert.EqualValues(t, decision.Approved, view.Fields[workflow.FieldDecision])
	assert.EqualValues(t, "home purchase", view.Fields[workflow.FieldPurposeCategory])
	assert.EqualValues(t, workflow.ApplicantExisting, view.Fields[workflow.FieldApplicantType])
	assert.EqualValues(t, risk.LevelLow, view.Fields[workflow.FieldRiskLevel])
	assert.Contains(t, view.Fields[workflow.FieldAgreement], "5,00,000")

	history, err := svc.History(ctx, view.ID)
	assert.Nil(t, err)
	assert.EqualValues(t, 10, len(history))
	sources := map[string]int{}
	for _, record := range history {
		sources[record.Source]++
	}
	assert.EqualValues(t, 4, sources["prefill"])
	assert.EqualValues(t, 1, sources["engine"])
	assert.EqualValues(t, 5, sources["provider"])
}

func TestService_InteractiveFlow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(sessmem.New())

	view, err := svc.Start(ctx, "hello, I would like a loan")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusAwaitingUser, view.Status)
	assert.EqualValues(t, workflow.StepCollectPurpose, view.StepCursor)
	assert.EqualValues(t, "What is the purpose of the loan?", view.PendingPrompt)

	view, err = svc.Advance(ctx, view.ID, "wedding expenses")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusAwaitingUser, view.Status)
	assert.EqualValues(t, workflow.StepCollectAmount, view.StepCursor)

	view, err = svc.Advance(ctx, view.ID, "Rs 50,000")
	assert.Nil(t, err)
	assert.EqualValues(t, workflow.StepCollectIdentifier, view.StepCursor)

	view, err = svc.Advance(ctx, view.ID, "abcde1234f")
	assert.Nil(t, err)
	assert.EqualValues(t, workflow.StepCollectCity, view.StepCursor)
	assert.EqualValues(t, workflow.ApplicantExisting, view.Fields[workflow.FieldApplicantType])

	view, err = svc.Advance(ctx, view.ID, "Mumbai")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusCompleted, view.Status)
	assert.EqualValues(t, decision.Approved, view.Fields[workflow.FieldDecision])
	assert.EqualValues(t, float64(50000), view.Fields[workflow.FieldAmount])
	assert.EqualValues(t, "pan", view.Fields[workflow.FieldIdentifierKind])
}

func TestService_InvalidAnswersEscalate(t *testing.T) {
	ctx := context.Background()
	svc, manager := newTestService(sessmem.New())

	view, err := svc.Start(ctx, "loan for medical treatment")
	assert.Nil(t, err)
	assert.EqualValues(t, workflow.StepCollectAmount, view.StepCursor)

	view, err = svc.Advance(ctx, view.ID, "a gazillion")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusAwaitingUser, view.Status)
	assert.Contains(t, view.PendingPrompt, "amount must be between")

	view, err = svc.Advance(ctx, view.ID, "loads")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusAwaitingUser, view.Status)

	view, err = svc.Advance(ctx, view.ID, "500")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusAwaitingOperator, view.Status)
	assert.NotEmpty(t, view.EscalationID)

	pending, err := manager.ListPending(ctx)
	assert.Nil(t, err)
	if assert.EqualValues(t, 1, len(pending)) {
		assert.EqualValues(t, workflow.StepCollectAmount, pending[0].Step)
		assert.Contains(t, pending[0].Reason, "3 attempts")
	}

	// further answers are refused while an operator owns the session
	_, err = svc.Advance(ctx, view.ID, "50000")
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestService_ProhibitedPurposeRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(sessmem.New())

	view, err := svc.Start(ctx, "need 50,000 for crypto trading in Delhi, my PAN is ABCDE1234F")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusCompleted, view.Status)
	assert.EqualValues(t, decision.Rejected, view.Fields[workflow.FieldDecision])
	assert.EqualValues(t, policy.Prohibited, view.Fields[workflow.FieldGeoStatus])
	assert.Contains(t, view.Fields[workflow.FieldAgreement], "unable to approve")
}

func TestService_UnknownPurposeEscalates(t *testing.T) {
	ctx := context.Background()
	svc, manager := newTestService(sessmem.New())

	view, err := svc.Start(ctx, "")
	assert.Nil(t, err)
	view, err = svc.Advance(ctx, view.ID, "zxqv flurble")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusAwaitingOperator, view.Status)

	pending, err := manager.ListPending(ctx)
	assert.Nil(t, err)
	if assert.EqualValues(t, 1, len(pending)) {
		assert.Contains(t, pending[0].Reason, "unrecognised loan purpose")
	}
}

func TestService_TransientFailureRetries(t *testing.T) {
	ctx := context.Background()
	lookup := &flakyLookup{failures: 2, transient: true}
	svc, _ := newTestService(sessmem.New(), lookup)

	view, err := svc.Start(ctx, "I need 1,00,000 for a car in Pune, my PAN is ABCDE1234F")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusCompleted, view.Status)
	assert.EqualValues(t, 3, lookup.calls)
}

func TestService_TransientFailureExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	lookup := &flakyLookup{failures: 10, transient: true}
	svc, manager := newTestService(sessmem.New(), lookup)

	view, err := svc.Start(ctx, "I need 1,00,000 for a car in Pune, my PAN is ABCDE1234F")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusAwaitingOperator, view.Status)
	assert.EqualValues(t, 3, lookup.calls)

	pending, err := manager.ListPending(ctx)
	assert.Nil(t, err)
	if assert.EqualValues(t, 1, len(pending)) {
		assert.EqualValues(t, workflow.StepDataQuery, pending[0].Step)
	}
}

func TestService_StructuralFailureEscalatesImmediately(t *testing.T) {
	ctx := context.Background()
	lookup := &flakyLookup{failures: 10, transient: false}
	svc, _ := newTestService(sessmem.New(), lookup)

	view, err := svc.Start(ctx, "I need 1,00,000 for a car in Pune, my PAN is ABCDE1234F")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusAwaitingOperator, view.Status)
	assert.EqualValues(t, 1, lookup.calls)
}

func TestService_NewApplicantSyntheticProfile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(sessmem.New())

	view, err := svc.Start(ctx, "I need 50,000 for a bike in Chennai, my PAN is ZZZZZ1111Z")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusCompleted, view.Status)
	assert.EqualValues(t, workflow.ApplicantNew, view.Fields[workflow.FieldApplicantType])
	assert.EqualValues(t, "generated", view.Fields[workflow.FieldProfileSource])
	assert.NotEmpty(t, view.Fields[workflow.FieldMonthlySalary])
	assert.NotEmpty(t, view.Fields[workflow.FieldDecision])
}

func TestService_SalaryDocumentExtraction(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(sessmem.New())

	document := filepath.Join(t.TempDir(), "salary.txt")
	assert.Nil(t, os.WriteFile(document, []byte("monthly_salary: 55,000\nexisting_emi: 5,000\ncredit_score: 720\n"), 0o644))

	view, err := svc.Start(ctx, "I need 2,00,000 for medical treatment in Pune, my PAN is ZZZZZ1111Z",
		map[string]interface{}{workflow.FieldSalaryDocument: document})
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusCompleted, view.Status)
	assert.EqualValues(t, "document", view.Fields[workflow.FieldProfileSource])
	assert.EqualValues(t, float64(55000), view.Fields[workflow.FieldMonthlySalary])
	assert.EqualValues(t, decision.Approved, view.Fields[workflow.FieldDecision])
}

func TestService_SalaryDocumentFallsBackToGenerated(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(sessmem.New())

	view, err := svc.Start(ctx, "I need 50,000 for a bike in Chennai, my PAN is ZZZZZ1111Z",
		map[string]interface{}{workflow.FieldSalaryDocument: filepath.Join(t.TempDir(), "missing.txt")})
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusCompleted, view.Status)
	assert.EqualValues(t, "generated", view.Fields[workflow.FieldProfileSource])
}

func TestService_ResumeSemantics(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(sessmem.New())

	_, err := svc.Resume(ctx, "missing")
	assert.True(t, errors.Is(err, dao.ErrNotFound))

	view, err := svc.Start(ctx, "")
	assert.Nil(t, err)
	before, err := svc.History(ctx, view.ID)
	assert.Nil(t, err)

	// resuming a suspended session is an idempotent no-op
	resumed, err := svc.Resume(ctx, view.ID)
	assert.Nil(t, err)
	assert.EqualValues(t, view.Status, resumed.Status)
	after, err := svc.History(ctx, view.ID)
	assert.Nil(t, err)
	assert.EqualValues(t, len(before), len(after))

	done, err := svc.Start(ctx, "I need 5,00,000 for home renovation in Mumbai, my PAN is ABCDE1234F")
	assert.Nil(t, err)
	_, err = svc.Resume(ctx, done.ID)
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestService_RestartDurability(t *testing.T) {
	ctx := context.Background()
	baseURL := t.TempDir()

	sessions, err := sessfs.New(baseURL)
	assert.Nil(t, err)
	svc, _ := newTestService(sessions)

	view, err := svc.Start(ctx, "loan for college tuition of 2,00,000")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusAwaitingUser, view.Status)
	assert.EqualValues(t, workflow.StepCollectIdentifier, view.StepCursor)

	// a fresh service over the same store picks the session up mid-flight
	reopened, err := sessfs.New(baseURL)
	assert.Nil(t, err)
	svc2, _ := newTestService(reopened)

	view, err = svc2.Advance(ctx, view.ID, "ABCDE1234F")
	assert.Nil(t, err)
	assert.EqualValues(t, workflow.StepCollectCity, view.StepCursor)

	view, err = svc2.Advance(ctx, view.ID, "Bangalore")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusCompleted, view.Status)
	assert.EqualValues(t, decision.Conditional, view.Fields[workflow.FieldDecision])

	history, err := svc2.History(ctx, view.ID)
	assert.Nil(t, err)
	assert.EqualValues(t, float64(200000), view.Fields[workflow.FieldAmount])
	assert.NotEmpty(t, history)
}

func TestService_OperatorRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, manager := newTestService(sessmem.New())

	view, err := svc.Start(ctx, "loan for medical treatment")
	assert.Nil(t, err)
	for _, answer := range []string{"a lot", "plenty", "heaps"} {
		view, err = svc.Advance(ctx, view.ID, answer)
		assert.Nil(t, err)
	}
	assert.EqualValues(t, session.StatusAwaitingOperator, view.Status)

	resolved, err := manager.Resolve(ctx, view.EscalationID, map[string]interface{}{
		workflow.FieldAmount: float64(200000),
	})
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusActive, resolved.Status)

	view, err = svc.Resume(ctx, view.ID)
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusAwaitingUser, view.Status)
	assert.EqualValues(t, workflow.StepCollectIdentifier, view.StepCursor)

	view, err = svc.Advance(ctx, view.ID, "ABCDE1234F")
	assert.Nil(t, err)
	view, err = svc.Advance(ctx, view.ID, "Mumbai")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusCompleted, view.Status)
	assert.EqualValues(t, decision.Approved, view.Fields[workflow.FieldDecision])
}

// an operator resolution that does not supply the field the session was stuck
// on leaves the next step short of its prerequisites, which escalates again
// rather than executing with incomplete input
func TestService_UnreconciledResolutionEscalatesAgain(t *testing.T) {
	ctx := context.Background()
	svc, manager := newTestService(sessmem.New())

	view, err := svc.Start(ctx, "I need 50,000 for a car, my PAN is ABCDE1234F")
	assert.Nil(t, err)
	assert.EqualValues(t, workflow.StepCollectCity, view.StepCursor)

	for _, answer := range []string{"x", "y", "z"} {
		view, err = svc.Advance(ctx, view.ID, answer)
		assert.Nil(t, err)
	}
	assert.EqualValues(t, session.StatusAwaitingOperator, view.Status)

	resolved, err := manager.Resolve(ctx, view.EscalationID, map[string]interface{}{
		"operator_note": "reviewed",
	})
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusActive, resolved.Status)
	assert.EqualValues(t, workflow.StepGeoPolicyCheck, resolved.StepCursor)

	view, err = svc.Resume(ctx, view.ID)
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusAwaitingOperator, view.Status)

	pending, err := manager.ListPending(ctx)
	assert.Nil(t, err)
	if assert.EqualValues(t, 1, len(pending)) {
		assert.EqualValues(t, workflow.StepGeoPolicyCheck, pending[0].Step)
		assert.Contains(t, pending[0].Reason, "missing required field(s)")
		assert.Contains(t, pending[0].Reason, workflow.FieldCity)
	}
}

func TestService_ListActive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(sessmem.New())

	suspended, err := svc.Start(ctx, "")
	assert.Nil(t, err)
	_, err = svc.Start(ctx, "I need 5,00,000 for home renovation in Mumbai, my PAN is ABCDE1234F")
	assert.Nil(t, err)

	active, err := svc.ListActive(ctx)
	assert.Nil(t, err)
	if assert.EqualValues(t, 1, len(active)) {
		assert.EqualValues(t, suspended.ID, active[0].ID)
	}
}
