// Package orchestrator sequences loan application steps: it suspends for user
// answers, dispatches capability providers, consults the decision engine and
// hands stuck sessions to the escalation manager. All session mutation happens
// under the per-session lock and every step commits its field updates, history
// record and cursor move in a single save.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/loanflow/internal/clock"
	"github.com/viant/loanflow/internal/idgen"
	"github.com/viant/loanflow/internal/keylock"
	"github.com/viant/loanflow/model/session"
	"github.com/viant/loanflow/service/capability"
	"github.com/viant/loanflow/service/dao"
	"github.com/viant/loanflow/service/decision"
	"github.com/viant/loanflow/service/escalation"
	"github.com/viant/loanflow/service/intake"
	"github.com/viant/loanflow/tracing"
	"github.com/viant/loanflow/workflow"
	"github.com/viant/toolbox"
)

// Service drives sessions through the declared step sequence.
type Service struct {
	config     Config
	sessions   dao.Service[string, session.Session]
	escalation *escalation.Manager
	invoker    *capability.Invoker
	locks      *keylock.Mutex
}

// New creates an orchestrator. The keylock must be shared with the escalation
// manager so operator resolutions and automated runs never interleave on the
// same session.
func New(config Config, sessions dao.Service[string, session.Session], manager *escalation.Manager, invoker *capability.Invoker, locks *keylock.Mutex) *Service {
	config.Normalize()
	return &Service{
		config:     config,
		sessions:   sessions,
		escalation: manager,
		invoker:    invoker,
		locks:      locks,
	}
}

// Start opens a new session seeded from the free-form request text and runs
// it until it suspends, escalates or completes. Attachments carry fields the
// applicant supplied out of band, e.g. a salary_document reference.
func (s *Service) Start(ctx context.Context, request string, attachments ...map[string]interface{}) (*session.View, error) {
	sess := session.New(idgen.NewSessionID(), workflow.First().Name)
	if prefill := intake.Parse(request).Prefill(); len(prefill) > 0 {
		sess.Prefill = prefill
	}
	for _, attachment := range attachments {
		sess.Apply(attachment)
	}

	s.locks.Lock(sess.ID)
	defer s.locks.Unlock(sess.ID)

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session %v: %w", sess.ID, err)
	}
	if err := s.run(ctx, sess); err != nil {
		return nil, err
	}
	return sess.View(), nil
}

// Resume continues an ACTIVE session, e.g. after a restart. Resuming a
// suspended session is a no-op returning its current view; resuming a
// terminal session is ErrInvalidState.
func (s *Service) Resume(ctx context.Context, id string) (*session.View, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	sess, err := s.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, fmt.Errorf("session %v is %v: %w", id, sess.Status, ErrInvalidState)
	}
	if sess.Status == session.StatusActive {
		if err = s.run(ctx, sess); err != nil {
			return nil, err
		}
	}
	return sess.View(), nil
}

// Advance supplies a user answer to a session awaiting one. An invalid answer
// re-prompts with guidance; once the per-step attempt bound is exhausted the
// session escalates instead.
func (s *Service) Advance(ctx context.Context, id, answer string) (*session.View, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	sess, err := s.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusAwaitingUser {
		return nil, fmt.Errorf("session %v is %v, not awaiting a user answer: %w", id, sess.Status, ErrInvalidState)
	}
	step := workflow.Lookup(sess.StepCursor)
	if step == nil || step.Kind != workflow.KindCollect {
		if _, err = s.escalation.Escalate(ctx, sess, sess.StepCursor, fmt.Sprintf("suspended on non-collection step %q", sess.StepCursor)); err != nil {
			return nil, err
		}
		return sess.View(), nil
	}

	values, invalid := coerceAnswer(step, answer)
	if invalid != nil {
		if err = s.rejectAnswer(ctx, sess, step, answer, invalid); err != nil {
			return nil, err
		}
		return sess.View(), nil
	}

	if err = s.completeCollect(ctx, sess, step, values, "user"); err != nil {
		return nil, err
	}
	if err = s.run(ctx, sess); err != nil {
		return nil, err
	}
	return sess.View(), nil
}

// Status returns a read-only snapshot of the session.
func (s *Service) Status(ctx context.Context, id string) (*session.View, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	sess, err := s.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.View(), nil
}

// History returns the append-only audit trail of the session.
func (s *Service) History(ctx context.Context, id string) ([]*session.StepRecord, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	sess, err := s.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Clone().History, nil
}

// ListActive lists sessions that have not reached a terminal status.
func (s *Service) ListActive(ctx context.Context) ([]*session.Summary, error) {
	sessions, err := s.sessions.List(ctx, dao.NewParameter("Status",
		string(session.StatusActive),
		string(session.StatusAwaitingUser),
		string(session.StatusAwaitingOperator)))
	if err != nil {
		return nil, err
	}
	out := make([]*session.Summary, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Summary())
	}
	return out, nil
}

// run drives the session while it stays ACTIVE. The caller holds the session
// lock. A context error aborts the run without escalating so a shutdown never
// burns an operator handoff.
func (s *Service) run(ctx context.Context, sess *session.Session) error {
	for sess.Status == session.StatusActive {
		if err := ctx.Err(); err != nil {
			return err
		}
		step := workflow.Lookup(sess.StepCursor)
		if step == nil {
			_, err := s.escalation.Escalate(ctx, sess, sess.StepCursor, fmt.Sprintf("unknown step %q", sess.StepCursor))
			return err
		}

		stepCtx, span := tracing.StartSpan(ctx, step.Name)
		span.WithAttributes(map[string]string{"session.id": sess.ID})
		var err error
		switch step.Kind {
		case workflow.KindCollect:
			err = s.runCollect(stepCtx, sess, step)
		case workflow.KindCapability:
			err = s.runCapability(stepCtx, sess, step)
		case workflow.KindDecision:
			err = s.runDecision(stepCtx, sess, step)
		default:
			err = capability.NewStructuralFailure("unsupported step kind %v", step.Kind)
		}
		tracing.EndSpan(span, err)
		if err != nil {
			return err
		}
	}
	return nil
}

// runCollect consumes a prefill entry when a valid one exists, otherwise
// suspends the session with the step prompt. An invalid prefill value is
// discarded so the user is asked directly.
func (s *Service) runCollect(ctx context.Context, sess *session.Session, step *workflow.Step) error {
	if value, ok := sess.TakePrefill(step.Field); ok {
		if values, invalid := coerceAnswer(step, value); invalid == nil {
			return s.completeCollect(ctx, sess, step, values, "prefill")
		}
	}
	sess.Status = session.StatusAwaitingUser
	sess.PendingPrompt = step.Prompt
	return s.sessions.Save(ctx, sess)
}

// completeCollect applies validated answer values, runs the step's companion
// action when declared and advances the cursor, committing in one save.
func (s *Service) completeCollect(ctx context.Context, sess *session.Session, step *workflow.Step, values map[string]interface{}, source string) error {
	sess.Apply(values)
	sess.Record(&session.StepRecord{
		Step:      step.Name,
		Output:    values,
		Source:    source,
		Timestamp: clock.Now(),
	})
	delete(sess.Attempts, step.Name)
	sess.PendingPrompt = ""
	sess.Status = session.StatusActive

	if step.Action != "" {
		done, err := s.classifyPurpose(ctx, sess, step)
		if err != nil || done {
			return err
		}
	}
	s.advanceCursor(sess, step)
	return s.sessions.Save(ctx, sess)
}

// classifyPurpose runs the purpose classifier after the purpose is collected.
// An unmatched purpose escalates; done=true means the session left ACTIVE.
func (s *Service) classifyPurpose(ctx context.Context, sess *session.Session, step *workflow.Step) (bool, error) {
	purpose, _ := sess.StringField(workflow.FieldPurpose)
	request := map[string]interface{}{workflow.FieldPurpose: purpose}
	result, err := s.invokeWithRetry(ctx, step.Action, request)
	if err != nil {
		return true, s.handleFailure(ctx, sess, step, err)
	}
	if matched, _ := result["matched"].(bool); !matched {
		_, err = s.escalation.Escalate(ctx, sess, step.Name, fmt.Sprintf("unrecognised loan purpose %q", purpose))
		return true, err
	}
	delete(result, "matched")
	sess.Apply(result)
	sess.Record(&session.StepRecord{
		Step:      step.Name,
		Input:     request,
		Output:    result,
		Source:    "provider",
		Timestamp: clock.Now(),
	})
	return false, nil
}

// rejectAnswer records an invalid user answer and either re-prompts or, once
// the attempt bound is reached, escalates.
func (s *Service) rejectAnswer(ctx context.Context, sess *session.Session, step *workflow.Step, answer string, invalid error) error {
	if sess.Attempts == nil {
		sess.Attempts = map[string]int{}
	}
	sess.Attempts[step.Name]++
	sess.Record(&session.StepRecord{
		Step:      step.Name,
		Input:     map[string]interface{}{step.Field: answer},
		Source:    "user",
		Error:     invalid.Error(),
		Timestamp: clock.Now(),
	})
	if sess.Attempts[step.Name] >= s.config.MaxAnswerAttempts {
		reason := fmt.Sprintf("%v attempts to collect %v failed, last: %v", sess.Attempts[step.Name], step.Field, invalid)
		_, err := s.escalation.Escalate(ctx, sess, step.Name, reason)
		return err
	}
	sess.PendingPrompt = fmt.Sprintf("%v. %v", capitalize(invalid.Error()), step.Prompt)
	return s.sessions.Save(ctx, sess)
}

// runCapability checks prerequisites, invokes the provider with bounded
// retries and commits its outputs.
func (s *Service) runCapability(ctx context.Context, sess *session.Session, step *workflow.Step) error {
	if missing := sess.MissingFields(step.Requires); len(missing) > 0 {
		_, err := s.escalation.Escalate(ctx, sess, step.Name, fmt.Sprintf("missing required field(s) %v", missing))
		return err
	}
	request := s.request(sess, step)

	var result map[string]interface{}
	var err error
	if step.Name == workflow.StepSalaryGeneration {
		result, err = s.salaryProfile(ctx, sess, step, request)
	} else {
		result, err = s.invokeWithRetry(ctx, step.Action, request)
	}
	if err != nil {
		return s.handleFailure(ctx, sess, step, err)
	}
	if err = capability.EnsureOutputs(step.Action, result, step.Produces); err != nil {
		return s.handleFailure(ctx, sess, step, err)
	}

	sess.Apply(result)
	sess.Record(&session.StepRecord{
		Step:      step.Name,
		Input:     request,
		Output:    result,
		Source:    "provider",
		Timestamp: clock.Now(),
	})
	s.advanceCursor(sess, step)
	return s.sessions.Save(ctx, sess)
}

// salaryProfile prefers extracting the profile from a supplied salary
// document and falls back to synthetic generation when extraction fails.
func (s *Service) salaryProfile(ctx context.Context, sess *session.Session, step *workflow.Step, request map[string]interface{}) (map[string]interface{}, error) {
	if document, ok := sess.StringField(workflow.FieldSalaryDocument); ok && document != "" {
		extract := map[string]interface{}{
			workflow.FieldSalaryDocument: document,
			workflow.FieldIdentifier:     request[workflow.FieldIdentifier],
		}
		result, err := s.invokeWithRetry(ctx, "salary.extract", extract)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
	}
	return s.invokeWithRetry(ctx, step.Action, request)
}

// runDecision feeds the geo-policy and risk outcomes to the pure decision
// engine. Incomplete input escalates, it is never silently defaulted.
func (s *Service) runDecision(ctx context.Context, sess *session.Session, step *workflow.Step) error {
	request := s.request(sess, step)
	geo := &decision.GeoResult{
		Status:     stringField(sess, workflow.FieldGeoStatus),
		Conditions: stringSlice(sess.Fields[workflow.FieldGeoConditions]),
		MaxAmount:  floatField(sess, workflow.FieldGeoMaxAmount),
	}
	riskResult := &decision.RiskResult{
		Level:      stringField(sess, workflow.FieldRiskLevel),
		Conditions: stringSlice(sess.Fields[workflow.FieldRiskConditions]),
	}
	outcome, err := decision.Decide(geo, riskResult)
	if err != nil {
		return s.handleFailure(ctx, sess, step, err)
	}

	values := map[string]interface{}{
		workflow.FieldDecision:   outcome.Verdict,
		workflow.FieldConditions: outcome.Conditions,
	}
	sess.Apply(values)
	sess.Record(&session.StepRecord{
		Step:      step.Name,
		Input:     request,
		Output:    values,
		Source:    "engine",
		Timestamp: clock.Now(),
	})
	s.advanceCursor(sess, step)
	return s.sessions.Save(ctx, sess)
}

// advanceCursor moves the cursor to the step's successor; a step with no
// successor completes the session.
func (s *Service) advanceCursor(sess *session.Session, step *workflow.Step) {
	next := step.Successor(sess.Fields)
	if next == "" {
		sess.Status = session.StatusCompleted
		return
	}
	sess.StepCursor = next
}

// invokeWithRetry re-invokes the provider after transient failures only, up
// to the configured bound.
func (s *Service) invokeWithRetry(ctx context.Context, action string, request map[string]interface{}) (map[string]interface{}, error) {
	for attempt := 0; ; attempt++ {
		result, err := s.invoker.Invoke(ctx, action, request)
		if err == nil {
			return result, nil
		}
		if !capability.IsTransient(err) || attempt >= s.config.MaxRetries {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.config.RetryDelay):
		}
	}
}

// handleFailure routes a step failure to the escalation manager. A cancelled
// context propagates instead so a shutdown never consumes an operator handoff.
func (s *Service) handleFailure(ctx context.Context, sess *session.Session, step *workflow.Step, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	_, escErr := s.escalation.Escalate(ctx, sess, step.Name, err.Error())
	return escErr
}

// request projects the step's required and optional fields out of the session.
func (s *Service) request(sess *session.Session, step *workflow.Step) map[string]interface{} {
	request := make(map[string]interface{}, len(step.Requires)+len(step.Optional))
	for _, name := range step.Requires {
		if value, ok := sess.Field(name); ok {
			request[name] = value
		}
	}
	for _, name := range step.Optional {
		if value, ok := sess.Field(name); ok {
			request[name] = value
		}
	}
	return request
}

func stringField(sess *session.Session, name string) string {
	value, _ := sess.StringField(name)
	return value
}

func floatField(sess *session.Session, name string) float64 {
	value, ok := sess.Field(name)
	if !ok {
		return 0
	}
	return toolbox.AsFloat(value)
}

// stringSlice coerces a field that may have round-tripped through JSON.
func stringSlice(value interface{}) []string {
	switch actual := value.(type) {
	case []string:
		return actual
	case []interface{}:
		out := make([]string, 0, len(actual))
		for _, item := range actual {
			out = append(out, toolbox.AsString(item))
		}
		return out
	}
	return nil
}

func capitalize(text string) string {
	if text == "" {
		return text
	}
	if text[0] >= 'a' && text[0] <= 'z' {
		return string(text[0]-'a'+'A') + text[1:]
	}
	return text
}
