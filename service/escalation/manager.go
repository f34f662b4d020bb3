package escalation

import (
	"context"
	"fmt"

	"github.com/viant/loanflow/internal/clock"
	"github.com/viant/loanflow/internal/idgen"
	"github.com/viant/loanflow/internal/keylock"
	"github.com/viant/loanflow/model/session"
	"github.com/viant/loanflow/service/action/agreement"
	"github.com/viant/loanflow/service/capability"
	"github.com/viant/loanflow/service/dao"
	"github.com/viant/loanflow/service/messaging"
	"github.com/viant/loanflow/workflow"
)

// Manager hands sessions over to human operators and reconciles their
// decisions back into the session. It shares the per-session lock with the
// orchestrator so that an operator resolution and an automated run never
// mutate the same session concurrently.
type Manager struct {
	sessions dao.Service[string, session.Session]
	records  dao.Service[string, Record]
	events   messaging.Queue[Event]
	locks    *keylock.Mutex
	amend    capability.Executable
}

// New creates a Manager. The keylock must be the same instance the
// orchestrator locks sessions with.
func New(sessions dao.Service[string, session.Session], records dao.Service[string, Record], events messaging.Queue[Event], locks *keylock.Mutex) *Manager {
	amend, _ := agreement.New().Method("amend")
	return &Manager{
		sessions: sessions,
		records:  records,
		events:   events,
		locks:    locks,
		amend:    amend,
	}
}

// Escalate snapshots the session, opens a PENDING record and parks the
// session as AWAITING_OPERATOR. The caller must hold the session lock.
func (m *Manager) Escalate(ctx context.Context, sess *session.Session, step, reason string) (*Record, error) {
	if sess == nil {
		return nil, dao.ErrNilEntity
	}
	record := &Record{
		ID:        idgen.NewEscalationID(),
		SessionID: sess.ID,
		Step:      step,
		Reason:    reason,
		Status:    StatusPending,
		Snapshot:  sess.Clone(),
		CreatedAt: clock.Now(),
	}
	if err := m.records.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save escalation %v: %w", record.ID, err)
	}

	sess.Status = session.StatusAwaitingOperator
	sess.EscalationID = record.ID
	sess.PendingPrompt = ""
	sess.Record(&session.StepRecord{
		Step:      step,
		Source:    "engine",
		Error:     reason,
		Timestamp: clock.Now(),
	})
	if err := m.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session %v: %w", sess.ID, err)
	}
	_ = m.events.Publish(ctx, &Event{Topic: TopicEscalationCreated, Data: record})
	return record, nil
}

// ListPending returns open escalations, oldest first as stored.
func (m *Manager) ListPending(ctx context.Context) ([]*Record, error) {
	return m.records.List(ctx, dao.NewParameter("Status", StatusPending))
}

// Get loads a single escalation record.
func (m *Manager) Get(ctx context.Context, id string) (*Record, error) {
	return m.records.Load(ctx, id)
}

// Resolve applies an operator response to the escalated session: the response
// fields are merged, an operator-sourced history record is appended, the
// cursor moves past the escalated step and the session becomes ACTIVE again
// (or COMPLETED when the escalated step was the last one). The record is
// marked RESOLVED only after the session state is durably saved; a failed
// session save leaves the record PENDING so the resolution can be retried.
func (m *Manager) Resolve(ctx context.Context, id string, response map[string]interface{}) (*session.Session, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	record, err := m.records.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	m.locks.Lock(record.SessionID)
	defer m.locks.Unlock(record.SessionID)

	// re-check under the lock, a concurrent Resolve may have won
	record, err = m.records.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status == StatusResolved {
		return nil, ErrAlreadyResolved
	}

	sess, err := m.sessions.Load(ctx, record.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %v: %w", record.SessionID, err)
	}
	if sess.EscalationID != id {
		return nil, fmt.Errorf("session %v no longer waits on escalation %v: %w", sess.ID, id, ErrStale)
	}

	applied, err := m.applyResponse(ctx, sess, record, response)
	if err != nil {
		return nil, err
	}

	sess.Record(&session.StepRecord{
		Step:      record.Step,
		Output:    applied,
		Source:    "operator",
		Timestamp: clock.Now(),
	})
	sess.EscalationID = ""
	sess.PendingPrompt = ""
	delete(sess.Attempts, record.Step)

	step := workflow.Lookup(record.Step)
	next := ""
	if step != nil {
		next = step.Successor(sess.Fields)
	}
	if next == "" {
		sess.Status = session.StatusCompleted
	} else {
		sess.Status = session.StatusActive
		sess.StepCursor = next
	}
	if err = m.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session %v: %w", sess.ID, err)
	}

	now := clock.Now()
	record.Status = StatusResolved
	record.OperatorResponse = applied
	record.ResolvedAt = &now
	if err = m.records.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save escalation %v: %w", id, err)
	}
	_ = m.events.Publish(ctx, &Event{Topic: TopicEscalationResolved, Data: record})
	return sess, nil
}

// Decline closes an escalation without reconciling it: the operator refuses
// the handoff and the session terminates as FAILED with the stated reason in
// its audit trail. The record resolves so it leaves the pending queue.
func (m *Manager) Decline(ctx context.Context, id, reason string) (*session.Session, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	record, err := m.records.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	m.locks.Lock(record.SessionID)
	defer m.locks.Unlock(record.SessionID)

	record, err = m.records.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status == StatusResolved {
		return nil, ErrAlreadyResolved
	}
	sess, err := m.sessions.Load(ctx, record.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %v: %w", record.SessionID, err)
	}
	if sess.EscalationID != id {
		return nil, fmt.Errorf("session %v no longer waits on escalation %v: %w", sess.ID, id, ErrStale)
	}
	if reason == "" {
		reason = "declined by operator"
	}

	sess.Record(&session.StepRecord{
		Step:      record.Step,
		Source:    "operator",
		Error:     reason,
		Timestamp: clock.Now(),
	})
	sess.EscalationID = ""
	sess.PendingPrompt = ""
	sess.Status = session.StatusFailed
	if err = m.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session %v: %w", sess.ID, err)
	}

	now := clock.Now()
	record.Status = StatusResolved
	record.OperatorResponse = map[string]interface{}{"declined": true, "reason": reason}
	record.ResolvedAt = &now
	if err = m.records.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save escalation %v: %w", id, err)
	}
	_ = m.events.Publish(ctx, &Event{Topic: TopicEscalationResolved, Data: record})
	return sess, nil
}

// applyResponse merges the operator response into the session fields. An
// amended agreement text additionally yields a unified diff against the
// original so the audit trail shows exactly what the operator changed.
func (m *Manager) applyResponse(ctx context.Context, sess *session.Session, record *Record, response map[string]interface{}) (map[string]interface{}, error) {
	applied := make(map[string]interface{}, len(response))
	for k, v := range response {
		applied[k] = v
	}
	amended, ok := applied[workflow.FieldAgreement].(string)
	if ok && record.Step == workflow.StepAgreement && m.amend != nil {
		original, _ := sess.StringField(workflow.FieldAgreement)
		if original != "" && original != amended {
			output := &agreement.AmendOutput{}
			if err := m.amend(ctx, &agreement.AmendInput{Original: original, Amended: amended}, output); err != nil {
				return nil, fmt.Errorf("failed to amend agreement: %w", err)
			}
			applied[workflow.FieldAgreement] = output.Text
			applied["agreement_diff"] = output.Diff
		}
	}
	sess.Apply(applied)
	return applied, nil
}
