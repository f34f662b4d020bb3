package escalation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/loanflow/internal/keylock"
	"github.com/viant/loanflow/model/session"
	"github.com/viant/loanflow/service/dao"
	escmem "github.com/viant/loanflow/service/dao/escalation/memory"
	sessmem "github.com/viant/loanflow/service/dao/session/memory"
	"github.com/viant/loanflow/service/escalation"
	qmem "github.com/viant/loanflow/service/messaging/memory"
	"github.com/viant/loanflow/workflow"
)

func newManager() (*escalation.Manager, *sessmem.Service, *qmem.Queue[escalation.Event]) {
	sessions := sessmem.New()
	records := escmem.New()
	events := qmem.NewQueue[escalation.Event](qmem.DefaultConfig())
	return escalation.New(sessions, records, events, keylock.New()), sessions, events
}

func TestManager_Escalate(t *testing.T) {
	ctx := context.Background()
	manager, sessions, events := newManager()

	sess := session.New("s1", workflow.StepCollectCity)
	sess.Fields[workflow.FieldAmount] = float64(500000)
	assert.Nil(t, sessions.Save(ctx, sess))

	record, err := manager.Escalate(ctx, sess, workflow.StepCollectCity, "validation attempts exhausted")
	assert.Nil(t, err)
	assert.NotEmpty(t, record.ID)
	assert.EqualValues(t, escalation.StatusPending, record.Status)
	assert.EqualValues(t, "s1", record.SessionID)

	assert.EqualValues(t, session.StatusAwaitingOperator, sess.Status)
	assert.EqualValues(t, record.ID, sess.EscalationID)
	if assert.EqualValues(t, 1, len(sess.History)) {
		assert.EqualValues(t, "engine", sess.History[0].Source)
		assert.EqualValues(t, "validation attempts exhausted", sess.History[0].Error)
	}

	// the snapshot is frozen at escalation time
	sess.Fields[workflow.FieldAmount] = float64(999)
	assert.EqualValues(t, float64(500000), record.Snapshot.Fields[workflow.FieldAmount])

	pending, err := manager.ListPending(ctx)
	assert.Nil(t, err)
	assert.EqualValues(t, 1, len(pending))

	message, err := events.Consume(ctx)
	assert.Nil(t, err)
	assert.EqualValues(t, escalation.TopicEscalationCreated, message.T().Topic)
	assert.Nil(t, message.Ack())
}

func TestManager_Resolve(t *testing.T) {
	ctx := context.Background()
	manager, sessions, _ := newManager()

	sess := session.New("s2", workflow.StepCollectCity)
	sess.Attempts[workflow.StepCollectCity] = 3
	assert.Nil(t, sessions.Save(ctx, sess))
	record, err := manager.Escalate(ctx, sess, workflow.StepCollectCity, "validation attempts exhausted")
	assert.Nil(t, err)

	resolved, err := manager.Resolve(ctx, record.ID, map[string]interface{}{
		workflow.FieldCity: "Mumbai",
	})
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusActive, resolved.Status)
	assert.EqualValues(t, workflow.StepGeoPolicyCheck, resolved.StepCursor)
	assert.EqualValues(t, "Mumbai", resolved.Fields[workflow.FieldCity])
	assert.Empty(t, resolved.EscalationID)
	assert.EqualValues(t, 0, resolved.Attempts[workflow.StepCollectCity])

	last := resolved.History[len(resolved.History)-1]
	assert.EqualValues(t, "operator", last.Source)
	assert.EqualValues(t, workflow.StepCollectCity, last.Step)

	stored, err := manager.Get(ctx, record.ID)
	assert.Nil(t, err)
	assert.EqualValues(t, escalation.StatusResolved, stored.Status)
	assert.NotNil(t, stored.ResolvedAt)
	assert.EqualValues(t, "Mumbai", stored.OperatorResponse[workflow.FieldCity])

	pending, err := manager.ListPending(ctx)
	assert.Nil(t, err)
	assert.Empty(t, pending)

	_, err = manager.Resolve(ctx, record.ID, nil)
	assert.True(t, errors.Is(err, escalation.ErrAlreadyResolved))
}

func TestManager_Resolve_Errors(t *testing.T) {
	ctx := context.Background()
	manager, sessions, _ := newManager()

	_, err := manager.Resolve(ctx, "missing", nil)
	assert.True(t, errors.Is(err, dao.ErrNotFound))

	_, err = manager.Resolve(ctx, "", nil)
	assert.True(t, errors.Is(err, dao.ErrInvalidID))

	// session superseded the escalation
	sess := session.New("s3", workflow.StepCollectAmount)
	assert.Nil(t, sessions.Save(ctx, sess))
	record, err := manager.Escalate(ctx, sess, workflow.StepCollectAmount, "stuck")
	assert.Nil(t, err)
	sess.EscalationID = "other"
	assert.Nil(t, sessions.Save(ctx, sess))
	_, err = manager.Resolve(ctx, record.ID, map[string]interface{}{workflow.FieldAmount: 5000})
	assert.True(t, errors.Is(err, escalation.ErrStale))
}

func TestManager_Decline(t *testing.T) {
	ctx := context.Background()
	manager, sessions, _ := newManager()

	sess := session.New("s5", workflow.StepCollectIdentifier)
	assert.Nil(t, sessions.Save(ctx, sess))
	record, err := manager.Escalate(ctx, sess, workflow.StepCollectIdentifier, "identity mismatch")
	assert.Nil(t, err)

	failed, err := manager.Decline(ctx, record.ID, "identity could not be verified")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusFailed, failed.Status)
	assert.True(t, failed.Status.Terminal())
	assert.Empty(t, failed.EscalationID)

	last := failed.History[len(failed.History)-1]
	assert.EqualValues(t, "operator", last.Source)
	assert.EqualValues(t, "identity could not be verified", last.Error)

	stored, err := manager.Get(ctx, record.ID)
	assert.Nil(t, err)
	assert.EqualValues(t, escalation.StatusResolved, stored.Status)
	assert.EqualValues(t, true, stored.OperatorResponse["declined"])

	pending, err := manager.ListPending(ctx)
	assert.Nil(t, err)
	assert.Empty(t, pending)

	// a closed escalation can be neither declined nor resolved again
	_, err = manager.Decline(ctx, record.ID, "again")
	assert.True(t, errors.Is(err, escalation.ErrAlreadyResolved))
	_, err = manager.Resolve(ctx, record.ID, nil)
	assert.True(t, errors.Is(err, escalation.ErrAlreadyResolved))
}

func TestManager_Resolve_LastStepCompletes(t *testing.T) {
	ctx := context.Background()
	manager, sessions, _ := newManager()

	sess := session.New("s4", workflow.StepAgreement)
	sess.Fields[workflow.FieldAgreement] = "LOAN AGREEMENT\nAmount: Rs. 5,00,000\n"
	assert.Nil(t, sessions.Save(ctx, sess))
	record, err := manager.Escalate(ctx, sess, workflow.StepAgreement, "manual review")
	assert.Nil(t, err)

	resolved, err := manager.Resolve(ctx, record.ID, map[string]interface{}{
		workflow.FieldAgreement: "LOAN AGREEMENT\nAmount: Rs. 4,00,000\n",
	})
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusCompleted, resolved.Status)
	assert.EqualValues(t, "LOAN AGREEMENT\nAmount: Rs. 4,00,000\n", resolved.Fields[workflow.FieldAgreement])

	diff, ok := resolved.Fields["agreement_diff"].(string)
	assert.True(t, ok)
	assert.Contains(t, diff, "-Amount: Rs. 5,00,000")
	assert.Contains(t, diff, "+Amount: Rs. 4,00,000")
}
