package loanflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/loanflow/model/session"
	"github.com/viant/loanflow/service/decision"
	"github.com/viant/loanflow/service/escalation"
	"github.com/viant/loanflow/workflow"
)

func TestService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	srv := New()

	view, err := srv.Orchestrator().Start(ctx, "I need 5,00,000 for home renovation in Mumbai, my PAN is ABCDE1234F")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusCompleted, view.Status)
	assert.EqualValues(t, decision.Approved, view.Fields[workflow.FieldDecision])
}

func TestService_EscalationSurface(t *testing.T) {
	ctx := context.Background()
	srv := New()

	view, err := srv.Orchestrator().Start(ctx, "")
	assert.Nil(t, err)
	view, err = srv.Orchestrator().Advance(ctx, view.ID, "zxqv flurble")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusAwaitingOperator, view.Status)

	// the operator surface sees the handoff both via polling and the queue
	pending, err := srv.Escalations().ListPending(ctx)
	assert.Nil(t, err)
	assert.EqualValues(t, 1, len(pending))

	qctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	message, err := srv.Runtime().Events().Consume(qctx)
	assert.Nil(t, err)
	assert.EqualValues(t, escalation.TopicEscalationCreated, message.T().Topic)
	assert.Nil(t, message.Ack())

	_, err = srv.Escalations().Resolve(ctx, pending[0].ID, map[string]interface{}{
		workflow.FieldPurpose:         "home renovation",
		workflow.FieldPurposeCategory: "home purchase",
		workflow.FieldPurposeStatus:   "permitted",
	})
	assert.Nil(t, err)

	view, err = srv.Orchestrator().Resume(ctx, view.ID)
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusAwaitingUser, view.Status)
	assert.EqualValues(t, workflow.StepCollectAmount, view.StepCursor)
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()

	config := DefaultConfig()
	config.Store.SessionsURL = filepath.Join(base, "sessions")
	config.Store.EscalationsURL = filepath.Join(base, "escalations")

	srv, err := NewFromConfig(ctx, config)
	assert.Nil(t, err)

	view, err := srv.Orchestrator().Start(ctx, "loan for medical treatment of 2,00,000 in Pune, PAN ABCDE1234F")
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusCompleted, view.Status)

	// a fresh engine over the same stores sees the session
	srv2, err := NewFromConfig(ctx, config)
	assert.Nil(t, err)
	status, err := srv2.Orchestrator().Status(ctx, view.ID)
	assert.Nil(t, err)
	assert.EqualValues(t, session.StatusCompleted, status.Status)
}

func TestLoadConfig(t *testing.T) {
	location := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
orchestrator:
  maxRetries: 5
  maxAnswerAttempts: 2
stepTimeout: 10s
store:
  sessionsURL: /tmp/loanflow/sessions
`)
	assert.Nil(t, os.WriteFile(location, data, 0o644))

	config, err := LoadConfig(context.Background(), location)
	assert.Nil(t, err)
	assert.EqualValues(t, 5, config.Orchestrator.MaxRetries)
	assert.EqualValues(t, 2, config.Orchestrator.MaxAnswerAttempts)
	assert.EqualValues(t, 10*time.Second, config.StepTimeout)
	assert.EqualValues(t, "/tmp/loanflow/sessions", config.Store.SessionsURL)

	_, err = LoadConfig(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotNil(t, err)
}
