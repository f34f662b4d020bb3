package loanflow

import (
	"context"

	"github.com/viant/loanflow/model/session"
	"github.com/viant/loanflow/service/capability"
	"github.com/viant/loanflow/service/dao"
	"github.com/viant/loanflow/service/escalation"
	"github.com/viant/loanflow/service/messaging"
	"github.com/viant/loanflow/service/orchestrator"
)

// Runtime groups the wired runtime services of an engine instance.
type Runtime struct {
	orchestrator *orchestrator.Service
	escalations  *escalation.Manager
	sessions     dao.Service[string, session.Session]
	events       messaging.Queue[escalation.Event]
	registry     *capability.Registry
}

// Orchestrator returns the session orchestrator.
func (r *Runtime) Orchestrator() *orchestrator.Service {
	return r.orchestrator
}

// Escalations returns the escalation manager.
func (r *Runtime) Escalations() *escalation.Manager {
	return r.escalations
}

// Sessions returns the session store.
func (r *Runtime) Sessions() dao.Service[string, session.Session] {
	return r.sessions
}

// Events returns the escalation event queue.
func (r *Runtime) Events() messaging.Queue[escalation.Event] {
	return r.events
}

// Capabilities lists the registered providers and their method signatures,
// with IO types resolved by name from the type registry.
func (r *Runtime) Capabilities() []*capability.Descriptor {
	return r.registry.Describe()
}

// ResumeAll resumes every ACTIVE session, e.g. after a restart. It returns
// the ids of the sessions it touched.
func (r *Runtime) ResumeAll(ctx context.Context) ([]string, error) {
	active, err := r.sessions.List(ctx, dao.NewParameter("Status", string(session.StatusActive)))
	if err != nil {
		return nil, err
	}
	var resumed []string
	for _, sess := range active {
		if _, err = r.orchestrator.Resume(ctx, sess.ID); err != nil {
			return resumed, err
		}
		resumed = append(resumed, sess.ID)
	}
	return resumed, nil
}
