package escalation

import (
	"time"

	"github.com/viant/loanflow/model/session"
)

// Record statuses.
const (
	StatusPending  = "PENDING"
	StatusResolved = "RESOLVED"
)

// Event topics published on the escalation queue.
const (
	TopicEscalationCreated  = "escalation.created"
	TopicEscalationResolved = "escalation.resolved"
)

// Record captures a handoff of a session to a human operator. The context
// snapshot is an immutable copy of the session state at escalation time and is
// never discarded during normal resolution.
type Record struct {
	ID        string `json:"escalationId"`
	SessionID string `json:"sessionId"` // back-reference, non-owning
	Step      string `json:"step"`      // the step that escalated
	Reason    string `json:"reason"`
	Status    string `json:"status"`

	// Snapshot is the session state at escalation time.
	Snapshot *session.Session `json:"contextSnapshot"`

	// OperatorResponse is present only once resolved.
	OperatorResponse map[string]interface{} `json:"operatorResponse,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Snapshot = r.Snapshot.Clone()
	if r.OperatorResponse != nil {
		clone.OperatorResponse = make(map[string]interface{}, len(r.OperatorResponse))
		for k, v := range r.OperatorResponse {
			clone.OperatorResponse[k] = v
		}
	}
	if r.ResolvedAt != nil {
		resolved := *r.ResolvedAt
		clone.ResolvedAt = &resolved
	}
	return &clone
}

// Event is the envelope published to the operator-facing surface.
type Event struct {
	Topic   string            `json:"topic"`
	Data    *Record           `json:"data"`
	Headers map[string]string `json:"headers,omitempty"`
}
