package session

import (
	"time"

	"github.com/viant/loanflow/internal/clock"
)

// Status represents the lifecycle state of a session.
type Status string

const (
	StatusActive           Status = "ACTIVE"
	StatusAwaitingUser     Status = "AWAITING_USER"
	StatusAwaitingOperator Status = "AWAITING_OPERATOR"
	StatusCompleted        Status = "COMPLETED"
	StatusFailed           Status = "FAILED"
)

// Terminal reports whether no further transitions are accepted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StepRecord captures a single executed step in the audit trail. Records are
// append-only; nothing mutates a record once it has been added to History.
type StepRecord struct {
	Step      string                 `json:"step"`
	Input     map[string]interface{} `json:"input,omitempty"`
	Output    map[string]interface{} `json:"output,omitempty"`
	Source    string                 `json:"source,omitempty"` // user | prefill | provider | operator | engine
	Error     string                 `json:"error,omitempty"`
	Timestamp time.Time              `json:"ts"`
}

// Session is the unit of work: one applicant's in-progress or completed
// application. It is mutated exclusively by the orchestrator (and by the
// escalation manager reconciling an operator decision) under the per-session
// lock, so the struct itself carries no synchronisation.
type Session struct {
	ID         string                 `json:"id"`
	Status     Status                 `json:"status"`
	StepCursor string                 `json:"stepCursor"`
	Fields     map[string]interface{} `json:"collectedFields"`
	History    []*StepRecord          `json:"stepHistory,omitempty"`

	// Prefill holds answers recovered from the initial free-form request. A
	// collection step consumes its own prefill entry instead of suspending,
	// preserving provenance in History.
	Prefill map[string]interface{} `json:"prefill,omitempty"`

	// Attempts counts invalid user answers per step, driving escalation once
	// the configured bound is exceeded.
	Attempts map[string]int `json:"attempts,omitempty"`

	// PendingPrompt is the question the session is blocked on while the
	// status is AWAITING_USER.
	PendingPrompt string `json:"pendingPrompt,omitempty"`

	// EscalationID references the open escalation while the status is
	// AWAITING_OPERATOR.
	EscalationID string `json:"escalationId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New creates a session positioned at the supplied first step.
func New(id, firstStep string) *Session {
	now := clock.Now()
	return &Session{
		ID:         id,
		Status:     StatusActive,
		StepCursor: firstStep,
		Fields:     map[string]interface{}{},
		Attempts:   map[string]int{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Field returns a collected field value.
func (s *Session) Field(name string) (interface{}, bool) {
	v, ok := s.Fields[name]
	return v, ok
}

// StringField returns a collected field coerced to string.
func (s *Session) StringField(name string) (string, bool) {
	v, ok := s.Fields[name]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// HasFields reports whether every named field is present.
func (s *Session) HasFields(names []string) bool {
	for _, name := range names {
		if _, ok := s.Fields[name]; !ok {
			return false
		}
	}
	return true
}

// MissingFields returns the subset of names absent from collected fields.
func (s *Session) MissingFields(names []string) []string {
	var missing []string
	for _, name := range names {
		if _, ok := s.Fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Apply merges values into collected fields and stamps UpdatedAt. Earlier
// values are overwritten only by later corrections, never removed.
func (s *Session) Apply(values map[string]interface{}) {
	for k, v := range values {
		s.Fields[k] = v
	}
	s.UpdatedAt = clock.Now()
}

// Record appends a step record to the audit trail.
func (s *Session) Record(record *StepRecord) {
	if record.Timestamp.IsZero() {
		record.Timestamp = clock.Now()
	}
	s.History = append(s.History, record)
	s.UpdatedAt = record.Timestamp
}

// Executed reports whether a step is already present in History.
func (s *Session) Executed(step string) bool {
	for _, record := range s.History {
		if record.Step == step && record.Error == "" {
			return true
		}
	}
	return false
}

// TakePrefill removes and returns the prefill entry for a field.
func (s *Session) TakePrefill(field string) (interface{}, bool) {
	v, ok := s.Prefill[field]
	if ok {
		delete(s.Prefill, field)
	}
	return v, ok
}

// Clone creates a deep copy so that callers can snapshot or mutate a session
// without affecting the original instance.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Fields = copyMap(s.Fields)
	clone.Prefill = copyMap(s.Prefill)
	if s.Attempts != nil {
		clone.Attempts = make(map[string]int, len(s.Attempts))
		for k, v := range s.Attempts {
			clone.Attempts[k] = v
		}
	}
	if s.History != nil {
		clone.History = make([]*StepRecord, len(s.History))
		for i, record := range s.History {
			r := *record
			r.Input = copyMap(record.Input)
			r.Output = copyMap(record.Output)
			clone.History[i] = &r
		}
	}
	return &clone
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
