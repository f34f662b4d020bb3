package session

import "time"

// View is the read-only snapshot returned by orchestrator calls. It decouples
// callers from the mutable session instance held by the store.
type View struct {
	ID            string                 `json:"id"`
	Status        Status                 `json:"status"`
	StepCursor    string                 `json:"stepCursor"`
	Fields        map[string]interface{} `json:"collectedFields,omitempty"`
	PendingPrompt string                 `json:"pendingPrompt,omitempty"`
	EscalationID  string                 `json:"escalationId,omitempty"`
	Steps         int                    `json:"steps"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// Summary is the condensed form used by active-session listings.
type Summary struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	StepCursor string    `json:"stepCursor"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// View materialises a snapshot of the session.
func (s *Session) View() *View {
	return &View{
		ID:            s.ID,
		Status:        s.Status,
		StepCursor:    s.StepCursor,
		Fields:        copyMap(s.Fields),
		PendingPrompt: s.PendingPrompt,
		EscalationID:  s.EscalationID,
		Steps:         len(s.History),
		UpdatedAt:     s.UpdatedAt,
	}
}

// Summary materialises the condensed listing form.
func (s *Session) Summary() *Summary {
	return &Summary{
		ID:         s.ID,
		Status:     s.Status,
		StepCursor: s.StepCursor,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}
