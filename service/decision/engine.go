// Package decision implements the pure combinator that folds the geo-policy
// and risk assessment outcomes into one final verdict. It holds no state and
// never invents a decision from partial input.
package decision

import (
	"errors"

	"github.com/viant/loanflow/policy"
	"github.com/viant/loanflow/service/action/risk"
)

// Verdicts.
const (
	Approved    = "APPROVED"
	Rejected    = "REJECTED"
	Conditional = "CONDITIONAL"
)

// ErrIncompleteInput is returned when either input is missing; callers treat
// it as an escalation trigger, not a default approval or denial.
var ErrIncompleteInput = errors.New("decision: incomplete input")

// GeoResult is the geo-policy outcome consumed by the engine.
type GeoResult struct {
	Status     string
	Conditions []string
	MaxAmount  float64
}

// RiskResult is the risk assessment outcome consumed by the engine.
type RiskResult struct {
	Level      string
	Conditions []string
}

// Outcome is the combined verdict.
type Outcome struct {
	Verdict    string
	Conditions []string
}

// Decide combines both inputs. A prohibited geo-policy outcome vetoes the
// application regardless of risk; it is never averaged away. Conditions from
// both checks are concatenated in geo-then-risk order and deduplicated by
// exact text match only.
func Decide(geo *GeoResult, riskResult *RiskResult) (*Outcome, error) {
	if geo == nil || riskResult == nil {
		return nil, ErrIncompleteInput
	}
	if geo.Status == "" || riskResult.Level == "" {
		return nil, ErrIncompleteInput
	}

	if geo.Status == policy.Prohibited {
		return &Outcome{Verdict: Rejected, Conditions: dedup(geo.Conditions)}, nil
	}
	if riskResult.Level == risk.LevelHigh {
		return &Outcome{Verdict: Rejected, Conditions: dedup(riskResult.Conditions)}, nil
	}

	conditions := dedup(append(append([]string{}, geo.Conditions...), riskResult.Conditions...))
	if geo.Status == policy.ConditionallyPermitted || riskResult.Level == risk.LevelBorderline {
		return &Outcome{Verdict: Conditional, Conditions: conditions}, nil
	}
	return &Outcome{Verdict: Approved, Conditions: conditions}, nil
}

// dedup removes exact-text duplicates preserving first-occurrence order.
func dedup(conditions []string) []string {
	seen := make(map[string]bool, len(conditions))
	out := make([]string, 0, len(conditions))
	for _, condition := range conditions {
		if condition == "" || seen[condition] {
			continue
		}
		seen[condition] = true
		out = append(out, condition)
	}
	return out
}
