package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/loanflow/policy"
	"github.com/viant/loanflow/service/action/risk"
)

func TestDecide(t *testing.T) {
	type testCase struct {
		description string
		geo         *GeoResult
		risk        *RiskResult
		expect      string
		conditions  []string
		expectErr   error
	}

	testCases := []testCase{
		{
			description: "permitted and low risk approves",
			geo:         &GeoResult{Status: policy.Permitted},
			risk:        &RiskResult{Level: risk.LevelLow},
			expect:      Approved,
			conditions:  []string{},
		},
		{
			description: "prohibited vetoes regardless of risk",
			geo:         &GeoResult{Status: policy.Prohibited, Conditions: []string{"purpose prohibited"}},
			risk:        &RiskResult{Level: risk.LevelLow},
			expect:      Rejected,
			conditions:  []string{"purpose prohibited"},
		},
		{
			description: "high risk rejects even when permitted",
			geo:         &GeoResult{Status: policy.Permitted},
			risk:        &RiskResult{Level: risk.LevelHigh, Conditions: []string{"dti above limit"}},
			expect:      Rejected,
			conditions:  []string{"dti above limit"},
		},
		{
			description: "conditionally permitted with borderline risk concatenates conditions",
			geo:         &GeoResult{Status: policy.ConditionallyPermitted, Conditions: []string{"admission letter required"}},
			risk:        &RiskResult{Level: risk.LevelBorderline, Conditions: []string{"co-applicant recommended"}},
			expect:      Conditional,
			conditions:  []string{"admission letter required", "co-applicant recommended"},
		},
		{
			description: "duplicate conditions deduplicated by exact text only",
			geo:         &GeoResult{Status: policy.ConditionallyPermitted, Conditions: []string{"income proof required", "income proof required"}},
			risk:        &RiskResult{Level: risk.LevelLow, Conditions: []string{"income proof required", "Income Proof Required"}},
			expect:      Conditional,
			conditions:  []string{"income proof required", "Income Proof Required"},
		},
		{
			description: "missing geo input fails",
			risk:        &RiskResult{Level: risk.LevelLow},
			expectErr:   ErrIncompleteInput,
		},
		{
			description: "missing risk input fails",
			geo:         &GeoResult{Status: policy.Permitted},
			expectErr:   ErrIncompleteInput,
		},
		{
			description: "empty risk level fails rather than defaulting",
			geo:         &GeoResult{Status: policy.Permitted},
			risk:        &RiskResult{},
			expectErr:   ErrIncompleteInput,
		},
	}

	for _, tc := range testCases {
		outcome, err := Decide(tc.geo, tc.risk)
		if tc.expectErr != nil {
			assert.ErrorIs(t, err, tc.expectErr, tc.description)
			continue
		}
		require.NoError(t, err, tc.description)
		assert.Equal(t, tc.expect, outcome.Verdict, tc.description)
		assert.Equal(t, tc.conditions, outcome.Conditions, tc.description)
	}
}

func TestDecide_VetoDominance(t *testing.T) {
	// the veto holds for every risk level
	for _, level := range []string{risk.LevelLow, risk.LevelBorderline, risk.LevelHigh} {
		outcome, err := Decide(&GeoResult{Status: policy.Prohibited}, &RiskResult{Level: level})
		require.NoError(t, err)
		assert.Equal(t, Rejected, outcome.Verdict, level)
	}
}
