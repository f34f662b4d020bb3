package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceOrder(t *testing.T) {
	expected := []string{
		StepCollectPurpose,
		StepCollectAmount,
		StepCollectIdentifier,
		StepDataQuery,
		StepSalaryGeneration,
		StepCollectCity,
		StepGeoPolicyCheck,
		StepRiskAssessment,
		StepDecision,
		StepAgreement,
	}
	var actual []string
	for _, step := range Steps() {
		actual = append(actual, step.Name)
	}
	assert.Equal(t, expected, actual)
	assert.Equal(t, StepCollectPurpose, First().Name)
}

func TestStep_Successor(t *testing.T) {
	type testCase struct {
		description string
		step        string
		fields      map[string]interface{}
		expect      string
	}

	testCases := []testCase{
		{
			description: "new applicant routes through salary generation",
			step:        StepDataQuery,
			fields:      map[string]interface{}{FieldApplicantType: ApplicantNew},
			expect:      StepSalaryGeneration,
		},
		{
			description: "existing applicant skips salary generation",
			step:        StepDataQuery,
			fields:      map[string]interface{}{FieldApplicantType: ApplicantExisting},
			expect:      StepCollectCity,
		},
		{
			description: "missing discriminator falls back to default route",
			step:        StepDataQuery,
			fields:      map[string]interface{}{},
			expect:      StepCollectCity,
		},
		{
			description: "linear step uses Next",
			step:        StepCollectAmount,
			fields:      nil,
			expect:      StepCollectIdentifier,
		},
		{
			description: "agreement terminates the sequence",
			step:        StepAgreement,
			fields:      nil,
			expect:      "",
		},
	}

	for _, tc := range testCases {
		step := Lookup(tc.step)
		if !assert.NotNil(t, step, tc.description) {
			continue
		}
		assert.Equal(t, tc.expect, step.Successor(tc.fields), tc.description)
	}
}

func TestLookup_Unknown(t *testing.T) {
	assert.Nil(t, Lookup("UNKNOWN_STEP"))
}
