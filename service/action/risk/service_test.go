package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/viant/loanflow/service/capability"
)

func TestService_Assess(t *testing.T) {
	service := New()
	assess, err := service.Method("assess")
	assert.Nil(t, err)

	testCases := []struct {
		description string
		input       Input
		level       string
		conditions  int
	}{
		{
			description: "comfortable headroom and strong credit",
			input:       Input{Amount: 500000, MonthlySalary: 85000, ExistingEMI: 9000, CreditScore: 760},
			level:       LevelLow,
		},
		{
			description: "projected debt load over thirty percent",
			input:       Input{Amount: 200000, MonthlySalary: 42000, ExistingEMI: 15000, CreditScore: 640},
			level:       LevelBorderline,
			conditions:  2,
		},
		{
			description: "projected debt load over the hard limit",
			input:       Input{Amount: 300000, MonthlySalary: 28000, ExistingEMI: 14000, CreditScore: 710},
			level:       LevelHigh,
			conditions:  1,
		},
		{
			description: "credit score below the minimum",
			input:       Input{Amount: 100000, MonthlySalary: 85000, ExistingEMI: 0, CreditScore: 560},
			level:       LevelHigh,
			conditions:  1,
		},
		{
			description: "acceptable debt load with weak credit",
			input:       Input{Amount: 100000, MonthlySalary: 85000, ExistingEMI: 0, CreditScore: 640},
			level:       LevelBorderline,
			conditions:  1,
		},
	}
	for _, testCase := range testCases {
		output := &Output{}
		err := assess(context.Background(), &testCase.input, output)
		if !assert.Nil(t, err, testCase.description) {
			continue
		}
		assert.EqualValues(t, testCase.level, output.Level, testCase.description)
		assert.EqualValues(t, testCase.conditions, len(output.Conditions), testCase.description)
		assert.True(t, output.Score >= 0 && output.Score <= 1, testCase.description)
		assert.True(t, output.DTIProjected >= output.DTICurrent, testCase.description)
	}
}

func TestService_AssessRejectsInvalidInput(t *testing.T) {
	service := New()
	assess, err := service.Method("assess")
	assert.Nil(t, err)

	testCases := []struct {
		description string
		input       Input
	}{
		{
			description: "non-positive amount",
			input:       Input{Amount: 0, MonthlySalary: 50000, CreditScore: 700},
		},
		{
			description: "non-positive salary",
			input:       Input{Amount: 100000, MonthlySalary: 0, CreditScore: 700},
		},
		{
			description: "credit score out of range",
			input:       Input{Amount: 100000, MonthlySalary: 50000, CreditScore: 200},
		},
	}
	for _, testCase := range testCases {
		err := assess(context.Background(), &testCase.input, &Output{})
		if !assert.NotNil(t, err, testCase.description) {
			continue
		}
		assert.EqualValues(t, capability.FailureStructural, capability.KindOf(err), testCase.description)
	}
}

func TestService_UnknownMethod(t *testing.T) {
	_, err := New().Method("score")
	assert.NotNil(t, err)
}
