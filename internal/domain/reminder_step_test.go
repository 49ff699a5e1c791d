package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedReminderSteps(t *testing.T) {
	t.Parallel()

	steps := OrderedReminderSteps()
	require.Len(t, steps, 3)
	assert.Equal(t, ReminderStepFirst, steps[0])
	assert.Equal(t, ReminderStepSecond, steps[1])
	assert.Equal(t, ReminderStepThird, steps[2])
}

func TestReminderStepNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		step     ReminderStep
		wantNext ReminderStep
		wantOK   bool
	}{
		{name: "first to second", step: ReminderStepFirst, wantNext: ReminderStepSecond, wantOK: true},
		{name: "second to third", step: ReminderStepSecond, wantNext: ReminderStepThird, wantOK: true},
		{name: "third is last", step: ReminderStepThird, wantOK: false},
		{name: "unknown step", step: ReminderStep("fourth"), wantOK: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			next, ok := tc.step.Next()
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantNext, next)
			}
		})
	}
}

func TestReminderStepIsValid(t *testing.T) {
	t.Parallel()

	assert.True(t, ReminderStepFirst.IsValid())
	assert.True(t, ReminderStepSecond.IsValid())
	assert.True(t, ReminderStepThird.IsValid())
	assert.False(t, ReminderStep("").IsValid())
	assert.False(t, ReminderStep("zeroth").IsValid())
}
