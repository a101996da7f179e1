package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroAttemptResultIsNotSuccess(t *testing.T) {
	var res MeetingAttemptResult

	assert.False(t, res.Succeeded())
	assert.Equal(t, OutcomeUnknown, res.Outcome)
	assert.Equal(t, "unknown", res.Outcome.String())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "provider_error", OutcomeProviderError.String())
	assert.True(t, MeetingAttemptResult{Outcome: OutcomeSuccess}.Succeeded())
}
