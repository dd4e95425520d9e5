package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siloforge/siloforge-engine/pkg/apperrors"
)

func TestNewCallerLimiterValidatesInputs(t *testing.T) {
	_, err := NewCallerLimiter(0, time.Minute)
	assert.Error(t, err)

	_, err = NewCallerLimiter(10, 0)
	assert.Error(t, err)

	l, err := NewCallerLimiter(10, time.Minute)
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestAllowEnforcesBudgetPerCaller(t *testing.T) {
	l, err := NewCallerLimiter(3, time.Minute)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.NoError(t, l.Allow("editor-1"))
	}
	err = l.Allow("editor-1")
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)

	// A different caller has its own budget.
	assert.NoError(t, l.Allow("editor-2"))
}

func TestAllowAnonymousCallersShareOneBudget(t *testing.T) {
	l, err := NewCallerLimiter(1, time.Minute)
	require.NoError(t, err)

	assert.NoError(t, l.Allow(""))
	assert.ErrorIs(t, l.Allow(""), apperrors.ErrRateLimited)
}
