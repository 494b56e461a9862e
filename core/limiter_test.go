package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelLimiter_EnforcesBudget(t *testing.T) {
	ml := NewModelLimiter(2)
	assert.Equal(t, 2, ml.Remaining())

	require.NoError(t, ml.Increment())
	assert.Equal(t, 1, ml.Remaining())

	require.NoError(t, ml.Increment())
	assert.Equal(t, 0, ml.Remaining())

	err := ml.Increment()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded max model calls: 2")
	// the rejected call is still tallied
	assert.Equal(t, 3, ml.Count())
}

func TestModelLimiter_ZeroMaxIsUnbounded(t *testing.T) {
	ml := NewModelLimiter(0)
	assert.Equal(t, -1, ml.Remaining())

	for i := 0; i < 100; i++ {
		require.NoError(t, ml.Increment())
	}
	assert.Equal(t, 100, ml.Count())
	assert.Equal(t, -1, ml.Remaining())
}
