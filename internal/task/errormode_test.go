package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorModeContinueAfter(t *testing.T) {
	assert.False(t, StopOnFirst.continueAfter(1))
	assert.True(t, StopOnFirst.continueAfter(2))
	assert.False(t, StopOnAny.continueAfter(1))
	assert.False(t, StopOnAny.continueAfter(7))
	assert.True(t, Continue.continueAfter(1))
}

func TestParseErrorMode(t *testing.T) {
	for _, m := range []ErrorMode{StopOnFirst, StopOnAny, Continue} {
		got, err := ParseErrorMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseErrorMode("retry")
	require.Error(t, err)
}
