package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Running, "Running"},
		{Paused, "Paused"},
		{Queued, "Queued"},
		{SizeTimeout, "SizeTimeout"},
		{QueryOverwrite, "QueryOverwrite"},
		{Error, "Error"},
		{Finish, "Finish"},
		{State(0), "Unknown"},
		{State(99), "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestStateSuspended(t *testing.T) {
	assert.True(t, Paused.Suspended())
	assert.True(t, Queued.Suspended())
	assert.False(t, Running.Suspended())
	assert.False(t, QueryOverwrite.Suspended())
	assert.False(t, Finish.Suspended())
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{Copy, Move, Link, Delete, Trash, ChmodChown, Exec} {
		got, ok := ParseKind(k.String())
		assert.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}

	_, ok := ParseKind("archive")
	assert.False(t, ok)
	_, ok = ParseKind("")
	assert.False(t, ok)
}

func TestKindTransfers(t *testing.T) {
	assert.True(t, Copy.Transfers())
	assert.True(t, Move.Transfers())
	assert.False(t, Delete.Transfers())
	assert.False(t, Exec.Transfers())
}
