package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCount(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1000000, "1,000,000"},
		{14302, "14,302"},
		{-1000, "-1,000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCount(tt.input))
		})
	}
}

func TestProgressBar(t *testing.T) {
	bar := ProgressBar(0.5, 10)
	assert.Equal(t, "▪▪▪▪▪□□□□□", bar)

	bar = ProgressBar(0, 10)
	assert.Equal(t, "□□□□□□□□□□", bar)

	bar = ProgressBar(1.0, 10)
	assert.Equal(t, "▪▪▪▪▪▪▪▪▪▪", bar)

	// Edge cases.
	assert.Equal(t, "", ProgressBar(0.5, 0))
	assert.Equal(t, "▪▪▪▪▪▪▪▪▪▪", ProgressBar(1.5, 10)) // clamp
	assert.Equal(t, "□□□□", ProgressBar(-1, 4))
}

func TestIndeterminateBar(t *testing.T) {
	assert.Equal(t, "▪▪▪□□□□", IndeterminateBar(0, 7))
	assert.Equal(t, "□□▪▪▪□□", IndeterminateBar(2, 7))
	assert.Equal(t, "□□□□▪▪▪", IndeterminateBar(4, 7))
	// Bounces back.
	assert.Equal(t, "□□□▪▪▪□", IndeterminateBar(5, 7))
	assert.Equal(t, "", IndeterminateBar(3, 0))
}

func TestTruncPath(t *testing.T) {
	assert.Equal(t, "short", TruncPath("short", 10))
	assert.Equal(t, "...efghij", TruncPath("abcdefghij", 9))
	assert.Equal(t, "ab", TruncPath("abcdef", 2))
}
