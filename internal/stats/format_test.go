package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRate(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0, "0 B/s"},
		{-1, "0 B/s"},
		{5, "5.00 B/s"},
		{50, "50.0 B/s"},
		{500, "500 B/s"},
		{1024, "1.00 KiB/s"},
		{1024 * 1024 * 50, "50.0 MiB/s"},
		{1024 * 1024 * 1024 * 2, "2.00 GiB/s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRate(tt.input))
		})
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		want string
		d    time.Duration
		ok   bool
	}{
		{"", time.Minute, false},
		{"0:00", 0, true},
		{"0:05", 5 * time.Second, true},
		{"1:30", 90 * time.Second, true},
		{"59:59", time.Hour - time.Second, true},
		{"60:00", time.Hour, true},
		{"1/h", time.Hour + time.Minute, true},
		{"3/h", 2*time.Hour + 40*time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatETA(tt.d, tt.ok))
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0:00", FormatElapsed(0))
	assert.Equal(t, "0:42", FormatElapsed(42*time.Second))
	assert.Equal(t, "12:03", FormatElapsed(12*time.Minute+3*time.Second))
	assert.Equal(t, "1:00:01", FormatElapsed(time.Hour+time.Second))
}
