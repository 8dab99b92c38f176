package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	const goroutines = 100
	const opsPerGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range opsPerGoroutine {
				c.AddBytes(256)
				c.AddItems(1)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	expected := int64(goroutines * opsPerGoroutine)
	assert.Equal(t, expected, s.ItemsDone)
	assert.Equal(t, expected*256, s.BytesDone)
}

func TestSnapshotString(t *testing.T) {
	s := Snapshot{
		BytesDone:  4096,
		BytesTotal: 8192,
		ItemsDone:  3,
		ItemsTotal: 10,
		Errors:     1,
	}
	assert.Equal(t, "bytes=4096/8192 items=3/10 errors=1", s.String())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{1073741824, "1.0 GiB"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			require.Equal(t, tt.expected, FormatBytes(tt.input))
		})
	}
}

func TestSetTotals(t *testing.T) {
	c := NewCollector()
	assert.False(t, c.Snapshot().SizeKnown)

	c.SetTotals(1024*1024, 100)
	s := c.Snapshot()
	assert.True(t, s.SizeKnown)
	assert.Equal(t, int64(100), s.ItemsTotal)
	assert.Equal(t, int64(1024*1024), s.BytesTotal)
}

func TestAddBytesNeverExceedsKnownTotal(t *testing.T) {
	c := NewCollector()
	c.SetTotals(100, 1)
	c.AddBytes(150)

	s := c.Snapshot()
	assert.Equal(t, int64(150), s.BytesDone)
	assert.LessOrEqual(t, s.BytesDone, s.BytesTotal)
}

func TestAddIgnoresNonPositive(t *testing.T) {
	c := NewCollector()
	c.AddBytes(10)
	c.AddBytes(-5)
	c.AddItems(0)
	c.AddItems(-1)

	s := c.Snapshot()
	assert.Equal(t, int64(10), s.BytesDone)
	assert.Equal(t, int64(0), s.ItemsDone)
}

func TestGenerationAdvancesOnChange(t *testing.T) {
	c := NewCollector()
	g0 := c.Snapshot().Generation
	c.AddItems(1)
	g1 := c.Snapshot().Generation
	c.SetCurrent("/a", "/b")
	g2 := c.Snapshot().Generation

	assert.Greater(t, g1, g0)
	assert.Greater(t, g2, g1)
}

func TestTrySnapshotContended(t *testing.T) {
	c := NewCollector()

	c.mu.Lock()
	_, ok := c.TrySnapshot(time.Now())
	c.mu.Unlock()
	assert.False(t, ok)

	_, ok = c.TrySnapshot(time.Now())
	assert.True(t, ok)
}

func TestClockAccumulatesOnlyWhileRunning(t *testing.T) {
	c := NewCollector()
	base := time.Unix(1000, 0)

	c.StartClock(base)
	c.StopClock(base.Add(3 * time.Second))
	// Paused for ten seconds.
	c.StartClock(base.Add(13 * time.Second))

	s, ok := c.TrySnapshot(base.Add(15 * time.Second))
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, s.Elapsed)

	c.StopClock(base.Add(16 * time.Second))
	s, ok = c.TrySnapshot(base.Add(100 * time.Second))
	require.True(t, ok)
	assert.Equal(t, 6*time.Second, s.Elapsed)
}

func TestAddErrorReturnsCount(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, int64(1), c.AddError())
	assert.Equal(t, int64(2), c.AddError())
	assert.Equal(t, int64(2), c.Snapshot().Errors)
}

func TestStartClockRestartsStallTimer(t *testing.T) {
	c := NewCollector()
	admitted := time.Now().Add(time.Hour)
	c.StartClock(admitted)

	s, ok := c.TrySnapshot(admitted)
	require.True(t, ok)
	assert.Equal(t, admitted, s.LastChange)
}
