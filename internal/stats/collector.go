package stats

import (
	"fmt"
	"sync"
	"time"
)

// Collector holds the counters an operation shares between its worker
// goroutine and the poll loop. Workers write under the lock; the poll loop
// reads with TrySnapshot so a busy worker never stalls it.
type Collector struct {
	mu sync.Mutex

	bytesTotal int64
	itemsTotal int64
	sizeKnown  bool
	bytesDone  int64
	itemsDone  int64
	errors     int64
	currentSrc string
	currentDst string

	elapsed      time.Duration
	runningSince time.Time
	lastChange   time.Time
	generation   uint64
}

// NewCollector creates a Collector with an unknown total size.
func NewCollector() *Collector {
	return &Collector{lastChange: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	LastChange time.Time
	CurrentSrc string
	CurrentDst string
	BytesTotal int64
	ItemsTotal int64
	BytesDone  int64
	ItemsDone  int64
	Errors     int64
	Elapsed    time.Duration
	Generation uint64
	SizeKnown  bool
}

// SetTotals records the result of size totalization.
func (c *Collector) SetTotals(bytes, items int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytesTotal = max(bytes, c.bytesDone)
	c.itemsTotal = max(items, c.itemsDone)
	c.sizeKnown = true
	c.touch()
}

// MarkSizeUnknown records that totalization gave up; percentages become
// indeterminate.
func (c *Collector) MarkSizeUnknown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sizeKnown = false
	c.touch()
}

// AddBytes advances the transferred byte counter. A file that grew after it
// was sized pushes the total up so done never exceeds total.
func (c *Collector) AddBytes(n int64) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytesDone += n
	if c.sizeKnown && c.bytesDone > c.bytesTotal {
		c.bytesTotal = c.bytesDone
	}
	c.touch()
}

// AddItems advances the processed item counter.
func (c *Collector) AddItems(n int64) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.itemsDone += n
	if c.sizeKnown && c.itemsDone > c.itemsTotal {
		c.itemsTotal = c.itemsDone
	}
	c.touch()
}

// AddError increments the error counter and returns the new count.
func (c *Collector) AddError() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors++
	c.touch()
	return c.errors
}

// SetCurrent records the file pair being worked on.
func (c *Collector) SetCurrent(src, dst string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentSrc = src
	c.currentDst = dst
	c.touch()
}

// StartClock resumes the elapsed-time accumulator. Time spent waiting
// before it does not count toward a stall.
func (c *Collector) StartClock(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runningSince.IsZero() {
		c.runningSince = now
		c.lastChange = now
	}
}

// StopClock pauses the elapsed-time accumulator.
func (c *Collector) StopClock(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.runningSince.IsZero() {
		c.elapsed += now.Sub(c.runningSince)
		c.runningSince = time.Time{}
	}
}

// touch must be called with mu held.
func (c *Collector) touch() {
	c.lastChange = time.Now()
	c.generation++
}

// Snapshot blocks for the lock and returns all counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(time.Now())
}

// TrySnapshot returns the counters only if the lock is free. The poll loop
// defers its update to the next tick when ok is false.
func (c *Collector) TrySnapshot(now time.Time) (Snapshot, bool) {
	if !c.mu.TryLock() {
		return Snapshot{}, false
	}
	defer c.mu.Unlock()
	return c.snapshotLocked(now), true
}

func (c *Collector) snapshotLocked(now time.Time) Snapshot {
	elapsed := c.elapsed
	if !c.runningSince.IsZero() {
		elapsed += now.Sub(c.runningSince)
	}
	return Snapshot{
		LastChange: c.lastChange,
		CurrentSrc: c.currentSrc,
		CurrentDst: c.currentDst,
		BytesTotal: c.bytesTotal,
		ItemsTotal: c.itemsTotal,
		BytesDone:  c.bytesDone,
		ItemsDone:  c.itemsDone,
		Errors:     c.errors,
		Elapsed:    elapsed,
		Generation: c.generation,
		SizeKnown:  c.sizeKnown,
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"bytes=%d/%d items=%d/%d errors=%d",
		s.BytesDone, s.BytesTotal, s.ItemsDone, s.ItemsTotal, s.Errors,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
