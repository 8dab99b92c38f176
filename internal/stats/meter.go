package stats

import "time"

// SpeedWindow is the trailing window used for the current-speed reading.
const SpeedWindow = 2 * time.Second

// Meter turns byte counters into current and average speeds. It is owned by
// the poll loop and is not safe for concurrent use.
type Meter struct {
	cpTime  time.Time
	cpBytes int64
	current float64
}

// Observe feeds a new reading. Current speed is recomputed only when a full
// SpeedWindow has passed since the last checkpoint; average speed is bytes
// over the total running time.
func (m *Meter) Observe(now time.Time, bytes int64, elapsed time.Duration) (current, average float64) {
	if m.cpTime.IsZero() {
		m.cpTime = now
		m.cpBytes = bytes
	}
	if span := now.Sub(m.cpTime); span >= SpeedWindow {
		m.current = float64(bytes-m.cpBytes) / span.Seconds()
		m.cpTime = now
		m.cpBytes = bytes
	}
	if elapsed > 0 {
		average = float64(bytes) / elapsed.Seconds()
	}
	return m.current, average
}

// ETA estimates the time left at the given speed. ok is false when the speed
// is zero or the total is unknown.
func ETA(total, done int64, sizeKnown bool, speed float64) (time.Duration, bool) {
	if !sizeKnown || speed <= 0 || total <= 0 {
		return 0, false
	}
	remaining := total - done
	if remaining <= 0 {
		return 0, true
	}
	return time.Duration(float64(remaining) / speed * float64(time.Second)), true
}
