package fileop

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/bamsammich/spacetask/internal/platform"
)

// NewBWLimiter creates a rate.Limiter that caps throughput to bytesPerSec.
// The burst is 1 MiB, or the rate itself when that is lower.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 1 << 20
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// chunkSize keeps every chunk within the limiter's burst so WaitN never
// rejects it.
func (op *Operation) chunkSize() int64 {
	c := op.cfg.ChunkSize
	if c <= 0 {
		c = platform.DefaultChunkSize
	}
	if op.limiter != nil {
		c = min(c, int64(op.limiter.Burst()))
	}
	return c
}

// onChunk runs after every chunk of a file copy: count, throttle, then
// honor a pending pause. Abort is left to the next file boundary.
func (op *Operation) onChunk(n int64) error {
	op.stats.AddBytes(n)
	if op.limiter != nil {
		if err := op.limiter.WaitN(context.Background(), int(n)); err != nil {
			return err
		}
	}
	op.holdWhilePaused()
	return nil
}
