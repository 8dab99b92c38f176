package fileop

import (
	"log/slog"
	"time"

	"github.com/kr/fs"

	"github.com/bamsammich/spacetask/internal/event"
)

// sizeCheckEvery is how many entries the walk visits between deadline and
// abort checks.
const sizeCheckEvery = 64

// tally is the outcome of walking one tree.
type tally struct {
	bytes int64
	items int64
}

// measure walks root and counts regular file bytes and items. Directories
// count as items only when withDirs is set. ok is false if the walk hit the
// deadline or an abort first.
func (op *Operation) measure(root string, withDirs bool, deadline time.Time) (t tally, ok bool) {
	w := fs.Walk(root)
	n := 0
	for w.Step() {
		n++
		if n%sizeCheckEvery == 0 {
			if op.isAborted() || (!deadline.IsZero() && time.Now().After(deadline)) {
				return t, false
			}
		}
		if w.Err() != nil {
			continue
		}
		info := w.Stat()
		if info.IsDir() {
			if withDirs {
				t.items++
			}
			continue
		}
		t.items++
		if info.Mode().IsRegular() {
			t.bytes += info.Size()
		}
	}
	return t, true
}

// totalize computes the byte and item denominators before any work starts.
// When the walk runs past the size timeout the operation goes on with an
// unknown total.
func (op *Operation) totalize(withDirs bool) {
	deadline := time.Now().Add(op.cfg.SizeTimeout)
	var total tally
	for _, src := range op.cfg.Sources {
		if op.cfg.Kind == event.ChmodChown && !op.cfg.Recursive {
			total.items++
			continue
		}
		t, ok := op.measure(src, withDirs, deadline)
		if !ok {
			if op.isAborted() {
				return
			}
			slog.Debug("size totalization timed out", "source", src, "after", op.cfg.SizeTimeout)
			op.stats.MarkSizeUnknown()
			op.setState(event.SizeTimeout)
			op.emit(event.SizeTimeout, nil)
			op.setState(event.Running)
			op.emit(event.Running, nil)
			return
		}
		total.bytes += t.bytes
		total.items += t.items
	}
	op.stats.SetTotals(total.bytes, total.items)
}
