package task

import (
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/event"
	"github.com/bamsammich/spacetask/internal/fileop"
	"github.com/bamsammich/spacetask/internal/stats"
)

// Controller owns one Operation. The worker goroutine reaches it only
// through the state callback; everything else runs on the poll loop.
type Controller struct {
	op        *fileop.Operation
	presenter Presenter
	onDone    func(*Controller, any)
	data      any
	log       *ErrorLog
	id        string

	// Written by the worker goroutine.
	errorMode  atomic.Int32
	errorsSeen atomic.Int64
	errorFlag  atomic.Bool
	pending    atomic.Pointer[conflict.Query]

	stopped      atomic.Bool
	acknowledged atomic.Bool

	// Poll loop only.
	offered     *conflict.Query
	meter       stats.Meter
	display     Display
	lastState   event.State
	lastGen     uint64
	lastCompute time.Time
	doneOnce    sync.Once
	computed    bool
}

// ID returns the task identifier.
func (c *Controller) ID() string { return c.id }

// Operation returns the owned operation.
func (c *Controller) Operation() *fileop.Operation { return c.op }

// Data returns the opaque value passed at submission.
func (c *Controller) Data() any { return c.data }

// Log returns the task's error and output log.
func (c *Controller) Log() *ErrorLog { return c.log }

// Display returns the display data computed on the last tick.
func (c *Controller) Display() Display { return c.display }

// ErrorMode returns the current error policy.
func (c *Controller) ErrorMode() ErrorMode { return ErrorMode(c.errorMode.Load()) }

// SetErrorMode changes the error policy. It takes effect at the next error.
func (c *Controller) SetErrorMode(m ErrorMode) { c.errorMode.Store(int32(m)) }

// Errors returns the number of errors the worker has reported.
func (c *Controller) Errors() int64 { return c.errorsSeen.Load() }

// Stopped reports whether the task was cancelled by an operator.
func (c *Controller) Stopped() bool { return c.stopped.Load() }

// Cancel aborts the operation. A pending conflict query reads as cancelled.
func (c *Controller) Cancel() {
	c.stopped.Store(true)
	c.op.Abort()
}

// Pause suspends the operation in state (Paused or Queued).
func (c *Controller) Pause(state event.State) { c.op.Pause(state) }

// Resume releases a paused or queued operation.
func (c *Controller) Resume() { c.op.Resume() }

// Acknowledge releases a finished task that was kept visible.
func (c *Controller) Acknowledge() { c.acknowledged.Store(true) }

// callback runs on the worker goroutine.
func (c *Controller) callback(state event.State, q *conflict.Query) bool {
	switch state {
	case event.Error:
		n := c.errorsSeen.Add(1)
		c.errorFlag.Store(true)
		ok := c.ErrorMode().continueAfter(n)
		if !ok {
			slog.Debug("error policy aborts task", "task", c.id, "mode", c.ErrorMode(), "errors", n)
		}
		return ok
	case event.QueryOverwrite:
		if q != nil {
			c.pending.Store(q)
		}
	}
	return true
}

// takeErrorFlag reports and clears whether an error was raised since the
// last call.
func (c *Controller) takeErrorFlag() bool {
	return c.errorFlag.Swap(false)
}

// offerQuery hands a newly raised conflict query to the presenter. Without
// one that can prompt, the conflict is skipped.
func (c *Controller) offerQuery() {
	q := c.pending.Load()
	if q == nil || q == c.offered || c.op.Finished() {
		return
	}
	c.offered = q
	if c.presenter != nil && c.presenter.Ask(c.display, q) {
		return
	}
	slog.Warn("no prompt available, skipping conflict", "task", c.id, "src", q.Src, "dst", q.Dst)
	q.Respond(conflict.SkipOnce, "")
}

// refresh recomputes display data from the operation's counters. Counters
// are read with a try-lock; a busy worker defers the update to the next
// tick. It reports whether the display changed.
func (c *Controller) refresh(now time.Time, interval, stallAfter time.Duration) bool {
	state := c.op.State()
	stateChanged := state != c.lastState
	if c.computed && !stateChanged && now.Sub(c.lastCompute) < interval {
		return false
	}
	snap, ok := c.op.Stats().TrySnapshot(now)
	if !ok {
		return false
	}
	if c.computed && !stateChanged && snap.Generation == c.lastGen && state != event.Running {
		c.lastCompute = now
		return false
	}

	prev := c.display
	c.display = c.compute(now, state, snap, stallAfter)
	c.lastState = state
	c.lastGen = snap.Generation
	c.lastCompute = now
	first := !c.computed
	c.computed = true
	return first || c.display != prev
}

func (c *Controller) compute(now time.Time, state event.State, snap stats.Snapshot, stallAfter time.Duration) Display {
	finished := state == event.Finish
	kind := c.op.Kind()
	cur, avg := c.meter.Observe(now, snap.BytesDone, snap.Elapsed)
	etaCur, okCur := stats.ETA(snap.BytesTotal, snap.BytesDone, snap.SizeKnown, cur)
	etaAvg, okAvg := stats.ETA(snap.BytesTotal, snap.BytesDone, snap.SizeKnown, avg)
	pct, indeterminate := percentOf(snap, finished)

	d := Display{
		ID:            c.id,
		Kind:          kind,
		State:         state,
		ErrorMode:     c.ErrorMode(),
		Status:        statusOf(state, snap, now, stallAfter, finished, c.Stopped(), kind != event.Exec),
		CurrentFile:   snap.CurrentSrc,
		Percent:       pct,
		Indeterminate: indeterminate,
		Tally:         tallyOf(kind, snap),
		Elapsed:       stats.FormatElapsed(snap.Elapsed),
		Speed:         cur,
		Errors:        snap.Errors,
		Finished:      finished,
	}
	if kind.Transfers() || snap.BytesDone > 0 {
		d.SpeedCurrent = stats.FormatRate(cur)
		d.SpeedAverage = stats.FormatRate(avg)
		if !finished {
			d.ETACurrent = stats.FormatETA(etaCur, okCur)
			d.ETAAverage = stats.FormatETA(etaAvg, okAvg)
		}
	}

	switch {
	case snap.CurrentSrc != "":
		d.SrcDir = filepath.Dir(snap.CurrentSrc)
	case len(c.op.Sources()) > 0:
		d.SrcDir = filepath.Dir(c.op.Sources()[0])
	}
	switch {
	case snap.CurrentDst != "":
		d.DstDir = filepath.Dir(snap.CurrentDst)
	default:
		d.DstDir = c.op.Dest()
	}
	return d
}

// complete fires the completion callback once the operation has finished.
// It reports whether the task may be torn down now, which needs the final
// display to have been computed.
func (c *Controller) complete(keepVisible bool) bool {
	if !c.op.Finished() {
		return false
	}
	c.doneOnce.Do(func() {
		if c.onDone != nil {
			c.onDone(c, c.data)
		}
	})
	if c.lastState != event.Finish {
		return false
	}
	if c.acknowledged.Load() {
		return true
	}
	return !keepVisible && c.Errors() == 0
}
