package task

import (
	"fmt"
	"time"

	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/event"
	"github.com/bamsammich/spacetask/internal/stats"
)

// Status strings shown for a task.
const (
	StatusRunning  = "Running…"
	StatusPaused   = "Paused"
	StatusQueued   = "Queued"
	StatusStalled  = "Stalled"
	StatusDone     = "Done"
	StatusStopped  = "Stopped"
	statusErrorFmt = "Finished with %d error(s)"
)

// IndeterminatePercent is reported while the total size is unknown.
const IndeterminatePercent = 50

// Display is what a presenter gets for a task on every tick that saw a
// change.
type Display struct {
	ID            string
	Status        string
	CurrentFile   string
	SrcDir        string
	DstDir        string
	Tally         string
	SpeedCurrent  string
	SpeedAverage  string
	ETACurrent    string
	ETAAverage    string
	Elapsed       string
	Speed         float64 // current bytes/s
	Kind          event.Kind
	State         event.State
	ErrorMode     ErrorMode
	Percent       int
	Errors        int64
	Indeterminate bool
	Finished      bool
}

// Presenter is a replaceable presentation layer. All calls come from the
// poll loop.
type Presenter interface {
	// Update pushes a task's latest display data.
	Update(d Display)
	// Ask offers a conflict query. It must not block; the presenter
	// answers later through q.Respond. false means it cannot prompt.
	Ask(d Display, q *conflict.Query) bool
	// Remove drops a task that has been torn down.
	Remove(id string)
}

func statusOf(st event.State, snap stats.Snapshot, now time.Time, stallAfter time.Duration, finished, stopped, stallable bool) string {
	switch {
	case finished && stopped:
		return StatusStopped
	case finished && snap.Errors > 0:
		return fmt.Sprintf(statusErrorFmt, snap.Errors)
	case finished:
		return StatusDone
	case st == event.Paused:
		return StatusPaused
	case st == event.Queued:
		return StatusQueued
	case stallable && st == event.Running && stallAfter > 0 && now.Sub(snap.LastChange) >= stallAfter:
		return StatusStalled
	default:
		return StatusRunning
	}
}

func percentOf(snap stats.Snapshot, finished bool) (pct int, indeterminate bool) {
	switch {
	case !snap.SizeKnown && !finished:
		return IndeterminatePercent, true
	case snap.BytesTotal > 0:
		pct = int(snap.BytesDone * 100 / snap.BytesTotal)
	case snap.ItemsTotal > 0:
		pct = int(snap.ItemsDone * 100 / snap.ItemsTotal)
	case finished:
		pct = 100
	}
	return min(pct, 100), false
}

func tallyOf(kind event.Kind, snap stats.Snapshot) string {
	if kind.Transfers() || snap.BytesTotal > 0 {
		if !snap.SizeKnown {
			return fmt.Sprintf("%s (%d items)", stats.FormatBytes(snap.BytesDone), snap.ItemsDone)
		}
		return fmt.Sprintf("%s / %s (%d/%d)",
			stats.FormatBytes(snap.BytesDone), stats.FormatBytes(snap.BytesTotal),
			snap.ItemsDone, snap.ItemsTotal)
	}
	return fmt.Sprintf("%d / %d items", snap.ItemsDone, snap.ItemsTotal)
}
