package fileop

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/event"
)

// outcome is what the worker does with a destination after collision
// handling.
type outcome int

const (
	proceed outcome = iota // destination is free
	replace                // destination exists and is overwritten
	merge                  // directory into an existing directory
	skip
	stop
)

// resolveDest checks dst for a collision and settles it through the
// overwrite mode, raising a query when the mode is Ask. The returned path
// may differ from dst after a rename.
func (op *Operation) resolveDest(src, dst string, srcInfo os.FileInfo) (string, outcome) {
	for {
		dstInfo, err := os.Lstat(dst)
		if errors.Is(err, fs.ErrNotExist) {
			return dst, proceed
		}
		if err != nil {
			if op.fail(dst, "stat", err) {
				return dst, skip
			}
			return dst, stop
		}

		same := os.SameFile(srcInfo, dstInfo)
		if same && op.cfg.Kind != event.Copy {
			return dst, skip
		}

		res, ok := op.resolver.Auto(op.OverwriteMode(), dst)
		if !ok {
			if res, ok = op.ask(src, dst); !ok {
				return dst, stop
			}
		}

		switch res.Action {
		case conflict.ActionOverwrite:
			switch {
			case same:
				// A file cannot replace itself; give the copy a new name.
				dst = op.resolver.UniqueName(dst)
				continue
			case srcInfo.IsDir() && dstInfo.IsDir():
				return dst, merge
			case dstInfo.IsDir():
				return dst, op.failOutcome(dst, errors.New("a folder exists where a file goes"))
			case srcInfo.IsDir():
				return dst, op.failOutcome(dst, errors.New("a file exists where a folder goes"))
			}
			return dst, replace
		case conflict.ActionSkip:
			return dst, skip
		case conflict.ActionRename:
			dst = res.Dest
		case conflict.ActionPause:
			op.Pause(event.Paused)
			if !op.checkpoint() {
				return dst, stop
			}
		default:
			op.Abort()
			return dst, stop
		}
	}
}

func (op *Operation) failOutcome(path string, err error) outcome {
	if op.fail(path, "overwrite", err) {
		return skip
	}
	return stop
}

// ask suspends the worker on a Query until someone answers it or the
// operation is aborted.
func (op *Operation) ask(src, dst string) (conflict.Resolution, bool) {
	q := op.resolver.NewQuery(src, dst)
	op.setState(event.QueryOverwrite)
	if !op.emit(event.QueryOverwrite, q) {
		op.Abort()
		return conflict.Resolution{}, false
	}

	a := q.Wait(op.ctx)
	op.mu.Lock()
	if op.state == event.QueryOverwrite {
		op.state = event.Running
	}
	op.mu.Unlock()

	if err := a.Err(); err != nil {
		slog.Debug("conflict query cancelled", "dst", dst, "error", err)
		op.Abort()
		return conflict.Resolution{}, false
	}
	if m, ok := a.Decision.Sticky(); ok {
		_ = op.SetOverwriteMode(m)
	}
	// A pause requested while the query was open takes effect before the
	// answer is acted on.
	if a.Decision != conflict.Pause && a.Decision != conflict.Cancel && !op.checkpoint() {
		return conflict.Resolution{}, false
	}
	res, err := op.resolver.Decide(q, a)
	if err != nil {
		if !op.fail(dst, "rename", err) {
			return conflict.Resolution{}, false
		}
		return conflict.Resolution{Action: conflict.ActionSkip}, true
	}
	return res, true
}
