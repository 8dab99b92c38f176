package fileop

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bamsammich/spacetask/internal/platform"
)

func (op *Operation) runMove() {
	if !op.prepareDest() {
		return
	}
	for _, src := range op.cfg.Sources {
		if !op.checkpoint() {
			return
		}
		if !op.moveEntry(src, filepath.Join(op.cfg.Dest, filepath.Base(src))) {
			return
		}
	}
}

// moveEntry renames src to dst. A rename that fails across devices turns
// into a copy followed by removal of the source.
func (op *Operation) moveEntry(src, dst string) bool {
	info, err := os.Lstat(src)
	if err != nil {
		return op.fail(src, "move", err)
	}
	if info.IsDir() && dst != src && within(dst, src) {
		return op.fail(src, "move", errors.New("cannot move a folder into itself"))
	}

	op.stats.SetCurrent(src, dst)
	dst, out := op.resolveDest(src, dst, info)
	switch out {
	case stop:
		return false
	case skip:
		op.skipTree(src)
		return true
	case merge:
		return op.mergeDir(src, dst)
	}

	t := tally{items: 1}
	switch {
	case info.IsDir():
		t, _ = op.measure(src, false, time.Time{})
	case info.Mode().IsRegular():
		t.bytes = info.Size()
	}

	err = op.rename(src, dst)
	if err == nil {
		op.stats.AddBytes(t.bytes)
		op.stats.AddItems(t.items)
		return true
	}
	if !platform.IsCrossDevice(err) {
		return op.fail(src, "move", err)
	}

	slog.Debug("cross-device move, copying instead", "src", src, "dst", dst)
	return op.moveAcross(src, dst, info, out)
}

// moveAcross copies src to dst and removes src only if every item of it
// copied cleanly.
func (op *Operation) moveAcross(src, dst string, info os.FileInfo, out outcome) bool {
	before := op.stats.Snapshot().Errors
	if !op.copyResolved(src, dst, info, out) {
		return false
	}
	if op.stats.Snapshot().Errors != before {
		return true
	}
	if err := os.RemoveAll(src); err != nil {
		return op.fail(src, "remove source", err)
	}
	return true
}

// mergeDir moves the children of src into the existing directory dst, then
// drops src if nothing was left behind.
func (op *Operation) mergeDir(src, dst string) bool {
	entries, err := os.ReadDir(src)
	if err != nil {
		return op.fail(src, "read folder", err)
	}
	for _, e := range entries {
		if !op.checkpoint() {
			return false
		}
		if !op.moveEntry(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())) {
			return false
		}
	}
	if err := os.Remove(src); err != nil && !errors.Is(err, unix.ENOTEMPTY) && !errors.Is(err, unix.EEXIST) {
		return op.fail(src, "remove source", err)
	}
	return true
}
