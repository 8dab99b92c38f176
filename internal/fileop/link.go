package fileop

import (
	"errors"
	"os"
	"path/filepath"
)

func (op *Operation) runLink() {
	if !op.prepareDest() {
		return
	}
	for _, src := range op.cfg.Sources {
		if !op.checkpoint() {
			return
		}
		if !op.linkEntry(src) {
			return
		}
	}
}

// linkEntry creates a symlink in the destination directory pointing at the
// absolute path of src.
func (op *Operation) linkEntry(src string) bool {
	abs, err := filepath.Abs(src)
	if err != nil {
		return op.fail(src, "link", err)
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return op.fail(abs, "link", err)
	}

	dst := filepath.Join(op.cfg.Dest, filepath.Base(abs))
	op.stats.SetCurrent(abs, dst)
	dst, out := op.resolveDest(abs, dst, info)
	switch out {
	case stop:
		return false
	case skip:
		op.stats.AddItems(1)
		return true
	case merge:
		return op.fail(dst, "link", errors.New("a folder exists where the link goes"))
	case replace:
		if err := os.Remove(dst); err != nil {
			return op.fail(dst, "overwrite", err)
		}
	}

	if err := os.Symlink(abs, dst); err != nil {
		return op.fail(dst, "link", err)
	}
	op.stats.AddItems(1)
	return true
}
