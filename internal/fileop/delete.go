package fileop

import (
	"os"
	"path/filepath"
)

func (op *Operation) runDelete() {
	for _, src := range op.cfg.Sources {
		if !op.checkpoint() {
			return
		}
		if !op.removeTree(src) {
			return
		}
	}
}

// removeTree deletes path bottom-up. Every removed non-directory counts as
// one item.
func (op *Operation) removeTree(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return op.fail(path, "delete", err)
	}
	op.stats.SetCurrent(path, "")

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return op.fail(path, "read folder", err)
		}
		for _, e := range entries {
			if !op.checkpoint() {
				return false
			}
			if !op.removeTree(filepath.Join(path, e.Name())) {
				return false
			}
		}
		if err := os.Remove(path); err != nil {
			return op.fail(path, "delete", err)
		}
		return true
	}

	if err := os.Remove(path); err != nil {
		return op.fail(path, "delete", err)
	}
	if info.Mode().IsRegular() {
		op.stats.AddBytes(info.Size())
	}
	op.stats.AddItems(1)
	return true
}
