package fileop

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/platform"
)

const trashInfoExt = ".trashinfo"

// TrashDir returns the freedesktop.org home trash directory.
func TrashDir() (string, error) {
	data := os.Getenv("XDG_DATA_HOME")
	if data == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locate trash: %w", err)
		}
		data = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(data, "Trash"), nil
}

func (op *Operation) runTrash() {
	root := op.cfg.TrashDir
	if root == "" {
		var err error
		if root, err = TrashDir(); err != nil {
			op.fail("", "trash", err)
			return
		}
	}
	filesDir := filepath.Join(root, "files")
	infoDir := filepath.Join(root, "info")
	for _, d := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			op.fail(d, "open trash", err)
			return
		}
	}

	for _, src := range op.cfg.Sources {
		if !op.checkpoint() {
			return
		}
		if !op.trashEntry(src, filesDir, infoDir) {
			return
		}
	}
}

func (op *Operation) trashEntry(src, filesDir, infoDir string) bool {
	abs, err := filepath.Abs(src)
	if err != nil {
		return op.fail(src, "trash", err)
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return op.fail(abs, "trash", err)
	}

	name, infoPath, err := reserveTrashName(filesDir, infoDir, abs, time.Now())
	if err != nil {
		return op.fail(abs, "trash", err)
	}
	dst := filepath.Join(filesDir, name)
	op.stats.SetCurrent(abs, dst)

	err = op.rename(abs, dst)
	if platform.IsCrossDevice(err) {
		before := op.stats.Snapshot().Errors
		if !op.copyResolved(abs, dst, info, proceed) || op.stats.Snapshot().Errors != before {
			_ = os.RemoveAll(dst)
			_ = os.Remove(infoPath)
			return !op.isAborted()
		}
		err = os.RemoveAll(abs)
	}
	if err != nil {
		_ = os.Remove(infoPath)
		return op.fail(abs, "trash", err)
	}
	op.stats.AddItems(1)
	return true
}

// reserveTrashName claims a free name in the trash by creating its
// .trashinfo record exclusively. Later claims of the same base name get a
// numbered stem.
func reserveTrashName(filesDir, infoDir, abs string, when time.Time) (string, string, error) {
	base := filepath.Base(abs)
	stem, ext := conflict.SplitName(base, false)
	record := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		(&url.URL{Path: abs}).EscapedPath(), when.Format("2006-01-02T15:04:05"))

	for n := 1; ; n++ {
		name := base
		if n > 1 {
			name = stem + "." + strconv.Itoa(n) + ext
		}
		if _, err := os.Lstat(filepath.Join(filesDir, name)); err == nil {
			continue
		}
		infoPath := filepath.Join(infoDir, name+trashInfoExt)
		f, err := os.OpenFile(infoPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("create %s: %w", infoPath, err)
		}
		_, werr := f.WriteString(record)
		cerr := f.Close()
		if err := errors.Join(werr, cerr); err != nil {
			_ = os.Remove(infoPath)
			return "", "", fmt.Errorf("write %s: %w", infoPath, err)
		}
		return name, infoPath, nil
	}
}
