package fileop

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bamsammich/spacetask/internal/platform"
)

func (op *Operation) runCopy() {
	if !op.prepareDest() {
		return
	}
	for _, src := range op.cfg.Sources {
		if !op.checkpoint() {
			return
		}
		if !op.copyEntry(src, filepath.Join(op.cfg.Dest, filepath.Base(src))) {
			return
		}
	}
}

// copyEntry copies src to dst after settling any collision at dst. It
// returns false when the operation must stop.
func (op *Operation) copyEntry(src, dst string) bool {
	info, err := os.Lstat(src)
	if err != nil {
		return op.fail(src, "copy", err)
	}
	if info.IsDir() && dst != src && within(dst, src) {
		return op.fail(src, "copy", errors.New("cannot copy a folder into itself"))
	}

	op.stats.SetCurrent(src, dst)
	dst, out := op.resolveDest(src, dst, info)
	switch out {
	case stop:
		return false
	case skip:
		op.skipTree(src)
		return true
	}
	return op.copyResolved(src, dst, info, out)
}

// copyResolved copies src to a destination whose collision is already
// settled.
func (op *Operation) copyResolved(src, dst string, info os.FileInfo, out outcome) bool {
	op.stats.SetCurrent(src, dst)
	switch {
	case info.IsDir():
		return op.copyDir(src, dst, info, out == merge)
	case info.Mode()&os.ModeSymlink != 0:
		return op.copySymlink(src, dst, out == replace)
	case info.Mode().IsRegular():
		if err := op.copyFile(src, dst, info); err != nil {
			return op.fail(src, "copy", err)
		}
		op.stats.AddItems(1)
		return true
	default:
		return op.fail(src, "copy", fmt.Errorf("unsupported file type %s", info.Mode().Type()))
	}
}

func (op *Operation) copyDir(src, dst string, info os.FileInfo, merge bool) bool {
	if !merge {
		// Owner rwx while children are written; the real mode is set last.
		if err := os.Mkdir(dst, info.Mode().Perm()|0o700); err != nil {
			return op.fail(dst, "mkdir", err)
		}
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return op.fail(src, "read folder", err)
	}
	for _, e := range entries {
		if !op.checkpoint() {
			return false
		}
		if !op.copyEntry(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())) {
			return false
		}
	}

	if err := setPathMetadata(dst, info); err != nil {
		return op.fail(dst, "set metadata", err)
	}
	return true
}

func (op *Operation) copySymlink(src, dst string, replace bool) bool {
	target, err := os.Readlink(src)
	if err != nil {
		return op.fail(src, "read link", err)
	}
	if replace {
		if err := os.Remove(dst); err != nil {
			return op.fail(dst, "overwrite", err)
		}
	}
	if err := os.Symlink(target, dst); err != nil {
		return op.fail(dst, "symlink", err)
	}
	op.stats.AddItems(1)
	return true
}

// copyFile writes src into a hidden tmp file next to dst and renames it into
// place, so dst is never seen half written.
func (op *Operation) copyFile(src, dst string, info os.FileInfo) error {
	tmpPath := filepath.Join(filepath.Dir(dst), tmpName(filepath.Base(dst)))

	registerTmp(tmpPath)
	defer func() {
		deregisterTmp(tmpPath)
		_ = os.Remove(tmpPath) // no-op if rename succeeded
	}()

	tmpFd, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create tmp %s: %w", tmpPath, err)
	}

	if info.Size() > 0 {
		_, err = platform.CopyFile(platform.CopyFileParams{
			SrcPath:   src,
			DstFd:     tmpFd,
			SrcSize:   info.Size(),
			ChunkSize: op.chunkSize(),
			OnChunk:   op.onChunk,
		})
		if err != nil {
			tmpFd.Close()
			return fmt.Errorf("copy data %s: %w", src, err)
		}
	}

	if err := unix.Fchmod(int(tmpFd.Fd()), rawMode(info)); err != nil { //nolint:gosec // G115: fd fits in int
		tmpFd.Close()
		return fmt.Errorf("fchmod %s: %w", tmpPath, err)
	}
	if err := tmpFd.Close(); err != nil {
		return fmt.Errorf("close tmp %s: %w", tmpPath, err)
	}
	if err := setTimes(tmpPath, info.ModTime()); err != nil {
		return err
	}

	if op.cfg.Verify {
		if err := verifyCopy(src, tmpPath); err != nil {
			return err
		}
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpPath, dst, err)
	}
	return nil
}

// skipTree accounts a skipped source as processed so progress still reaches
// its total.
func (op *Operation) skipTree(src string) {
	t, _ := op.measure(src, false, time.Time{})
	op.stats.AddBytes(t.bytes)
	op.stats.AddItems(t.items)
}

// rawMode returns the permission bits including setuid, setgid and sticky.
func rawMode(info os.FileInfo) uint32 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint32(st.Mode) & 0o7777
	}
	return uint32(info.Mode().Perm())
}

// setTimes copies the modification time and leaves the access time alone.
func setTimes(path string, mtime time.Time) error {
	times := []unix.Timespec{
		{Nsec: unix.UTIME_OMIT},
		unix.NsecToTimespec(mtime.UnixNano()),
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, times, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return fmt.Errorf("utimensat %s: %w", path, err)
	}
	return nil
}

func setPathMetadata(path string, info os.FileInfo) error {
	if err := unix.Chmod(path, rawMode(info)); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return setTimes(path, info.ModTime())
}
