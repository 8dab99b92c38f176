package fileop

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/event"
)

func TestLinkCreatesAbsoluteSymlinks(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	writeFile(t, a, []byte("a"))
	dst := filepath.Join(dir, "links")

	op := newOp(t, Config{Kind: event.Link, Sources: []string{a}, Dest: dst}, nil)
	runToFinish(t, op)

	target, err := os.Readlink(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, a, target)
	s := op.Stats().Snapshot()
	assert.Equal(t, int64(1), s.ItemsDone)
	assert.Equal(t, int64(1), s.ItemsTotal)
}

func TestLinkCollisionAutoRename(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "src", "a.txt")
	writeFile(t, a, []byte("a"))
	dst := filepath.Join(dir, "links")
	writeFile(t, filepath.Join(dst, "a.txt"), []byte("occupied"))

	op := newOp(t, Config{Kind: event.Link, Sources: []string{a}, Dest: dst, Overwrite: conflict.AutoRename}, nil)
	runToFinish(t, op)

	target, err := os.Readlink(filepath.Join(dst, "a-copy2.txt"))
	require.NoError(t, err)
	assert.Equal(t, a, target)
	assert.Equal(t, []byte("occupied"), readFile(t, filepath.Join(dst, "a.txt")))
}

func TestLinkOverwriteReplacesFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "src", "a.txt")
	writeFile(t, a, []byte("a"))
	dst := filepath.Join(dir, "links")
	writeFile(t, filepath.Join(dst, "a.txt"), []byte("occupied"))

	op := newOp(t, Config{Kind: event.Link, Sources: []string{a}, Dest: dst, Overwrite: conflict.Overwrite}, nil)
	runToFinish(t, op)

	info, err := os.Lstat(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)
}
