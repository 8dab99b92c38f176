package fileop

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/spacetask/internal/event"
)

func TestDeleteWithMissingFileContinues(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	gone := filepath.Join(dir, "gone")
	c := filepath.Join(dir, "c")
	writeFile(t, a, []byte("a"))
	writeFile(t, c, []byte("c"))

	rec := &recorder{}
	op := newOp(t, Config{Kind: event.Delete, Sources: []string{a, gone, c}}, rec)
	runToFinish(t, op)

	s := op.Stats().Snapshot()
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(2), s.ItemsDone)
	assert.Equal(t, 1, rec.seen(event.Error))
	assert.NoFileExists(t, a)
	assert.NoFileExists(t, c)
	require.ErrorIs(t, op.LastError(), fs.ErrNotExist)
}

func TestDeleteTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "tree")
	writeFile(t, filepath.Join(root, "a"), []byte("1"))
	writeFile(t, filepath.Join(root, "x", "y", "b"), []byte("22"))

	op := newOp(t, Config{Kind: event.Delete, Sources: []string{root}}, nil)
	runToFinish(t, op)

	s := op.Stats().Snapshot()
	assert.Zero(t, s.Errors)
	assert.Equal(t, int64(2), s.ItemsDone)
	assert.Equal(t, int64(2), s.ItemsTotal)
	assert.Equal(t, int64(3), s.BytesDone)
	assert.NoDirExists(t, root)
}
