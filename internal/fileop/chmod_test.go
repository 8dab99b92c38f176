package fileop

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/spacetask/internal/event"
)

func TestParseChmodActions(t *testing.T) {
	tests := []struct {
		spec string
		want map[int]PermAction
	}{
		{"u+x", map[int]PermAction{OwnerExec: Set}},
		{"go-w", map[int]PermAction{GroupWrite: Unset, OtherWrite: Unset}},
		{"a^r", map[int]PermAction{OwnerRead: Toggle, GroupRead: Toggle, OtherRead: Toggle}},
		{"+x", map[int]PermAction{OwnerExec: Set, GroupExec: Set, OtherExec: Set}},
		{"u+s,g-s,+t", map[int]PermAction{Setuid: Set, Setgid: Unset, Sticky: Set}},
		{"u+rw,o-rwx", map[int]PermAction{
			OwnerRead: Set, OwnerWrite: Set,
			OtherRead: Unset, OtherWrite: Unset, OtherExec: Unset,
		}},
		{"u+x,g-w,o=r", map[int]PermAction{
			OwnerExec: Set, GroupWrite: Unset,
			OtherRead: Set, OtherWrite: Unset, OtherExec: Unset,
		}},
		{"go=rx", map[int]PermAction{
			GroupRead: Set, GroupWrite: Unset, GroupExec: Set,
			OtherRead: Set, OtherWrite: Unset, OtherExec: Set,
		}},
		{"o=", map[int]PermAction{OtherRead: Unset, OtherWrite: Unset, OtherExec: Unset}},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseChmodActions(tt.spec)
			require.NoError(t, err)
			var want ChmodActions
			for slot, act := range tt.want {
				want[slot] = act
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestParseChmodActionsErrors(t *testing.T) {
	for _, spec := range []string{"", "u", "x+r", "u+q", "u+", "x=r", "u=q"} {
		_, err := ParseChmodActions(spec)
		assert.Error(t, err, spec)
	}
}

func TestChmodActionsApply(t *testing.T) {
	a := ChmodActions{OwnerExec: Set, GroupWrite: Unset, OtherRead: Toggle, Sticky: Set}
	assert.Equal(t, uint32(0o1740), a.Apply(0o664))
	assert.True(t, ChmodActions{}.Empty())
	assert.False(t, a.Empty())
}

func TestChmodRecursive(t *testing.T) {
	root := filepath.Join(t.TempDir(), "tree")
	writeFile(t, filepath.Join(root, "a"), []byte("a"))
	writeFile(t, filepath.Join(root, "sub", "b"), []byte("b"))

	actions, err := ParseChmodActions("u+x,o-r")
	require.NoError(t, err)
	op := newOp(t, Config{Kind: event.ChmodChown, Sources: []string{root}, Chmod: &actions, Recursive: true}, nil)
	runToFinish(t, op)

	s := op.Stats().Snapshot()
	assert.Zero(t, s.Errors)
	assert.Equal(t, int64(4), s.ItemsDone)
	assert.Equal(t, int64(4), s.ItemsTotal)

	info, err := os.Stat(filepath.Join(root, "sub", "b"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o740), info.Mode().Perm())
}

func TestChmodNonRecursiveTouchesOnlyRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "tree")
	writeFile(t, filepath.Join(root, "a"), []byte("a"))
	require.NoError(t, os.Chmod(root, 0o755))

	op := newOp(t, Config{Kind: event.ChmodChown, Sources: []string{root}, Chmod: &ChmodActions{GroupExec: Unset}}, nil)
	runToFinish(t, op)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o745), info.Mode().Perm())
	fileInfo, err := os.Stat(filepath.Join(root, "a"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), fileInfo.Mode().Perm())
	assert.Equal(t, int64(1), op.Stats().Snapshot().ItemsTotal)
}

func TestChownToSelfIsAllowed(t *testing.T) {
	f := filepath.Join(t.TempDir(), "f")
	writeFile(t, f, []byte("x"))

	op := newOp(t, Config{Kind: event.ChmodChown, Sources: []string{f}, Chown: &Owner{UID: os.Getuid(), GID: -1}}, nil)
	runToFinish(t, op)
	assert.Zero(t, op.Stats().Snapshot().Errors)
}

func TestChmodWithoutChangesIsSetupError(t *testing.T) {
	f := filepath.Join(t.TempDir(), "f")
	writeFile(t, f, []byte("x"))

	op := newOp(t, Config{Kind: event.ChmodChown, Sources: []string{f}}, nil)
	runToFinish(t, op)
	s := op.Stats().Snapshot()
	assert.Equal(t, int64(1), s.Errors)
	assert.Zero(t, s.ItemsDone)
}
