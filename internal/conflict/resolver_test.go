package conflict

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o644))
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name     string
		dir      bool
		wantStem string
		wantExt  string
	}{
		{"foo.txt", false, "foo", ".txt"},
		{"archive.tar.gz", false, "archive.tar", ".gz"},
		{".bashrc", false, ".bashrc", ""},
		{"README", false, "README", ""},
		{"trailing.", false, "trailing.", ""},
		{"photos.2024", true, "photos.2024", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stem, ext := SplitName(tt.name, tt.dir)
			assert.Equal(t, tt.wantStem, stem)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestUniqueNameIncrementsPerDirectory(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "foo.txt"))

	r := NewResolver()
	var got []string
	for range 3 {
		name := r.UniqueName(filepath.Join(dir, "foo.txt"))
		touch(t, name)
		got = append(got, filepath.Base(name))
	}
	assert.Equal(t, []string{"foo-copy2.txt", "foo-copy3.txt", "foo-copy4.txt"}, got)
}

func TestUniqueNameNeverRestarts(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "foo.txt"))

	r := NewResolver()
	first := r.UniqueName(filepath.Join(dir, "foo.txt"))
	// The first candidate was never created; the counter still moves on.
	second := r.UniqueName(filepath.Join(dir, "foo.txt"))
	assert.Equal(t, "foo-copy2.txt", filepath.Base(first))
	assert.Equal(t, "foo-copy3.txt", filepath.Base(second))
}

func TestUniqueNameSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "foo.txt"))
	touch(t, filepath.Join(dir, "foo-copy2.txt"))
	touch(t, filepath.Join(dir, "foo-copy3.txt"))

	r := NewResolver()
	assert.Equal(t, "foo-copy4.txt", filepath.Base(r.UniqueName(filepath.Join(dir, "foo.txt"))))
}

func TestUniqueNameStripsCopySuffix(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "foo-copy2.txt"))

	r := NewResolver()
	got := r.UniqueName(filepath.Join(dir, "foo-copy2.txt"))
	assert.Equal(t, "foo-copy3.txt", filepath.Base(got))
}

func TestUniqueNameDirectoriesKeepDots(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "v1.2"), 0o755))

	r := NewResolver()
	assert.Equal(t, "v1.2-copy2", filepath.Base(r.UniqueName(filepath.Join(dir, "v1.2"))))
}

func TestUniqueNameSeparateDirectories(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	touch(t, filepath.Join(a, "x.md"))
	touch(t, filepath.Join(b, "x.md"))

	r := NewResolver()
	assert.Equal(t, "x-copy2.md", filepath.Base(r.UniqueName(filepath.Join(a, "x.md"))))
	assert.Equal(t, "x-copy2.md", filepath.Base(r.UniqueName(filepath.Join(b, "x.md"))))
}

func TestAuto(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.txt")
	touch(t, dst)
	r := NewResolver()

	res, ok := r.Auto(OverwriteAll, dst)
	require.True(t, ok)
	assert.Equal(t, ActionOverwrite, res.Action)

	res, ok = r.Auto(Overwrite, dst)
	require.True(t, ok)
	assert.Equal(t, ActionOverwrite, res.Action)

	res, ok = r.Auto(SkipAll, dst)
	require.True(t, ok)
	assert.Equal(t, ActionSkip, res.Action)

	res, ok = r.Auto(AutoRenameAll, dst)
	require.True(t, ok)
	assert.Equal(t, ActionRename, res.Action)
	assert.Equal(t, filepath.Join(dir, "a-copy2.txt"), res.Dest)

	_, ok = r.Auto(Ask, dst)
	assert.False(t, ok)
}

func TestDecide(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.txt")
	dst := filepath.Join(dir, "dst", "a.txt")
	touch(t, src)
	touch(t, dst)

	r := NewResolver()
	q := r.NewQuery(src, dst)
	assert.Equal(t, filepath.Join(dir, "dst", "a-copy2.txt"), q.Candidate)

	res, err := r.Decide(q, Answer{Decision: AutoRenameOnce})
	require.NoError(t, err)
	assert.Equal(t, q.Candidate, res.Dest)

	res, err = r.Decide(q, Answer{Decision: RenameTo, Name: "b.txt"})
	require.NoError(t, err)
	assert.Equal(t, ActionRename, res.Action)
	assert.Equal(t, filepath.Join(dir, "dst", "b.txt"), res.Dest)

	_, err = r.Decide(q, Answer{Decision: RenameTo, Name: "../escape"})
	require.Error(t, err)
	_, err = r.Decide(q, Answer{Decision: RenameTo, Name: "  "})
	require.Error(t, err)

	res, err = r.Decide(q, Answer{Decision: Pause})
	require.NoError(t, err)
	assert.Equal(t, ActionPause, res.Action)

	res, err = r.Decide(q, Answer{Decision: Cancel})
	require.NoError(t, err)
	assert.Equal(t, ActionCancel, res.Action)
}

func TestDecideRefreshesTakenCandidate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.txt")
	dst := filepath.Join(dir, "dst", "a.txt")
	touch(t, src)
	touch(t, dst)

	r := NewResolver()
	q := r.NewQuery(src, dst)
	touch(t, q.Candidate)

	res, err := r.Decide(q, Answer{Decision: AutoRenameAllDecision})
	require.NoError(t, err)
	assert.NotEqual(t, q.Candidate, res.Dest)
	assert.NoFileExists(t, res.Dest)
}

func TestQueryCandidateTakenOnlyOnAutoRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.txt")
	dst := filepath.Join(dir, "dst", "a.txt")
	touch(t, src)
	touch(t, dst)
	want := filepath.Join(dir, "dst", "a-copy2.txt")

	r := NewResolver()
	q := r.NewQuery(src, dst)
	require.Equal(t, want, q.Candidate)
	_, err := r.Decide(q, Answer{Decision: SkipOnce})
	require.NoError(t, err)

	// Re-offering after skip or pause offers the same name again.
	q = r.NewQuery(src, dst)
	require.Equal(t, want, q.Candidate)
	_, err = r.Decide(q, Answer{Decision: Pause})
	require.NoError(t, err)
	q = r.NewQuery(src, dst)
	require.Equal(t, want, q.Candidate)

	res, err := r.Decide(q, Answer{Decision: AutoRenameOnce})
	require.NoError(t, err)
	assert.Equal(t, want, res.Dest)

	// The number is taken even before the renamed file is written.
	assert.Equal(t, filepath.Join(dir, "dst", "a-copy3.txt"), r.NewQuery(src, dst).Candidate)
	assert.Equal(t, filepath.Join(dir, "dst", "a-copy3.txt"), r.UniqueName(dst))
}

func TestDecisionSticky(t *testing.T) {
	m, ok := OverwriteAllDecision.Sticky()
	assert.True(t, ok)
	assert.Equal(t, OverwriteAll, m)

	m, ok = SkipAllDecision.Sticky()
	assert.True(t, ok)
	assert.Equal(t, SkipAll, m)

	m, ok = AutoRenameAllDecision.Sticky()
	assert.True(t, ok)
	assert.Equal(t, AutoRenameAll, m)

	for _, d := range []Decision{OverwriteOnce, SkipOnce, RenameTo, AutoRenameOnce, Pause, Cancel} {
		_, ok := d.Sticky()
		assert.False(t, ok, d.String())
	}
}

func TestParseMode(t *testing.T) {
	for m := Ask; m <= AutoRenameAll; m++ {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("clobber")
	require.Error(t, err)
}
