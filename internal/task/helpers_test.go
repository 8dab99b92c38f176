package task

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/fileop"
)

var (
	execTrue  = fileop.ExecSpec{Command: "true"}
	execSleep = fileop.ExecSpec{Command: "sleep 30"}
)

// fakePresenter records what the poll loop pushes. ask decides whether it
// takes conflict queries.
type fakePresenter struct {
	mu      sync.Mutex
	updates []Display
	asked   []*conflict.Query
	removed []string
	ask     bool
}

func (p *fakePresenter) Update(d Display) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, d)
}

func (p *fakePresenter) Ask(_ Display, q *conflict.Query) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ask {
		return false
	}
	p.asked = append(p.asked, q)
	return true
}

func (p *fakePresenter) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = append(p.removed, id)
}

func (p *fakePresenter) lastUpdate() (Display, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.updates) == 0 {
		return Display{}, false
	}
	return p.updates[len(p.updates)-1], true
}

func (p *fakePresenter) query(i int) *conflict.Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= len(p.asked) {
		return nil
	}
	return p.asked[i]
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Tick = 5 * time.Millisecond
	opts.StatsInterval = time.Millisecond
	return opts
}

// tickUntil drives the poll loop by hand until cond holds.
func tickUntil(t *testing.T, m *Manager, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		m.Tick(time.Now())
		return cond()
	}, 15*time.Second, 2*time.Millisecond)
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// fiveFiles creates five files in a fresh directory and removes the
// second, returning all five paths.
func fiveFiles(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		p := filepath.Join(dir, name)
		if name != "b" {
			writeFile(t, p, []byte(name))
		}
		paths = append(paths, p)
	}
	return paths
}
