package fileop

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/event"
)

// recorder collects callback invocations and answers queries and errors
// the way a test configures it.
type recorder struct {
	answer  func(q *conflict.Query)
	mu      sync.Mutex
	states  []event.State
	queries []*conflict.Query
	stopErr bool
}

func (r *recorder) callback(s event.State, q *conflict.Query) bool {
	r.mu.Lock()
	r.states = append(r.states, s)
	if q != nil {
		r.queries = append(r.queries, q)
	}
	answer, stopErr := r.answer, r.stopErr
	r.mu.Unlock()

	switch s {
	case event.QueryOverwrite:
		if answer != nil {
			answer(q)
		}
	case event.Error:
		return !stopErr
	}
	return true
}

func (r *recorder) seen(s event.State) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.states {
		if got == s {
			n++
		}
	}
	return n
}

func (r *recorder) query(i int) *conflict.Query {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= len(r.queries) {
		return nil
	}
	return r.queries[i]
}

func (r *recorder) last() event.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return 0
	}
	return r.states[len(r.states)-1]
}

func newOp(t *testing.T, cfg Config, rec *recorder) *Operation {
	t.Helper()
	if rec != nil {
		cfg.Callback = rec.callback
	}
	op, err := New(cfg)
	require.NoError(t, err)
	return op
}

func runToFinish(t *testing.T, op *Operation) {
	t.Helper()
	op.Start()
	waitFinish(t, op)
}

func waitFinish(t *testing.T, op *Operation) {
	t.Helper()
	select {
	case <-op.Done():
	case <-time.After(15 * time.Second):
		t.Fatal("operation did not finish")
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// pattern returns n bytes that differ by seed, so misplaced data shows up
// in comparisons.
func pattern(n int, seed byte) []byte {
	b := bytes.Repeat([]byte{seed, seed + 1, seed + 2, 0xA5}, n/4+1)
	return b[:n]
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
