// Package fileop runs one filesystem mutation job per Operation on its own
// goroutine, with cooperative pause, monotonic abort and counters shared
// with the poll loop through a stats.Collector.
package fileop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/event"
	"github.com/bamsammich/spacetask/internal/stats"
)

// Default timing values, used when Config leaves them zero.
const (
	DefaultSizeTimeout = 5 * time.Second
	DefaultExecGrace   = 5 * time.Second
)

// Callback receives every state transition from the worker goroutine. q is
// set only for event.QueryOverwrite. The return value matters for Error and
// QueryOverwrite: false aborts the operation.
type Callback func(state event.State, q *conflict.Query) bool

// Owner is a chown target. -1 leaves the id unchanged.
type Owner struct {
	UID int
	GID int
}

// ExecSpec describes a command run by an Exec operation.
type ExecSpec struct {
	Command string
	Dir     string
	Shell   string
	Env     []string
}

// Config is the immutable part of an Operation plus the initial values of
// its setters. Output receives exec output and per-item error lines from
// more than one goroutine and must be safe for concurrent use.
type Config struct {
	Output         io.Writer
	Callback       Callback
	Resolver       *conflict.Resolver
	Exec           *ExecSpec
	Chmod          *ChmodActions
	Chown          *Owner
	Dest           string
	TrashDir       string
	Sources        []string
	Kind           event.Kind
	Initial        event.State
	Overwrite      conflict.Mode
	SizeTimeout    time.Duration
	ExecGrace      time.Duration
	BandwidthLimit int64
	ChunkSize      int64
	Recursive      bool
	Verify         bool
}

// Operation is one filesystem job. The worker goroutine owns the walk; the
// poll loop talks to it only through the exported methods, which are safe
// for concurrent use.
type Operation struct {
	cfg      Config
	stats    *stats.Collector
	resolver *conflict.Resolver
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	rename   func(oldpath, newpath string) error
	limiter  *rate.Limiter

	mu        sync.Mutex
	cond      *sync.Cond
	state     event.State
	request   event.State
	overwrite conflict.Mode
	lastErr   error
	started   bool
	aborted   bool
	finished  bool

	exec execState
}

// New validates cfg and creates an Operation in cfg.Initial (Running when
// unset). Nothing runs until Start.
func New(cfg Config) (*Operation, error) {
	if len(cfg.Sources) == 0 && cfg.Kind != event.Exec {
		return nil, errors.New("no source paths")
	}
	switch cfg.Kind {
	case event.Copy, event.Move, event.Link:
		if cfg.Dest == "" {
			return nil, fmt.Errorf("%s needs a destination directory", cfg.Kind)
		}
	case event.Exec:
		if cfg.Exec == nil || cfg.Exec.Command == "" {
			return nil, errors.New("exec needs a command")
		}
	case event.Delete, event.Trash, event.ChmodChown:
	default:
		return nil, fmt.Errorf("unknown operation kind %d", cfg.Kind)
	}
	if cfg.Initial != event.Queued && cfg.Initial != event.Paused {
		cfg.Initial = event.Running
	}
	if cfg.SizeTimeout <= 0 {
		cfg.SizeTimeout = DefaultSizeTimeout
	}
	if cfg.ExecGrace <= 0 {
		cfg.ExecGrace = DefaultExecGrace
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	if cfg.Resolver == nil {
		cfg.Resolver = conflict.NewResolver()
	}

	ctx, cancel := context.WithCancel(context.Background())
	op := &Operation{
		cfg:       cfg,
		stats:     stats.NewCollector(),
		resolver:  cfg.Resolver,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		rename:    os.Rename,
		state:     cfg.Initial,
		request:   cfg.Initial,
		overwrite: cfg.Overwrite,
	}
	if cfg.BandwidthLimit > 0 {
		op.limiter = NewBWLimiter(cfg.BandwidthLimit)
	}
	op.cond = sync.NewCond(&op.mu)
	return op, nil
}

// Kind returns the operation kind.
func (op *Operation) Kind() event.Kind { return op.cfg.Kind }

// Sources returns the source paths in submission order.
func (op *Operation) Sources() []string { return op.cfg.Sources }

// Dest returns the destination directory, if any.
func (op *Operation) Dest() string { return op.cfg.Dest }

// Stats exposes the shared counters.
func (op *Operation) Stats() *stats.Collector { return op.stats }

// Done is closed once the worker has returned.
func (op *Operation) Done() <-chan struct{} { return op.done }

// Wait blocks until the worker has returned.
func (op *Operation) Wait() { <-op.done }

// State returns the current pause-state.
func (op *Operation) State() event.State {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state
}

// Started reports whether Start has been called.
func (op *Operation) Started() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.started
}

// Aborted reports whether Abort has been called.
func (op *Operation) Aborted() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.aborted
}

// Finished reports whether the worker reached Finish.
func (op *Operation) Finished() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.finished
}

// LastError returns the most recent per-item error.
func (op *Operation) LastError() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.lastErr
}

// OverwriteMode returns the current overwrite policy.
func (op *Operation) OverwriteMode() conflict.Mode {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.overwrite
}

// SetOverwriteMode changes the overwrite policy. It is allowed at any time
// before Finish, including while a query is pending.
func (op *Operation) SetOverwriteMode(m conflict.Mode) error {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.finished {
		return ErrFinished
	}
	op.overwrite = m
	return nil
}

// SetChmodActions replaces the permission actions of a ChmodChown operation.
func (op *Operation) SetChmodActions(a ChmodActions) error {
	return op.configure(func() { op.cfg.Chmod = &a })
}

// SetChown sets the owner ids of a ChmodChown operation.
func (op *Operation) SetChown(uid, gid int) error {
	return op.configure(func() { op.cfg.Chown = &Owner{UID: uid, GID: gid} })
}

// SetRecursive controls whether ChmodChown descends into directories.
func (op *Operation) SetRecursive(r bool) error {
	return op.configure(func() { op.cfg.Recursive = r })
}

// SetCallback replaces the state callback.
func (op *Operation) SetCallback(cb Callback) error {
	return op.configure(func() { op.cfg.Callback = cb })
}

func (op *Operation) configure(apply func()) error {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.finished {
		return ErrFinished
	}
	if op.started {
		return ErrAlreadyStarted
	}
	apply()
	return nil
}

// Start launches the worker goroutine. A second call is a no-op.
func (op *Operation) Start() {
	op.mu.Lock()
	if op.started {
		op.mu.Unlock()
		return
	}
	op.started = true
	op.mu.Unlock()

	go op.run()
}

// Pause asks the worker to suspend in state, which must be Paused or
// Queued. Data operations stop at their next check-point; exec operations
// have their process group stopped right away.
func (op *Operation) Pause(state event.State) {
	if !state.Suspended() {
		state = event.Paused
	}
	op.mu.Lock()
	if op.finished || op.aborted {
		op.mu.Unlock()
		return
	}
	op.request = state
	// A worker waiting on a query pauses once the query is answered.
	if op.state != event.QueryOverwrite {
		op.state = state
	}
	op.mu.Unlock()

	if op.cfg.Kind == event.Exec {
		op.stopProcess()
	}
}

// Resume releases a paused or queued worker. It is a no-op when running.
func (op *Operation) Resume() {
	op.mu.Lock()
	if op.finished || !op.request.Suspended() {
		op.mu.Unlock()
		return
	}
	op.request = event.Running
	if op.state.Suspended() {
		op.state = event.Running
	}
	op.cond.Broadcast()
	op.mu.Unlock()

	if op.cfg.Kind == event.Exec {
		op.continueProcess()
	}
}

// Abort sets the abort flag. It is idempotent; only the first call has an
// effect.
func (op *Operation) Abort() {
	op.mu.Lock()
	if op.aborted {
		op.mu.Unlock()
		return
	}
	op.aborted = true
	op.cond.Broadcast()
	op.mu.Unlock()

	op.cancel()
	if op.cfg.Kind == event.Exec {
		op.terminateProcess()
	}
}

func (op *Operation) setState(s event.State) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if !op.finished {
		op.state = s
	}
}

func (op *Operation) isAborted() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.aborted
}

func (op *Operation) emit(s event.State, q *conflict.Query) bool {
	if op.cfg.Callback == nil {
		return true
	}
	return op.cfg.Callback(s, q)
}

// checkpoint blocks while a pause is requested and reports whether the
// worker may go on. It is called at every item boundary.
func (op *Operation) checkpoint() bool {
	op.mu.Lock()
	if op.aborted {
		op.mu.Unlock()
		return false
	}
	if !op.request.Suspended() {
		op.mu.Unlock()
		return true
	}
	suspended := op.request
	op.state = suspended
	op.mu.Unlock()

	op.stats.StopClock(time.Now())
	op.emit(suspended, nil)

	op.mu.Lock()
	for op.request.Suspended() && !op.aborted {
		op.cond.Wait()
	}
	aborted := op.aborted
	if !aborted {
		op.state = event.Running
	}
	op.mu.Unlock()

	op.stats.StartClock(time.Now())
	if aborted {
		return false
	}
	op.emit(event.Running, nil)
	return true
}

// holdWhilePaused is the in-file check-point: it honors pause but not
// abort, so a file that has started copying completes.
func (op *Operation) holdWhilePaused() {
	op.mu.Lock()
	if !op.request.Suspended() || op.aborted {
		op.mu.Unlock()
		return
	}
	op.mu.Unlock()

	op.stats.StopClock(time.Now())
	op.mu.Lock()
	for op.request.Suspended() && !op.aborted {
		op.cond.Wait()
	}
	if !op.aborted {
		op.state = event.Running
	}
	op.mu.Unlock()
	op.stats.StartClock(time.Now())
}

// fail records a per-item error and asks the callback whether to go on.
func (op *Operation) fail(path, verb string, err error) bool {
	ie := &ItemError{Op: verb, Path: path, Err: err}
	n := op.stats.AddError()
	slog.Warn("item failed", "op", verb, "path", path, "error", err, "errors", n)
	fmt.Fprintf(op.cfg.Output, "[%s] %s\n", time.Now().Format(time.TimeOnly), ie)

	op.mu.Lock()
	op.lastErr = ie
	if !op.finished && !op.aborted {
		op.state = event.Error
	}
	op.mu.Unlock()

	if !op.emit(event.Error, nil) {
		op.Abort()
		return false
	}
	op.mu.Lock()
	aborted := op.aborted
	if !aborted && op.state == event.Error {
		op.state = event.Running
	}
	op.mu.Unlock()
	return !aborted
}

func (op *Operation) run() {
	defer close(op.done)
	defer op.finish()

	if !op.checkpoint() {
		return
	}
	op.stats.StartClock(time.Now())
	op.setState(event.Running)
	op.emit(event.Running, nil)

	switch op.cfg.Kind {
	case event.Exec:
		op.runExec()
	case event.Copy:
		op.totalize(false)
		op.runCopy()
	case event.Move:
		op.totalize(false)
		op.runMove()
	case event.Link:
		op.stats.SetTotals(0, int64(len(op.cfg.Sources)))
		op.runLink()
	case event.Delete:
		op.totalize(false)
		op.runDelete()
	case event.Trash:
		op.stats.SetTotals(0, int64(len(op.cfg.Sources)))
		op.runTrash()
	case event.ChmodChown:
		op.totalize(true)
		op.runChmod()
	}
}

func (op *Operation) finish() {
	if op.cfg.Kind != event.Exec {
		op.stats.SetCurrent("", "")
	}
	op.stats.StopClock(time.Now())
	op.mu.Lock()
	op.finished = true
	op.state = event.Finish
	op.cond.Broadcast()
	op.mu.Unlock()
	op.cancel()
	op.emit(event.Finish, nil)
}

// prepareDest creates the destination directory. Failure is the single
// setup error of the operation.
func (op *Operation) prepareDest() bool {
	if err := os.MkdirAll(op.cfg.Dest, 0o755); err != nil {
		op.fail(op.cfg.Dest, "create destination", err)
		return false
	}
	return true
}

// within reports whether path is root or below it.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel))
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
