// Package task bridges file operations running on worker goroutines to a
// single cooperative poll loop that owns display state, error policy and
// admission of queued tasks.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/event"
	"github.com/bamsammich/spacetask/internal/fileop"
	"github.com/bamsammich/spacetask/internal/queue"
)

// ErrUnknownTask is returned for an id the manager does not hold.
var ErrUnknownTask = errors.New("unknown task")

// Options are the manager-wide settings. Zero durations take the defaults
// from DefaultOptions.
type Options struct {
	Presenter      Presenter
	TrashDir       string
	Tick           time.Duration
	StatsInterval  time.Duration
	SizeTimeout    time.Duration
	ExecGrace      time.Duration
	StallAfter     time.Duration
	BandwidthLimit int64
	LogMaxSize     int64
	LogMaxLines    int
	ErrorMode      ErrorMode
	Overwrite      conflict.Mode
	KeepVisible    bool
	Verify         bool
	Queue          bool
	PauseOnError   bool
}

// DefaultOptions returns the built-in manager settings.
func DefaultOptions() Options {
	return Options{
		Tick:          50 * time.Millisecond,
		StatsInterval: 500 * time.Millisecond,
		SizeTimeout:   fileop.DefaultSizeTimeout,
		ExecGrace:     fileop.DefaultExecGrace,
		StallAfter:    10 * time.Second,
		LogMaxSize:    64 << 10,
		LogMaxLines:   2000,
		ErrorMode:     StopOnFirst,
		Overwrite:     conflict.Ask,
		Queue:         true,
		PauseOnError:  true,
	}
}

// Request describes one task submission. Nil pointers take the manager's
// defaults.
type Request struct {
	Presenter Presenter
	Data      any
	OnDone    func(*Controller, any)
	Exec      *fileop.ExecSpec
	Chmod     *fileop.ChmodActions
	Chown     *fileop.Owner
	Overwrite *conflict.Mode
	ErrorMode *ErrorMode
	Dest      string
	Sources   []string
	Kind      event.Kind
	Recursive bool
	// Queue puts an exec task through admission control like data tasks.
	Queue bool
}

// Manager owns every live Controller and drives them from one poll loop.
// Submission and control methods are safe for concurrent use; Tick calls
// are serialized.
type Manager struct {
	opts     Options
	resolver *conflict.Resolver

	tickMu sync.Mutex

	mu       sync.Mutex
	sched    *queue.Scheduler
	tasks    map[string]*Controller
	order    []string
	observed map[string]event.State
	subs     map[int]func(event.Event)
	nextSub  int
}

// NewManager creates a Manager.
func NewManager(opts Options) *Manager {
	def := DefaultOptions()
	if opts.Tick <= 0 {
		opts.Tick = def.Tick
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = def.StatsInterval
	}
	if opts.StallAfter <= 0 {
		opts.StallAfter = def.StallAfter
	}
	if opts.LogMaxSize <= 0 {
		opts.LogMaxSize = def.LogMaxSize
	}
	if opts.LogMaxLines <= 0 {
		opts.LogMaxLines = def.LogMaxLines
	}
	return &Manager{
		opts:     opts,
		resolver: conflict.NewResolver(),
		sched:    queue.New(opts.Queue, opts.PauseOnError),
		tasks:    make(map[string]*Controller),
		observed: make(map[string]event.State),
		subs:     make(map[int]func(event.Event)),
	}
}

// Submit creates a task and starts its operation, queued when the
// scheduler says so. It never blocks on the operation.
func (m *Manager) Submit(req Request) (*Controller, error) {
	presenter := req.Presenter
	if presenter == nil {
		presenter = m.opts.Presenter
	}
	c := &Controller{
		id:        uuid.NewString()[:8],
		presenter: presenter,
		onDone:    req.OnDone,
		data:      req.Data,
		log:       NewErrorLog(m.opts.LogMaxSize, m.opts.LogMaxLines),
	}
	mode := m.opts.ErrorMode
	if req.ErrorMode != nil {
		mode = *req.ErrorMode
	}
	c.SetErrorMode(mode)
	overwrite := m.opts.Overwrite
	if req.Overwrite != nil {
		overwrite = *req.Overwrite
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	initial := m.sched.Add(c.id, queue.Exempt(req.Kind, req.Queue))
	op, err := fileop.New(fileop.Config{
		Kind:           req.Kind,
		Sources:        req.Sources,
		Dest:           req.Dest,
		Initial:        initial,
		Overwrite:      overwrite,
		Resolver:       m.resolver,
		Callback:       c.callback,
		Output:         c.log,
		Exec:           req.Exec,
		Chmod:          req.Chmod,
		Chown:          req.Chown,
		Recursive:      req.Recursive,
		TrashDir:       m.opts.TrashDir,
		SizeTimeout:    m.opts.SizeTimeout,
		ExecGrace:      m.opts.ExecGrace,
		BandwidthLimit: m.opts.BandwidthLimit,
		Verify:         m.opts.Verify,
	})
	if err != nil {
		m.sched.Remove(c.id)
		return nil, fmt.Errorf("submit %s: %w", req.Kind, err)
	}
	c.op = op
	m.tasks[c.id] = c
	m.order = append(m.order, c.id)
	m.observed[c.id] = initial

	slog.Debug("task submitted", "task", c.id, "kind", req.Kind, "state", initial, "sources", len(req.Sources))
	op.Start()
	return c, nil
}

// Get returns the controller for id.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	return c, nil
}

// Tasks returns the live controllers in submission order.
func (m *Manager) Tasks() []*Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Controller, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tasks[id])
	}
	return out
}

// Len returns the number of live tasks.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Cancel aborts task id.
func (m *Manager) Cancel(id string) error {
	c, err := m.Get(id)
	if err != nil {
		return err
	}
	c.Cancel()
	return nil
}

// Pause suspends task id. A paused task gives up the running slot.
func (m *Manager) Pause(id string) error {
	return m.suspend(id, event.Paused)
}

// Requeue puts task id back in the admission queue.
func (m *Manager) Requeue(id string) error {
	return m.suspend(id, event.Queued)
}

func (m *Manager) suspend(id string, st event.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	if c.op.Finished() {
		return nil
	}
	c.Pause(st)
	// A task answering a query keeps its slot until the worker parks.
	if c.op.State() == st {
		m.sched.Set(id, st)
	}
	return nil
}

// Resume starts task id now, ahead of the queue if it was waiting.
func (m *Manager) Resume(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	if c.op.Finished() {
		return nil
	}
	c.Resume()
	m.sched.Set(id, event.Running)
	return nil
}

// SetErrorMode changes the error policy of task id mid-run.
func (m *Manager) SetErrorMode(id string, mode ErrorMode) error {
	c, err := m.Get(id)
	if err != nil {
		return err
	}
	c.SetErrorMode(mode)
	return nil
}

// Log returns the error and output log of task id.
func (m *Manager) Log(id string) (string, error) {
	c, err := m.Get(id)
	if err != nil {
		return "", err
	}
	return c.Log().String(), nil
}

// Acknowledge releases a finished task kept visible for its errors.
func (m *Manager) Acknowledge(id string) error {
	c, err := m.Get(id)
	if err != nil {
		return err
	}
	c.Acknowledge()
	return nil
}

// Subscribe registers fn for lifecycle events. Events are delivered from
// the poll loop, in order. The returned function unregisters fn.
func (m *Manager) Subscribe(fn func(event.Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Tick runs one poll-loop pass over every task: conflict queries and
// process liveness, state changes and admission, display refresh, then
// teardown of finished tasks.
func (m *Manager) Tick(now time.Time) {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	ctrls := m.Tasks()
	for _, c := range ctrls {
		c.offerQuery()
		if c.op.CheckProcess() {
			slog.Warn("exec process exited unnoticed, forcing finish", "task", c.id)
		}
	}

	events := m.observe(now, ctrls)

	for _, c := range ctrls {
		if c.refresh(now, m.opts.StatsInterval, m.opts.StallAfter) && c.presenter != nil {
			c.presenter.Update(c.display)
		}
	}

	for _, c := range ctrls {
		if !c.complete(m.opts.KeepVisible) {
			continue
		}
		m.remove(c.id)
		if c.presenter != nil {
			c.presenter.Remove(c.id)
		}
		slog.Debug("task torn down", "task", c.id)
	}

	m.publish(events)
}

// observe records state changes in the scheduler, pauses queued tasks
// after an error and promotes the next queued task.
func (m *Manager) observe(now time.Time, ctrls []*Controller) []event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []event.Event
	add := func(c *Controller, st event.State) {
		ev := event.Event{
			Timestamp: now,
			TaskID:    c.id,
			Kind:      c.op.Kind(),
			State:     st,
			Errors:    int(c.Errors()),
		}
		if st == event.Error {
			ev.Error = c.op.LastError()
			var ie *fileop.ItemError
			if errors.As(ev.Error, &ie) {
				ev.Path = ie.Path
			}
		}
		events = append(events, ev)
	}

	for _, c := range ctrls {
		st := c.op.State()
		if prev, ok := m.observed[c.id]; ok && prev == st {
			continue
		}
		if _, live := m.tasks[c.id]; !live {
			continue
		}
		m.observed[c.id] = st
		if st != event.Error {
			m.sched.Set(c.id, st)
		}
		slog.Debug("task state", "task", c.id, "state", st)
		if st != event.Error {
			add(c, st)
		}
	}

	for _, c := range ctrls {
		if !c.takeErrorFlag() {
			continue
		}
		add(c, event.Error)
		for _, id := range m.sched.ErrorRaised(c.id) {
			if q, ok := m.tasks[id]; ok {
				q.Pause(event.Paused)
				m.observed[id] = event.Paused
				slog.Info("paused queued task after error", "task", id, "failed", c.id)
				add(q, event.Paused)
			}
		}
	}

	if id, ok := m.sched.Next(); ok {
		if c, live := m.tasks[id]; live {
			c.Resume()
			m.sched.Set(id, event.Running)
			m.observed[id] = event.Running
			slog.Debug("task admitted", "task", id)
			add(c, event.Running)
		}
	}
	return events
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	delete(m.observed, id)
	m.sched.Remove(id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
}

func (m *Manager) publish(events []event.Event) {
	if len(events) == 0 {
		return
	}
	m.mu.Lock()
	keys := make([]int, 0, len(m.subs))
	for k := range m.subs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	subs := make([]func(event.Event), 0, len(keys))
	for _, k := range keys {
		subs = append(subs, m.subs[k])
	}
	m.mu.Unlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}

// Pending returns the number of tasks whose operation has not finished or
// whose completion has not been delivered yet.
func (m *Manager) Pending() int {
	n := 0
	for _, c := range m.Tasks() {
		if !c.op.Finished() || c.lastState != event.Finish {
			n++
		}
	}
	return n
}

// Run drives the poll loop on the configured cadence until ctx ends.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Tick(now)
		}
	}
}

// RunUntilDone drives the poll loop until every submitted task has
// finished and been reported.
func (m *Manager) RunUntilDone(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.Tick)
	defer ticker.Stop()
	for {
		m.Tick(time.Now())
		if m.Pending() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown aborts every task, waits for their workers until ctx ends, and
// removes temporary files left by interrupted copies. A final tick delivers
// the completion callback of every task that finished.
func (m *Manager) Shutdown(ctx context.Context) error {
	ctrls := m.Tasks()
	for _, c := range ctrls {
		c.Cancel()
	}
	defer fileop.CleanupTmpFiles()

	var err error
wait:
	for _, c := range ctrls {
		select {
		case <-c.op.Done():
		case <-ctx.Done():
			err = ctx.Err()
			break wait
		}
	}
	m.Tick(time.Now())
	return err
}
