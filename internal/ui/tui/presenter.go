// Package tui is the full-screen Bubble Tea front end: a task list with
// per-task controls, a lifecycle feed and a detail view of one task.
package tui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/event"
	"github.com/bamsammich/spacetask/internal/task"
)

// Controls are the per-task actions the TUI can take. *task.Manager
// implements it.
type Controls interface {
	Pause(id string) error
	Resume(id string) error
	Requeue(id string) error
	Cancel(id string) error
	Acknowledge(id string) error
	SetErrorMode(id string, mode task.ErrorMode) error
	Log(id string) (string, error)
}

// Config configures the TUI presenter.
type Config struct {
	Controls Controls
}

type pendingQuery struct {
	q *conflict.Query
	d task.Display
}

// inbox collects what the poll loop hands over between two TUI ticks.
// Nothing in it blocks the caller, and only the latest display per task is
// kept.
type inbox struct {
	mu       sync.Mutex
	displays map[string]task.Display
	seen     []string
	removed  []string
	queries  []pendingQuery
	events   []event.Event
	closed   bool
}

type batch struct {
	displays []task.Display
	removed  []string
	queries  []pendingQuery
	events   []event.Event
}

func newInbox() *inbox {
	return &inbox{displays: make(map[string]task.Display)}
}

func (b *inbox) update(d task.Display) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if _, ok := b.displays[d.ID]; !ok {
		b.seen = append(b.seen, d.ID)
	}
	b.displays[d.ID] = d
}

func (b *inbox) ask(d task.Display, q *conflict.Query) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.queries = append(b.queries, pendingQuery{q: q, d: d})
	return true
}

func (b *inbox) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.removed = append(b.removed, id)
}

func (b *inbox) notify(ev event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.events = append(b.events, ev)
}

// drain empties the inbox. Displays come out in first-seen order.
func (b *inbox) drain() batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := batch{removed: b.removed, queries: b.queries, events: b.events}
	for _, id := range b.seen {
		out.displays = append(out.displays, b.displays[id])
	}
	b.displays = make(map[string]task.Display)
	b.seen, b.removed, b.queries, b.events = nil, nil, nil, nil
	return out
}

// close stops accepting input and returns the queries nobody took.
func (b *inbox) close() []pendingQuery {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	left := b.queries
	b.queries = nil
	return left
}

// Presenter implements task.Presenter on top of a Bubble Tea program.
type Presenter struct {
	box      *inbox
	controls Controls
}

// NewPresenter creates a new TUI presenter.
func NewPresenter(cfg Config) *Presenter {
	return &Presenter{box: newInbox(), controls: cfg.Controls}
}

// Update implements task.Presenter.
func (p *Presenter) Update(d task.Display) { p.box.update(d) }

// Ask implements task.Presenter. It declines once the program has exited.
func (p *Presenter) Ask(d task.Display, q *conflict.Query) bool { return p.box.ask(d, q) }

// Remove implements task.Presenter.
func (p *Presenter) Remove(id string) { p.box.remove(id) }

// Notify feeds a lifecycle event to the feed view. Pass it to
// task.Manager.Subscribe.
func (p *Presenter) Notify(ev event.Event) { p.box.notify(ev) }

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// ends. Conflicts still unanswered at exit are cancelled.
func (p *Presenter) Run(ctx context.Context) error {
	prog := tea.NewProgram(
		NewModel(p.box, p.controls),
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
		tea.WithContext(ctx),
	)
	final, err := prog.Run()
	left := p.box.close()
	if m, ok := final.(Model); ok {
		left = append(left, m.queries...)
	}
	for _, pq := range left {
		pq.q.Respond(conflict.Cancel, "")
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
