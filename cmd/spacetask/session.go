package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bamsammich/spacetask/internal/event"
	"github.com/bamsammich/spacetask/internal/task"
	"github.com/bamsammich/spacetask/internal/ui"
	"github.com/bamsammich/spacetask/internal/ui/tui"
)

const shutdownTimeout = 10 * time.Second

// outcome tallies how the submitted tasks ended.
type outcome struct {
	mu       sync.Mutex
	finished int
	failed   int // finished with errors or stopped
	items    int64
}

func (o *outcome) record(c *task.Controller, _ any) {
	snap := c.Operation().Stats().Snapshot()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished++
	o.items += snap.ItemsDone
	if snap.Errors > 0 || c.Stopped() {
		o.failed++
	}
}

// exitCode is 0 when every task succeeded, 1 when some work was done but
// a task failed, and 2 when nothing was done at all.
func (o *outcome) exitCode() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.failed == 0:
		return 0
	case o.items > 0:
		return 1
	default:
		return 2
	}
}

// execute submits reqs to a fresh manager and drives it until every task
// has finished, the user quits the TUI, or a signal arrives.
func (a *app) execute(cmd *cobra.Command, reqs []task.Request) error {
	opts, err := a.options()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := task.NewManager(opts)
	unsubscribe := m.Subscribe(logEvent)
	defer unsubscribe()

	var (
		presenter task.Presenter
		screen    *tui.Presenter
	)
	if a.useTUI() {
		screen = tui.NewPresenter(tui.Config{Controls: m})
		defer m.Subscribe(screen.Notify)()
		presenter = screen
	} else {
		presenter = a.linePresenter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	}

	var out outcome
	for i := range reqs {
		reqs[i].Presenter = presenter
		reqs[i].OnDone = out.record
		if _, err := m.Submit(reqs[i]); err != nil {
			slog.Error("submit failed", "task", describe(reqs[i]), "error", err)
			a.shutdown(m)
			return &exitError{code: 2}
		}
	}

	var unfinished int
	if screen != nil {
		err = a.runTUI(ctx, m, screen)
		unfinished = m.Pending()
	} else {
		err = m.RunUntilDone(ctx)
	}
	a.shutdown(m)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("interrupted")
			return &exitError{code: 2}
		}
		return err
	}
	if unfinished > 0 {
		slog.Warn("quit with unfinished tasks", "tasks", unfinished)
		return &exitError{code: 1}
	}
	if code := out.exitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func (a *app) linePresenter(stdout, stderr io.Writer) task.Presenter {
	isTTY := ui.IsTTY(os.Stderr.Fd())
	var input io.Reader
	if ui.IsTTY(os.Stdin.Fd()) {
		input = a.stdin
	}
	return ui.NewPresenter(ui.Config{
		Writer:     stdout,
		ErrWriter:  stderr,
		Input:      input,
		Width:      ui.TermWidth(os.Stderr.Fd()),
		IsTTY:      isTTY,
		Quiet:      a.flags.quiet,
		NoProgress: a.flags.noProgress,
	})
}

// runTUI runs the poll loop in the background and the TUI in the
// foreground; Bubble Tea needs the foreground to own stdin. Quitting the
// TUI ends the session.
func (a *app) runTUI(ctx context.Context, m *task.Manager, screen *tui.Presenter) error {
	loopCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Run(loopCtx)
	}()

	err := screen.Run(ctx)
	cancel()
	wg.Wait()
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (a *app) shutdown(m *task.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		slog.Warn("tasks did not stop in time", "error", err)
	}
}

func logEvent(ev event.Event) {
	attrs := []any{"task", ev.TaskID, "kind", ev.Kind, "state", ev.State}
	if ev.State == event.Error {
		slog.Warn("task error", append(attrs, "path", ev.Path, "error", ev.Error, "errors", ev.Errors)...)
		return
	}
	slog.Debug("task event", attrs...)
}

func describe(req task.Request) string {
	if req.Kind == event.Exec && req.Exec != nil {
		return fmt.Sprintf("%s %q", req.Kind, req.Exec.Command)
	}
	return fmt.Sprintf("%s %d source(s)", req.Kind, len(req.Sources))
}
