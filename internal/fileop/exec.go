package fileop

import (
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/bamsammich/spacetask/internal/event"
	"github.com/bamsammich/spacetask/internal/platform"
)

// reapAfterTicks is how many consecutive liveness checks must see an exited
// process before finish is forced, leaving the normal Wait path room to win.
const reapAfterTicks = 2

type execState struct {
	mu       sync.Mutex
	forced   chan struct{}
	once     sync.Once
	pid      int
	exitCode int
	exitSet  bool
	deadSeen int
}

func (e *execState) init() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.forced == nil {
		e.forced = make(chan struct{})
	}
}

func (e *execState) pidOf() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pid
}

func (e *execState) setPid(pid int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pid = pid
	e.deadSeen = 0
}

func (e *execState) force() {
	e.once.Do(func() { close(e.forced) })
}

// ExitCode returns the exit status of an Exec operation's command. ok is
// false until the command has been reaped normally.
func (op *Operation) ExitCode() (code int, ok bool) {
	op.exec.mu.Lock()
	defer op.exec.mu.Unlock()
	return op.exec.exitCode, op.exec.exitSet
}

func (op *Operation) runExec() {
	spec := op.cfg.Exec
	shell := spec.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.Command(shell, "-c", spec.Command) //nolint:gosec // G204: running the user's command is the point
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdout = op.cfg.Output
	cmd.Stderr = op.cfg.Output
	cmd.SysProcAttr = platform.GroupAttr()
	cmd.WaitDelay = op.cfg.ExecGrace

	op.exec.init()
	op.stats.SetTotals(0, 1)
	op.stats.SetCurrent(spec.Command, spec.Dir)

	if err := cmd.Start(); err != nil {
		op.fail(spec.Command, "exec", err)
		return
	}
	pid := cmd.Process.Pid
	op.exec.setPid(pid)
	slog.Debug("exec started", "pid", pid, "command", spec.Command)

	// A pause or abort that arrived before the process existed applies now.
	op.mu.Lock()
	suspended, aborted := op.request.Suspended(), op.aborted
	op.mu.Unlock()
	switch {
	case aborted:
		op.terminateProcess()
	case suspended:
		op.stopProcess()
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	var err error
	select {
	case err = <-waitErr:
		op.exec.mu.Lock()
		op.exec.exitCode = cmd.ProcessState.ExitCode()
		op.exec.exitSet = true
		op.exec.mu.Unlock()
	case <-op.exec.forced:
		slog.Warn("exec process exited but was not reaped, forcing finish", "pid", pid)
	}
	op.exec.setPid(0)
	op.stats.AddItems(1)

	if err != nil && !op.isAborted() {
		op.fail(spec.Command, "exec", err)
	}
}

// CheckProcess re-checks the liveness of an Exec operation's process and
// forces finish once it has been seen exited on consecutive checks without
// the worker noticing. It reports whether finish was forced.
func (op *Operation) CheckProcess() bool {
	if op.cfg.Kind != event.Exec {
		return false
	}
	pid := op.exec.pidOf()
	if pid <= 0 || !platform.Exited(pid) {
		op.exec.mu.Lock()
		op.exec.deadSeen = 0
		op.exec.mu.Unlock()
		return false
	}

	op.exec.mu.Lock()
	op.exec.deadSeen++
	seen := op.exec.deadSeen
	op.exec.mu.Unlock()
	if seen < reapAfterTicks {
		return false
	}
	op.exec.force()
	return true
}

func (op *Operation) stopProcess() {
	op.stats.StopClock(time.Now())
	if pid := op.exec.pidOf(); pid > 0 {
		if err := platform.Stop(pid); err != nil {
			slog.Debug("stop process group", "pid", pid, "error", err)
		}
	}
}

func (op *Operation) continueProcess() {
	op.stats.StartClock(time.Now())
	if pid := op.exec.pidOf(); pid > 0 {
		if err := platform.Continue(pid); err != nil {
			slog.Debug("continue process group", "pid", pid, "error", err)
		}
	}
}

// terminateProcess sends SIGTERM to the process group and SIGKILL once the
// grace period runs out.
func (op *Operation) terminateProcess() {
	pid := op.exec.pidOf()
	if pid <= 0 {
		return
	}
	if err := platform.Terminate(pid); err != nil {
		slog.Debug("terminate process group", "pid", pid, "error", err)
	}

	go func() {
		t := time.NewTimer(op.cfg.ExecGrace)
		defer t.Stop()
		select {
		case <-op.done:
			return
		case <-t.C:
		}
		if op.exec.pidOf() == pid && !platform.Exited(pid) {
			slog.Debug("grace period over, killing process group", "pid", pid)
			_ = platform.Kill(pid)
		}
	}()
}
