//go:build unix

package platform

import (
	"errors"
	"slices"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// GroupAttr returns process attributes that place a child in its own process
// group, so stop/continue/terminate signals reach the whole tree it spawns.
func GroupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// SignalGroup delivers sig to the process group led by pid. A group that has
// already gone away is not an error.
func SignalGroup(pid int, sig unix.Signal) error {
	if pid <= 0 {
		return nil
	}
	err := unix.Kill(-pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

// Stop suspends the process group led by pid.
func Stop(pid int) error { return SignalGroup(pid, unix.SIGSTOP) }

// Continue resumes a group suspended by Stop.
func Continue(pid int) error { return SignalGroup(pid, unix.SIGCONT) }

// Terminate asks the group to exit.
func Terminate(pid int) error {
	// A stopped group cannot act on SIGTERM until it is continued.
	if err := Continue(pid); err != nil {
		return err
	}
	return SignalGroup(pid, unix.SIGTERM)
}

// Kill forcefully ends the group.
func Kill(pid int) error { return SignalGroup(pid, unix.SIGKILL) }

// Exited reports whether pid no longer runs: it is either gone or a zombie
// waiting to be reaped.
func Exited(pid int) bool {
	if pid <= 0 {
		return true
	}
	//nolint:gosec // G115: pids fit in int32
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return errors.Is(err, process.ErrorProcessNotRunning)
	}
	status, err := p.Status()
	if err != nil {
		return false
	}
	return slices.Contains(status, process.Zombie)
}
