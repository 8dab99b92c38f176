// Package conflict decides what happens when an operation's destination
// path already exists.
package conflict

import "fmt"

// Mode is the overwrite policy an operation applies to collisions. Every mode
// except Ask resolves without suspending the worker; the "All" variants are
// the sticky modes a decision writes back.
type Mode int

const (
	Ask Mode = iota
	Overwrite
	OverwriteAll
	Skip
	SkipAll
	AutoRename
	AutoRenameAll
)

var modeNames = [...]string{
	Ask:           "ask",
	Overwrite:     "overwrite",
	OverwriteAll:  "overwrite_all",
	Skip:          "skip",
	SkipAll:       "skip_all",
	AutoRename:    "auto_rename",
	AutoRenameAll: "auto_rename_all",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode maps a mode name back to its Mode.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return Mode(m), nil
		}
	}
	return Ask, fmt.Errorf("unknown overwrite mode %q", s)
}

// Decision is an answer to a single Query.
type Decision int

const (
	OverwriteOnce Decision = iota + 1
	OverwriteAllDecision
	SkipOnce
	SkipAllDecision
	RenameTo
	AutoRenameOnce
	AutoRenameAllDecision
	Pause
	Cancel
)

var decisionNames = [...]string{
	OverwriteOnce:         "overwrite",
	OverwriteAllDecision:  "overwrite-all",
	SkipOnce:              "skip",
	SkipAllDecision:       "skip-all",
	RenameTo:              "rename",
	AutoRenameOnce:        "auto-rename",
	AutoRenameAllDecision: "auto-rename-all",
	Pause:                 "pause",
	Cancel:                "cancel",
}

func (d Decision) String() string {
	if d > 0 && int(d) < len(decisionNames) {
		return decisionNames[d]
	}
	return "unknown"
}

// Sticky returns the mode this decision installs for the rest of the
// operation, if any.
func (d Decision) Sticky() (Mode, bool) {
	switch d {
	case OverwriteAllDecision:
		return OverwriteAll, true
	case SkipAllDecision:
		return SkipAll, true
	case AutoRenameAllDecision:
		return AutoRenameAll, true
	default:
		return Ask, false
	}
}

// Action is what the core does with a colliding destination.
type Action int

const (
	ActionOverwrite Action = iota + 1
	ActionSkip
	ActionRename
	ActionPause
	ActionCancel
)

// Resolution is the outcome of resolving one collision. Dest is only
// meaningful for ActionRename.
type Resolution struct {
	Dest   string
	Action Action
}
